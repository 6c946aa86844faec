package games

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tamarLevanoni/couple-time-backend/pkg/db/models"
	"github.com/tamarLevanoni/couple-time-backend/pkg/enums"
	"github.com/tamarLevanoni/couple-time-backend/pkg/pagination"
)

// Repository defines persistence operations for the game catalog and the
// per-center physical copies.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateGame(ctx context.Context, game *models.Game) (*models.Game, error)
	UpdateGame(ctx context.Context, id uuid.UUID, updates map[string]any) error
	FindGame(ctx context.Context, id uuid.UUID) (*models.Game, error)
	ListGames(ctx context.Context, filters GameFilters, params pagination.Params) (*GameList, error)
	CreateInstance(ctx context.Context, instance *models.GameInstance) (*models.GameInstance, error)
	FindInstance(ctx context.Context, id uuid.UUID) (*models.GameInstance, error)
	ListInstancesByCenter(ctx context.Context, centerID uuid.UUID, params pagination.Params) (*InstanceList, error)
	CountBlockingRentals(ctx context.Context, instanceID uuid.UUID) (int64, error)
	UpdateInstanceStatus(ctx context.Context, id uuid.UUID, from, to enums.GameInstanceStatus, notes *string) (int64, error)
	FindUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindCenter(ctx context.Context, id uuid.UUID) (*models.Center, error)
}
