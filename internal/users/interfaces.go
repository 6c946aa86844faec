package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tamarLevanoni/couple-time-backend/pkg/db/models"
	"github.com/tamarLevanoni/couple-time-backend/pkg/pagination"
)

// Repository exposes user persistence operations. WithTx rebinds the repo to
// a transaction so permission checks and writes see the same snapshot.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateUser(ctx context.Context, dto CreateUserDTO) (*models.User, error)
	FindUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, id uuid.UUID, updates map[string]any) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	ListUsers(ctx context.Context, filters UserFilters, params pagination.Params) (*UserList, error)

	// ClearCoordinatorRefs nulls coordinator_id on every center pointing at
	// the user; ClearSuperCoordinatorRefs does the same for the super slot.
	ClearCoordinatorRefs(ctx context.Context, userID uuid.UUID) error
	ClearSuperCoordinatorRefs(ctx context.Context, userID uuid.UUID) error
}
