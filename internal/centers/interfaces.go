package centers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tamarLevanoni/couple-time-backend/pkg/db/models"
	"github.com/tamarLevanoni/couple-time-backend/pkg/pagination"
)

// Repository defines persistence operations for centers and their staffing
// back-references.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateCenter(ctx context.Context, center *models.Center) (*models.Center, error)
	UpdateCenter(ctx context.Context, id uuid.UUID, updates map[string]any) error
	FindCenter(ctx context.Context, id uuid.UUID) (*models.Center, error)
	ListCenters(ctx context.Context, filters CenterFilters, params pagination.Params) (*CenterList, error)
	FindUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateUser(ctx context.Context, id uuid.UUID, updates map[string]any) error
}
