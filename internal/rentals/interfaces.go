package rentals

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tamarLevanoni/couple-time-backend/pkg/db/models"
	"github.com/tamarLevanoni/couple-time-backend/pkg/enums"
	"github.com/tamarLevanoni/couple-time-backend/pkg/pagination"
)

// Repository defines persistence operations for rentals and their audit trail.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateRental(ctx context.Context, rental *models.Rental) (*models.Rental, error)
	CreateRentalItems(ctx context.Context, items []models.RentalItem) error
	CreateAction(ctx context.Context, action *models.Action) error
	FindRental(ctx context.Context, id uuid.UUID) (*models.Rental, error)
	FindRentals(ctx context.Context, ids []uuid.UUID) ([]models.Rental, error)
	FindUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindCenter(ctx context.Context, id uuid.UUID) (*models.Center, error)
	LockUser(ctx context.Context, id uuid.UUID) error
	FindBlockingRentals(ctx context.Context, instanceIDs []uuid.UUID) ([]models.Rental, error)
	FindUserBlockingRentals(ctx context.Context, userID uuid.UUID, instanceIDs []uuid.UUID) ([]models.Rental, error)
	UpdateRentalStatus(ctx context.Context, id uuid.UUID, from enums.RentalStatus, updates map[string]any) (int64, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*RentalList, error)
	ListByCenter(ctx context.Context, centerID uuid.UUID, status *enums.RentalStatus, params pagination.Params) (*RentalList, error)
	FindOverdue(ctx context.Context, cutoff time.Time) ([]models.Rental, error)
	ListActions(ctx context.Context, rentalID uuid.UUID) ([]models.Action, error)
}

// InstanceStore exposes the game-instance reads and guarded writes the state
// machine needs. Implementations must honor the tx binding so instance rows
// and rental rows always move in the same transaction.
type InstanceStore interface {
	WithTx(tx *gorm.DB) InstanceStore
	FindInstances(ctx context.Context, ids []uuid.UUID) ([]models.GameInstance, error)
	MarkBorrowed(ctx context.Context, ids []uuid.UUID, expectedReturn time.Time) (int64, error)
	MarkReturned(ctx context.Context, ids []uuid.UUID) (int64, error)
}

// AccountProvisioner creates a user row for guest rental requests.
type AccountProvisioner interface {
	EnsureUserByEmail(ctx context.Context, tx *gorm.DB, email, firstName, lastName string, phone *string) (*models.User, error)
}
