package rentals

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tamarLevanoni/couple-time-backend/pkg/db/models"
	"github.com/tamarLevanoni/couple-time-backend/pkg/enums"
	"github.com/tamarLevanoni/couple-time-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a rentals repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateRental(ctx context.Context, rental *models.Rental) (*models.Rental, error) {
	if err := r.db.WithContext(ctx).Create(rental).Error; err != nil {
		return nil, err
	}
	return rental, nil
}

func (r *repository) CreateRentalItems(ctx context.Context, items []models.RentalItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) CreateAction(ctx context.Context, action *models.Action) error {
	return r.db.WithContext(ctx).Create(action).Error
}

func (r *repository) FindRental(ctx context.Context, id uuid.UUID) (*models.Rental, error) {
	var rental models.Rental
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.GameInstance.Game").
		Where("id = ?", id).
		First(&rental).Error
	if err != nil {
		return nil, err
	}
	return &rental, nil
}

func (r *repository) FindRentals(ctx context.Context, ids []uuid.UUID) ([]models.Rental, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rentals []models.Rental
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id IN ?", ids).
		Find(&rentals).Error
	if err != nil {
		return nil, err
	}
	return rentals, nil
}

func (r *repository) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindCenter(ctx context.Context, id uuid.UUID) (*models.Center, error) {
	var center models.Center
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&center).Error; err != nil {
		return nil, err
	}
	return &center, nil
}

// LockUser takes a row lock on the user for the calling transaction.
// Concurrent rental creates by the same user queue on this lock, so the
// blocking-rental check that follows sees every rental an earlier holder
// committed.
func (r *repository) LockUser(ctx context.Context, id uuid.UUID) error {
	var user models.User
	return r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&user).Error
}

// FindBlockingRentals returns PENDING or ACTIVE rentals that reference any of
// the given instances, regardless of requester.
func (r *repository) FindBlockingRentals(ctx context.Context, instanceIDs []uuid.UUID) ([]models.Rental, error) {
	return r.findBlocking(ctx, uuid.Nil, instanceIDs)
}

// FindUserBlockingRentals scopes the blocking check to one requester, backing
// the duplicate-active-request rule.
func (r *repository) FindUserBlockingRentals(ctx context.Context, userID uuid.UUID, instanceIDs []uuid.UUID) ([]models.Rental, error) {
	return r.findBlocking(ctx, userID, instanceIDs)
}

func (r *repository) findBlocking(ctx context.Context, userID uuid.UUID, instanceIDs []uuid.UUID) ([]models.Rental, error) {
	if len(instanceIDs) == 0 {
		return nil, nil
	}
	query := r.db.WithContext(ctx).
		Distinct("rentals.*").
		Joins("JOIN rental_items ri ON ri.rental_id = rentals.id").
		Where("ri.game_instance_id IN ?", instanceIDs).
		Where("rentals.status IN ?", []enums.RentalStatus{enums.RentalStatusPending, enums.RentalStatusActive})
	if userID != uuid.Nil {
		query = query.Where("rentals.user_id = ?", userID)
	}

	var rentals []models.Rental
	if err := query.Preload("Items").Find(&rentals).Error; err != nil {
		return nil, err
	}
	return rentals, nil
}

// UpdateRentalStatus applies updates only while the row still holds the
// expected status. Callers check the returned row count to detect races.
func (r *repository) UpdateRentalStatus(ctx context.Context, id uuid.UUID, from enums.RentalStatus, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Rental{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*RentalList, error) {
	query := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID)
	return r.listPage(ctx, query, params)
}

func (r *repository) ListByCenter(ctx context.Context, centerID uuid.UUID, status *enums.RentalStatus, params pagination.Params) (*RentalList, error) {
	query := r.db.WithContext(ctx).
		Preload("Items").
		Where("center_id = ?", centerID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	return r.listPage(ctx, query, params)
}

func (r *repository) listPage(ctx context.Context, query *gorm.DB, params pagination.Params) (*RentalList, error) {
	normalizedLimit := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(strings.TrimSpace(params.Cursor))
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rentals []models.Rental
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rentals).Error
	if err != nil {
		return nil, err
	}

	nextCursor := ""
	if len(rentals) > normalizedLimit {
		last := rentals[normalizedLimit-1]
		rentals = rentals[:normalizedLimit]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	summaries := make([]RentalSummary, 0, len(rentals))
	for i := range rentals {
		summaries = append(summaries, toSummary(&rentals[i]))
	}
	return &RentalList{Rentals: summaries, NextCursor: nextCursor}, nil
}

// FindOverdue returns ACTIVE rentals whose expected return date passed the
// cutoff. Used by the overdue reminder job.
func (r *repository) FindOverdue(ctx context.Context, cutoff time.Time) ([]models.Rental, error) {
	var rentals []models.Rental
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("status = ?", enums.RentalStatusActive).
		Where("expected_return_date IS NOT NULL AND expected_return_date < ?", cutoff).
		Order("expected_return_date ASC").
		Find(&rentals).Error
	if err != nil {
		return nil, err
	}
	return rentals, nil
}

func (r *repository) ListActions(ctx context.Context, rentalID uuid.UUID) ([]models.Action, error) {
	var actions []models.Action
	err := r.db.WithContext(ctx).
		Where("rental_id = ?", rentalID).
		Order("created_at ASC").
		Find(&actions).Error
	if err != nil {
		return nil, err
	}
	return actions, nil
}

func toSummary(rental *models.Rental) RentalSummary {
	items := make([]RentalItemSummary, 0, len(rental.Items))
	for _, item := range rental.Items {
		summary := RentalItemSummary{
			GameInstanceID: item.GameInstanceID,
			GameID:         item.GameID,
		}
		if item.GameInstance != nil && item.GameInstance.Game != nil {
			summary.GameName = item.GameInstance.Game.Name
		}
		items = append(items, summary)
	}
	return RentalSummary{
		ID:                 rental.ID,
		UserID:             rental.UserID,
		CenterID:           rental.CenterID,
		Status:             rental.Status,
		RequestedAt:        rental.RequestedAt,
		BorrowedAt:         rental.BorrowedAt,
		ReturnedAt:         rental.ReturnedAt,
		ExpectedReturnDate: rental.ExpectedReturnDate,
		Notes:              rental.Notes,
		RejectionReason:    rental.RejectionReason,
		Items:              items,
	}
}
