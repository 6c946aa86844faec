package rentals

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tamarLevanoni/couple-time-backend/pkg/db/models"
	"github.com/tamarLevanoni/couple-time-backend/pkg/enums"
	"github.com/tamarLevanoni/couple-time-backend/pkg/pagination"
)

func setupRentalsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	rentals := `
CREATE TABLE IF NOT EXISTS rentals (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  center_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'PENDING',
  requested_at DATETIME NOT NULL,
  borrowed_at DATETIME,
  returned_at DATETIME,
  expected_return_date DATETIME,
  notes TEXT,
  rejection_reason TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	rentalItems := `
CREATE TABLE IF NOT EXISTS rental_items (
  id TEXT PRIMARY KEY,
  rental_id TEXT NOT NULL,
  game_instance_id TEXT NOT NULL,
  game_id TEXT NOT NULL,
  created_at DATETIME
);`
	actions := `
CREATE TABLE IF NOT EXISTS actions (
  id TEXT PRIMARY KEY,
  rental_id TEXT NOT NULL,
  actor_user_id TEXT NOT NULL,
  from_status TEXT NOT NULL,
  to_status TEXT NOT NULL,
  comment TEXT,
  created_at DATETIME
);`
	for _, stmt := range []string{rentals, rentalItems, actions} {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func seedRental(t *testing.T, db *gorm.DB, userID, centerID uuid.UUID, status enums.RentalStatus, createdAt time.Time) *models.Rental {
	t.Helper()
	rental := &models.Rental{
		ID:          uuid.New(),
		UserID:      userID,
		CenterID:    centerID,
		Status:      status,
		RequestedAt: createdAt,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	require.NoError(t, db.Create(rental).Error)
	return rental
}

func TestUpdateRentalStatusGuard(t *testing.T) {
	db := setupRentalsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	rental := seedRental(t, db, uuid.New(), uuid.New(), enums.RentalStatusPending, time.Now().UTC())

	rows, err := repo.UpdateRentalStatus(ctx, rental.ID, enums.RentalStatusPending, map[string]any{
		"status": enums.RentalStatusActive,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	// Second caller re-runs the same guarded update and claims nothing.
	rows, err = repo.UpdateRentalStatus(ctx, rental.ID, enums.RentalStatusPending, map[string]any{
		"status": enums.RentalStatusActive,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)

	var reloaded models.Rental
	require.NoError(t, db.Where("id = ?", rental.ID).First(&reloaded).Error)
	assert.Equal(t, enums.RentalStatusActive, reloaded.Status)
}

func TestFindUserBlockingRentals(t *testing.T) {
	db := setupRentalsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	centerID := uuid.New()
	instanceID := uuid.New()

	pending := seedRental(t, db, userID, centerID, enums.RentalStatusPending, time.Now().UTC())
	require.NoError(t, db.Create(&models.RentalItem{
		ID:             uuid.New(),
		RentalID:       pending.ID,
		GameInstanceID: instanceID,
		GameID:         uuid.New(),
	}).Error)

	returned := seedRental(t, db, userID, centerID, enums.RentalStatusReturned, time.Now().UTC())
	require.NoError(t, db.Create(&models.RentalItem{
		ID:             uuid.New(),
		RentalID:       returned.ID,
		GameInstanceID: instanceID,
		GameID:         uuid.New(),
	}).Error)

	blocking, err := repo.FindUserBlockingRentals(ctx, userID, []uuid.UUID{instanceID})
	require.NoError(t, err)
	require.Len(t, blocking, 1)
	assert.Equal(t, pending.ID, blocking[0].ID)

	// A different user's request over the same instance does not block.
	blocking, err = repo.FindUserBlockingRentals(ctx, uuid.New(), []uuid.UUID{instanceID})
	require.NoError(t, err)
	assert.Empty(t, blocking)
}

func TestListByUserPagination(t *testing.T) {
	db := setupRentalsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	centerID := uuid.New()
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		seedRental(t, db, userID, centerID, enums.RentalStatusPending, base.Add(time.Duration(i)*time.Minute))
	}
	seedRental(t, db, uuid.New(), centerID, enums.RentalStatusPending, base)

	page, err := repo.ListByUser(ctx, userID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Rentals, 2)
	require.NotEmpty(t, page.NextCursor)

	rest, err := repo.ListByUser(ctx, userID, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Rentals, 1)
	assert.Empty(t, rest.NextCursor)

	seen := map[uuid.UUID]bool{}
	for _, summary := range append(page.Rentals, rest.Rentals...) {
		assert.Equal(t, userID, summary.UserID)
		assert.False(t, seen[summary.ID], "duplicate rental across pages")
		seen[summary.ID] = true
	}
}

func TestListByCenterStatusFilter(t *testing.T) {
	db := setupRentalsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	centerID := uuid.New()
	seedRental(t, db, uuid.New(), centerID, enums.RentalStatusPending, time.Now().UTC())
	seedRental(t, db, uuid.New(), centerID, enums.RentalStatusActive, time.Now().UTC())
	seedRental(t, db, uuid.New(), uuid.New(), enums.RentalStatusPending, time.Now().UTC())

	status := enums.RentalStatusPending
	page, err := repo.ListByCenter(ctx, centerID, &status, pagination.Params{Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Rentals, 1)
	assert.Equal(t, enums.RentalStatusPending, page.Rentals[0].Status)
}

func TestFindOverdue(t *testing.T) {
	db := setupRentalsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	late := seedRental(t, db, uuid.New(), uuid.New(), enums.RentalStatusActive, now.Add(-48*time.Hour))
	past := now.Add(-24 * time.Hour)
	require.NoError(t, db.Model(&models.Rental{}).Where("id = ?", late.ID).Update("expected_return_date", past).Error)

	onTime := seedRental(t, db, uuid.New(), uuid.New(), enums.RentalStatusActive, now)
	future := now.Add(24 * time.Hour)
	require.NoError(t, db.Model(&models.Rental{}).Where("id = ?", onTime.ID).Update("expected_return_date", future).Error)

	overdue, err := repo.FindOverdue(ctx, now)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, late.ID, overdue[0].ID)
}

func TestListActionsOrdered(t *testing.T) {
	db := setupRentalsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	rentalID := uuid.New()
	actorID := uuid.New()
	first := models.Action{
		ID:          uuid.New(),
		RentalID:    rentalID,
		ActorUserID: actorID,
		FromStatus:  enums.RentalStatusPending,
		ToStatus:    enums.RentalStatusActive,
		CreatedAt:   time.Now().UTC().Add(-time.Minute),
	}
	second := models.Action{
		ID:          uuid.New(),
		RentalID:    rentalID,
		ActorUserID: actorID,
		FromStatus:  enums.RentalStatusActive,
		ToStatus:    enums.RentalStatusReturned,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, db.Create(&second).Error)
	require.NoError(t, db.Create(&first).Error)

	actions, err := repo.ListActions(ctx, rentalID)
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.Equal(t, enums.RentalStatusPending, actions[0].FromStatus)
	assert.Equal(t, enums.RentalStatusReturned, actions[1].ToStatus)
}
