package games

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tamarLevanoni/couple-time-backend/internal/rentals"
	"github.com/tamarLevanoni/couple-time-backend/pkg/db/models"
)

// instanceStore backs the rental state machine's instance updates with
// guarded raw updates so a racing transaction can never double-claim a copy.
type instanceStore struct {
	db *gorm.DB
}

// NewInstanceStore exposes guarded game-instance writes to the rental
// lifecycle.
func NewInstanceStore(db *gorm.DB) rentals.InstanceStore {
	return &instanceStore{db: db}
}

func (s *instanceStore) WithTx(tx *gorm.DB) rentals.InstanceStore {
	if tx == nil {
		return s
	}
	return &instanceStore{db: tx}
}

func (s *instanceStore) FindInstances(ctx context.Context, ids []uuid.UUID) ([]models.GameInstance, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var instances []models.GameInstance
	err := s.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&instances).Error
	if err != nil {
		return nil, err
	}
	return instances, nil
}

// MarkBorrowed claims every instance that is still AVAILABLE. The returned
// row count falling short of len(ids) means another transaction got there
// first and the caller must roll back.
func (s *instanceStore) MarkBorrowed(ctx context.Context, ids []uuid.UUID, expectedReturn time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Exec(`
		UPDATE game_instances
		SET status = 'BORROWED',
			expected_return_date = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id IN ? AND status = 'AVAILABLE'
	`, expectedReturn, ids)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// MarkReturned releases every instance that is still BORROWED and clears the
// expected return date.
func (s *instanceStore) MarkReturned(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Exec(`
		UPDATE game_instances
		SET status = 'AVAILABLE',
			expected_return_date = NULL,
			updated_at = CURRENT_TIMESTAMP
		WHERE id IN ? AND status = 'BORROWED'
	`, ids)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
