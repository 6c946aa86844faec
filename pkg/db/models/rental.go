package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tamarLevanoni/couple-time-backend/pkg/enums"
)

// Rental is one user's request for one or more game instances, all belonging
// to the same center. Status is written only by the rental state machine.
type Rental struct {
	ID                 uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID             uuid.UUID          `gorm:"column:user_id;type:uuid;not null"`
	CenterID           uuid.UUID          `gorm:"column:center_id;type:uuid;not null"`
	Status             enums.RentalStatus `gorm:"type:text;not null;default:'PENDING'"`
	RequestedAt        time.Time          `gorm:"column:requested_at;not null"`
	BorrowedAt         *time.Time         `gorm:"column:borrowed_at"`
	ReturnedAt         *time.Time         `gorm:"column:returned_at"`
	ExpectedReturnDate *time.Time         `gorm:"column:expected_return_date"`
	Notes              *string            `gorm:"type:text"`
	RejectionReason    *string            `gorm:"column:rejection_reason"`
	Items              []RentalItem       `gorm:"foreignKey:RentalID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// InstanceIDs returns the game instance ids referenced by this rental's items.
func (r *Rental) InstanceIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(r.Items))
	for _, item := range r.Items {
		ids = append(ids, item.GameInstanceID)
	}
	return ids
}

// RentalItem links a rental to one requested game instance. GameID is
// denormalized to enforce the no-duplicate-game rule cheaply.
type RentalItem struct {
	ID             uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	RentalID       uuid.UUID     `gorm:"column:rental_id;type:uuid;not null;index"`
	GameInstanceID uuid.UUID     `gorm:"column:game_instance_id;type:uuid;not null;index"`
	GameID         uuid.UUID     `gorm:"column:game_id;type:uuid;not null"`
	GameInstance   *GameInstance `gorm:"foreignKey:GameInstanceID"`
	CreatedAt      time.Time     `gorm:"column:created_at;autoCreateTime"`
}
