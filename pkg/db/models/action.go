package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tamarLevanoni/couple-time-backend/pkg/enums"
)

// Action is one immutable audit row per rental status transition. Rows are
// only ever inserted; no code path updates or deletes them. Current status
// is read from the rental row, never derived by replaying actions.
type Action struct {
	ID          uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	RentalID    uuid.UUID          `gorm:"column:rental_id;type:uuid;not null;index"`
	ActorUserID uuid.UUID          `gorm:"column:actor_user_id;type:uuid;not null"`
	FromStatus  enums.RentalStatus `gorm:"column:from_status;type:text;not null"`
	ToStatus    enums.RentalStatus `gorm:"column:to_status;type:text;not null"`
	Comment     *string            `gorm:"type:text"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
}
