package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tamarLevanoni/couple-time-backend/pkg/enums"
)

// Center is a physical location that holds game instances. At most one
// coordinator and one super-coordinator are assigned at any time.
type Center struct {
	ID                 uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name               string     `gorm:"type:text;not null"`
	Area               enums.Area `gorm:"type:text;not null"`
	City               string     `gorm:"type:text;not null"`
	Address            *string    `gorm:"type:text"`
	CoordinatorID      *uuid.UUID `gorm:"column:coordinator_id;type:uuid"`
	SuperCoordinatorID *uuid.UUID `gorm:"column:super_coordinator_id;type:uuid"`
	IsActive           bool       `gorm:"column:is_active;not null;default:true"`
	CreatedAt          time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
