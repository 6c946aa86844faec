package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tamarLevanoni/couple-time-backend/pkg/enums"
)

// GameInstance is one physical copy of a game, permanently bound to one
// center. Its status is written only by the rental state machine and the
// staff availability toggle.
type GameInstance struct {
	ID                 uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	GameID             uuid.UUID                `gorm:"column:game_id;type:uuid;not null"`
	CenterID           uuid.UUID                `gorm:"column:center_id;type:uuid;not null"`
	Status             enums.GameInstanceStatus `gorm:"type:text;not null;default:'AVAILABLE'"`
	ExpectedReturnDate *time.Time               `gorm:"column:expected_return_date"`
	Notes              *string                  `gorm:"type:text"`
	Game               *Game                    `gorm:"foreignKey:GameID"`
	Center             *Center                  `gorm:"foreignKey:CenterID"`
	CreatedAt          time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
