package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Game is a catalog entry. It is a template, not itself rentable; physical
// copies live in game_instances.
type Game struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name            string         `gorm:"type:text;not null;uniqueIndex"`
	Description     string         `gorm:"type:text;not null"`
	Categories      pq.StringArray `gorm:"type:text[];not null;default:ARRAY[]::text[]"`
	TargetAudiences pq.StringArray `gorm:"type:text[];column:target_audiences;not null;default:ARRAY[]::text[]"`
	ImageURL        *string        `gorm:"column:image_url"`
	CreatedAt       time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
