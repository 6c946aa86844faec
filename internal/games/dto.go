package games

import (
	"time"

	"github.com/google/uuid"

	"github.com/tamarLevanoni/couple-time-backend/pkg/enums"
)

// GameFilters describe the inputs supported by the game catalog list.
type GameFilters struct {
	Query    string
	Category string
	Audience string
}

// GameSummary exposes the catalog fields returned in game lists.
type GameSummary struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Categories      []string  `json:"categories"`
	TargetAudiences []string  `json:"target_audiences"`
	ImageURL        *string   `json:"image_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// GameList wraps the paginated games plus the next page cursor.
type GameList struct {
	Games      []GameSummary `json:"games"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// InstanceSummary exposes one physical copy in center listings.
type InstanceSummary struct {
	ID                 uuid.UUID                `json:"id"`
	GameID             uuid.UUID                `json:"game_id"`
	GameName           string                   `json:"game_name,omitempty"`
	CenterID           uuid.UUID                `json:"center_id"`
	Status             enums.GameInstanceStatus `json:"status"`
	ExpectedReturnDate *time.Time               `json:"expected_return_date,omitempty"`
	Notes              *string                  `json:"notes,omitempty"`
}

// InstanceList wraps the paginated instances plus the next page cursor.
type InstanceList struct {
	Instances  []InstanceSummary `json:"instances"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

// CreateGameInput captures an admin adding a catalog entry.
type CreateGameInput struct {
	ActorUserID     uuid.UUID
	Name            string
	Description     string
	Categories      []string
	TargetAudiences []string
	ImageURL        *string
}

// UpdateGameInput captures an admin editing a catalog entry. Nil fields are
// left untouched.
type UpdateGameInput struct {
	ActorUserID     uuid.UUID
	GameID          uuid.UUID
	Name            *string
	Description     *string
	Categories      []string
	TargetAudiences []string
	ImageURL        *string
}

// CreateInstanceInput captures staff adding a physical copy to a center.
type CreateInstanceInput struct {
	ActorUserID uuid.UUID
	GameID      uuid.UUID
	CenterID    uuid.UUID
	Notes       *string
}

// SetInstanceStatusInput captures the staff availability toggle.
type SetInstanceStatusInput struct {
	InstanceID  uuid.UUID
	ActorUserID uuid.UUID
	Status      enums.GameInstanceStatus
	Notes       *string
}
