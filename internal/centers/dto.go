package centers

import (
	"time"

	"github.com/google/uuid"

	"github.com/tamarLevanoni/couple-time-backend/pkg/enums"
)

// CenterFilters describe the inputs supported by the centers list.
type CenterFilters struct {
	Area       *enums.Area
	ActiveOnly bool
	Query      string
}

// CenterSummary exposes the fields returned in center reads.
type CenterSummary struct {
	ID                 uuid.UUID  `json:"id"`
	Name               string     `json:"name"`
	Area               enums.Area `json:"area"`
	City               string     `json:"city"`
	Address            *string    `json:"address,omitempty"`
	CoordinatorID      *uuid.UUID `json:"coordinator_id,omitempty"`
	SuperCoordinatorID *uuid.UUID `json:"super_coordinator_id,omitempty"`
	IsActive           bool       `json:"is_active"`
	CreatedAt          time.Time  `json:"created_at"`
}

// CenterList wraps the paginated centers plus the next page cursor.
type CenterList struct {
	Centers    []CenterSummary `json:"centers"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// CreateCenterInput captures an admin adding a center.
type CreateCenterInput struct {
	ActorUserID uuid.UUID
	Name        string
	Area        enums.Area
	City        string
	Address     *string
}

// UpdateCenterInput captures an admin editing a center. Nil fields are left
// untouched.
type UpdateCenterInput struct {
	ActorUserID uuid.UUID
	CenterID    uuid.UUID
	Name        *string
	Area        *enums.Area
	City        *string
	Address     *string
	IsActive    *bool
}

// StaffRole names the staffing slot being assigned.
type StaffRole string

const (
	StaffRoleCoordinator      StaffRole = "coordinator"
	StaffRoleSuperCoordinator StaffRole = "super_coordinator"
)

// AssignStaffInput assigns or clears a center's staffing slot. A nil UserID
// clears the slot.
type AssignStaffInput struct {
	ActorUserID uuid.UUID
	CenterID    uuid.UUID
	Role        StaffRole
	UserID      *uuid.UUID
}
