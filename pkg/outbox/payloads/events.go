package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/tamarLevanoni/couple-time-backend/pkg/enums"
)

// RentalLifecycleEvent is the payload shared by every rental transition
// event: requested, approved, rejected, cancelled, and returned.
type RentalLifecycleEvent struct {
	RentalID           uuid.UUID          `json:"rental_id"`
	UserID             uuid.UUID          `json:"user_id"`
	CenterID           uuid.UUID          `json:"center_id"`
	Status             enums.RentalStatus `json:"status"`
	InstanceIDs        []uuid.UUID        `json:"instance_ids"`
	ExpectedReturnDate *time.Time         `json:"expected_return_date,omitempty"`
	Reason             *string            `json:"reason,omitempty"`
}

// RentalOverdueEvent reports an active rental past its expected return date.
type RentalOverdueEvent struct {
	RentalID           uuid.UUID   `json:"rental_id"`
	UserID             uuid.UUID   `json:"user_id"`
	CenterID           uuid.UUID   `json:"center_id"`
	InstanceIDs        []uuid.UUID `json:"instance_ids"`
	ExpectedReturnDate *time.Time  `json:"expected_return_date,omitempty"`
	DaysOverdue        int         `json:"days_overdue"`
}

// InstanceStatusChangedEvent is emitted when staff toggle a copy's
// availability outside the rental lifecycle.
type InstanceStatusChangedEvent struct {
	InstanceID uuid.UUID                `json:"instance_id"`
	CenterID   uuid.UUID                `json:"center_id"`
	FromStatus enums.GameInstanceStatus `json:"from_status"`
	ToStatus   enums.GameInstanceStatus `json:"to_status"`
}

// UserRolesChangedEvent is emitted when an admin rewrites a role set.
type UserRolesChangedEvent struct {
	UserID        uuid.UUID    `json:"user_id"`
	Roles         []enums.Role `json:"roles"`
	PreviousRoles []enums.Role `json:"previous_roles"`
}

// CenterStaffChangedEvent is emitted when a staffing slot changes hands.
type CenterStaffChangedEvent struct {
	CenterID       uuid.UUID  `json:"center_id"`
	Role           string     `json:"role"`
	UserID         *uuid.UUID `json:"user_id,omitempty"`
	PreviousUserID *uuid.UUID `json:"previous_user_id,omitempty"`
}
