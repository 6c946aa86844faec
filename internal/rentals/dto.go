package rentals

import (
	"time"

	"github.com/google/uuid"

	"github.com/tamarLevanoni/couple-time-backend/pkg/enums"
)

// CreateInput captures a member's rental request before validation.
type CreateInput struct {
	UserID      uuid.UUID
	InstanceIDs []uuid.UUID
	Notes       *string
}

// GuestCreateInput carries the contact details used to provision an account
// alongside the request itself.
type GuestCreateInput struct {
	Email       string
	FirstName   string
	LastName    string
	Phone       *string
	InstanceIDs []uuid.UUID
	Notes       *string
}

// DecisionInput captures a staff approve or reject on a pending rental.
type DecisionInput struct {
	RentalID    uuid.UUID
	ActorUserID uuid.UUID
	Reason      *string
	LoanDays    *int
}

// TransitionInput captures cancel and return operations.
type TransitionInput struct {
	RentalID    uuid.UUID
	ActorUserID uuid.UUID
	Comment     *string
}

// BulkAction names the operation applied to every rental in a bulk call.
type BulkAction string

const (
	BulkActionApprove BulkAction = "approve"
	BulkActionReject  BulkAction = "reject"
	BulkActionReturn  BulkAction = "return"
)

// BulkInput applies one action to a set of rentals atomically.
type BulkInput struct {
	RentalIDs   []uuid.UUID
	Action      BulkAction
	ActorUserID uuid.UUID
	Reason      *string
	LoanDays    *int
}

// BulkResult reports per-rental outcomes after a successful bulk apply.
type BulkResult struct {
	Applied []uuid.UUID `json:"applied"`
}

// RentalItemSummary exposes the per-instance fields returned in rental reads.
type RentalItemSummary struct {
	GameInstanceID uuid.UUID `json:"game_instance_id"`
	GameID         uuid.UUID `json:"game_id"`
	GameName       string    `json:"game_name,omitempty"`
}

// RentalSummary exposes the aggregated fields returned in rental lists.
type RentalSummary struct {
	ID                 uuid.UUID           `json:"id"`
	UserID             uuid.UUID           `json:"user_id"`
	CenterID           uuid.UUID           `json:"center_id"`
	Status             enums.RentalStatus  `json:"status"`
	RequestedAt        time.Time           `json:"requested_at"`
	BorrowedAt         *time.Time          `json:"borrowed_at,omitempty"`
	ReturnedAt         *time.Time          `json:"returned_at,omitempty"`
	ExpectedReturnDate *time.Time          `json:"expected_return_date,omitempty"`
	Notes              *string             `json:"notes,omitempty"`
	RejectionReason    *string             `json:"rejection_reason,omitempty"`
	Items              []RentalItemSummary `json:"items"`
}

// RentalList wraps the paginated rentals plus the next page cursor.
type RentalList struct {
	Rentals    []RentalSummary `json:"rentals"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// ActionSummary exposes one audit trail entry.
type ActionSummary struct {
	ID          uuid.UUID          `json:"id"`
	ActorUserID uuid.UUID          `json:"actor_user_id"`
	FromStatus  enums.RentalStatus `json:"from_status"`
	ToStatus    enums.RentalStatus `json:"to_status"`
	Comment     *string            `json:"comment,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}
