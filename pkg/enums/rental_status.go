package enums

import "fmt"

// RentalStatus tracks the lifecycle of a rental.
type RentalStatus string

const (
	RentalStatusPending   RentalStatus = "PENDING"
	RentalStatusActive    RentalStatus = "ACTIVE"
	RentalStatusReturned  RentalStatus = "RETURNED"
	RentalStatusRejected  RentalStatus = "REJECTED"
	RentalStatusCancelled RentalStatus = "CANCELLED"
)

var validRentalStatuses = []RentalStatus{
	RentalStatusPending,
	RentalStatusActive,
	RentalStatusReturned,
	RentalStatusRejected,
	RentalStatusCancelled,
}

// String implements fmt.Stringer.
func (r RentalStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RentalStatus.
func (r RentalStatus) IsValid() bool {
	for _, candidate := range validRentalStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status absorbs: no transition leaves it.
func (r RentalStatus) IsTerminal() bool {
	switch r {
	case RentalStatusReturned, RentalStatusRejected, RentalStatusCancelled:
		return true
	default:
		return false
	}
}

// ParseRentalStatus converts raw input into a RentalStatus.
func ParseRentalStatus(value string) (RentalStatus, error) {
	for _, candidate := range validRentalStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid rental status %q", value)
}
