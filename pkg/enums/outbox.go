package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateRental       OutboxAggregateType = "rental"
	AggregateGameInstance OutboxAggregateType = "game_instance"
	AggregateUser         OutboxAggregateType = "user"
	AggregateCenter       OutboxAggregateType = "center"
	AggregateNotification OutboxAggregateType = "notification"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateRental,
	AggregateGameInstance,
	AggregateUser,
	AggregateCenter,
	AggregateNotification,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventRentalRequested       OutboxEventType = "rental_requested"
	EventRentalApproved        OutboxEventType = "rental_approved"
	EventRentalRejected        OutboxEventType = "rental_rejected"
	EventRentalCancelled       OutboxEventType = "rental_cancelled"
	EventRentalReturned        OutboxEventType = "rental_returned"
	EventRentalOverdue         OutboxEventType = "rental_overdue"
	EventInstanceStatusChanged OutboxEventType = "game_instance_status_changed"
	EventUserRolesChanged      OutboxEventType = "user_roles_changed"
	EventCenterStaffChanged    OutboxEventType = "center_staff_changed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventRentalRequested,
	EventRentalApproved,
	EventRentalRejected,
	EventRentalCancelled,
	EventRentalReturned,
	EventRentalOverdue,
	EventInstanceStatusChanged,
	EventUserRolesChanged,
	EventCenterStaffChanged,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
