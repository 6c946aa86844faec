package enums

import "fmt"

// GameInstanceStatus is the single source of truth for whether a physical
// copy can be rented right now. BORROWED is entered and left only by the
// rental state machine; UNAVAILABLE is a staff pin.
type GameInstanceStatus string

const (
	GameInstanceStatusAvailable   GameInstanceStatus = "AVAILABLE"
	GameInstanceStatusBorrowed    GameInstanceStatus = "BORROWED"
	GameInstanceStatusUnavailable GameInstanceStatus = "UNAVAILABLE"
)

var validGameInstanceStatuses = []GameInstanceStatus{
	GameInstanceStatusAvailable,
	GameInstanceStatusBorrowed,
	GameInstanceStatusUnavailable,
}

// String implements fmt.Stringer.
func (g GameInstanceStatus) String() string {
	return string(g)
}

// IsValid reports whether the value is a known GameInstanceStatus.
func (g GameInstanceStatus) IsValid() bool {
	for _, candidate := range validGameInstanceStatuses {
		if candidate == g {
			return true
		}
	}
	return false
}

// ParseGameInstanceStatus converts raw input into a GameInstanceStatus.
func ParseGameInstanceStatus(value string) (GameInstanceStatus, error) {
	for _, candidate := range validGameInstanceStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid game instance status %q", value)
}
