package enums

import "fmt"

// Role represents one capability level a user may hold. Roles are not
// mutually exclusive; a user carries a set of them.
type Role string

const (
	RoleUser              Role = "USER"
	RoleCenterCoordinator Role = "CENTER_COORDINATOR"
	RoleSuperCoordinator  Role = "SUPER_COORDINATOR"
	RoleAdmin             Role = "ADMIN"
)

var validRoles = []Role{
	RoleUser,
	RoleCenterCoordinator,
	RoleSuperCoordinator,
	RoleAdmin,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	for _, candidate := range validRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}
