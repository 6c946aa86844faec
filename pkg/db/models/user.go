package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	dbtypes "github.com/tamarLevanoni/couple-time-backend/pkg/db/types"
	"github.com/tamarLevanoni/couple-time-backend/pkg/enums"
)

// User represents the canonical identity entity. Roles are a set, not a
// single tag; center scope fields are only meaningful for staff roles.
type User struct {
	ID                  uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email               string            `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash        string            `gorm:"column:password_hash;not null"`
	FirstName           string            `gorm:"column:first_name;not null"`
	LastName            string            `gorm:"column:last_name;not null"`
	Phone               *string           `gorm:"column:phone"`
	Roles               pq.StringArray    `gorm:"type:text[];column:roles;not null;default:ARRAY[]::text[]"`
	ManagedCenterID     *uuid.UUID        `gorm:"column:managed_center_id;type:uuid"`
	SupervisedCenterIDs dbtypes.UUIDArray `gorm:"type:uuid[];column:supervised_center_ids;not null;default:ARRAY[]::uuid[]"`
	IsActive            bool              `gorm:"column:is_active;not null;default:true"`
	LastLoginAt         *time.Time        `gorm:"column:last_login_at"`
	CreatedAt           time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// RoleSet converts the stored role strings into typed roles, dropping
// anything unknown.
func (u User) RoleSet() []enums.Role {
	roles := make([]enums.Role, 0, len(u.Roles))
	for _, raw := range u.Roles {
		role := enums.Role(raw)
		if role.IsValid() {
			roles = append(roles, role)
		}
	}
	return roles
}

// HasRole reports whether the user holds the given role.
func (u User) HasRole(role enums.Role) bool {
	for _, raw := range u.Roles {
		if enums.Role(raw) == role {
			return true
		}
	}
	return false
}

// Supervises reports whether centerID is in the user's supervised set.
func (u User) Supervises(centerID uuid.UUID) bool {
	return u.SupervisedCenterIDs.Contains(centerID)
}
