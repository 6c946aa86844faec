package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/tamarLevanoni/couple-time-backend/pkg/db/models"
	"github.com/tamarLevanoni/couple-time-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID                  uuid.UUID    `json:"id"`
	Email               string       `json:"email"`
	FirstName           string       `json:"first_name"`
	LastName            string       `json:"last_name"`
	Phone               *string      `json:"phone,omitempty"`
	Roles               []enums.Role `json:"roles"`
	ManagedCenterID     *uuid.UUID   `json:"managed_center_id,omitempty"`
	SupervisedCenterIDs []uuid.UUID  `json:"supervised_center_ids"`
	IsActive            bool         `json:"is_active"`
	LastLoginAt         *time.Time   `json:"last_login_at,omitempty"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        *string
	Roles        []enums.Role
	IsActive     *bool
}

// UserList wraps a page of users plus the cursor for the next page.
type UserList struct {
	Users      []UserDTO `json:"users"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

// UserFilters describe the inputs supported by the admin user listing.
type UserFilters struct {
	Role       *enums.Role
	ActiveOnly bool
	Query      string
}

// AssignRolesInput replaces a user's role set. Stripping a staff role also
// clears the matching center scope on both sides in the same transaction.
type AssignRolesInput struct {
	ActorUserID uuid.UUID
	UserID      uuid.UUID
	Roles       []enums.Role
}

// UpdateProfileInput captures a self-service profile edit. Nil fields are
// left untouched.
type UpdateProfileInput struct {
	ActorUserID uuid.UUID
	FirstName   *string
	LastName    *string
	Phone       *string
}

// SetActiveInput toggles an account's active flag.
type SetActiveInput struct {
	ActorUserID uuid.UUID
	UserID      uuid.UUID
	IsActive    bool
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:                  u.ID,
		Email:               u.Email,
		FirstName:           u.FirstName,
		LastName:            u.LastName,
		Phone:               u.Phone,
		Roles:               u.RoleSet(),
		ManagedCenterID:     u.ManagedCenterID,
		SupervisedCenterIDs: append([]uuid.UUID(nil), []uuid.UUID(u.SupervisedCenterIDs)...),
		IsActive:            u.IsActive,
		LastLoginAt:         u.LastLoginAt,
		CreatedAt:           u.CreatedAt,
		UpdatedAt:           u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	isActive := true
	if c.IsActive != nil {
		isActive = *c.IsActive
	}

	roles := make([]string, 0, len(c.Roles))
	for _, role := range c.Roles {
		roles = append(roles, string(role))
	}

	return &models.User{
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
		FirstName:    c.FirstName,
		LastName:     c.LastName,
		Phone:        c.Phone,
		IsActive:     isActive,
		Roles:        roles,
	}
}
