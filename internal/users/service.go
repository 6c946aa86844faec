package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/tamarLevanoni/couple-time-backend/internal/permissions"
	"github.com/tamarLevanoni/couple-time-backend/pkg/config"
	"github.com/tamarLevanoni/couple-time-backend/pkg/db/models"
	dbtypes "github.com/tamarLevanoni/couple-time-backend/pkg/db/types"
	"github.com/tamarLevanoni/couple-time-backend/pkg/enums"
	pkgerrors "github.com/tamarLevanoni/couple-time-backend/pkg/errors"
	"github.com/tamarLevanoni/couple-time-backend/pkg/outbox"
	"github.com/tamarLevanoni/couple-time-backend/pkg/pagination"
	"github.com/tamarLevanoni/couple-time-backend/pkg/security"
)

const tempPasswordLength = 24

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines account and role management operations.
type Service interface {
	Me(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
	Get(ctx context.Context, actorID, userID uuid.UUID) (*UserDTO, error)
	List(ctx context.Context, actorID uuid.UUID, filters UserFilters, params pagination.Params) (*UserList, error)
	UpdateProfile(ctx context.Context, input UpdateProfileInput) (*UserDTO, error)
	AssignRoles(ctx context.Context, input AssignRolesInput) (*UserDTO, error)
	SetActive(ctx context.Context, input SetActiveInput) error

	// EnsureUserByEmail backs the guest rental flow. It runs inside the
	// caller's transaction so the provisioned account and the rental commit
	// together.
	EnsureUserByEmail(ctx context.Context, tx *gorm.DB, email, firstName, lastName string, phone *string) (*models.User, error)
}

type service struct {
	repo        Repository
	tx          txRunner
	outbox      outboxPublisher
	passwordCfg config.PasswordConfig
}

// RolesChangedEvent is emitted when an admin rewrites a user's role set.
type RolesChangedEvent struct {
	UserID        uuid.UUID    `json:"user_id"`
	Roles         []enums.Role `json:"roles"`
	PreviousRoles []enums.Role `json:"previous_roles"`
}

// NewService builds the users service with the required dependencies.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher, passwordCfg config.PasswordConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:        repo,
		tx:          tx,
		outbox:      outbox,
		passwordCfg: passwordCfg,
	}, nil
}

func (s *service) Me(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	user, err := s.loadUser(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

func (s *service) Get(ctx context.Context, actorID, userID uuid.UUID) (*UserDTO, error) {
	if actorID != userID {
		if _, err := s.requireAdmin(ctx, actorID); err != nil {
			return nil, err
		}
	}
	user, err := s.loadUser(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

func (s *service) List(ctx context.Context, actorID uuid.UUID, filters UserFilters, params pagination.Params) (*UserList, error) {
	if _, err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	if filters.Role != nil && !filters.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role filter")
	}
	list, err := s.repo.ListUsers(ctx, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	return list, nil
}

func (s *service) UpdateProfile(ctx context.Context, input UpdateProfileInput) (*UserDTO, error) {
	updates := map[string]any{}
	if input.FirstName != nil {
		name := strings.TrimSpace(*input.FirstName)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "first name cannot be empty")
		}
		updates["first_name"] = name
	}
	if input.LastName != nil {
		name := strings.TrimSpace(*input.LastName)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "last name cannot be empty")
		}
		updates["last_name"] = name
	}
	if input.Phone != nil {
		updates["phone"] = input.Phone
	}

	var dto *UserDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		user, err := s.loadUser(ctx, repo, input.ActorUserID)
		if err != nil {
			return err
		}
		if len(updates) > 0 {
			if err := repo.UpdateUser(ctx, user.ID, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update profile")
			}
			user, err = s.loadUser(ctx, repo, user.ID)
			if err != nil {
				return err
			}
		}
		dto = FromModel(user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// AssignRoles replaces the target's role set. Removing a staff role clears
// the matching center scope on the user and on any center still pointing at
// them, all in one transaction.
func (s *service) AssignRoles(ctx context.Context, input AssignRolesInput) (*UserDTO, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	roles, err := normalizeRoles(input.Roles)
	if err != nil {
		return nil, err
	}
	actor, err := s.requireAdmin(ctx, input.ActorUserID)
	if err != nil {
		return nil, err
	}

	var dto *UserDTO
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		user, err := s.loadUser(ctx, repo, input.UserID)
		if err != nil {
			return err
		}

		previous := user.RoleSet()
		if sameRoles(previous, roles) {
			dto = FromModel(user)
			return nil
		}

		updates := map[string]any{"roles": rolesToArray(roles)}
		if !containsRole(roles, enums.RoleCenterCoordinator) && user.ManagedCenterID != nil {
			updates["managed_center_id"] = nil
		}
		if !containsRole(roles, enums.RoleSuperCoordinator) && len(user.SupervisedCenterIDs) > 0 {
			updates["supervised_center_ids"] = dbtypes.UUIDArray{}
		}
		if err := repo.UpdateUser(ctx, user.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update roles")
		}

		if !containsRole(roles, enums.RoleCenterCoordinator) && containsRole(previous, enums.RoleCenterCoordinator) {
			if err := repo.ClearCoordinatorRefs(ctx, user.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear coordinator assignments")
			}
		}
		if !containsRole(roles, enums.RoleSuperCoordinator) && containsRole(previous, enums.RoleSuperCoordinator) {
			if err := repo.ClearSuperCoordinatorRefs(ctx, user.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear super coordinator assignments")
			}
		}

		user, err = s.loadUser(ctx, repo, user.ID)
		if err != nil {
			return err
		}
		dto = FromModel(user)

		event := outbox.DomainEvent{
			EventType:     enums.EventUserRolesChanged,
			AggregateType: enums.AggregateUser,
			AggregateID:   user.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: actor.ID, Role: permissions.TierAdmin.String()},
			Data: RolesChangedEvent{
				UserID:        user.ID,
				Roles:         roles,
				PreviousRoles: previous,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

func (s *service) SetActive(ctx context.Context, input SetActiveInput) error {
	if input.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.ActorUserID == input.UserID && !input.IsActive {
		return pkgerrors.New(pkgerrors.CodeValidation, "cannot deactivate your own account")
	}
	if _, err := s.requireAdmin(ctx, input.ActorUserID); err != nil {
		return err
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		user, err := s.loadUser(ctx, repo, input.UserID)
		if err != nil {
			return err
		}
		if user.IsActive == input.IsActive {
			return nil
		}
		if err := repo.UpdateUser(ctx, user.ID, map[string]any{"is_active": input.IsActive}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update active flag")
		}
		return nil
	})
}

func (s *service) EnsureUserByEmail(ctx context.Context, tx *gorm.DB, email, firstName, lastName string, phone *string) (*models.User, error) {
	normalized := strings.TrimSpace(strings.ToLower(email))
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}
	repo := s.repo.WithTx(tx)

	existing, err := repo.FindByEmail(ctx, normalized)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up account by email")
	}

	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if firstName == "" || lastName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "first and last name required")
	}

	tempPassword, err := security.GenerateTempPassword(tempPasswordLength)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate temporary password")
	}
	hash, err := security.HashPassword(tempPassword, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash temporary password")
	}

	created, err := repo.CreateUser(ctx, CreateUserDTO{
		Email:        normalized,
		PasswordHash: hash,
		FirstName:    firstName,
		LastName:     lastName,
		Phone:        phone,
		Roles:        []enums.Role{enums.RoleUser},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "provision account")
	}
	return created, nil
}

func (s *service) loadUser(ctx context.Context, repo Repository, id uuid.UUID) (*models.User, error) {
	user, err := repo.FindUser(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}

func (s *service) requireAdmin(ctx context.Context, actorID uuid.UUID) (*models.User, error) {
	resolver, err := permissions.NewResolver(s.repo, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "permission resolver")
	}
	return resolver.RequireAdmin(ctx, actorID)
}

func normalizeRoles(input []enums.Role) ([]enums.Role, error) {
	seen := map[enums.Role]bool{}
	roles := make([]enums.Role, 0, len(input))
	for _, role := range input {
		if !role.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid role %q", role))
		}
		if seen[role] {
			continue
		}
		seen[role] = true
		roles = append(roles, role)
	}
	return roles, nil
}

func rolesToArray(roles []enums.Role) pq.StringArray {
	out := make(pq.StringArray, 0, len(roles))
	for _, role := range roles {
		out = append(out, string(role))
	}
	return out
}

func containsRole(roles []enums.Role, target enums.Role) bool {
	for _, role := range roles {
		if role == target {
			return true
		}
	}
	return false
}

func sameRoles(a, b []enums.Role) bool {
	if len(a) != len(b) {
		return false
	}
	set := map[enums.Role]bool{}
	for _, role := range a {
		set[role] = true
	}
	for _, role := range b {
		if !set[role] {
			return false
		}
	}
	return true
}
