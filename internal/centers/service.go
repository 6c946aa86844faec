package centers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tamarLevanoni/couple-time-backend/internal/permissions"
	"github.com/tamarLevanoni/couple-time-backend/pkg/db/models"
	dbtypes "github.com/tamarLevanoni/couple-time-backend/pkg/db/types"
	"github.com/tamarLevanoni/couple-time-backend/pkg/enums"
	pkgerrors "github.com/tamarLevanoni/couple-time-backend/pkg/errors"
	"github.com/tamarLevanoni/couple-time-backend/pkg/outbox"
	"github.com/tamarLevanoni/couple-time-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines center catalog and staffing operations.
type Service interface {
	Create(ctx context.Context, input CreateCenterInput) (*CenterSummary, error)
	Update(ctx context.Context, input UpdateCenterInput) error
	Get(ctx context.Context, centerID uuid.UUID) (*CenterSummary, error)
	List(ctx context.Context, filters CenterFilters, params pagination.Params) (*CenterList, error)
	AssignStaff(ctx context.Context, input AssignStaffInput) error
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
}

// StaffChangedEvent is emitted when a center's staffing slot changes hands.
type StaffChangedEvent struct {
	CenterID       uuid.UUID  `json:"center_id"`
	Role           StaffRole  `json:"role"`
	UserID         *uuid.UUID `json:"user_id,omitempty"`
	PreviousUserID *uuid.UUID `json:"previous_user_id,omitempty"`
}

// NewService builds the centers service with the required dependencies.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("centers repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outbox}, nil
}

func (s *service) Create(ctx context.Context, input CreateCenterInput) (*CenterSummary, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "center name required")
	}
	if !input.Area.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid area")
	}
	if strings.TrimSpace(input.City) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "city required")
	}
	if _, err := s.requireAdmin(ctx, input.ActorUserID); err != nil {
		return nil, err
	}

	center := &models.Center{
		Name:     strings.TrimSpace(input.Name),
		Area:     input.Area,
		City:     strings.TrimSpace(input.City),
		Address:  input.Address,
		IsActive: true,
	}
	if _, err := s.repo.CreateCenter(ctx, center); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create center")
	}
	summary := toSummary(center)
	return &summary, nil
}

func (s *service) Update(ctx context.Context, input UpdateCenterInput) error {
	if input.CenterID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "center id required")
	}
	if _, err := s.requireAdmin(ctx, input.ActorUserID); err != nil {
		return err
	}
	if _, err := s.loadCenter(ctx, s.repo, input.CenterID); err != nil {
		return err
	}

	updates := map[string]any{}
	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "center name required")
		}
		updates["name"] = strings.TrimSpace(*input.Name)
	}
	if input.Area != nil {
		if !input.Area.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid area")
		}
		updates["area"] = *input.Area
	}
	if input.City != nil {
		updates["city"] = strings.TrimSpace(*input.City)
	}
	if input.Address != nil {
		updates["address"] = *input.Address
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if len(updates) == 0 {
		return nil
	}
	if err := s.repo.UpdateCenter(ctx, input.CenterID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update center")
	}
	return nil
}

func (s *service) Get(ctx context.Context, centerID uuid.UUID) (*CenterSummary, error) {
	if centerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "center id required")
	}
	center, err := s.loadCenter(ctx, s.repo, centerID)
	if err != nil {
		return nil, err
	}
	summary := toSummary(center)
	return &summary, nil
}

func (s *service) List(ctx context.Context, filters CenterFilters, params pagination.Params) (*CenterList, error) {
	if filters.Area != nil && !filters.Area.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid area filter")
	}
	list, err := s.repo.ListCenters(ctx, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list centers")
	}
	return list, nil
}

// AssignStaff moves a staffing slot to a new holder. The previous holder's
// scope fields and the center back-reference change in the same transaction
// so the two can never disagree.
func (s *service) AssignStaff(ctx context.Context, input AssignStaffInput) error {
	if input.CenterID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "center id required")
	}
	if input.Role != StaffRoleCoordinator && input.Role != StaffRoleSuperCoordinator {
		return pkgerrors.New(pkgerrors.CodeValidation, "staff role must be coordinator or super_coordinator")
	}
	if _, err := s.requireAdmin(ctx, input.ActorUserID); err != nil {
		return err
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		center, err := s.loadCenter(ctx, repo, input.CenterID)
		if err != nil {
			return err
		}

		var previous *uuid.UUID
		switch input.Role {
		case StaffRoleCoordinator:
			previous, err = s.assignCoordinator(ctx, repo, center, input.UserID)
		case StaffRoleSuperCoordinator:
			previous, err = s.assignSuperCoordinator(ctx, repo, center, input.UserID)
		}
		if err != nil {
			return err
		}
		if equalIDs(previous, input.UserID) {
			return nil
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventCenterStaffChanged,
			AggregateType: enums.AggregateCenter,
			AggregateID:   center.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID, Role: permissions.TierAdmin.String()},
			Data: StaffChangedEvent{
				CenterID:       center.ID,
				Role:           input.Role,
				UserID:         input.UserID,
				PreviousUserID: previous,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
}

func (s *service) assignCoordinator(ctx context.Context, repo Repository, center *models.Center, userID *uuid.UUID) (*uuid.UUID, error) {
	previous := center.CoordinatorID
	if equalIDs(previous, userID) {
		return previous, nil
	}

	if previous != nil {
		if err := repo.UpdateUser(ctx, *previous, map[string]any{"managed_center_id": nil}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear previous coordinator")
		}
	}

	if userID == nil {
		if err := repo.UpdateCenter(ctx, center.ID, map[string]any{"coordinator_id": nil}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear coordinator slot")
		}
		return previous, nil
	}

	user, err := s.loadStaffCandidate(ctx, repo, *userID, enums.RoleCenterCoordinator)
	if err != nil {
		return nil, err
	}
	// Moving a coordinator between centers frees their old center's slot.
	if user.ManagedCenterID != nil && *user.ManagedCenterID != center.ID {
		if err := repo.UpdateCenter(ctx, *user.ManagedCenterID, map[string]any{"coordinator_id": nil}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release previous center")
		}
	}
	if err := repo.UpdateCenter(ctx, center.ID, map[string]any{"coordinator_id": *userID}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set coordinator slot")
	}
	if err := repo.UpdateUser(ctx, *userID, map[string]any{"managed_center_id": center.ID}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set coordinator scope")
	}
	return previous, nil
}

func (s *service) assignSuperCoordinator(ctx context.Context, repo Repository, center *models.Center, userID *uuid.UUID) (*uuid.UUID, error) {
	previous := center.SuperCoordinatorID
	if equalIDs(previous, userID) {
		return previous, nil
	}

	if previous != nil {
		prevUser, err := repo.FindUser(ctx, *previous)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load previous super coordinator")
		}
		if prevUser != nil {
			trimmed := removeID(prevUser.SupervisedCenterIDs, center.ID)
			if err := repo.UpdateUser(ctx, *previous, map[string]any{"supervised_center_ids": trimmed}); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear previous super coordinator")
			}
		}
	}

	if userID == nil {
		if err := repo.UpdateCenter(ctx, center.ID, map[string]any{"super_coordinator_id": nil}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear super coordinator slot")
		}
		return previous, nil
	}

	user, err := s.loadStaffCandidate(ctx, repo, *userID, enums.RoleSuperCoordinator)
	if err != nil {
		return nil, err
	}
	if err := repo.UpdateCenter(ctx, center.ID, map[string]any{"super_coordinator_id": *userID}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set super coordinator slot")
	}
	if !user.Supervises(center.ID) {
		expanded := append(dbtypes.UUIDArray{}, user.SupervisedCenterIDs...)
		expanded = append(expanded, center.ID)
		if err := repo.UpdateUser(ctx, *userID, map[string]any{"supervised_center_ids": expanded}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set super coordinator scope")
		}
	}
	return previous, nil
}

func (s *service) loadStaffCandidate(ctx context.Context, repo Repository, userID uuid.UUID, role enums.Role) (*models.User, error) {
	user, err := repo.FindUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user is deactivated")
	}
	if !user.HasRole(role) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("user does not hold the %s role", role))
	}
	return user, nil
}

func (s *service) requireAdmin(ctx context.Context, actorID uuid.UUID) (*models.User, error) {
	resolver, err := permissions.NewResolver(s.repo, s.repo)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "permission resolver")
	}
	return resolver.RequireAdmin(ctx, actorID)
}

func (s *service) loadCenter(ctx context.Context, repo Repository, centerID uuid.UUID) (*models.Center, error) {
	center, err := repo.FindCenter(ctx, centerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "center not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load center")
	}
	return center, nil
}

func equalIDs(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func removeID(ids dbtypes.UUIDArray, target uuid.UUID) dbtypes.UUIDArray {
	out := make(dbtypes.UUIDArray, 0, len(ids))
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}
