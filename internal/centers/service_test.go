package centers

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/tamarLevanoni/couple-time-backend/pkg/db/models"
	dbtypes "github.com/tamarLevanoni/couple-time-backend/pkg/db/types"
	"github.com/tamarLevanoni/couple-time-backend/pkg/enums"
	pkgerrors "github.com/tamarLevanoni/couple-time-backend/pkg/errors"
	"github.com/tamarLevanoni/couple-time-backend/pkg/outbox"
	"github.com/tamarLevanoni/couple-time-backend/pkg/pagination"
)

type stubCentersRepo struct {
	centers map[uuid.UUID]*models.Center
	users   map[uuid.UUID]*models.User
}

func (s *stubCentersRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubCentersRepo) CreateCenter(ctx context.Context, center *models.Center) (*models.Center, error) {
	if center.ID == uuid.Nil {
		center.ID = uuid.New()
	}
	if s.centers == nil {
		s.centers = make(map[uuid.UUID]*models.Center)
	}
	s.centers[center.ID] = center
	return center, nil
}

func (s *stubCentersRepo) UpdateCenter(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	center, ok := s.centers[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for key, value := range updates {
		switch key {
		case "coordinator_id":
			center.CoordinatorID = asIDPtr(value)
		case "super_coordinator_id":
			center.SuperCoordinatorID = asIDPtr(value)
		case "is_active":
			if v, ok := value.(bool); ok {
				center.IsActive = v
			}
		case "name":
			if v, ok := value.(string); ok {
				center.Name = v
			}
		}
	}
	return nil
}

func (s *stubCentersRepo) FindCenter(ctx context.Context, id uuid.UUID) (*models.Center, error) {
	center, ok := s.centers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return center, nil
}

func (s *stubCentersRepo) ListCenters(ctx context.Context, filters CenterFilters, params pagination.Params) (*CenterList, error) {
	return &CenterList{}, nil
}

func (s *stubCentersRepo) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (s *stubCentersRepo) UpdateUser(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	user, ok := s.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for key, value := range updates {
		switch key {
		case "managed_center_id":
			user.ManagedCenterID = asIDPtr(value)
		case "supervised_center_ids":
			if v, ok := value.(dbtypes.UUIDArray); ok {
				user.SupervisedCenterIDs = v
			}
		}
	}
	return nil
}

func asIDPtr(value any) *uuid.UUID {
	switch v := value.(type) {
	case uuid.UUID:
		id := v
		return &id
	case *uuid.UUID:
		return v
	default:
		return nil
	}
}

type stubOutboxPublisher struct {
	events []outbox.DomainEvent
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != code {
		t.Fatalf("expected %s got %v", code, err)
	}
}

func adminFixture() (*stubCentersRepo, *models.User) {
	admin := &models.User{ID: uuid.New(), Roles: pq.StringArray{string(enums.RoleAdmin)}, IsActive: true}
	repo := &stubCentersRepo{
		centers: map[uuid.UUID]*models.Center{},
		users:   map[uuid.UUID]*models.User{admin.ID: admin},
	}
	return repo, admin
}

func TestAssignCoordinatorClearsPreviousHolder(t *testing.T) {
	repo, admin := adminFixture()
	centerID := uuid.New()

	previous := &models.User{
		ID:              uuid.New(),
		Roles:           pq.StringArray{string(enums.RoleCenterCoordinator)},
		IsActive:        true,
		ManagedCenterID: &centerID,
	}
	next := &models.User{
		ID:       uuid.New(),
		Roles:    pq.StringArray{string(enums.RoleCenterCoordinator)},
		IsActive: true,
	}
	repo.users[previous.ID] = previous
	repo.users[next.ID] = next
	repo.centers[centerID] = &models.Center{ID: centerID, CoordinatorID: &previous.ID, IsActive: true}

	events := &stubOutboxPublisher{}
	svc, err := NewService(repo, stubTxRunner{}, events)
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}

	err = svc.AssignStaff(context.Background(), AssignStaffInput{
		ActorUserID: admin.ID,
		CenterID:    centerID,
		Role:        StaffRoleCoordinator,
		UserID:      &next.ID,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if previous.ManagedCenterID != nil {
		t.Fatal("previous coordinator scope must be cleared")
	}
	if next.ManagedCenterID == nil || *next.ManagedCenterID != centerID {
		t.Fatal("new coordinator scope must point at the center")
	}
	if repo.centers[centerID].CoordinatorID == nil || *repo.centers[centerID].CoordinatorID != next.ID {
		t.Fatal("center back-reference must point at the new coordinator")
	}
	if len(events.events) != 1 || events.events[0].EventType != enums.EventCenterStaffChanged {
		t.Fatalf("expected staff changed event got %+v", events.events)
	}
}

func TestAssignCoordinatorMovingBetweenCenters(t *testing.T) {
	repo, admin := adminFixture()
	oldCenter := uuid.New()
	newCenter := uuid.New()

	coordinator := &models.User{
		ID:              uuid.New(),
		Roles:           pq.StringArray{string(enums.RoleCenterCoordinator)},
		IsActive:        true,
		ManagedCenterID: &oldCenter,
	}
	repo.users[coordinator.ID] = coordinator
	repo.centers[oldCenter] = &models.Center{ID: oldCenter, CoordinatorID: &coordinator.ID, IsActive: true}
	repo.centers[newCenter] = &models.Center{ID: newCenter, IsActive: true}

	svc, _ := NewService(repo, stubTxRunner{}, &stubOutboxPublisher{})
	err := svc.AssignStaff(context.Background(), AssignStaffInput{
		ActorUserID: admin.ID,
		CenterID:    newCenter,
		Role:        StaffRoleCoordinator,
		UserID:      &coordinator.ID,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if repo.centers[oldCenter].CoordinatorID != nil {
		t.Fatal("old center slot must be freed")
	}
	if *coordinator.ManagedCenterID != newCenter {
		t.Fatal("coordinator scope must follow the move")
	}
}

func TestAssignCoordinatorRequiresRole(t *testing.T) {
	repo, admin := adminFixture()
	centerID := uuid.New()
	repo.centers[centerID] = &models.Center{ID: centerID, IsActive: true}

	plain := &models.User{ID: uuid.New(), Roles: pq.StringArray{string(enums.RoleUser)}, IsActive: true}
	repo.users[plain.ID] = plain

	svc, _ := NewService(repo, stubTxRunner{}, &stubOutboxPublisher{})
	err := svc.AssignStaff(context.Background(), AssignStaffInput{
		ActorUserID: admin.ID,
		CenterID:    centerID,
		Role:        StaffRoleCoordinator,
		UserID:      &plain.ID,
	})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestAssignStaffRequiresAdmin(t *testing.T) {
	repo, _ := adminFixture()
	centerID := uuid.New()
	repo.centers[centerID] = &models.Center{ID: centerID, IsActive: true}

	coordinator := &models.User{
		ID:       uuid.New(),
		Roles:    pq.StringArray{string(enums.RoleCenterCoordinator)},
		IsActive: true,
	}
	repo.users[coordinator.ID] = coordinator

	svc, _ := NewService(repo, stubTxRunner{}, &stubOutboxPublisher{})
	err := svc.AssignStaff(context.Background(), AssignStaffInput{
		ActorUserID: coordinator.ID,
		CenterID:    centerID,
		Role:        StaffRoleCoordinator,
		UserID:      &coordinator.ID,
	})
	assertCode(t, err, pkgerrors.CodeForbidden)
}

func TestAssignSuperCoordinatorMaintainsSupervisedSet(t *testing.T) {
	repo, admin := adminFixture()
	centerID := uuid.New()
	otherCenter := uuid.New()

	previous := &models.User{
		ID:                  uuid.New(),
		Roles:               pq.StringArray{string(enums.RoleSuperCoordinator)},
		IsActive:            true,
		SupervisedCenterIDs: dbtypes.UUIDArray{centerID, otherCenter},
	}
	next := &models.User{
		ID:                  uuid.New(),
		Roles:               pq.StringArray{string(enums.RoleSuperCoordinator)},
		IsActive:            true,
		SupervisedCenterIDs: dbtypes.UUIDArray{},
	}
	repo.users[previous.ID] = previous
	repo.users[next.ID] = next
	repo.centers[centerID] = &models.Center{ID: centerID, SuperCoordinatorID: &previous.ID, IsActive: true}

	svc, _ := NewService(repo, stubTxRunner{}, &stubOutboxPublisher{})
	err := svc.AssignStaff(context.Background(), AssignStaffInput{
		ActorUserID: admin.ID,
		CenterID:    centerID,
		Role:        StaffRoleSuperCoordinator,
		UserID:      &next.ID,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if previous.Supervises(centerID) {
		t.Fatal("previous super coordinator must lose the center")
	}
	if !previous.Supervises(otherCenter) {
		t.Fatal("unrelated supervised centers must survive")
	}
	if !next.Supervises(centerID) {
		t.Fatal("new super coordinator must gain the center")
	}
	if *repo.centers[centerID].SuperCoordinatorID != next.ID {
		t.Fatal("center back-reference must point at the new super coordinator")
	}
}

func TestAssignStaffClearSlot(t *testing.T) {
	repo, admin := adminFixture()
	centerID := uuid.New()

	holder := &models.User{
		ID:              uuid.New(),
		Roles:           pq.StringArray{string(enums.RoleCenterCoordinator)},
		IsActive:        true,
		ManagedCenterID: &centerID,
	}
	repo.users[holder.ID] = holder
	repo.centers[centerID] = &models.Center{ID: centerID, CoordinatorID: &holder.ID, IsActive: true}

	events := &stubOutboxPublisher{}
	svc, _ := NewService(repo, stubTxRunner{}, events)
	err := svc.AssignStaff(context.Background(), AssignStaffInput{
		ActorUserID: admin.ID,
		CenterID:    centerID,
		Role:        StaffRoleCoordinator,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if repo.centers[centerID].CoordinatorID != nil {
		t.Fatal("slot must be cleared")
	}
	if holder.ManagedCenterID != nil {
		t.Fatal("holder scope must be cleared")
	}
	if len(events.events) != 1 {
		t.Fatalf("expected one event got %d", len(events.events))
	}
}

func TestAssignStaffSameHolderNoOp(t *testing.T) {
	repo, admin := adminFixture()
	centerID := uuid.New()
	holder := &models.User{
		ID:              uuid.New(),
		Roles:           pq.StringArray{string(enums.RoleCenterCoordinator)},
		IsActive:        true,
		ManagedCenterID: &centerID,
	}
	repo.users[holder.ID] = holder
	repo.centers[centerID] = &models.Center{ID: centerID, CoordinatorID: &holder.ID, IsActive: true}

	events := &stubOutboxPublisher{}
	svc, _ := NewService(repo, stubTxRunner{}, events)
	err := svc.AssignStaff(context.Background(), AssignStaffInput{
		ActorUserID: admin.ID,
		CenterID:    centerID,
		Role:        StaffRoleCoordinator,
		UserID:      &holder.ID,
	})
	if err != nil {
		t.Fatalf("expected no-op got %v", err)
	}
	if len(events.events) != 0 {
		t.Fatal("no-op must not emit events")
	}
}

func TestCreateCenterValidatesArea(t *testing.T) {
	repo, admin := adminFixture()
	svc, _ := NewService(repo, stubTxRunner{}, &stubOutboxPublisher{})

	_, err := svc.Create(context.Background(), CreateCenterInput{
		ActorUserID: admin.ID,
		Name:        "Haifa Center",
		Area:        enums.Area("WEST"),
		City:        "Haifa",
	})
	assertCode(t, err, pkgerrors.CodeValidation)
}
