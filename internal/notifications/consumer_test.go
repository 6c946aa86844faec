package notifications

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tamarLevanoni/couple-time-backend/pkg/db/models"
	"github.com/tamarLevanoni/couple-time-backend/pkg/enums"
	"github.com/tamarLevanoni/couple-time-backend/pkg/logger"
)

type fakeCenterDirectory struct {
	centers map[uuid.UUID]*models.Center
}

func (f *fakeCenterDirectory) FindCenter(ctx context.Context, id uuid.UUID) (*models.Center, error) {
	center, ok := f.centers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return center, nil
}

func newTestConsumer(repo *fakeRepository, centers *fakeCenterDirectory) *Consumer {
	return &Consumer{
		repo:    repo,
		centers: centers,
		logg:    logger.New(logger.Options{ServiceName: "notifications-test"}),
	}
}

func TestConsumerRequestedNotifiesCenterStaff(t *testing.T) {
	coordinatorID := uuid.New()
	superID := uuid.New()
	center := &models.Center{
		ID:                 uuid.New(),
		CoordinatorID:      &coordinatorID,
		SuperCoordinatorID: &superID,
	}
	repo := &fakeRepository{}
	consumer := newTestConsumer(repo, &fakeCenterDirectory{centers: map[uuid.UUID]*models.Center{center.ID: center}})

	payload := rentalEventPayload{
		RentalID:    uuid.New(),
		UserID:      uuid.New(),
		CenterID:    center.ID,
		InstanceIDs: []uuid.UUID{uuid.New(), uuid.New()},
	}
	if err := consumer.handle(context.Background(), enums.EventRentalRequested, payload, context.Background()); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(repo.created) != 2 {
		t.Fatalf("expected notifications for both staff slots, got %d", len(repo.created))
	}
	recipients := map[uuid.UUID]bool{}
	for _, n := range repo.created {
		recipients[n.UserID] = true
		if n.Type != enums.NotificationTypeRentalRequested {
			t.Fatalf("unexpected notification type %s", n.Type)
		}
		if n.RentalID == nil || *n.RentalID != payload.RentalID {
			t.Fatalf("expected rental reference on notification")
		}
	}
	if !recipients[coordinatorID] || !recipients[superID] {
		t.Fatalf("expected coordinator and super coordinator, got %v", recipients)
	}
}

func TestConsumerSkipsDuplicateStaffRecipient(t *testing.T) {
	bothID := uuid.New()
	center := &models.Center{
		ID:                 uuid.New(),
		CoordinatorID:      &bothID,
		SuperCoordinatorID: &bothID,
	}
	repo := &fakeRepository{}
	consumer := newTestConsumer(repo, &fakeCenterDirectory{centers: map[uuid.UUID]*models.Center{center.ID: center}})

	payload := rentalEventPayload{RentalID: uuid.New(), UserID: uuid.New(), CenterID: center.ID}
	if err := consumer.handle(context.Background(), enums.EventRentalRequested, payload, context.Background()); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected one notification when both slots share a holder, got %d", len(repo.created))
	}
}

func TestConsumerApprovedNotifiesMember(t *testing.T) {
	repo := &fakeRepository{}
	consumer := newTestConsumer(repo, &fakeCenterDirectory{})

	returnDate := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	payload := rentalEventPayload{
		RentalID:           uuid.New(),
		UserID:             uuid.New(),
		CenterID:           uuid.New(),
		ExpectedReturnDate: &returnDate,
	}
	if err := consumer.handle(context.Background(), enums.EventRentalApproved, payload, context.Background()); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(repo.created) != 1 {
		t.Fatalf("expected one member notification, got %d", len(repo.created))
	}
	created := repo.created[0]
	if created.UserID != payload.UserID {
		t.Fatalf("expected member recipient %s, got %s", payload.UserID, created.UserID)
	}
	if created.Type != enums.NotificationTypeRentalApproved {
		t.Fatalf("unexpected type %s", created.Type)
	}
}

func TestConsumerRejectedIncludesReason(t *testing.T) {
	repo := &fakeRepository{}
	consumer := newTestConsumer(repo, &fakeCenterDirectory{})

	reason := "instance damaged during inspection"
	payload := rentalEventPayload{RentalID: uuid.New(), UserID: uuid.New(), Reason: &reason}
	if err := consumer.handle(context.Background(), enums.EventRentalRejected, payload, context.Background()); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected one notification, got %d", len(repo.created))
	}
	if got := repo.created[0].Message; !strings.Contains(got, reason) {
		t.Fatalf("expected rejection reason in message, got %q", got)
	}
}
