package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/tamarLevanoni/couple-time-backend/pkg/db/models"
	"github.com/tamarLevanoni/couple-time-backend/pkg/enums"
	"github.com/tamarLevanoni/couple-time-backend/pkg/logger"
	"github.com/tamarLevanoni/couple-time-backend/pkg/outbox"
	"github.com/tamarLevanoni/couple-time-backend/pkg/outbox/idempotency"
)

const rentalNotificationConsumer = "rental-notifications"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

type centerDirectory interface {
	FindCenter(ctx context.Context, id uuid.UUID) (*models.Center, error)
}

// Consumer watches domain events and turns rental transitions into
// in-app notifications for members and center staff.
type Consumer struct {
	repo         repository
	centers      centerDirectory
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds a rental notification consumer.
func NewConsumer(repo repository, centers centerDirectory, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if centers == nil {
		return nil, fmt.Errorf("center directory required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		centers:      centers,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if notificationTypeFor(eventType) == "" {
		c.logg.Info(logCtx, "skipping non-rental event")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, rentalNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	var payload rentalEventPayload
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		_ = c.idempotency.Delete(ctx, rentalNotificationConsumer, eventID)
		return processResult{nack: true}
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"rental_id": payload.RentalID.String(),
		"center_id": payload.CenterID.String(),
	})

	if err := c.handle(ctx, eventType, payload, logCtx); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idempotency.Delete(ctx, rentalNotificationConsumer, eventID)
		return processResult{nack: true}
	}

	return processResult{ack: true}
}

func (c *Consumer) handle(ctx context.Context, eventType enums.OutboxEventType, payload rentalEventPayload, logCtx context.Context) error {
	switch eventType {
	case enums.EventRentalRequested, enums.EventRentalCancelled:
		return c.notifyCenterStaff(ctx, eventType, payload, logCtx)
	case enums.EventRentalApproved, enums.EventRentalRejected, enums.EventRentalReturned, enums.EventRentalOverdue:
		return c.notifyMember(ctx, eventType, payload, logCtx)
	default:
		c.logg.Info(logCtx, "event type not handled")
		return nil
	}
}

func (c *Consumer) notifyMember(ctx context.Context, eventType enums.OutboxEventType, payload rentalEventPayload, logCtx context.Context) error {
	if payload.UserID == uuid.Nil {
		return fmt.Errorf("user id missing")
	}

	title, message := memberCopy(eventType, payload)
	notification := &models.Notification{
		UserID:   payload.UserID,
		Type:     notificationTypeFor(eventType),
		Title:    title,
		Message:  message,
		RentalID: &payload.RentalID,
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(logCtx, "member notified of rental change")
	return nil
}

func (c *Consumer) notifyCenterStaff(ctx context.Context, eventType enums.OutboxEventType, payload rentalEventPayload, logCtx context.Context) error {
	if payload.CenterID == uuid.Nil {
		return fmt.Errorf("center id missing")
	}
	center, err := c.centers.FindCenter(ctx, payload.CenterID)
	if err != nil {
		return fmt.Errorf("load center: %w", err)
	}

	title, message := staffCopy(eventType, payload)
	for _, staffID := range staffRecipients(center) {
		notification := &models.Notification{
			UserID:   staffID,
			Type:     notificationTypeFor(eventType),
			Title:    title,
			Message:  message,
			RentalID: &payload.RentalID,
		}
		if err := c.repo.Create(ctx, notification); err != nil {
			return err
		}
	}
	c.logg.Info(logCtx, "center staff notified of rental change")
	return nil
}

// staffRecipients returns the coordinator and super coordinator, if
// assigned, without duplicates.
func staffRecipients(center *models.Center) []uuid.UUID {
	out := make([]uuid.UUID, 0, 2)
	if center.CoordinatorID != nil {
		out = append(out, *center.CoordinatorID)
	}
	if center.SuperCoordinatorID != nil && (center.CoordinatorID == nil || *center.SuperCoordinatorID != *center.CoordinatorID) {
		out = append(out, *center.SuperCoordinatorID)
	}
	return out
}

func notificationTypeFor(eventType enums.OutboxEventType) enums.NotificationType {
	switch eventType {
	case enums.EventRentalRequested:
		return enums.NotificationTypeRentalRequested
	case enums.EventRentalApproved:
		return enums.NotificationTypeRentalApproved
	case enums.EventRentalRejected:
		return enums.NotificationTypeRentalRejected
	case enums.EventRentalCancelled:
		return enums.NotificationTypeRentalRequested
	case enums.EventRentalReturned:
		return enums.NotificationTypeRentalReturned
	case enums.EventRentalOverdue:
		return enums.NotificationTypeRentalOverdue
	default:
		return ""
	}
}

func memberCopy(eventType enums.OutboxEventType, payload rentalEventPayload) (string, string) {
	switch eventType {
	case enums.EventRentalApproved:
		message := "Your rental request was approved."
		if payload.ExpectedReturnDate != nil {
			message = fmt.Sprintf("Your rental request was approved. Please return the games by %s.", payload.ExpectedReturnDate.Format("02 Jan 2006"))
		}
		return "Rental approved", message
	case enums.EventRentalRejected:
		message := "Your rental request was declined."
		if payload.Reason != nil && *payload.Reason != "" {
			message = fmt.Sprintf("Your rental request was declined. Reason: %s", *payload.Reason)
		}
		return "Rental declined", message
	case enums.EventRentalReturned:
		return "Rental closed", "Thanks for returning the games. The rental is now closed."
	case enums.EventRentalOverdue:
		return "Rental overdue", "Your rental is past its expected return date. Please return the games to the center."
	default:
		return "Rental updated", "Your rental was updated."
	}
}

func staffCopy(eventType enums.OutboxEventType, payload rentalEventPayload) (string, string) {
	switch eventType {
	case enums.EventRentalCancelled:
		return "Rental request cancelled", "A pending rental request was cancelled by the requester."
	default:
		count := len(payload.InstanceIDs)
		return "New rental request", fmt.Sprintf("A member requested %d game(s). The request is waiting for your review.", count)
	}
}

type rentalEventPayload struct {
	RentalID           uuid.UUID   `json:"rental_id"`
	UserID             uuid.UUID   `json:"user_id"`
	CenterID           uuid.UUID   `json:"center_id"`
	Status             string      `json:"status"`
	InstanceIDs        []uuid.UUID `json:"instance_ids"`
	ExpectedReturnDate *time.Time  `json:"expected_return_date,omitempty"`
	Reason             *string     `json:"reason,omitempty"`
}
