package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/tamarLevanoni/couple-time-backend/pkg/db/models"
	"github.com/tamarLevanoni/couple-time-backend/pkg/enums"
	"github.com/tamarLevanoni/couple-time-backend/pkg/logger"
	"github.com/tamarLevanoni/couple-time-backend/pkg/outbox"
)

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type outboxExistenceChecker interface {
	Exists(ctx context.Context, eventType enums.OutboxEventType, aggregateType enums.OutboxAggregateType, aggregateID uuid.UUID) (bool, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type overdueRentalReader interface {
	FindOverdue(ctx context.Context, cutoff time.Time) ([]models.Rental, error)
}

// RentalOverdueJobParams configure the overdue reminder scheduler.
type RentalOverdueJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Rentals    overdueRentalReader
	Outbox     outboxEmitter
	OutboxRepo outboxExistenceChecker

	// Grace delays the reminder past the expected return date.
	Grace time.Duration
}

// NewRentalOverdueJob builds the cron job that flags active rentals past
// their expected return date. Overdue is derived from the dates, never
// written back to the rental row; the job only emits the reminder event.
func NewRentalOverdueJob(params RentalOverdueJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Rentals == nil {
		return nil, fmt.Errorf("rentals reader required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	if params.OutboxRepo == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	return &rentalOverdueJob{
		logg:       params.Logger,
		db:         params.DB,
		rentals:    params.Rentals,
		outbox:     params.Outbox,
		outboxRepo: params.OutboxRepo,
		grace:      params.Grace,
		now:        time.Now,
	}, nil
}

type rentalOverdueJob struct {
	logg       *logger.Logger
	db         txRunner
	rentals    overdueRentalReader
	outbox     outboxEmitter
	outboxRepo outboxExistenceChecker
	grace      time.Duration
	now        func() time.Time
}

func (j *rentalOverdueJob) Name() string { return "rental-overdue" }

func (j *rentalOverdueJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	rentals, err := j.rentals.FindOverdue(ctx, now.Add(-j.grace))
	if err != nil {
		return fmt.Errorf("query overdue rentals: %w", err)
	}
	count := 0
	var errs []error
	for _, rental := range rentals {
		emitted, err := j.emitOverdue(ctx, rental, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("rental %s: %w", rental.ID, err))
			continue
		}
		if emitted {
			count++
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"overdue": len(rentals),
		"emitted": count,
	})
	j.logg.Info(logCtx, "rental overdue loop complete")
	return multierr.Combine(errs...)
}

func (j *rentalOverdueJob) emitOverdue(ctx context.Context, rental models.Rental, now time.Time) (bool, error) {
	exists, err := j.outboxRepo.Exists(ctx, enums.EventRentalOverdue, enums.AggregateRental, rental.ID)
	if err != nil {
		return false, fmt.Errorf("check overdue event existence: %w", err)
	}
	if exists {
		return false, nil
	}

	daysOverdue := 0
	if rental.ExpectedReturnDate != nil {
		daysOverdue = int(now.Sub(*rental.ExpectedReturnDate).Hours() / 24)
	}

	err = j.db.WithTx(ctx, func(tx *gorm.DB) error {
		event := outbox.DomainEvent{
			EventType:     enums.EventRentalOverdue,
			AggregateType: enums.AggregateRental,
			AggregateID:   rental.ID,
			Version:       1,
			OccurredAt:    now,
			Data: RentalOverdueEvent{
				RentalID:           rental.ID,
				UserID:             rental.UserID,
				CenterID:           rental.CenterID,
				InstanceIDs:        rental.InstanceIDs(),
				ExpectedReturnDate: rental.ExpectedReturnDate,
				DaysOverdue:        daysOverdue,
			},
		}
		return j.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// RentalOverdueEvent carries the payload for overdue reminders.
type RentalOverdueEvent struct {
	RentalID           uuid.UUID   `json:"rental_id"`
	UserID             uuid.UUID   `json:"user_id"`
	CenterID           uuid.UUID   `json:"center_id"`
	InstanceIDs        []uuid.UUID `json:"instance_ids"`
	ExpectedReturnDate *time.Time  `json:"expected_return_date,omitempty"`
	DaysOverdue        int         `json:"days_overdue"`
}
