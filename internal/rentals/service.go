package rentals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tamarLevanoni/couple-time-backend/internal/permissions"
	"github.com/tamarLevanoni/couple-time-backend/pkg/config"
	"github.com/tamarLevanoni/couple-time-backend/pkg/db/models"
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

// Service defines the rental lifecycle operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*RentalSummary, error)
	CreateGuest(ctx context.Context, input GuestCreateInput) (*RentalSummary, error)
	Get(ctx context.Context, actorID, rentalID uuid.UUID) (*RentalSummary, error)
	History(ctx context.Context, actorID, rentalID uuid.UUID) ([]ActionSummary, error)
	ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params) (*RentalList, error)
	ListForCenter(ctx context.Context, actorID, centerID uuid.UUID, status *enums.RentalStatus, params pagination.Params) (*RentalList, error)
	Approve(ctx context.Context, input DecisionInput) error
	Reject(ctx context.Context, input DecisionInput) error
	Cancel(ctx context.Context, input TransitionInput) error
	Return(ctx context.Context, input TransitionInput) error
	BulkApply(ctx context.Context, input BulkInput) (*BulkResult, error)
	Overdue(ctx context.Context, cutoff time.Time) ([]RentalSummary, error)
}

type service struct {
	repo        Repository
	instances   InstanceStore
	tx          txRunner
	outbox      outboxPublisher
	provisioner AccountProvisioner
	cfg         config.RentalsConfig
}

// RentalEvent is the payload emitted on every rental transition.
type RentalEvent struct {
	RentalID           uuid.UUID          `json:"rental_id"`
	UserID             uuid.UUID          `json:"user_id"`
	CenterID           uuid.UUID          `json:"center_id"`
	Status             enums.RentalStatus `json:"status"`
	InstanceIDs        []uuid.UUID        `json:"instance_ids"`
	ExpectedReturnDate *time.Time         `json:"expected_return_date,omitempty"`
	Reason             *string            `json:"reason,omitempty"`
}

// NewService builds the rental service with the required dependencies.
func NewService(repo Repository, instances InstanceStore, tx txRunner, outbox outboxPublisher, provisioner AccountProvisioner, cfg config.RentalsConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("rentals repository required")
	}
	if instances == nil {
		return nil, fmt.Errorf("instance store required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if provisioner == nil {
		return nil, fmt.Errorf("account provisioner required")
	}
	return &service{
		repo:        repo,
		instances:   instances,
		tx:          tx,
		outbox:      outbox,
		provisioner: provisioner,
		cfg:         cfg,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*RentalSummary, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	instanceIDs, err := normalizeInstanceIDs(input.InstanceIDs, s.cfg.MaxItemsPerRequest)
	if err != nil {
		return nil, err
	}

	var summary RentalSummary
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := s.createPending(ctx, tx, input.UserID, instanceIDs, input.Notes, nil)
		if err != nil {
			return err
		}
		summary = *created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

func (s *service) CreateGuest(ctx context.Context, input GuestCreateInput) (*RentalSummary, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}
	if strings.TrimSpace(input.FirstName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "first name required")
	}
	instanceIDs, err := normalizeInstanceIDs(input.InstanceIDs, s.cfg.MaxItemsPerRequest)
	if err != nil {
		return nil, err
	}

	var summary RentalSummary
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		user, err := s.provisioner.EnsureUserByEmail(ctx, tx, email, input.FirstName, input.LastName, input.Phone)
		if err != nil {
			return err
		}
		created, err := s.createPending(ctx, tx, user.ID, instanceIDs, input.Notes, nil)
		if err != nil {
			return err
		}
		summary = *created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// createPending runs the creation checks and writes the rental inside the
// caller's transaction. Checks run in a fixed order: existence, single
// center, no duplicate game, no overlapping active request, availability.
func (s *service) createPending(ctx context.Context, tx *gorm.DB, userID uuid.UUID, instanceIDs []uuid.UUID, notes *string, actor *outbox.ActorRef) (*RentalSummary, error) {
	repo := s.repo.WithTx(tx)
	instanceStore := s.instances.WithTx(tx)

	instances, err := instanceStore.FindInstances(ctx, instanceIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load game instances")
	}
	if len(instances) != len(instanceIDs) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "game instance not found")
	}

	centerID := instances[0].CenterID
	seenGames := make(map[uuid.UUID]struct{}, len(instances))
	for _, instance := range instances {
		if instance.CenterID != centerID {
			return nil, pkgerrors.New(pkgerrors.CodeMultiCenter, "all instances must belong to one center")
		}
		if _, dup := seenGames[instance.GameID]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "request lists the same game more than once")
		}
		seenGames[instance.GameID] = struct{}{}
	}

	// The user row lock serializes same-user creates; without it two
	// concurrent requests could both pass the blocking check and commit
	// duplicate PENDING rentals over the same instances.
	if err := repo.LockUser(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown user")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock requester")
	}
	blocking, err := repo.FindUserBlockingRentals(ctx, userID, instanceIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check active requests")
	}
	if len(blocking) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeDuplicateRequest, "an open request already covers one of these instances")
	}

	for _, instance := range instances {
		if instance.Status != enums.GameInstanceStatusAvailable {
			return nil, pkgerrors.New(pkgerrors.CodeUnavailable, "game instance is not available")
		}
	}

	rental := &models.Rental{
		UserID:      userID,
		CenterID:    centerID,
		Status:      enums.RentalStatusPending,
		RequestedAt: time.Now().UTC(),
		Notes:       notes,
	}
	if _, err := repo.CreateRental(ctx, rental); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create rental")
	}

	items := make([]models.RentalItem, 0, len(instances))
	for _, instance := range instances {
		items = append(items, models.RentalItem{
			RentalID:       rental.ID,
			GameInstanceID: instance.ID,
			GameID:         instance.GameID,
		})
	}
	if err := repo.CreateRentalItems(ctx, items); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create rental items")
	}
	rental.Items = items

	if actor == nil {
		actor = &outbox.ActorRef{UserID: userID, Role: permissions.TierUser.String()}
	}
	event := outbox.DomainEvent{
		EventType:     enums.EventRentalRequested,
		AggregateType: enums.AggregateRental,
		AggregateID:   rental.ID,
		Version:       1,
		Actor:         actor,
		Data: RentalEvent{
			RentalID:    rental.ID,
			UserID:      userID,
			CenterID:    centerID,
			Status:      enums.RentalStatusPending,
			InstanceIDs: instanceIDs,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, err
	}

	summary := toSummary(rental)
	return &summary, nil
}

func (s *service) Get(ctx context.Context, actorID, rentalID uuid.UUID) (*RentalSummary, error) {
	rental, actor, center, err := s.loadForRead(ctx, actorID, rentalID)
	if err != nil {
		return nil, err
	}
	if !permissions.CanReadRental(actor, rental, center) {
		// Out-of-scope reads collapse to not-found so rental ids do not
		// leak across centers.
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "rental not found")
	}
	summary := toSummary(rental)
	return &summary, nil
}

func (s *service) History(ctx context.Context, actorID, rentalID uuid.UUID) ([]ActionSummary, error) {
	rental, actor, center, err := s.loadForRead(ctx, actorID, rentalID)
	if err != nil {
		return nil, err
	}
	if !permissions.CanReadRental(actor, rental, center) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "rental not found")
	}
	actions, err := s.repo.ListActions(ctx, rentalID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list actions")
	}
	summaries := make([]ActionSummary, 0, len(actions))
	for _, action := range actions {
		summaries = append(summaries, ActionSummary{
			ID:          action.ID,
			ActorUserID: action.ActorUserID,
			FromStatus:  action.FromStatus,
			ToStatus:    action.ToStatus,
			Comment:     action.Comment,
			CreatedAt:   action.CreatedAt,
		})
	}
	return summaries, nil
}

func (s *service) loadForRead(ctx context.Context, actorID, rentalID uuid.UUID) (*models.Rental, *models.User, *models.Center, error) {
	if actorID == uuid.Nil {
		return nil, nil, nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if rentalID == uuid.Nil {
		return nil, nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "rental id required")
	}
	rental, err := s.repo.FindRental(ctx, rentalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "rental not found")
		}
		return nil, nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rental")
	}
	actor, err := s.repo.FindUser(ctx, actorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown user")
		}
		return nil, nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load actor")
	}
	center, err := s.repo.FindCenter(ctx, rental.CenterID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "rental not found")
		}
		return nil, nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load center")
	}
	return rental, actor, center, nil
}

func (s *service) ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params) (*RentalList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	list, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list rentals")
	}
	return list, nil
}

func (s *service) ListForCenter(ctx context.Context, actorID, centerID uuid.UUID, status *enums.RentalStatus, params pagination.Params) (*RentalList, error) {
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if centerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "center id required")
	}
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid rental status filter")
	}
	_, center, err := s.loadStaff(ctx, s.repo, actorID, centerID)
	if err != nil {
		return nil, err
	}
	list, err := s.repo.ListByCenter(ctx, center.ID, status, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list center rentals")
	}
	return list, nil
}

func (s *service) Approve(ctx context.Context, input DecisionInput) error {
	if err := validateDecisionInput(input); err != nil {
		return err
	}
	expectedReturn, err := s.loanWindow(input.LoanDays)
	if err != nil {
		return err
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rental, actor, center, err := s.loadForTransition(ctx, repo, input.RentalID, input.ActorUserID)
		if err != nil {
			return err
		}
		if !permissions.IsStaff(actor, center) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "staff access required for this center")
		}
		return s.approveOne(ctx, tx, repo, rental, actor, center, expectedReturn, input.Reason)
	})
}

func (s *service) Reject(ctx context.Context, input DecisionInput) error {
	if err := validateDecisionInput(input); err != nil {
		return err
	}
	if input.Reason == nil || strings.TrimSpace(*input.Reason) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "rejection reason required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rental, actor, center, err := s.loadForTransition(ctx, repo, input.RentalID, input.ActorUserID)
		if err != nil {
			return err
		}
		if !permissions.IsStaff(actor, center) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "staff access required for this center")
		}
		return s.rejectOne(ctx, tx, repo, rental, actor, center, *input.Reason)
	})
}

func (s *service) Cancel(ctx context.Context, input TransitionInput) error {
	if input.RentalID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "rental id required")
	}
	if input.ActorUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rental, actor, center, err := s.loadForTransition(ctx, repo, input.RentalID, input.ActorUserID)
		if err != nil {
			return err
		}
		if rental.Status != enums.RentalStatusPending {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "only pending rentals can be cancelled")
		}
		if !permissions.CanCancelRental(actor, rental) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the requester may cancel this rental")
		}

		rows, err := repo.UpdateRentalStatus(ctx, rental.ID, enums.RentalStatusPending, map[string]any{
			"status": enums.RentalStatusCancelled,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel rental")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "rental is no longer pending")
		}

		if err := s.appendAction(ctx, repo, rental, actor.ID, enums.RentalStatusPending, enums.RentalStatusCancelled, input.Comment); err != nil {
			return err
		}
		return s.emitTransition(ctx, tx, rental, actor, center, enums.EventRentalCancelled, enums.RentalStatusCancelled, nil, input.Comment)
	})
}

func (s *service) Return(ctx context.Context, input TransitionInput) error {
	if input.RentalID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "rental id required")
	}
	if input.ActorUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rental, actor, center, err := s.loadForTransition(ctx, repo, input.RentalID, input.ActorUserID)
		if err != nil {
			return err
		}
		if !permissions.IsStaff(actor, center) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "staff access required for this center")
		}
		return s.returnOne(ctx, tx, repo, rental, actor, center, input.Comment)
	})
}

func (s *service) BulkApply(ctx context.Context, input BulkInput) (*BulkResult, error) {
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if len(input.RentalIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rental ids required")
	}
	ids := make([]uuid.UUID, 0, len(input.RentalIDs))
	seen := make(map[uuid.UUID]struct{}, len(input.RentalIDs))
	for _, id := range input.RentalIDs {
		if id == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "rental id required")
		}
		if _, dup := seen[id]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate rental id in batch")
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	var expectedReturn time.Time
	switch input.Action {
	case BulkActionApprove:
		var err error
		expectedReturn, err = s.loanWindow(input.LoanDays)
		if err != nil {
			return nil, err
		}
	case BulkActionReject:
		if input.Reason == nil || strings.TrimSpace(*input.Reason) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason required")
		}
	case BulkActionReturn:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bulk action must be approve, reject, or return")
	}

	result := &BulkResult{Applied: make([]uuid.UUID, 0, len(ids))}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		rentals, err := repo.FindRentals(ctx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rentals")
		}
		if len(rentals) != len(ids) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "rental not found")
		}

		actor, err := s.loadActor(ctx, repo, input.ActorUserID)
		if err != nil {
			return err
		}

		// Pre-validate every item before touching any row: one failure
		// rejects the whole batch.
		centers := make(map[uuid.UUID]*models.Center, len(rentals))
		for i := range rentals {
			rental := &rentals[i]
			center, ok := centers[rental.CenterID]
			if !ok {
				center, err = s.loadCenterForRental(ctx, repo, rental.CenterID)
				if err != nil {
					return err
				}
				centers[rental.CenterID] = center
			}
			if !permissions.IsStaff(actor, center) {
				return pkgerrors.New(pkgerrors.CodeForbidden, "staff access required for this center")
			}
			if err := admitsBulkAction(rental.Status, input.Action); err != nil {
				return err
			}
		}

		for i := range rentals {
			rental := &rentals[i]
			center := centers[rental.CenterID]
			switch input.Action {
			case BulkActionApprove:
				err = s.approveOne(ctx, tx, repo, rental, actor, center, expectedReturn, input.Reason)
			case BulkActionReject:
				err = s.rejectOne(ctx, tx, repo, rental, actor, center, *input.Reason)
			case BulkActionReturn:
				err = s.returnOne(ctx, tx, repo, rental, actor, center, input.Reason)
			}
			if err != nil {
				return err
			}
			result.Applied = append(result.Applied, rental.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Overdue(ctx context.Context, cutoff time.Time) ([]RentalSummary, error) {
	rentals, err := s.repo.FindOverdue(ctx, cutoff)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find overdue rentals")
	}
	summaries := make([]RentalSummary, 0, len(rentals))
	for i := range rentals {
		summaries = append(summaries, toSummary(&rentals[i]))
	}
	return summaries, nil
}

// approveOne applies PENDING to ACTIVE inside the caller's transaction. The
// guarded update is the race arbiter: a concurrent approval that already won
// leaves zero rows for this one to claim.
func (s *service) approveOne(ctx context.Context, tx *gorm.DB, repo Repository, rental *models.Rental, actor *models.User, center *models.Center, expectedReturn time.Time, comment *string) error {
	if rental.Status != enums.RentalStatusPending {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition, "only pending rentals can be approved")
	}
	now := time.Now().UTC()
	rows, err := repo.UpdateRentalStatus(ctx, rental.ID, enums.RentalStatusPending, map[string]any{
		"status":               enums.RentalStatusActive,
		"borrowed_at":          now,
		"expected_return_date": expectedReturn,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approve rental")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition, "rental is no longer pending")
	}

	instanceIDs := rental.InstanceIDs()
	marked, err := s.instances.WithTx(tx).MarkBorrowed(ctx, instanceIDs, expectedReturn)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark instances borrowed")
	}
	if marked != int64(len(instanceIDs)) {
		return pkgerrors.New(pkgerrors.CodeUnavailable, "game instance is no longer available")
	}

	if err := s.appendAction(ctx, repo, rental, actor.ID, enums.RentalStatusPending, enums.RentalStatusActive, comment); err != nil {
		return err
	}
	return s.emitTransition(ctx, tx, rental, actor, center, enums.EventRentalApproved, enums.RentalStatusActive, &expectedReturn, comment)
}

func (s *service) rejectOne(ctx context.Context, tx *gorm.DB, repo Repository, rental *models.Rental, actor *models.User, center *models.Center, reason string) error {
	if rental.Status != enums.RentalStatusPending {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition, "only pending rentals can be rejected")
	}
	rows, err := repo.UpdateRentalStatus(ctx, rental.ID, enums.RentalStatusPending, map[string]any{
		"status":           enums.RentalStatusRejected,
		"rejection_reason": reason,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject rental")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition, "rental is no longer pending")
	}

	if err := s.appendAction(ctx, repo, rental, actor.ID, enums.RentalStatusPending, enums.RentalStatusRejected, &reason); err != nil {
		return err
	}
	return s.emitTransition(ctx, tx, rental, actor, center, enums.EventRentalRejected, enums.RentalStatusRejected, nil, &reason)
}

func (s *service) returnOne(ctx context.Context, tx *gorm.DB, repo Repository, rental *models.Rental, actor *models.User, center *models.Center, comment *string) error {
	if rental.Status != enums.RentalStatusActive {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition, "only active rentals can be returned")
	}
	now := time.Now().UTC()
	rows, err := repo.UpdateRentalStatus(ctx, rental.ID, enums.RentalStatusActive, map[string]any{
		"status":      enums.RentalStatusReturned,
		"returned_at": now,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "return rental")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition, "rental is no longer active")
	}

	instanceIDs := rental.InstanceIDs()
	marked, err := s.instances.WithTx(tx).MarkReturned(ctx, instanceIDs)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark instances returned")
	}
	if marked != int64(len(instanceIDs)) {
		// An active rental's instances must all be borrowed. Anything else
		// means the two status fields drifted.
		return pkgerrors.New(pkgerrors.CodeStateConflict, "instance state does not match active rental")
	}

	if err := s.appendAction(ctx, repo, rental, actor.ID, enums.RentalStatusActive, enums.RentalStatusReturned, comment); err != nil {
		return err
	}
	return s.emitTransition(ctx, tx, rental, actor, center, enums.EventRentalReturned, enums.RentalStatusReturned, nil, comment)
}

func (s *service) loadForTransition(ctx context.Context, repo Repository, rentalID, actorID uuid.UUID) (*models.Rental, *models.User, *models.Center, error) {
	rental, err := repo.FindRental(ctx, rentalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "rental not found")
		}
		return nil, nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rental")
	}
	actor, err := s.loadActor(ctx, repo, actorID)
	if err != nil {
		return nil, nil, nil, err
	}
	center, err := s.loadCenterForRental(ctx, repo, rental.CenterID)
	if err != nil {
		return nil, nil, nil, err
	}
	return rental, actor, center, nil
}

// loadActor and loadStaff delegate to the permission resolver bound to the
// same repo, so tx-scoped calls resolve against rows the transaction sees.
func (s *service) loadActor(ctx context.Context, repo Repository, actorID uuid.UUID) (*models.User, error) {
	resolver, err := permissions.NewResolver(repo, repo)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "permission resolver")
	}
	return resolver.Actor(ctx, actorID)
}

func (s *service) loadStaff(ctx context.Context, repo Repository, actorID, centerID uuid.UUID) (*models.User, *models.Center, error) {
	resolver, err := permissions.NewResolver(repo, repo)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "permission resolver")
	}
	return resolver.RequireStaff(ctx, actorID, centerID)
}

func (s *service) loadCenterForRental(ctx context.Context, repo Repository, centerID uuid.UUID) (*models.Center, error) {
	center, err := repo.FindCenter(ctx, centerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "center not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load center")
	}
	return center, nil
}

func (s *service) appendAction(ctx context.Context, repo Repository, rental *models.Rental, actorID uuid.UUID, from, to enums.RentalStatus, comment *string) error {
	action := &models.Action{
		RentalID:    rental.ID,
		ActorUserID: actorID,
		FromStatus:  from,
		ToStatus:    to,
		Comment:     comment,
	}
	if err := repo.CreateAction(ctx, action); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append action")
	}
	return nil
}

func (s *service) emitTransition(ctx context.Context, tx *gorm.DB, rental *models.Rental, actor *models.User, center *models.Center, eventType enums.OutboxEventType, status enums.RentalStatus, expectedReturn *time.Time, reason *string) error {
	centerID := rental.CenterID
	event := outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateRental,
		AggregateID:   rental.ID,
		Version:       1,
		Actor: &outbox.ActorRef{
			UserID:   actor.ID,
			CenterID: &centerID,
			Role:     permissions.TierFor(actor, center).String(),
		},
		Data: RentalEvent{
			RentalID:           rental.ID,
			UserID:             rental.UserID,
			CenterID:           rental.CenterID,
			Status:             status,
			InstanceIDs:        rental.InstanceIDs(),
			ExpectedReturnDate: expectedReturn,
			Reason:             reason,
		},
	}
	return s.outbox.Emit(ctx, tx, event)
}

// loanWindow resolves the expected return date from the requested loan
// length, clamped by configuration.
func (s *service) loanWindow(loanDays *int) (time.Time, error) {
	days := s.cfg.DefaultLoanDays
	if loanDays != nil {
		if *loanDays <= 0 || *loanDays > s.cfg.MaxLoanDays {
			return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "loan length out of range")
		}
		days = *loanDays
	}
	return time.Now().UTC().AddDate(0, 0, days), nil
}

func validateDecisionInput(input DecisionInput) error {
	if input.RentalID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "rental id required")
	}
	if input.ActorUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return nil
}

func normalizeInstanceIDs(ids []uuid.UUID, maxItems int) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one game instance required")
	}
	if maxItems > 0 && len(ids) > maxItems {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "too many game instances in one request")
	}
	normalized := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "game instance id required")
		}
		if _, dup := seen[id]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate game instance in request")
		}
		seen[id] = struct{}{}
		normalized = append(normalized, id)
	}
	return normalized, nil
}

func admitsBulkAction(status enums.RentalStatus, action BulkAction) error {
	switch action {
	case BulkActionApprove, BulkActionReject:
		if status != enums.RentalStatusPending {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "batch contains a rental that is not pending")
		}
	case BulkActionReturn:
		if status != enums.RentalStatusActive {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "batch contains a rental that is not active")
		}
	}
	return nil
}
