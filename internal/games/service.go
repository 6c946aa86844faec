package games

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/tamarLevanoni/couple-time-backend/internal/permissions"
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

// Service defines catalog and availability operations.
type Service interface {
	CreateGame(ctx context.Context, input CreateGameInput) (*GameSummary, error)
	UpdateGame(ctx context.Context, input UpdateGameInput) error
	GetGame(ctx context.Context, gameID uuid.UUID) (*GameSummary, error)
	ListGames(ctx context.Context, filters GameFilters, params pagination.Params) (*GameList, error)
	CreateInstance(ctx context.Context, input CreateInstanceInput) (*InstanceSummary, error)
	ListInstancesForCenter(ctx context.Context, centerID uuid.UUID, params pagination.Params) (*InstanceList, error)
	SetInstanceStatus(ctx context.Context, input SetInstanceStatusInput) error
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
}

// InstanceStatusEvent is emitted when staff toggle a copy's availability.
type InstanceStatusEvent struct {
	InstanceID uuid.UUID                `json:"instance_id"`
	CenterID   uuid.UUID                `json:"center_id"`
	FromStatus enums.GameInstanceStatus `json:"from_status"`
	ToStatus   enums.GameInstanceStatus `json:"to_status"`
}

// NewService builds the games service with the required dependencies.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("games repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outbox}, nil
}

func (s *service) CreateGame(ctx context.Context, input CreateGameInput) (*GameSummary, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "game name required")
	}
	if _, err := s.requireAdmin(ctx, input.ActorUserID); err != nil {
		return nil, err
	}

	game := &models.Game{
		Name:            strings.TrimSpace(input.Name),
		Description:     input.Description,
		Categories:      pq.StringArray(input.Categories),
		TargetAudiences: pq.StringArray(input.TargetAudiences),
		ImageURL:        input.ImageURL,
	}
	if _, err := s.repo.CreateGame(ctx, game); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create game")
	}
	summary := toGameSummary(game)
	return &summary, nil
}

func (s *service) UpdateGame(ctx context.Context, input UpdateGameInput) error {
	if input.GameID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "game id required")
	}
	if _, err := s.requireAdmin(ctx, input.ActorUserID); err != nil {
		return err
	}
	if _, err := s.repo.FindGame(ctx, input.GameID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "game not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load game")
	}

	updates := map[string]any{}
	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "game name required")
		}
		updates["name"] = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Categories != nil {
		updates["categories"] = pq.StringArray(input.Categories)
	}
	if input.TargetAudiences != nil {
		updates["target_audiences"] = pq.StringArray(input.TargetAudiences)
	}
	if input.ImageURL != nil {
		updates["image_url"] = *input.ImageURL
	}
	if len(updates) == 0 {
		return nil
	}
	if err := s.repo.UpdateGame(ctx, input.GameID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update game")
	}
	return nil
}

func (s *service) GetGame(ctx context.Context, gameID uuid.UUID) (*GameSummary, error) {
	if gameID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "game id required")
	}
	game, err := s.repo.FindGame(ctx, gameID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "game not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load game")
	}
	summary := toGameSummary(game)
	return &summary, nil
}

func (s *service) ListGames(ctx context.Context, filters GameFilters, params pagination.Params) (*GameList, error) {
	list, err := s.repo.ListGames(ctx, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list games")
	}
	return list, nil
}

func (s *service) CreateInstance(ctx context.Context, input CreateInstanceInput) (*InstanceSummary, error) {
	if input.GameID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "game id required")
	}
	if input.CenterID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "center id required")
	}
	if _, _, err := s.requireStaff(ctx, input.ActorUserID, input.CenterID); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindGame(ctx, input.GameID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "game not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load game")
	}

	instance := &models.GameInstance{
		GameID:   input.GameID,
		CenterID: input.CenterID,
		Status:   enums.GameInstanceStatusAvailable,
		Notes:    input.Notes,
	}
	if _, err := s.repo.CreateInstance(ctx, instance); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create game instance")
	}
	summary := toInstanceSummary(instance)
	return &summary, nil
}

func (s *service) ListInstancesForCenter(ctx context.Context, centerID uuid.UUID, params pagination.Params) (*InstanceList, error) {
	if centerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "center id required")
	}
	list, err := s.repo.ListInstancesByCenter(ctx, centerID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list game instances")
	}
	return list, nil
}

// SetInstanceStatus pins a copy AVAILABLE or UNAVAILABLE. BORROWED belongs
// to the rental lifecycle and can never be entered or left here.
func (s *service) SetInstanceStatus(ctx context.Context, input SetInstanceStatusInput) error {
	if input.InstanceID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "game instance id required")
	}
	if input.ActorUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	switch input.Status {
	case enums.GameInstanceStatusAvailable, enums.GameInstanceStatusUnavailable:
	case enums.GameInstanceStatusBorrowed:
		return pkgerrors.New(pkgerrors.CodeValidation, "borrowed is set by the rental lifecycle only")
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid game instance status")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		instance, err := repo.FindInstance(ctx, input.InstanceID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "game instance not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load game instance")
		}

		actor, center, err := s.staffOn(ctx, repo, input.ActorUserID, instance.CenterID)
		if err != nil {
			return err
		}

		if instance.Status == input.Status {
			return nil
		}
		if instance.Status == enums.GameInstanceStatusBorrowed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "instance is borrowed by an active rental")
		}
		if input.Status == enums.GameInstanceStatusUnavailable {
			blocking, err := repo.CountBlockingRentals(ctx, input.InstanceID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check open rentals")
			}
			if blocking > 0 {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "an open rental references this instance")
			}
		}

		rows, err := repo.UpdateInstanceStatus(ctx, input.InstanceID, instance.Status, input.Status, input.Notes)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update instance status")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "instance status changed concurrently")
		}

		centerID := instance.CenterID
		event := outbox.DomainEvent{
			EventType:     enums.EventInstanceStatusChanged,
			AggregateType: enums.AggregateGameInstance,
			AggregateID:   instance.ID,
			Version:       1,
			Actor: &outbox.ActorRef{
				UserID:   actor.ID,
				CenterID: &centerID,
				Role:     permissions.TierFor(actor, center).String(),
			},
			Data: InstanceStatusEvent{
				InstanceID: instance.ID,
				CenterID:   instance.CenterID,
				FromStatus: instance.Status,
				ToStatus:   input.Status,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
}

func (s *service) requireAdmin(ctx context.Context, actorID uuid.UUID) (*models.User, error) {
	resolver, err := permissions.NewResolver(s.repo, s.repo)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "permission resolver")
	}
	return resolver.RequireAdmin(ctx, actorID)
}

func (s *service) requireStaff(ctx context.Context, actorID, centerID uuid.UUID) (*models.User, *models.Center, error) {
	return s.staffOn(ctx, s.repo, actorID, centerID)
}

func (s *service) staffOn(ctx context.Context, repo Repository, actorID, centerID uuid.UUID) (*models.User, *models.Center, error) {
	resolver, err := permissions.NewResolver(repo, repo)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "permission resolver")
	}
	return resolver.RequireStaff(ctx, actorID, centerID)
}
