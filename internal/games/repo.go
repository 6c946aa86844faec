package games

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tamarLevanoni/couple-time-backend/pkg/db/models"
	"github.com/tamarLevanoni/couple-time-backend/pkg/enums"
	"github.com/tamarLevanoni/couple-time-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a games repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateGame(ctx context.Context, game *models.Game) (*models.Game, error) {
	if err := r.db.WithContext(ctx).Create(game).Error; err != nil {
		return nil, err
	}
	return game, nil
}

func (r *repository) UpdateGame(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Game{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) FindGame(ctx context.Context, id uuid.UUID) (*models.Game, error) {
	var game models.Game
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&game).Error; err != nil {
		return nil, err
	}
	return &game, nil
}

func (r *repository) ListGames(ctx context.Context, filters GameFilters, params pagination.Params) (*GameList, error) {
	normalizedLimit := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(strings.TrimSpace(params.Cursor))
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).Model(&models.Game{})
	if q := strings.TrimSpace(filters.Query); q != "" {
		pattern := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}
	if filters.Category != "" {
		query = query.Where("? = ANY(categories)", filters.Category)
	}
	if filters.Audience != "" {
		query = query.Where("? = ANY(target_audiences)", filters.Audience)
	}
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var games []models.Game
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&games).Error
	if err != nil {
		return nil, err
	}

	nextCursor := ""
	if len(games) > normalizedLimit {
		last := games[normalizedLimit-1]
		games = games[:normalizedLimit]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	summaries := make([]GameSummary, 0, len(games))
	for i := range games {
		summaries = append(summaries, toGameSummary(&games[i]))
	}
	return &GameList{Games: summaries, NextCursor: nextCursor}, nil
}

func (r *repository) CreateInstance(ctx context.Context, instance *models.GameInstance) (*models.GameInstance, error) {
	if err := r.db.WithContext(ctx).Create(instance).Error; err != nil {
		return nil, err
	}
	return instance, nil
}

func (r *repository) FindInstance(ctx context.Context, id uuid.UUID) (*models.GameInstance, error) {
	var instance models.GameInstance
	err := r.db.WithContext(ctx).
		Preload("Game").
		Where("id = ?", id).
		First(&instance).Error
	if err != nil {
		return nil, err
	}
	return &instance, nil
}

func (r *repository) ListInstancesByCenter(ctx context.Context, centerID uuid.UUID, params pagination.Params) (*InstanceList, error) {
	normalizedLimit := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(strings.TrimSpace(params.Cursor))
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).
		Preload("Game").
		Where("center_id = ?", centerID)
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var instances []models.GameInstance
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&instances).Error
	if err != nil {
		return nil, err
	}

	nextCursor := ""
	if len(instances) > normalizedLimit {
		last := instances[normalizedLimit-1]
		instances = instances[:normalizedLimit]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	summaries := make([]InstanceSummary, 0, len(instances))
	for i := range instances {
		summaries = append(summaries, toInstanceSummary(&instances[i]))
	}
	return &InstanceList{Instances: summaries, NextCursor: nextCursor}, nil
}

// CountBlockingRentals counts PENDING or ACTIVE rentals that reference the
// instance. A nonzero count blocks the staff availability toggle.
func (r *repository) CountBlockingRentals(ctx context.Context, instanceID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Rental{}).
		Joins("JOIN rental_items ri ON ri.rental_id = rentals.id").
		Where("ri.game_instance_id = ?", instanceID).
		Where("rentals.status IN ?", []enums.RentalStatus{enums.RentalStatusPending, enums.RentalStatusActive}).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// UpdateInstanceStatus flips the status only while the row still holds the
// expected one. Callers check the returned row count to detect races.
func (r *repository) UpdateInstanceStatus(ctx context.Context, id uuid.UUID, from, to enums.GameInstanceStatus, notes *string) (int64, error) {
	updates := map[string]any{"status": to}
	if notes != nil {
		updates["notes"] = *notes
	}
	res := r.db.WithContext(ctx).
		Model(&models.GameInstance{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repository) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindCenter(ctx context.Context, id uuid.UUID) (*models.Center, error) {
	var center models.Center
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&center).Error; err != nil {
		return nil, err
	}
	return &center, nil
}

func toGameSummary(game *models.Game) GameSummary {
	return GameSummary{
		ID:              game.ID,
		Name:            game.Name,
		Description:     game.Description,
		Categories:      game.Categories,
		TargetAudiences: game.TargetAudiences,
		ImageURL:        game.ImageURL,
		CreatedAt:       game.CreatedAt,
	}
}

func toInstanceSummary(instance *models.GameInstance) InstanceSummary {
	summary := InstanceSummary{
		ID:                 instance.ID,
		GameID:             instance.GameID,
		CenterID:           instance.CenterID,
		Status:             instance.Status,
		ExpectedReturnDate: instance.ExpectedReturnDate,
		Notes:              instance.Notes,
	}
	if instance.Game != nil {
		summary.GameName = instance.Game.Name
	}
	return summary
}
