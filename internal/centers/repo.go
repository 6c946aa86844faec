package centers

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tamarLevanoni/couple-time-backend/pkg/db/models"
	"github.com/tamarLevanoni/couple-time-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a centers repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateCenter(ctx context.Context, center *models.Center) (*models.Center, error) {
	if err := r.db.WithContext(ctx).Create(center).Error; err != nil {
		return nil, err
	}
	return center, nil
}

func (r *repository) UpdateCenter(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Center{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) FindCenter(ctx context.Context, id uuid.UUID) (*models.Center, error) {
	var center models.Center
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&center).Error; err != nil {
		return nil, err
	}
	return &center, nil
}

func (r *repository) ListCenters(ctx context.Context, filters CenterFilters, params pagination.Params) (*CenterList, error) {
	normalizedLimit := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(strings.TrimSpace(params.Cursor))
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).Model(&models.Center{})
	if filters.Area != nil {
		query = query.Where("area = ?", *filters.Area)
	}
	if filters.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if q := strings.TrimSpace(filters.Query); q != "" {
		pattern := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(city) LIKE ?", pattern, pattern)
	}
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var centers []models.Center
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&centers).Error
	if err != nil {
		return nil, err
	}

	nextCursor := ""
	if len(centers) > normalizedLimit {
		last := centers[normalizedLimit-1]
		centers = centers[:normalizedLimit]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	summaries := make([]CenterSummary, 0, len(centers))
	for i := range centers {
		summaries = append(summaries, toSummary(&centers[i]))
	}
	return &CenterList{Centers: summaries, NextCursor: nextCursor}, nil
}

func (r *repository) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) UpdateUser(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func toSummary(center *models.Center) CenterSummary {
	return CenterSummary{
		ID:                 center.ID,
		Name:               center.Name,
		Area:               center.Area,
		City:               center.City,
		Address:            center.Address,
		CoordinatorID:      center.CoordinatorID,
		SuperCoordinatorID: center.SuperCoordinatorID,
		IsActive:           center.IsActive,
		CreatedAt:          center.CreatedAt,
	}
}
