package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/AhmadKaify/Sanasend/internal/domain/apikey/deps"
	"github.com/AhmadKaify/Sanasend/internal/domain/apikey/entities"
	apikeyerrors "github.com/AhmadKaify/Sanasend/internal/domain/apikey/errors"
)

// Repository implements deps.Repository using PostgreSQL
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new PostgreSQL API key repository
func NewRepository(db *gorm.DB) deps.Repository {
	return &Repository{db: db}
}

// Create inserts a key and fills generated fields
func (r *Repository) Create(ctx context.Context, key *entities.APIKey) error {
	model := entities.NewAPIKeyModel(key)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to create api key: %w", err)
	}

	key.ID = model.ID
	key.CreatedAt = model.CreatedAt
	return nil
}

// GetByDigest finds a key by its stored HMAC digest
func (r *Repository) GetByDigest(ctx context.Context, digest string) (*entities.APIKey, error) {
	var model entities.APIKeyModel
	if err := r.db.WithContext(ctx).
		Where("key = ?", digest).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apikeyerrors.ErrAPIKeyNotFound
		}
		return nil, fmt.Errorf("failed to get api key: %w", err)
	}

	return model.ToEntity(), nil
}

func (r *Repository) ListByUser(ctx context.Context, userID uint) ([]entities.APIKey, error) {
	var models []entities.APIKeyModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}

	keys := make([]entities.APIKey, len(models))
	for i := range models {
		keys[i] = *models[i].ToEntity()
	}
	return keys, nil
}

func (r *Repository) Deactivate(ctx context.Context, userID, id uint) error {
	result := r.db.WithContext(ctx).
		Model(&entities.APIKeyModel{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_active", false)
	if result.Error != nil {
		return fmt.Errorf("failed to deactivate api key: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return apikeyerrors.ErrAPIKeyNotFound
	}

	return nil
}

func (r *Repository) RecordSuccess(ctx context.Context, id uint, at time.Time) error {
	if err := r.db.WithContext(ctx).
		Model(&entities.APIKeyModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"failed_attempts": 0,
			"last_used_at":    at,
		}).Error; err != nil {
		return fmt.Errorf("failed to record api key use: %w", err)
	}
	return nil
}

func (r *Repository) RecordFailure(ctx context.Context, id uint, at time.Time) error {
	if err := r.db.WithContext(ctx).
		Model(&entities.APIKeyModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"failed_attempts":     gorm.Expr("failed_attempts + 1"),
			"last_failed_attempt": at,
		}).Error; err != nil {
		return fmt.Errorf("failed to record api key failure: %w", err)
	}
	return nil
}
