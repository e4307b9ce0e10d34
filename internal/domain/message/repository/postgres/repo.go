package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/AhmadKaify/Sanasend/internal/domain/message/deps"
	"github.com/AhmadKaify/Sanasend/internal/domain/message/entities"
)

// Repository implements deps.Repository using PostgreSQL
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new PostgreSQL message repository
func NewRepository(db *gorm.DB) deps.Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, message *entities.Message) error {
	model := entities.NewMessageModel(message)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}

	message.ID = model.ID
	message.CreatedAt = model.CreatedAt
	return nil
}

func (r *Repository) Update(ctx context.Context, message *entities.Message) error {
	if err := r.db.WithContext(ctx).Save(entities.NewMessageModel(message)).Error; err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}
	return nil
}

func (r *Repository) ListByUser(ctx context.Context, userID uint, limit int) ([]entities.Message, error) {
	var models []entities.MessageModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	messages := make([]entities.Message, len(models))
	for i := range models {
		messages[i] = *models[i].ToEntity()
	}
	return messages, nil
}
