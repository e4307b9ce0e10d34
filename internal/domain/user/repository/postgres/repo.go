package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/AhmadKaify/Sanasend/internal/domain/user/deps"
	"github.com/AhmadKaify/Sanasend/internal/domain/user/entities"
	usererrors "github.com/AhmadKaify/Sanasend/internal/domain/user/errors"
)

// Repository implements deps.Repository using PostgreSQL
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new PostgreSQL user repository
func NewRepository(db *gorm.DB) deps.Repository {
	return &Repository{db: db}
}

func (r *Repository) GetByID(ctx context.Context, id uint) (*entities.User, error) {
	var model entities.UserModel
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, usererrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return model.ToEntity(), nil
}

func (r *Repository) GetByUsername(ctx context.Context, username string) (*entities.User, error) {
	var model entities.UserModel
	if err := r.db.WithContext(ctx).
		Where("username = ?", username).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, usererrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}

	return model.ToEntity(), nil
}
