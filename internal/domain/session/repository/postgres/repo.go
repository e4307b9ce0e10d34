package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/AhmadKaify/Sanasend/internal/domain/session/deps"
	"github.com/AhmadKaify/Sanasend/internal/domain/session/entities"
	sessionerrors "github.com/AhmadKaify/Sanasend/internal/domain/session/errors"
)

// Repository implements deps.Repository using PostgreSQL
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new PostgreSQL session repository
func NewRepository(db *gorm.DB) deps.Repository {
	return &Repository{db: db}
}

func toEntities(models []entities.SessionModel) []entities.Session {
	sessions := make([]entities.Session, len(models))
	for i := range models {
		sessions[i] = *models[i].ToEntity()
	}
	return sessions
}

// sessionLockClass namespaces the per-user advisory locks of this repository
const sessionLockClass = 1

// lockUser serializes session creation and primary changes of one user
// until the surrounding transaction ends
func lockUser(tx *gorm.DB, userID uint) error {
	if err := tx.Exec("SELECT pg_advisory_xact_lock(?, ?)", sessionLockClass, userID).Error; err != nil {
		return fmt.Errorf("failed to lock user sessions: %w", err)
	}
	return nil
}

// Create inserts a session while the user holds fewer than limit sessions.
// The first session of a user becomes primary.
func (r *Repository) Create(ctx context.Context, session *entities.Session, limit int) error {
	model := entities.NewSessionModel(session)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUser(tx, session.UserID); err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&entities.SessionModel{}).
			Where("user_id = ?", session.UserID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count sessions: %w", err)
		}
		if count >= int64(limit) {
			return sessionerrors.ErrSessionLimitReached
		}

		model.IsPrimary = count == 0
		return tx.Create(model).Error
	})
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return sessionerrors.ErrInstanceExists
		case errors.Is(err, sessionerrors.ErrSessionLimitReached):
			return err
		}
		return fmt.Errorf("failed to create session: %w", err)
	}

	*session = *model.ToEntity()
	return nil
}

// Update writes the lifecycle columns of the session. is_primary is only
// changed by SwitchPrimary and Create, under the user lock.
func (r *Repository) Update(ctx context.Context, session *entities.Session) error {
	model := entities.NewSessionModel(session)
	if err := r.db.WithContext(ctx).
		Model(model).
		Select("*").
		Omit("user_id", "is_primary", "created_at").
		Updates(model).Error; err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	session.UpdatedAt = model.UpdatedAt
	return nil
}

// Delete removes a session row
func (r *Repository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&entities.SessionModel{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete session: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return sessionerrors.ErrSessionNotFound
	}

	return nil
}

// GetByID retrieves a session owned by the user
func (r *Repository) GetByID(ctx context.Context, userID, id uint) (*entities.Session, error) {
	var model entities.SessionModel
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sessionerrors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return model.ToEntity(), nil
}

// GetBySessionID retrieves a session by its backend identifier
func (r *Repository) GetBySessionID(ctx context.Context, sessionID string) (*entities.Session, error) {
	var model entities.SessionModel
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sessionerrors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session by session_id: %w", err)
	}

	return model.ToEntity(), nil
}

// ListByUser returns every session of the user, newest first
func (r *Repository) ListByUser(ctx context.Context, userID uint) ([]entities.Session, error) {
	var models []entities.SessionModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	return toEntities(models), nil
}

// ListConnected returns connected sessions, least recently active first
func (r *Repository) ListConnected(ctx context.Context, userID uint) ([]entities.Session, error) {
	var models []entities.SessionModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, entities.StatusConnected).
		Order("last_active_at ASC NULLS LAST").
		Order("id ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list connected sessions: %w", err)
	}

	return toEntities(models), nil
}

// GetPrimaryConnected returns the connected primary session
func (r *Repository) GetPrimaryConnected(ctx context.Context, userID uint) (*entities.Session, error) {
	var model entities.SessionModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_primary = ? AND status = ?", userID, true, entities.StatusConnected).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sessionerrors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get primary session: %w", err)
	}

	return model.ToEntity(), nil
}

// CountByUser counts sessions of the user
func (r *Repository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&entities.SessionModel{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}

	return count, nil
}

// InstanceExists checks the (user, instance_name) uniqueness rule
func (r *Repository) InstanceExists(ctx context.Context, userID uint, instanceName string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&entities.SessionModel{}).
		Where("user_id = ? AND instance_name = ?", userID, instanceName).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check instance existence: %w", err)
	}

	return count > 0, nil
}

// TouchLastActive stamps the session as used
func (r *Repository) TouchLastActive(ctx context.Context, id uint, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&entities.SessionModel{}).
		Where("id = ?", id).
		Update("last_active_at", at)

	if result.Error != nil {
		return fmt.Errorf("failed to update last_active_at: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return sessionerrors.ErrSessionNotFound
	}

	return nil
}

// UpdateStatus sets only the status column
func (r *Repository) UpdateStatus(ctx context.Context, id uint, status entities.Status) error {
	result := r.db.WithContext(ctx).
		Model(&entities.SessionModel{}).
		Where("id = ?", id).
		Update("status", string(status))

	if result.Error != nil {
		return fmt.Errorf("failed to update session status: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return sessionerrors.ErrSessionNotFound
	}

	return nil
}

// SwitchPrimary moves the primary flag under a row lock on all user sessions
func (r *Repository) SwitchPrimary(
	ctx context.Context,
	userID uint,
	choose func(locked []entities.Session) (*entities.Session, error),
) (*entities.Session, error) {
	var chosen *entities.Session

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUser(tx, userID); err != nil {
			return err
		}

		var models []entities.SessionModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).
			Order("last_active_at ASC NULLS LAST").
			Order("id ASC").
			Find(&models).Error; err != nil {
			return fmt.Errorf("failed to lock user sessions: %w", err)
		}

		target, err := choose(toEntities(models))
		if err != nil {
			return err
		}
		if target == nil {
			return nil
		}

		if err := tx.Model(&entities.SessionModel{}).
			Where("user_id = ? AND is_primary = ?", userID, true).
			Update("is_primary", false).Error; err != nil {
			return fmt.Errorf("failed to clear primary flag: %w", err)
		}

		if err := tx.Model(&entities.SessionModel{}).
			Where("id = ? AND user_id = ?", target.ID, userID).
			Update("is_primary", true).Error; err != nil {
			return fmt.Errorf("failed to set primary flag: %w", err)
		}

		target.IsPrimary = true
		chosen = target
		return nil
	})
	if err != nil {
		return nil, err
	}

	return chosen, nil
}

// ListExpiredQR returns pending sessions whose QR code has expired
func (r *Repository) ListExpiredQR(ctx context.Context, now time.Time) ([]entities.Session, error) {
	var models []entities.SessionModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND qr_expires_at < ?", entities.StatusQRPending, now).
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list expired qr sessions: %w", err)
	}

	return toEntities(models), nil
}

// ListByStatuses returns sessions in any of the given statuses
func (r *Repository) ListByStatuses(ctx context.Context, statuses ...entities.Status) ([]entities.Session, error) {
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}

	var models []entities.SessionModel
	if err := r.db.WithContext(ctx).
		Where("status IN ?", values).
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list sessions by status: %w", err)
	}

	return toEntities(models), nil
}

// ListDisconnectedBefore returns disconnected sessions untouched since cutoff
func (r *Repository) ListDisconnectedBefore(ctx context.Context, cutoff time.Time) ([]entities.Session, error) {
	var models []entities.SessionModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", entities.StatusDisconnected, cutoff).
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list stale sessions: %w", err)
	}

	return toEntities(models), nil
}
