package deps

import (
	"context"

	"github.com/AhmadKaify/Sanasend/internal/domain/user/entities"
)

// Repository reads user accounts; users are managed outside this service
type Repository interface {
	GetByID(ctx context.Context, id uint) (*entities.User, error)
	GetByUsername(ctx context.Context, username string) (*entities.User, error)
}
