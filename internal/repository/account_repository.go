package repository

import (
	"context"
	"time"

	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/models"
)

type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id int64) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

type ResetTokenRepository interface {
	Create(ctx context.Context, token *models.PasswordResetToken) error
	// Consume marks an unused, unexpired token as used and returns its owner.
	Consume(ctx context.Context, token string, now time.Time) (int64, error)
}
