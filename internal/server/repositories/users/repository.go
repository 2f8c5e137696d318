package users

import (
	"context"
	"time"

	"github.com/everkeep/everkeep/internal/server/models"
)

// Repository persists user accounts.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	SetVerification(ctx context.Context, id string, code string, expires time.Time) error
	MarkVerified(ctx context.Context, id string) error

	// Promote grants administrator rights and replaces the password
	// credential. Promoted accounts count as verified.
	Promote(ctx context.Context, id string, passwordHash string) error
}
