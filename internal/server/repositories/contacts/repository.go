package contacts

import (
	"context"

	"github.com/everkeep/everkeep/internal/server/models"
)

// Repository persists trusted-contact nominations.
//
// Confirm and Deny are conditional transitions: they report
// common.ErrorConflict when the row exists but its status no longer allows
// the transition, so races on the same token or contact resolve to exactly
// one winner.
type Repository interface {
	Get(ctx context.Context, id string) (*models.TrustedContact, error)
	GetByToken(ctx context.Context, token string) (*models.TrustedContact, error)
	ListByVault(ctx context.Context, vaultID string) ([]*models.TrustedContact, error)
	ListByEmail(ctx context.Context, email string) ([]*models.TrustedContact, error)
	Create(ctx context.Context, contact *models.TrustedContact) (*models.TrustedContact, error)
	Confirm(ctx context.Context, id string) (*models.TrustedContact, error)
	Deny(ctx context.Context, id string) error
}
