package vaults

import (
	"context"

	"github.com/everkeep/everkeep/internal/server/models"
)

// Repository persists vault records. All content fields are cipher
// envelopes by the time they reach this layer.
type Repository interface {
	Get(ctx context.Context, id string) (*models.VaultRecord, error)
	GetByOwner(ctx context.Context, ownerID string) (*models.VaultRecord, error)

	// GetForUpdate locks the row for the duration of the surrounding
	// transaction, serializing concurrent merges of the same vault.
	GetForUpdate(ctx context.Context, id string) (*models.VaultRecord, error)

	Create(ctx context.Context, rec *models.VaultRecord) (*models.VaultRecord, error)
	Update(ctx context.Context, rec *models.VaultRecord) (*models.VaultRecord, error)
}
