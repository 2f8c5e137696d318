// Package vaults provides a PostgreSQL-backed repository for vault records.
package vaults

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/everkeep/everkeep/internal/common"
	"github.com/everkeep/everkeep/internal/dbx"
	"github.com/everkeep/everkeep/internal/server/models"
)

const vaultColumns = `id, owner_id, funeral_wishes, funeral_plan, insurance, banking,
		personal_messages, special_requests, completion_percentage, is_complete, created_at, updated_at`

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanRecord(row *sql.Row) (*models.VaultRecord, error) {
	rec := &models.VaultRecord{}
	err := row.Scan(&rec.ID, &rec.OwnerID,
		&rec.FuneralWishes, &rec.FuneralPlan, &rec.Insurance, &rec.Banking,
		&rec.PersonalMessages, &rec.SpecialRequests,
		&rec.CompletionPercentage, &rec.IsComplete, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

// Get returns the vault record by id or common.ErrorNotFound.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.VaultRecord, error) {
	query := `SELECT ` + vaultColumns + ` FROM vaults WHERE id = $1`
	return scanRecord(r.db.QueryRowContext(ctx, query, id))
}

// GetByOwner returns the owner's vault record or common.ErrorNotFound.
func (r *PostgresRepository) GetByOwner(ctx context.Context, ownerID string) (*models.VaultRecord, error) {
	query := `SELECT ` + vaultColumns + ` FROM vaults WHERE owner_id = $1`
	return scanRecord(r.db.QueryRowContext(ctx, query, ownerID))
}

// GetForUpdate loads the record under a row lock. Only meaningful inside a
// transaction.
func (r *PostgresRepository) GetForUpdate(ctx context.Context, id string) (*models.VaultRecord, error) {
	query := `SELECT ` + vaultColumns + ` FROM vaults WHERE id = $1 FOR UPDATE`
	return scanRecord(r.db.QueryRowContext(ctx, query, id))
}

// Create inserts a new vault record and returns it with generated fields.
func (r *PostgresRepository) Create(ctx context.Context, rec *models.VaultRecord) (*models.VaultRecord, error) {
	query := `
		INSERT INTO vaults (owner_id, funeral_wishes, funeral_plan, insurance, banking,
			personal_messages, special_requests, completion_percentage, is_complete)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		rec.OwnerID, rec.FuneralWishes, rec.FuneralPlan, rec.Insurance, rec.Banking,
		rec.PersonalMessages, rec.SpecialRequests, rec.CompletionPercentage, rec.IsComplete,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

// Update writes all content columns plus the derived completion state and
// advances updated_at.
func (r *PostgresRepository) Update(ctx context.Context, rec *models.VaultRecord) (*models.VaultRecord, error) {
	query := `
		UPDATE vaults
		SET funeral_wishes = $2, funeral_plan = $3, insurance = $4, banking = $5,
			personal_messages = $6, special_requests = $7,
			completion_percentage = $8, is_complete = $9, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		rec.ID, rec.FuneralWishes, rec.FuneralPlan, rec.Insurance, rec.Banking,
		rec.PersonalMessages, rec.SpecialRequests, rec.CompletionPercentage, rec.IsComplete,
	).Scan(&rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}
