// Package contacts provides a PostgreSQL-backed repository for
// trusted-contact nominations and their invitation tokens.
package contacts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/everkeep/everkeep/internal/common"
	"github.com/everkeep/everkeep/internal/dbx"
	"github.com/everkeep/everkeep/internal/server/models"
)

const contactColumns = `id, vault_id, email, name, status, token, invited_at, confirmed_at`

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanContact(scan func(dest ...any) error) (*models.TrustedContact, error) {
	c := &models.TrustedContact{}
	var confirmed sql.NullTime
	err := scan(&c.ID, &c.VaultID, &c.Email, &c.Name, &c.Status, &c.Token, &c.InvitedAt, &confirmed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if confirmed.Valid {
		c.ConfirmedAt = &confirmed.Time
	}
	return c, nil
}

// Get returns the contact by id or common.ErrorNotFound.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.TrustedContact, error) {
	query := `SELECT ` + contactColumns + ` FROM trusted_contacts WHERE id = $1`
	return scanContact(r.db.QueryRowContext(ctx, query, id).Scan)
}

// GetByToken resolves an invitation token or returns common.ErrorNotFound.
func (r *PostgresRepository) GetByToken(ctx context.Context, token string) (*models.TrustedContact, error) {
	query := `SELECT ` + contactColumns + ` FROM trusted_contacts WHERE token = $1`
	return scanContact(r.db.QueryRowContext(ctx, query, token).Scan)
}

func (r *PostgresRepository) list(ctx context.Context, query string, arg any) ([]*models.TrustedContact, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.TrustedContact
	for rows.Next() {
		c, err := scanContact(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

// ListByVault returns all contacts nominated on the given vault.
func (r *PostgresRepository) ListByVault(ctx context.Context, vaultID string) ([]*models.TrustedContact, error) {
	query := `SELECT ` + contactColumns + ` FROM trusted_contacts WHERE vault_id = $1 ORDER BY invited_at`
	return r.list(ctx, query, vaultID)
}

// ListByEmail returns every nomination addressed to the given email, used to
// find the vaults where a user is a trusted contact.
func (r *PostgresRepository) ListByEmail(ctx context.Context, email string) ([]*models.TrustedContact, error) {
	query := `SELECT ` + contactColumns + ` FROM trusted_contacts WHERE email = $1 ORDER BY invited_at`
	return r.list(ctx, query, email)
}

// Create inserts a pending nomination and returns it with generated fields.
func (r *PostgresRepository) Create(ctx context.Context, contact *models.TrustedContact) (*models.TrustedContact, error) {
	query := `
		INSERT INTO trusted_contacts (vault_id, email, name, status, token)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, invited_at
	`
	err := r.db.QueryRowContext(ctx, query,
		contact.VaultID, contact.Email, contact.Name, contact.Status, contact.Token,
	).Scan(&contact.ID, &contact.InvitedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return contact, nil
}

// Confirm transitions pending -> confirmed. If the contact exists but is no
// longer pending the token is already consumed and common.ErrorConflict is
// returned.
func (r *PostgresRepository) Confirm(ctx context.Context, id string) (*models.TrustedContact, error) {
	query := `
		UPDATE trusted_contacts
		SET status = 'confirmed', confirmed_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + contactColumns
	c, err := scanContact(r.db.QueryRowContext(ctx, query, id).Scan)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	// No row matched: absent vs already consumed.
	if _, getErr := r.Get(ctx, id); getErr == nil {
		return nil, common.ErrorConflict
	}
	return nil, common.ErrorNotFound
}

// Deny transitions pending or confirmed -> denied. Denied is terminal, so a
// second denial reports common.ErrorConflict.
func (r *PostgresRepository) Deny(ctx context.Context, id string) error {
	query := `
		UPDATE trusted_contacts
		SET status = 'denied'
		WHERE id = $1 AND status IN ('pending', 'confirmed')
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if dbx.RowsAffected(res) > 0 {
		return nil
	}

	if _, getErr := r.Get(ctx, id); getErr == nil {
		return common.ErrorConflict
	}
	return common.ErrorNotFound
}
