// Package releases provides a PostgreSQL-backed repository for
// death-declaration release requests and their review state.
package releases

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/everkeep/everkeep/internal/common"
	"github.com/everkeep/everkeep/internal/dbx"
	"github.com/everkeep/everkeep/internal/server/models"
)

const releaseColumns = `id, vault_id, requester_id, deceased_name, evidence_ref, status, requested_at, reviewed_at, reviewer_id`

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanRelease(scan func(dest ...any) error) (*models.DataReleaseRequest, error) {
	req := &models.DataReleaseRequest{}
	var reviewedAt sql.NullTime
	var reviewerID sql.NullString
	err := scan(&req.ID, &req.VaultID, &req.RequesterID, &req.DeceasedName,
		&req.EvidenceRef, &req.Status, &req.RequestedAt, &reviewedAt, &reviewerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if reviewedAt.Valid {
		req.ReviewedAt = &reviewedAt.Time
	}
	if reviewerID.Valid {
		req.ReviewerID = reviewerID.String
	}
	return req, nil
}

// Create inserts a pending release request and returns it with generated
// fields.
func (r *PostgresRepository) Create(ctx context.Context, req *models.DataReleaseRequest) (*models.DataReleaseRequest, error) {
	query := `
		INSERT INTO data_release_requests (vault_id, requester_id, deceased_name, evidence_ref, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, requested_at
	`
	err := r.db.QueryRowContext(ctx, query,
		req.VaultID, req.RequesterID, req.DeceasedName, req.EvidenceRef, req.Status,
	).Scan(&req.ID, &req.RequestedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return req, nil
}

// Get returns the request by id or common.ErrorNotFound.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.DataReleaseRequest, error) {
	query := `SELECT ` + releaseColumns + ` FROM data_release_requests WHERE id = $1`
	return scanRelease(r.db.QueryRowContext(ctx, query, id).Scan)
}

// List returns requests matching the filter, newest first.
func (r *PostgresRepository) List(ctx context.Context, filter models.ReleaseFilter) ([]*models.DataReleaseRequest, error) {
	query := `SELECT ` + releaseColumns + ` FROM data_release_requests WHERE 1=1`
	args := []any{}
	if filter.VaultID != "" {
		args = append(args, filter.VaultID)
		query += fmt.Sprintf(" AND vault_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY requested_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.DataReleaseRequest
	for rows.Next() {
		req, err := scanRelease(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

// Review applies the decision iff the request is still pending, recording
// reviewer and timestamp atomically. A request that already left pending
// reports common.ErrorConflict; an unknown id reports common.ErrorNotFound.
func (r *PostgresRepository) Review(ctx context.Context, id string, decision models.ReleaseDecision, reviewerID string) (*models.DataReleaseRequest, error) {
	query := `
		UPDATE data_release_requests
		SET status = $2, reviewed_at = now(), reviewer_id = $3
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + releaseColumns
	req, err := scanRelease(r.db.QueryRowContext(ctx, query, id, string(decision), reviewerID).Scan)
	if err == nil {
		return req, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	if _, getErr := r.Get(ctx, id); getErr == nil {
		return nil, common.ErrorConflict
	}
	return nil, common.ErrorNotFound
}

// HasApproved reports whether any approved request exists for the vault.
func (r *PostgresRepository) HasApproved(ctx context.Context, vaultID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM data_release_requests WHERE vault_id = $1 AND status = 'approved')`
	var ok bool
	if err := r.db.QueryRowContext(ctx, query, vaultID).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}
