package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/everkeep/everkeep/internal/common"
	"github.com/everkeep/everkeep/internal/logging"
	"github.com/everkeep/everkeep/internal/server/models"
	"github.com/everkeep/everkeep/internal/server/repositories/repomanager"
)

// ReleaseService runs the death-declaration workflow: a confirmed contact
// submits a release request with supporting evidence, an administrator
// reviews it, and one approval unlocks the vault for its confirmed contacts.
type ReleaseService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
}

// NewReleaseService constructs a ReleaseService.
func NewReleaseService(db *sql.DB, m repomanager.RepositoryManager, log logging.Logger) *ReleaseService {
	return &ReleaseService{
		db:          db,
		repomanager: m,
		log:         log.With("service", "release"),
	}
}

// Request submits a release request against a vault. The requester must be a
// confirmed trusted contact of that vault; anyone else gets ErrorForbidden
// regardless of whether the vault exists.
func (s *ReleaseService) Request(ctx context.Context, requesterID string, vaultID string, deceasedName string, evidenceRef string) (*models.DataReleaseRequest, error) {
	if deceasedName == "" {
		return nil, fmt.Errorf("%w: deceased name is required", common.ErrorValidation)
	}

	requester, err := s.repomanager.Users(s.db).GetByID(ctx, requesterID)
	if err != nil {
		// an unknown requester cannot be a confirmed contact of anything
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorForbidden
		}
		return nil, common.ErrorInternal
	}
	confirmed, err := s.isConfirmedContact(ctx, vaultID, requester.Email)
	if err != nil {
		return nil, err
	}
	if !confirmed {
		return nil, common.ErrorForbidden
	}

	req, err := s.repomanager.Releases(s.db).Create(ctx, &models.DataReleaseRequest{
		VaultID:      vaultID,
		RequesterID:  requesterID,
		DeceasedName: deceasedName,
		EvidenceRef:  evidenceRef,
		Status:       models.ReleaseStatusPending,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "release request submitted", "request_id", req.ID, "vault_id", vaultID)
	return req, nil
}

// List returns release requests matching the filter, newest first.
func (s *ReleaseService) List(ctx context.Context, filter models.ReleaseFilter) ([]*models.DataReleaseRequest, error) {
	return s.repomanager.Releases(s.db).List(ctx, filter)
}

// Get returns one release request by id.
func (s *ReleaseService) Get(ctx context.Context, id string) (*models.DataReleaseRequest, error) {
	return s.repomanager.Releases(s.db).Get(ctx, id)
}

// Review records the admin verdict on a pending request. The transition is
// single-shot: a request that was already reviewed yields ErrorConflict, so
// concurrent reviewers cannot both win.
func (s *ReleaseService) Review(ctx context.Context, reviewerID string, requestID string, decision models.ReleaseDecision) (*models.DataReleaseRequest, error) {
	if decision != models.ReleaseDecisionApprove && decision != models.ReleaseDecisionDeny {
		return nil, fmt.Errorf("%w: unknown review decision", common.ErrorValidation)
	}
	req, err := s.repomanager.Releases(s.db).Review(ctx, requestID, decision, reviewerID)
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "release request reviewed",
		"request_id", req.ID, "vault_id", req.VaultID, "status", req.Status, "reviewer_id", reviewerID)
	return req, nil
}

// isConfirmedContact reports whether email belongs to a confirmed contact of
// the vault.
func (s *ReleaseService) isConfirmedContact(ctx context.Context, vaultID string, email string) (bool, error) {
	contacts, err := s.repomanager.Contacts(s.db).ListByVault(ctx, vaultID)
	if err != nil {
		return false, err
	}
	for _, c := range contacts {
		if c.Email == email && c.Status == models.ContactStatusConfirmed {
			return true, nil
		}
	}
	return false, nil
}
