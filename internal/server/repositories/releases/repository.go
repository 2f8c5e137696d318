package releases

import (
	"context"

	"github.com/everkeep/everkeep/internal/server/models"
)

// Repository persists data-release requests.
//
// Review is a single-shot transition guarded at the database: a request that
// has already left pending reports common.ErrorConflict, so two concurrent
// admins cannot both record a decision.
type Repository interface {
	Create(ctx context.Context, req *models.DataReleaseRequest) (*models.DataReleaseRequest, error)
	Get(ctx context.Context, id string) (*models.DataReleaseRequest, error)
	List(ctx context.Context, filter models.ReleaseFilter) ([]*models.DataReleaseRequest, error)
	Review(ctx context.Context, id string, decision models.ReleaseDecision, reviewerID string) (*models.DataReleaseRequest, error)

	// HasApproved reports whether the vault has at least one approved
	// release request. The gateway uses it to unlock contact reads.
	HasApproved(ctx context.Context, vaultID string) (bool, error)
}
