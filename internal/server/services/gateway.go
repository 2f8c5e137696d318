package services

import (
	"context"
	"database/sql"

	"github.com/everkeep/everkeep/internal/common"
	"github.com/everkeep/everkeep/internal/logging"
	"github.com/everkeep/everkeep/internal/server/models"
	"github.com/everkeep/everkeep/internal/server/repositories/repomanager"
)

// AccessGateway is the single authorization choke point for vault content.
// Every read and write names its caller explicitly; nothing is decrypted
// until the caller's right to the vault is established.
//
// Read access: owner, administrator, or a confirmed trusted contact of a
// vault with at least one approved release request. Write access: owner or
// administrator only — released vaults stay read-only for contacts.
type AccessGateway struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	vaults      *VaultService
	log         logging.Logger
}

// NewAccessGateway constructs an AccessGateway over the vault service.
func NewAccessGateway(db *sql.DB, m repomanager.RepositoryManager, vaults *VaultService, log logging.Logger) *AccessGateway {
	return &AccessGateway{
		db:          db,
		repomanager: m,
		vaults:      vaults,
		log:         log.With("service", "gateway"),
	}
}

// ReadVault returns the decrypted vault if the caller may see it.
func (g *AccessGateway) ReadVault(ctx context.Context, caller models.CallerContext, vaultID string) (*models.Vault, error) {
	rec, err := g.repomanager.Vaults(g.db).Get(ctx, vaultID)
	if err != nil {
		return nil, err
	}
	allowed, err := g.canRead(ctx, caller, rec)
	if err != nil {
		return nil, err
	}
	if !allowed {
		g.log.Warn(ctx, "vault read denied", "vault_id", vaultID, "user_id", caller.UserID)
		return nil, common.ErrorForbidden
	}
	return g.vaults.DecryptRecord(rec)
}

// WriteVault merges a partial update into the vault if the caller may write
// it, and returns the resulting decrypted vault.
func (g *AccessGateway) WriteVault(ctx context.Context, caller models.CallerContext, vaultID string, patch models.VaultPatch) (*models.Vault, error) {
	rec, err := g.repomanager.Vaults(g.db).Get(ctx, vaultID)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin && rec.OwnerID != caller.UserID {
		g.log.Warn(ctx, "vault write denied", "vault_id", vaultID, "user_id", caller.UserID)
		return nil, common.ErrorForbidden
	}
	return g.vaults.Update(ctx, vaultID, patch)
}

// canRead evaluates the read rule against the (still encrypted) record.
func (g *AccessGateway) canRead(ctx context.Context, caller models.CallerContext, rec *models.VaultRecord) (bool, error) {
	if caller.IsAdmin || rec.OwnerID == caller.UserID {
		return true, nil
	}

	user, err := g.repomanager.Users(g.db).GetByID(ctx, caller.UserID)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, common.ErrorInternal
	}

	contacts, err := g.repomanager.Contacts(g.db).ListByVault(ctx, rec.ID)
	if err != nil {
		return false, common.ErrorInternal
	}
	confirmed := false
	for _, c := range contacts {
		if c.Email == user.Email && c.Status == models.ContactStatusConfirmed {
			confirmed = true
			break
		}
	}
	if !confirmed {
		return false, nil
	}

	approved, err := g.repomanager.Releases(g.db).HasApproved(ctx, rec.ID)
	if err != nil {
		return false, common.ErrorInternal
	}
	return approved, nil
}
