package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/everkeep/everkeep/internal/common"
	"github.com/everkeep/everkeep/internal/cryptox"
	"github.com/everkeep/everkeep/internal/dbx"
	"github.com/everkeep/everkeep/internal/logging"
	"github.com/everkeep/everkeep/internal/server/models"
	"github.com/everkeep/everkeep/internal/server/repositories/repomanager"
)

// VaultService owns the plaintext/ciphertext boundary: repositories below it
// only ever see cipher envelopes, callers above it only ever see plaintext
// vaults. The structured funeral plan is serialized to JSON and encrypted as
// one blob.
type VaultService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	cipher      *cryptox.Cipher
	log         logging.Logger
}

// NewVaultService constructs a VaultService over the given field cipher.
func NewVaultService(db *sql.DB, m repomanager.RepositoryManager, cipher *cryptox.Cipher, log logging.Logger) *VaultService {
	return &VaultService{
		db:          db,
		repomanager: m,
		cipher:      cipher,
		log:         log.With("service", "vault"),
	}
}

// encryptVault maps a plaintext vault onto its persisted record. Empty
// fields stay empty; the field cipher passes them through.
func (s *VaultService) encryptVault(v *models.Vault) (*models.VaultRecord, error) {
	rec := &models.VaultRecord{
		ID:                   v.ID,
		OwnerID:              v.OwnerID,
		CompletionPercentage: v.CompletionPercentage,
		IsComplete:           v.IsComplete,
		CreatedAt:            v.CreatedAt,
		UpdatedAt:            v.UpdatedAt,
	}

	fields := []struct {
		src string
		dst *string
	}{
		{v.FuneralWishes, &rec.FuneralWishes},
		{v.Insurance, &rec.Insurance},
		{v.Banking, &rec.Banking},
		{v.PersonalMessages, &rec.PersonalMessages},
		{v.SpecialRequests, &rec.SpecialRequests},
	}
	for _, f := range fields {
		enc, err := s.cipher.EncryptField(f.src)
		if err != nil {
			return nil, fmt.Errorf("error encrypting vault field: %w", err)
		}
		*f.dst = enc
	}

	if v.FuneralPlan != nil {
		raw, err := json.Marshal(v.FuneralPlan)
		if err != nil {
			return nil, fmt.Errorf("error serializing funeral plan: %w", err)
		}
		enc, err := s.cipher.EncryptField(string(raw))
		if err != nil {
			return nil, fmt.Errorf("error encrypting funeral plan: %w", err)
		}
		rec.FuneralPlan = enc
	}
	return rec, nil
}

// DecryptRecord maps a persisted record back to its plaintext vault. Any
// envelope failure surfaces as cryptox.ErrIntegrity; no partial plaintext
// is ever returned.
func (s *VaultService) DecryptRecord(rec *models.VaultRecord) (*models.Vault, error) {
	v := &models.Vault{
		ID:                   rec.ID,
		OwnerID:              rec.OwnerID,
		CompletionPercentage: rec.CompletionPercentage,
		IsComplete:           rec.IsComplete,
		CreatedAt:            rec.CreatedAt,
		UpdatedAt:            rec.UpdatedAt,
	}

	fields := []struct {
		src string
		dst *string
	}{
		{rec.FuneralWishes, &v.FuneralWishes},
		{rec.Insurance, &v.Insurance},
		{rec.Banking, &v.Banking},
		{rec.PersonalMessages, &v.PersonalMessages},
		{rec.SpecialRequests, &v.SpecialRequests},
	}
	for _, f := range fields {
		dec, err := s.cipher.DecryptField(f.src)
		if err != nil {
			return nil, err
		}
		*f.dst = dec
	}

	if rec.FuneralPlan != "" {
		raw, err := s.cipher.DecryptField(rec.FuneralPlan)
		if err != nil {
			return nil, err
		}
		plan := &models.FuneralPlan{}
		if err := json.Unmarshal([]byte(raw), plan); err != nil {
			return nil, cryptox.ErrIntegrity
		}
		v.FuneralPlan = plan
	}
	return v, nil
}

// GetRecord returns the persisted (still encrypted) record by vault id.
// The access gateway authorizes on records before any decryption happens.
func (s *VaultService) GetRecord(ctx context.Context, vaultID string) (*models.VaultRecord, error) {
	return s.repomanager.Vaults(s.db).Get(ctx, vaultID)
}

// GetByOwner returns the owner's decrypted vault.
func (s *VaultService) GetByOwner(ctx context.Context, ownerID string) (*models.Vault, error) {
	rec, err := s.repomanager.Vaults(s.db).GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.DecryptRecord(rec)
}

// EnsureByOwner returns the owner's vault record, creating an empty one on
// first touch. An empty record carries no ciphertext at all.
func (s *VaultService) EnsureByOwner(ctx context.Context, ownerID string) (*models.VaultRecord, error) {
	return ensureVault(ctx, s.repomanager, s.db, ownerID)
}

// Update merges a partial update into the vault inside a transaction. The
// stored record is row-locked, decrypted, patched, completion is recomputed,
// and the result is re-encrypted before persisting. An empty patch returns
// the current state without touching the modification timestamp.
func (s *VaultService) Update(ctx context.Context, vaultID string, patch models.VaultPatch) (*models.Vault, error) {
	if patch.IsEmpty() {
		rec, err := s.repomanager.Vaults(s.db).Get(ctx, vaultID)
		if err != nil {
			return nil, err
		}
		return s.DecryptRecord(rec)
	}

	var updated *models.Vault
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Vaults(tx)

		rec, err := repo.GetForUpdate(ctx, vaultID)
		if err != nil {
			return err
		}
		vault, err := s.DecryptRecord(rec)
		if err != nil {
			return err
		}

		patch.Apply(vault)
		vault.RecomputeCompletion()

		newRec, err := s.encryptVault(vault)
		if err != nil {
			return err
		}
		saved, err := repo.Update(ctx, newRec)
		if err != nil {
			return err
		}
		vault.UpdatedAt = saved.UpdatedAt
		updated = vault
		return nil
	}); err != nil {
		return nil, err
	}

	s.log.Debug(ctx, "vault updated", "vault_id", vaultID, "completion", updated.CompletionPercentage)
	return updated, nil
}

func isNotFound(err error) bool { return errors.Is(err, common.ErrorNotFound) }

// ensureVault fetches the owner's vault or materializes an empty one. Shared
// with the contact service, which creates vaults lazily on first invite.
func ensureVault(ctx context.Context, m repomanager.RepositoryManager, db dbx.DBTX, ownerID string) (*models.VaultRecord, error) {
	repo := m.Vaults(db)
	rec, err := repo.GetByOwner(ctx, ownerID)
	if err == nil {
		return rec, nil
	}
	if !isNotFound(err) {
		return nil, err
	}
	return repo.Create(ctx, &models.VaultRecord{OwnerID: ownerID})
}
