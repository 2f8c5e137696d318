package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/everkeep/everkeep/internal/common"
	"github.com/everkeep/everkeep/internal/dbx"
	"github.com/everkeep/everkeep/internal/logging"
	"github.com/everkeep/everkeep/internal/server/models"
	"github.com/everkeep/everkeep/internal/server/repositories/repomanager"
	"golang.org/x/crypto/bcrypt"
)

// ContactService manages trusted-contact nominations: inviting, accepting
// via single-use token, and denying. Acceptance also establishes the
// invitee's account and session, so the service leans on UserService for
// token pairs.
type ContactService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	users       *UserService
	notifier    Notifier
	log         logging.Logger
}

// NewContactService constructs a ContactService.
func NewContactService(db *sql.DB, m repomanager.RepositoryManager, users *UserService, notifier Notifier, log logging.Logger) *ContactService {
	return &ContactService{
		db:          db,
		repomanager: m,
		users:       users,
		notifier:    notifier,
		log:         log.With("service", "contact"),
	}
}

// ListByVault returns the vault's contacts. Only the vault owner or an
// administrator may list them.
func (s *ContactService) ListByVault(ctx context.Context, caller models.CallerContext, vaultID string) ([]*models.TrustedContact, error) {
	rec, err := s.repomanager.Vaults(s.db).Get(ctx, vaultID)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin && rec.OwnerID != caller.UserID {
		return nil, common.ErrorForbidden
	}
	return s.repomanager.Contacts(s.db).ListByVault(ctx, vaultID)
}

// ListByEmail returns the nominations addressed to the given email.
func (s *ContactService) ListByEmail(ctx context.Context, email string) ([]*models.TrustedContact, error) {
	return s.repomanager.Contacts(s.db).ListByEmail(ctx, email)
}

// ListForUser returns the nominations addressed to the user's email.
func (s *ContactService) ListForUser(ctx context.Context, userID string) ([]*models.TrustedContact, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.ListByEmail(ctx, user.Email)
}

// Invite nominates a person as trusted contact of the owner's vault,
// materializing an empty vault on first invite. The generated invitation
// token is single-use. A live nomination for the same email on the same
// vault yields ErrorConflict.
func (s *ContactService) Invite(ctx context.Context, ownerID string, email string, name string) (*models.TrustedContact, error) {
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("%w: contact name is required", common.ErrorValidation)
	}

	token, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, common.ErrorInternal
	}

	var contact *models.TrustedContact
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		vault, err := ensureVault(ctx, s.repomanager, tx, ownerID)
		if err != nil {
			return err
		}

		existing, err := s.repomanager.Contacts(tx).ListByVault(ctx, vault.ID)
		if err != nil {
			return err
		}
		for _, c := range existing {
			if c.Email == email && c.Status != models.ContactStatusDenied {
				return fmt.Errorf("%w: contact already nominated", common.ErrorConflict)
			}
		}

		contact, err = s.repomanager.Contacts(tx).Create(ctx, &models.TrustedContact{
			VaultID: vault.ID,
			Email:   email,
			Name:    name,
			Status:  models.ContactStatusPending,
			Token:   token,
		})
		return err
	}); err != nil {
		return nil, err
	}

	if err := s.notifier.Invitation(ctx, email, name, token); err != nil {
		s.log.Error(ctx, "invitation delivery failed", "email", email, "error", err)
	}
	return contact, nil
}

// ResolveByToken previews the nomination behind an invitation token.
// Consumed tokens behave exactly like unknown ones.
func (s *ContactService) ResolveByToken(ctx context.Context, token string) (*models.TrustedContact, error) {
	contact, err := s.repomanager.Contacts(s.db).GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if contact.Status != models.ContactStatusPending {
		return nil, common.ErrorNotFound
	}
	return contact, nil
}

// Accept redeems an invitation token: the nomination flips pending→confirmed,
// the invitee's account is created (or their existing credentials checked),
// and a session token pair is issued. All of it happens in one transaction;
// a token that already left pending yields ErrorConflict.
func (s *ContactService) Accept(ctx context.Context, token string, password string) (*models.TrustedContact, *TokenPair, error) {
	var (
		contact *models.TrustedContact
		pair    *TokenPair
	)
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		contactRepo := s.repomanager.Contacts(tx)

		c, err := contactRepo.GetByToken(ctx, token)
		if err != nil {
			return err
		}
		c, err = contactRepo.Confirm(ctx, c.ID)
		if err != nil {
			return err
		}
		contact = c

		user, err := s.acceptUser(ctx, tx, c.Email, password)
		if err != nil {
			return err
		}
		pair, err = s.users.generateTokenPair(ctx, user, tx)
		return err
	}); err != nil {
		return nil, nil, err
	}

	s.log.Info(ctx, "invitation accepted", "contact_id", contact.ID, "vault_id", contact.VaultID)
	return contact, pair, nil
}

// acceptUser resolves the invitee's account: reuse it when the credentials
// match, create it verified when it does not exist. Accepting the emailed
// token is taken as proof of control over the address.
func (s *ContactService) acceptUser(ctx context.Context, tx dbx.DBTX, email string, password string) (*models.User, error) {
	userRepo := s.repomanager.Users(tx)

	user, err := userRepo.GetByEmail(ctx, email)
	if err == nil {
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
			return nil, common.ErrorUnauthorized
		}
		return user, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrorInternal
	}

	if err := validatePassword(password); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return userRepo.Create(ctx, &models.User{
		Email:         email,
		PasswordHash:  string(hash),
		EmailVerified: true,
	})
}

// Deny withdraws a nomination and notifies both sides. Allowed for the vault
// owner, an administrator, or the contact withdrawing themselves. Denied is
// terminal: a denied contact never regains access and the token never works
// again.
func (s *ContactService) Deny(ctx context.Context, caller models.CallerContext, contactID string) error {
	contact, err := s.repomanager.Contacts(s.db).Get(ctx, contactID)
	if err != nil {
		return err
	}
	vault, err := s.repomanager.Vaults(s.db).Get(ctx, contact.VaultID)
	if err != nil {
		return err
	}
	if !caller.IsAdmin && vault.OwnerID != caller.UserID {
		user, err := s.repomanager.Users(s.db).GetByID(ctx, caller.UserID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorForbidden
			}
			return err
		}
		if user.Email != contact.Email {
			return common.ErrorForbidden
		}
	}
	if err := s.repomanager.Contacts(s.db).Deny(ctx, contactID); err != nil {
		return err
	}
	s.notifyRemoval(ctx, vault.OwnerID, contact.Email)
	return nil
}

// DenyByToken lets the invitee decline their own pending nomination.
func (s *ContactService) DenyByToken(ctx context.Context, token string) error {
	contact, err := s.repomanager.Contacts(s.db).GetByToken(ctx, token)
	if err != nil {
		return err
	}
	if contact.Status != models.ContactStatusPending {
		return common.ErrorNotFound
	}
	if err := s.repomanager.Contacts(s.db).Deny(ctx, contact.ID); err != nil {
		return err
	}
	s.notifyRemoval(ctx, "", contact.Email)
	return nil
}

func (s *ContactService) notifyRemoval(ctx context.Context, ownerID string, contactEmail string) {
	ownerEmail := ""
	if ownerID != "" {
		if owner, err := s.repomanager.Users(s.db).GetByID(ctx, ownerID); err == nil {
			ownerEmail = owner.Email
		}
	}
	if err := s.notifier.ContactRemoved(ctx, ownerEmail, contactEmail); err != nil {
		s.log.Error(ctx, "removal notification failed", "contact", contactEmail, "error", err)
	}
}
