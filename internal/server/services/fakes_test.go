package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/everkeep/everkeep/internal/common"
	"github.com/everkeep/everkeep/internal/dbx"
	"github.com/everkeep/everkeep/internal/logging"
	"github.com/everkeep/everkeep/internal/server/models"
	contactsrepo "github.com/everkeep/everkeep/internal/server/repositories/contacts"
	refreshtokensrepo "github.com/everkeep/everkeep/internal/server/repositories/refreshtokens"
	releasesrepo "github.com/everkeep/everkeep/internal/server/repositories/releases"
	usersrepo "github.com/everkeep/everkeep/internal/server/repositories/users"
	vaultsrepo "github.com/everkeep/everkeep/internal/server/repositories/vaults"
)

// --- in-memory fakes shared by the service tests ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type fakeUsersRepo struct {
	seq   int
	users map[string]*models.User
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{users: map[string]*models.User{}}
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	f.seq++
	cp := *u
	cp.ID = fmt.Sprintf("u%d", f.seq)
	cp.CreatedAt = time.Now()
	f.users[cp.ID] = &cp
	return &cp, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsersRepo) SetVerification(ctx context.Context, id string, code string, expires time.Time) error {
	u, ok := f.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.VerificationCode = code
	u.VerificationExpires = &expires
	return nil
}

func (f *fakeUsersRepo) Promote(ctx context.Context, id string, passwordHash string) error {
	u, ok := f.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.PasswordHash = passwordHash
	u.IsAdmin = true
	u.EmailVerified = true
	return nil
}

func (f *fakeUsersRepo) MarkVerified(ctx context.Context, id string) error {
	u, ok := f.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.EmailVerified = true
	u.VerificationCode = ""
	u.VerificationExpires = nil
	return nil
}

type fakeVaultsRepo struct {
	seq    int
	vaults map[string]*models.VaultRecord
}

func newFakeVaultsRepo() *fakeVaultsRepo {
	return &fakeVaultsRepo{vaults: map[string]*models.VaultRecord{}}
}

func (f *fakeVaultsRepo) Get(ctx context.Context, id string) (*models.VaultRecord, error) {
	v, ok := f.vaults[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *v
	return &cp, nil
}

func (f *fakeVaultsRepo) GetByOwner(ctx context.Context, ownerID string) (*models.VaultRecord, error) {
	for _, v := range f.vaults {
		if v.OwnerID == ownerID {
			cp := *v
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeVaultsRepo) GetForUpdate(ctx context.Context, id string) (*models.VaultRecord, error) {
	return f.Get(ctx, id)
}

func (f *fakeVaultsRepo) Create(ctx context.Context, rec *models.VaultRecord) (*models.VaultRecord, error) {
	f.seq++
	cp := *rec
	cp.ID = fmt.Sprintf("v%d", f.seq)
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	f.vaults[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeVaultsRepo) Update(ctx context.Context, rec *models.VaultRecord) (*models.VaultRecord, error) {
	old, ok := f.vaults[rec.ID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *rec
	cp.OwnerID = old.OwnerID
	cp.CreatedAt = old.CreatedAt
	cp.UpdatedAt = time.Now()
	f.vaults[cp.ID] = &cp
	out := cp
	return &out, nil
}

type fakeContactsRepo struct {
	seq      int
	contacts map[string]*models.TrustedContact
}

func newFakeContactsRepo() *fakeContactsRepo {
	return &fakeContactsRepo{contacts: map[string]*models.TrustedContact{}}
}

func (f *fakeContactsRepo) Get(ctx context.Context, id string) (*models.TrustedContact, error) {
	c, ok := f.contacts[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeContactsRepo) GetByToken(ctx context.Context, token string) (*models.TrustedContact, error) {
	for _, c := range f.contacts {
		if c.Token == token {
			cp := *c
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeContactsRepo) ListByVault(ctx context.Context, vaultID string) ([]*models.TrustedContact, error) {
	var out []*models.TrustedContact
	for _, c := range f.contacts {
		if c.VaultID == vaultID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeContactsRepo) ListByEmail(ctx context.Context, email string) ([]*models.TrustedContact, error) {
	var out []*models.TrustedContact
	for _, c := range f.contacts {
		if c.Email == email {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeContactsRepo) Create(ctx context.Context, contact *models.TrustedContact) (*models.TrustedContact, error) {
	f.seq++
	cp := *contact
	cp.ID = fmt.Sprintf("c%d", f.seq)
	cp.InvitedAt = time.Now()
	f.contacts[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeContactsRepo) Confirm(ctx context.Context, id string) (*models.TrustedContact, error) {
	c, ok := f.contacts[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if c.Status != models.ContactStatusPending {
		return nil, common.ErrorConflict
	}
	now := time.Now()
	c.Status = models.ContactStatusConfirmed
	c.ConfirmedAt = &now
	cp := *c
	return &cp, nil
}

func (f *fakeContactsRepo) Deny(ctx context.Context, id string) error {
	c, ok := f.contacts[id]
	if !ok {
		return common.ErrorNotFound
	}
	if c.Status == models.ContactStatusDenied {
		return common.ErrorConflict
	}
	c.Status = models.ContactStatusDenied
	return nil
}

type fakeReleasesRepo struct {
	seq  int
	reqs map[string]*models.DataReleaseRequest
}

func newFakeReleasesRepo() *fakeReleasesRepo {
	return &fakeReleasesRepo{reqs: map[string]*models.DataReleaseRequest{}}
}

func (f *fakeReleasesRepo) Create(ctx context.Context, req *models.DataReleaseRequest) (*models.DataReleaseRequest, error) {
	f.seq++
	cp := *req
	cp.ID = fmt.Sprintf("r%d", f.seq)
	cp.RequestedAt = time.Now()
	f.reqs[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeReleasesRepo) Get(ctx context.Context, id string) (*models.DataReleaseRequest, error) {
	r, ok := f.reqs[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeReleasesRepo) List(ctx context.Context, filter models.ReleaseFilter) ([]*models.DataReleaseRequest, error) {
	var out []*models.DataReleaseRequest
	for _, r := range f.reqs {
		if filter.VaultID != "" && r.VaultID != filter.VaultID {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeReleasesRepo) Review(ctx context.Context, id string, decision models.ReleaseDecision, reviewerID string) (*models.DataReleaseRequest, error) {
	r, ok := f.reqs[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if r.Status != models.ReleaseStatusPending {
		return nil, common.ErrorConflict
	}
	now := time.Now()
	r.Status = models.ReleaseStatus(decision)
	r.ReviewedAt = &now
	r.ReviewerID = reviewerID
	cp := *r
	return &cp, nil
}

func (f *fakeReleasesRepo) HasApproved(ctx context.Context, vaultID string) (bool, error) {
	for _, r := range f.reqs {
		if r.VaultID == vaultID && r.Status == models.ReleaseStatusApproved {
			return true, nil
		}
	}
	return false, nil
}

type fakeRefreshRepo struct {
	tokens map[string]*models.RefreshToken
}

func newFakeRefreshRepo() *fakeRefreshRepo {
	return &fakeRefreshRepo{tokens: map[string]*models.RefreshToken{}}
}

func (f *fakeRefreshRepo) Create(ctx context.Context, userID string, token string, validity time.Duration) error {
	f.tokens[token] = &models.RefreshToken{UserID: userID, Token: token, Expires: time.Now().Add(validity)}
	return nil
}

func (f *fakeRefreshRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	rt, ok := f.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *rt
	return &cp, nil
}

func (f *fakeRefreshRepo) Delete(ctx context.Context, token string) error {
	delete(f.tokens, token)
	return nil
}

func (f *fakeRefreshRepo) DeleteExpired(ctx context.Context) error {
	for k, rt := range f.tokens {
		if rt.Expires.Before(time.Now()) {
			delete(f.tokens, k)
		}
	}
	return nil
}

type fakeRepoManager struct {
	u  *fakeUsersRepo
	v  *fakeVaultsRepo
	c  *fakeContactsRepo
	r  *fakeReleasesRepo
	rt *fakeRefreshRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		u:  newFakeUsersRepo(),
		v:  newFakeVaultsRepo(),
		c:  newFakeContactsRepo(),
		r:  newFakeReleasesRepo(),
		rt: newFakeRefreshRepo(),
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error            { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository                  { return m.u }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokensrepo.Repository  { return m.rt }
func (m *fakeRepoManager) Vaults(db dbx.DBTX) vaultsrepo.Repository                { return m.v }
func (m *fakeRepoManager) Contacts(db dbx.DBTX) contactsrepo.Repository            { return m.c }
func (m *fakeRepoManager) Releases(db dbx.DBTX) releasesrepo.Repository            { return m.r }

type fakeNotifier struct {
	invitations   []string // tokens
	codes         []string
	removals      []string // contact emails
	lastInviteTok string
	err           error
}

func (n *fakeNotifier) Invitation(ctx context.Context, email, name, token string) error {
	n.invitations = append(n.invitations, email)
	n.lastInviteTok = token
	return n.err
}

func (n *fakeNotifier) VerificationCode(ctx context.Context, email, code string) error {
	n.codes = append(n.codes, code)
	return n.err
}

func (n *fakeNotifier) ContactRemoved(ctx context.Context, ownerEmail, contactEmail string) error {
	n.removals = append(n.removals, contactEmail)
	return n.err
}
