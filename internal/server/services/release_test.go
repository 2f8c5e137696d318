package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/everkeep/everkeep/internal/common"
	"github.com/everkeep/everkeep/internal/server/models"
)

func newReleaseService(t *testing.T, db *sql.DB, rm *fakeRepoManager) *ReleaseService {
	t.Helper()
	return NewReleaseService(db, rm, testLogger())
}

// seedConfirmedContact wires a vault for owner u1 and a confirmed contact
// account for jane@example.com, returning the vault id and jane's user id.
func seedConfirmedContact(t *testing.T, db *sql.DB, rm *fakeRepoManager) (string, string) {
	t.Helper()
	seedVerifiedUser(t, rm, "owner@example.com", "Abcd1234", false)
	jane := seedVerifiedUser(t, rm, "jane@example.com", "Janes999", false)

	vault, err := rm.v.Create(context.Background(), &models.VaultRecord{OwnerID: "u1"})
	if err != nil {
		t.Fatalf("seed vault error: %v", err)
	}
	contact, err := rm.c.Create(context.Background(), &models.TrustedContact{
		VaultID: vault.ID, Email: "jane@example.com", Name: "Jane",
		Status: models.ContactStatusPending, Token: "tok",
	})
	if err != nil {
		t.Fatalf("seed contact error: %v", err)
	}
	if _, err := rm.c.Confirm(context.Background(), contact.ID); err != nil {
		t.Fatalf("confirm contact error: %v", err)
	}
	return vault.ID, jane.ID
}

func TestRequest_ConfirmedContact(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := newFakeRepoManager()
	vaultID, janeID := seedConfirmedContact(t, db, rm)
	s := newReleaseService(t, db, rm)

	req, err := s.Request(context.Background(), janeID, vaultID, "John Owner", "evidence/2026/8/31/key")
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if req.Status != models.ReleaseStatusPending || req.ID == "" {
		t.Fatalf("unexpected request: %+v", req)
	}
}

func TestRequest_Forbidden(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := newFakeRepoManager()
	vaultID, _ := seedConfirmedContact(t, db, rm)
	stranger := seedVerifiedUser(t, rm, "bob@example.com", "Bobsecret1", false)
	s := newReleaseService(t, db, rm)

	_, err := s.Request(context.Background(), stranger.ID, vaultID, "John Owner", "")
	if !errors.Is(err, common.ErrorForbidden) {
		t.Fatalf("stranger: want common.ErrorForbidden, got %v", err)
	}
}

func TestRequest_UnknownRequester(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := newFakeRepoManager()
	vaultID, _ := seedConfirmedContact(t, db, rm)
	s := newReleaseService(t, db, rm)

	_, err := s.Request(context.Background(), "u404", vaultID, "John Owner", "")
	if !errors.Is(err, common.ErrorForbidden) {
		t.Fatalf("unknown requester: want common.ErrorForbidden, got %v", err)
	}
}

func TestRequest_PendingContactForbidden(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := newFakeRepoManager()
	seedVerifiedUser(t, rm, "owner@example.com", "Abcd1234", false)
	pending := seedVerifiedUser(t, rm, "late@example.com", "Latecomer1", false)

	vault, _ := rm.v.Create(context.Background(), &models.VaultRecord{OwnerID: "u1"})
	rm.c.Create(context.Background(), &models.TrustedContact{
		VaultID: vault.ID, Email: "late@example.com", Name: "Late",
		Status: models.ContactStatusPending, Token: "tok2",
	})
	s := newReleaseService(t, db, rm)

	_, err := s.Request(context.Background(), pending.ID, vault.ID, "John Owner", "")
	if !errors.Is(err, common.ErrorForbidden) {
		t.Fatalf("pending contact: want common.ErrorForbidden, got %v", err)
	}
}

func TestRequest_Validation(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := newFakeRepoManager()
	vaultID, janeID := seedConfirmedContact(t, db, rm)
	s := newReleaseService(t, db, rm)

	_, err := s.Request(context.Background(), janeID, vaultID, "", "")
	if !errors.Is(err, common.ErrorValidation) {
		t.Fatalf("want common.ErrorValidation, got %v", err)
	}
}

func TestReview_ApproveAndConflict(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := newFakeRepoManager()
	vaultID, janeID := seedConfirmedContact(t, db, rm)
	admin := seedVerifiedUser(t, rm, "admin@example.com", "Admin12345", true)
	s := newReleaseService(t, db, rm)

	req, err := s.Request(context.Background(), janeID, vaultID, "John Owner", "")
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}

	reviewed, err := s.Review(context.Background(), admin.ID, req.ID, models.ReleaseDecisionApprove)
	if err != nil {
		t.Fatalf("Review error: %v", err)
	}
	if reviewed.Status != models.ReleaseStatusApproved || reviewed.ReviewedAt == nil || reviewed.ReviewerID != admin.ID {
		t.Fatalf("unexpected request: %+v", reviewed)
	}

	// второй вердикт по той же заявке
	_, err = s.Review(context.Background(), admin.ID, req.ID, models.ReleaseDecisionDeny)
	if !errors.Is(err, common.ErrorConflict) {
		t.Fatalf("double review: want common.ErrorConflict, got %v", err)
	}

	ok, err := rm.r.HasApproved(context.Background(), vaultID)
	if err != nil || !ok {
		t.Fatalf("expected approved release on vault, got ok=%v err=%v", ok, err)
	}
}

func TestReview_UnknownDecision(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	s := newReleaseService(t, db, newFakeRepoManager())

	_, err := s.Review(context.Background(), "admin", "r1", models.ReleaseDecision("maybe"))
	if !errors.Is(err, common.ErrorValidation) {
		t.Fatalf("want common.ErrorValidation, got %v", err)
	}
}

func TestList_Filters(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := newFakeRepoManager()
	vaultID, janeID := seedConfirmedContact(t, db, rm)
	s := newReleaseService(t, db, rm)

	if _, err := s.Request(context.Background(), janeID, vaultID, "John Owner", ""); err != nil {
		t.Fatalf("Request error: %v", err)
	}

	list, err := s.List(context.Background(), models.ReleaseFilter{Status: models.ReleaseStatusPending})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("want 1 pending request, got %d", len(list))
	}

	list, err = s.List(context.Background(), models.ReleaseFilter{Status: models.ReleaseStatusApproved})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("want no approved requests, got %d", len(list))
	}
}
