package vaults

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/everkeep/everkeep/internal/common"
	"github.com/everkeep/everkeep/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func recordRows(rec *models.VaultRecord) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "owner_id", "funeral_wishes", "funeral_plan", "insurance", "banking",
		"personal_messages", "special_requests", "completion_percentage", "is_complete",
		"created_at", "updated_at",
	}).AddRow(rec.ID, rec.OwnerID, rec.FuneralWishes, rec.FuneralPlan, rec.Insurance,
		rec.Banking, rec.PersonalMessages, rec.SpecialRequests,
		rec.CompletionPercentage, rec.IsComplete, rec.CreatedAt, rec.UpdatedAt)
}

func TestGet_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	want := &models.VaultRecord{
		ID: "v1", OwnerID: "u1", Banking: "v1:aa:bb:cc",
		CompletionPercentage: 17, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	mock.ExpectQuery(`SELECT .* FROM vaults WHERE id = \$1`).
		WithArgs("v1").
		WillReturnRows(recordRows(want))

	got, err := repo.Get(context.Background(), "v1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.ID != "v1" || got.Banking != "v1:aa:bb:cc" || got.CompletionPercentage != 17 {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM vaults WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "missing")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected common.ErrorNotFound, got %v", err)
	}
}

func TestGetForUpdate_UsesRowLock(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	want := &models.VaultRecord{ID: "v1", OwnerID: "u1"}
	mock.ExpectQuery(`SELECT .* FROM vaults WHERE id = \$1 FOR UPDATE`).
		WithArgs("v1").
		WillReturnRows(recordRows(want))

	if _, err := repo.GetForUpdate(context.Background(), "v1"); err != nil {
		t.Fatalf("GetForUpdate error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)INSERT INTO vaults .*RETURNING id, created_at, updated_at`).
		WithArgs("u1", "", "", "", "v1:aa:bb:cc", "", "", 17, false).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("v9", now, now))

	rec := &models.VaultRecord{OwnerID: "u1", Banking: "v1:aa:bb:cc", CompletionPercentage: 17}
	got, err := repo.Create(context.Background(), rec)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != "v9" {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)UPDATE vaults\s+SET .*WHERE id = \$1`).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Update(context.Background(), &models.VaultRecord{ID: "missing"})
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected common.ErrorNotFound, got %v", err)
	}
}

func TestUpdate_AdvancesTimestamp(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	later := time.Now().Add(time.Minute)
	mock.ExpectQuery(`(?s)UPDATE vaults\s+SET .*updated_at = now\(\)`).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(later))

	rec := &models.VaultRecord{ID: "v1", UpdatedAt: time.Now()}
	got, err := repo.Update(context.Background(), rec)
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if !got.UpdatedAt.Equal(later) {
		t.Fatalf("expected refreshed updated_at, got %v", got.UpdatedAt)
	}
}
