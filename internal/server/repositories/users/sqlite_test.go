package users

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/paralympics/authapi/internal/common"
	"github.com/paralympics/authapi/internal/server/migrations"
	"github.com/paralympics/authapi/internal/server/models"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

func newSQLiteRepo(t *testing.T) (*SQLiteRepository, *sql.DB) {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "users.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	db.SetMaxOpenConns(1)

	goose.SetBaseFS(migrations.SQLite)
	if err := goose.SetDialect("sqlite3"); err != nil {
		t.Fatalf("goose dialect: %v", err)
	}
	if err := goose.UpContext(context.Background(), db, "sqlite"); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return NewSQLiteRepository(db), db
}

func TestSQLite_CreateAndGet(t *testing.T) {
	repo, _ := newSQLiteRepo(t)
	ctx := context.Background()

	u := &models.User{ID: "u-1", Email: "alice@example.com", PasswordHash: "$2a$04$hash", CreatedAt: createdAt}
	if _, err := repo.Create(ctx, u); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	byEmail, err := repo.GetUserByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail error: %v", err)
	}
	if byEmail.ID != "u-1" || byEmail.PasswordHash != "$2a$04$hash" {
		t.Fatalf("unexpected user: %+v", byEmail)
	}
	if !byEmail.CreatedAt.Equal(createdAt) {
		t.Fatalf("created_at round trip: got %v want %v", byEmail.CreatedAt, createdAt)
	}

	byID, err := repo.GetUserByID(ctx, "u-1")
	if err != nil {
		t.Fatalf("GetUserByID error: %v", err)
	}
	if byID.Email != "alice@example.com" {
		t.Fatalf("unexpected user: %+v", byID)
	}
}

func TestSQLite_DuplicateEmail(t *testing.T) {
	repo, _ := newSQLiteRepo(t)
	ctx := context.Background()

	if _, err := repo.Create(ctx, &models.User{ID: "u-1", Email: "dup@example.com", PasswordHash: "h", CreatedAt: createdAt}); err != nil {
		t.Fatalf("first Create error: %v", err)
	}
	_, err := repo.Create(ctx, &models.User{ID: "u-2", Email: "dup@example.com", PasswordHash: "h", CreatedAt: createdAt})
	if !errors.Is(err, common.ErrAlreadyExists) {
		t.Fatalf("want common.ErrAlreadyExists, got %v", err)
	}
}

func TestSQLite_NotFound(t *testing.T) {
	repo, _ := newSQLiteRepo(t)
	ctx := context.Background()

	if _, err := repo.GetUserByEmail(ctx, "ghost@example.com"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
	if _, err := repo.GetUserByID(ctx, "ghost"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestSQLite_ClosedDB(t *testing.T) {
	repo, db := newSQLiteRepo(t)
	_ = db.Close()

	_, err := repo.GetUserByEmail(context.Background(), "alice@example.com")
	if err == nil || errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected storage error, got %v", err)
	}
}
