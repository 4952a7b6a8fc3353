package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/paralympics/authapi/internal/logging"
	"github.com/paralympics/authapi/internal/server/repositories/users"
	"github.com/pressly/goose/v3"
)

func newDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func stubGoose(t *testing.T, fn func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error) {
	t.Helper()
	orig := gooseUpContext
	gooseUpContext = fn
	t.Cleanup(func() { gooseUpContext = orig })
}

func TestFactories_ReturnConcreteRepos(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	if _, ok := NewPostgresRepositoryManager().Users(db).(*users.PostgresRepository); !ok {
		t.Fatal("postgres manager must vend *users.PostgresRepository")
	}
	if _, ok := NewSQLiteRepositoryManager().Users(db).(*users.SQLiteRepository); !ok {
		t.Fatal("sqlite manager must vend *users.SQLiteRepository")
	}
}

func TestRunMigrations_Success(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	for name, tc := range map[string]struct {
		m   RepositoryManager
		dir string
	}{
		"postgres": {m: NewPostgresRepositoryManager(), dir: "postgres"},
		"sqlite":   {m: NewSQLiteRepositoryManager(), dir: "sqlite"},
	} {
		stubGoose(t, func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
			if dir != tc.dir {
				return errors.New("unexpected dir " + dir)
			}
			if len(opts) != 0 {
				return errors.New("unexpected opts")
			}
			return nil
		})
		if err := tc.m.RunMigrations(context.Background(), db, logging.Nop()); err != nil {
			t.Fatalf("%s: RunMigrations error: %v", name, err)
		}
	}
}

func TestRunMigrations_Error(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	stubGoose(t, func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	})

	m := NewPostgresRepositoryManager()
	if err := m.RunMigrations(context.Background(), db, logging.Nop()); err == nil || err.Error() != "boom" {
		t.Fatalf("expected boom, got %v", err)
	}
}
