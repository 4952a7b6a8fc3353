package repomanager

import (
	"context"
	"database/sql"

	"github.com/paralympics/authapi/internal/dbx"
	"github.com/paralympics/authapi/internal/logging"
	"github.com/paralympics/authapi/internal/server/migrations"
	"github.com/paralympics/authapi/internal/server/repositories/users"
	_ "modernc.org/sqlite"
)

// SQLiteRepositoryManager vends SQLite-backed repository implementations.
type SQLiteRepositoryManager struct{}

func (m *SQLiteRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLiteRepository(db)
}

// RunMigrations applies the embedded SQLite migrations.
func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB, logger logging.Logger) error {
	return migrate(ctx, db, migrations.SQLite, "sqlite3", "sqlite", logger)
}

func NewSQLiteRepositoryManager() RepositoryManager {
	return &SQLiteRepositoryManager{}
}
