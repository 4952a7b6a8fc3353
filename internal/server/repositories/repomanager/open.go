package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/paralympics/authapi/internal/filex"
)

var ErrUnsupportedDSN = errors.New("unsupported database dsn")

// Open connects to the store named by dsn and returns the matching manager.
// postgres:// and postgresql:// select PostgreSQL; sqlite://<path> and
// file:<path> select SQLite.
func Open(ctx context.Context, dsn string) (*sql.DB, RepositoryManager, error) {
	driver, source, m, err := resolve(dsn)
	if err != nil {
		return nil, nil, err
	}

	if driver == "sqlite" && !strings.HasPrefix(source, "file:") {
		if _, err := filex.EnsureParentDir(source); err != nil {
			return nil, nil, fmt.Errorf("sqlite directory: %w", err)
		}
	}

	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if driver == "sqlite" {
		// a single writer avoids SQLITE_BUSY under concurrent registrations
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	return db, m, nil
}

func resolve(dsn string) (driver, source string, m RepositoryManager, err error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return "pgx", dsn, NewPostgresRepositoryManager(), nil
	case strings.HasPrefix(dsn, "sqlite://"):
		path := strings.TrimPrefix(dsn, "sqlite://")
		if path == "" {
			return "", "", nil, fmt.Errorf("%w: empty sqlite path", ErrUnsupportedDSN)
		}
		return "sqlite", path, NewSQLiteRepositoryManager(), nil
	case strings.HasPrefix(dsn, "file:"):
		return "sqlite", dsn, NewSQLiteRepositoryManager(), nil
	}
	return "", "", nil, fmt.Errorf("%w: %q", ErrUnsupportedDSN, redact(dsn))
}

// redact keeps the scheme only, dsns may carry passwords.
func redact(dsn string) string {
	if i := strings.Index(dsn, "://"); i >= 0 {
		return dsn[:i] + "://..."
	}
	return "..."
}
