// Package repomanager vends repository implementations for the configured
// store and applies its schema migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strings"

	"github.com/paralympics/authapi/internal/dbx"
	"github.com/paralympics/authapi/internal/logging"
	"github.com/paralympics/authapi/internal/server/repositories/users"
	"github.com/pressly/goose/v3"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB, logger logging.Logger) error
	Users(db dbx.DBTX) users.Repository
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// migrate applies the migrations in dir of fsys. goose progress lines go to
// logger instead of the standard library logger.
func migrate(ctx context.Context, db *sql.DB, fsys fs.FS, dialect, dir string, logger logging.Logger) error {
	goose.SetBaseFS(fsys)
	goose.SetLogger(&gooseLogger{ctx: ctx, logger: logger.With("component", "migrations", "dialect", dialect)})
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	return gooseUpContext(ctx, db, dir)
}

// gooseLogger adapts logging.Logger to goose.Logger.
type gooseLogger struct {
	ctx    context.Context
	logger logging.Logger
}

func (l *gooseLogger) Printf(format string, v ...any) {
	l.logger.Info(l.ctx, strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// Fatalf logs at error level; the failure itself is returned by goose.
func (l *gooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error(l.ctx, strings.TrimSpace(fmt.Sprintf(format, v...)))
}
