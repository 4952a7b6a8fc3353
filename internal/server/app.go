// Package server wires configuration, storage, the authentication core and
// the HTTP API together and runs them until the process is signalled.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/paralympics/authapi/internal/logging"
	"github.com/paralympics/authapi/internal/server/auth"
	"github.com/paralympics/authapi/internal/server/config"
	"github.com/paralympics/authapi/internal/server/guard"
	"github.com/paralympics/authapi/internal/server/repositories/repomanager"
	"github.com/paralympics/authapi/internal/server/rest"
	"github.com/paralympics/authapi/internal/server/services"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	userService *services.UserService
	api         *rest.Server
}

// NewApp validates c, opens and migrates the store and builds the API.
// Logs are written as JSON to out.
func NewApp(ctx context.Context, c *config.Config, out io.Writer) (*App, error) {

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger := logging.NewJSONLogger(out, level)

	codec, err := auth.NewCodec([]byte(c.SecretKey), c.AccessTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("token codec init error: %w", err)
	}

	db, rm, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	if err := rm.RunMigrations(ctx, db, logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	us := services.NewUserService(db, rm, auth.NewHasher(c.BcryptCost), codec, logger)
	g := guard.New(codec, us, logger)
	api := rest.NewServer(us, g, logger, rest.Options{
		CORSAllowedOrigins: c.CORSAllowedOrigins,
		LoginRateLimit:     c.LoginRateLimit,
		LoginRateBurst:     c.LoginRateBurst,
	})

	logger.Info(ctx, "app initialized", "config", *c)

	return &App{config: c, logger: logger, db: db, userService: us, api: api}, nil
}

// Handler exposes the API handler, mainly for in-process tests.
func (app *App) Handler() http.Handler {
	return app.api.Handler()
}

func (app *App) initSignalHandler(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) error {
	if err := app.api.Run(ctx, app.config.EndpointAddrHTTP); err != nil {
		app.logger.Error(ctx, "http server failed", "error", err)
		cancelFunc()
		return err
	}
	return nil
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// closes the store.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := app.initSignalHandler(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	var (
		wg     sync.WaitGroup
		runErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		runErr = app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "error closing database", "error", err)
	}
	app.logger.Info(ctx, "app stopped")

	return runErr
}
