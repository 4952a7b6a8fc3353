// Package admin implements the operator command line: applying migrations,
// creating principals and minting tokens for manual API checks.
package admin

import (
	"database/sql"
	"fmt"
	"io"

	"github.com/paralympics/authapi/internal/logging"
	"github.com/paralympics/authapi/internal/server/auth"
	"github.com/paralympics/authapi/internal/server/repositories/repomanager"
	"github.com/paralympics/authapi/internal/server/services"
	"github.com/urfave/cli/v2"
	"golang.org/x/crypto/bcrypt"
)

const envPrefix = "AUTHAPI_"

type options struct {
	dsn        string
	bcryptCost int
	logLevel   string
}

// env is the state shared by subcommands. The store is opened lazily so
// that help output never touches it.
type env struct {
	opts    *options
	db      *sql.DB
	manager repomanager.RepositoryManager
	logger  logging.Logger
}

// NewApp builds the CLI. stdin is read for passwords when it is not a
// terminal; out receives command output.
func NewApp(stdin io.Reader, out, errOut io.Writer) *cli.App {
	opts := &options{}
	e := &env{opts: opts}

	return &cli.App{
		Name:      "authapi-admin",
		Usage:     "Operate the Paralympics authentication store",
		Reader:    stdin,
		Writer:    out,
		ErrWriter: errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "database-dsn",
				Aliases:     []string{"d"},
				Usage:       "postgres://..., sqlite://<path> or file:<path>",
				EnvVars:     []string{envPrefix + "DATABASE_DSN"},
				Value:       "sqlite://authapi.db",
				Destination: &opts.dsn,
			},
			&cli.IntFlag{
				Name:        "bcrypt-cost",
				EnvVars:     []string{envPrefix + "BCRYPT_COST"},
				Value:       bcrypt.DefaultCost,
				Destination: &opts.bcryptCost,
			},
			&cli.StringFlag{
				Name:        "log-level",
				EnvVars:     []string{envPrefix + "LOG_LEVEL"},
				Value:       "warn",
				Destination: &opts.logLevel,
			},
		},
		Before: func(c *cli.Context) error {
			level, err := logging.ParseLevel(opts.logLevel)
			if err != nil {
				return err
			}
			e.logger = logging.NewJSONLogger(errOut, level)
			return nil
		},
		After: func(c *cli.Context) error {
			if e.db != nil {
				return e.db.Close()
			}
			return nil
		},
		Commands: []*cli.Command{
			migrateCmd(e),
			addUserCmd(e),
			tokenCmd(e),
		},
	}
}

// open connects to the store and applies pending migrations.
func (e *env) open(c *cli.Context) error {
	if e.db != nil {
		return nil
	}
	db, m, err := repomanager.Open(c.Context, e.opts.dsn)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	e.db, e.manager = db, m

	if err := m.RunMigrations(c.Context, db, e.logger); err != nil {
		return fmt.Errorf("db migration error: %w", err)
	}
	return nil
}

// userService builds the service over the opened store. codec may be nil
// for commands that never log in.
func (e *env) userService(codec *auth.Codec) *services.UserService {
	return services.NewUserService(e.db, e.manager, auth.NewHasher(e.opts.bcryptCost), codec, e.logger)
}
