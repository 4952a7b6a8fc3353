package admin

import (
	"errors"
	"fmt"
	"time"

	"github.com/paralympics/authapi/internal/common"
	"github.com/paralympics/authapi/internal/server/auth"
	"github.com/urfave/cli/v2"
)

func migrateCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending schema migrations",
		Action: func(c *cli.Context) error {
			if err := e.open(c); err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, "migrations applied")
			return nil
		},
	}
}

func addUserCmd(e *env) *cli.Command {
	var email string
	return &cli.Command{
		Name:  "adduser",
		Usage: "Register a principal (password is prompted for, or read from stdin when not a terminal)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "email",
				Aliases:     []string{"e"},
				Usage:       "Email of the principal to create",
				Destination: &email,
				Required:    true,
			},
		},
		Action: func(c *cli.Context) error {
			password, err := readSecret(c.App.Reader, c.App.ErrWriter, true)
			if err != nil {
				return err
			}
			if err := e.open(c); err != nil {
				return err
			}

			user, err := e.userService(nil).Register(c.Context, email, password)
			switch {
			case errors.Is(err, common.ErrAlreadyExists):
				return errors.New("email already registered")
			case errors.Is(err, common.ErrInvalidRegistration):
				return err
			case err != nil:
				return err
			}

			fmt.Fprintf(c.App.Writer, "created user %s (%s)\n", user.ID, user.Email)
			return nil
		},
	}
}

func tokenCmd(e *env) *cli.Command {
	var (
		email     string
		secretKey string
		ttl       time.Duration
	)
	return &cli.Command{
		Name:  "token",
		Usage: "Log in as a principal and print an access token",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "email",
				Aliases:     []string{"e"},
				Destination: &email,
				Required:    true,
			},
			&cli.StringFlag{
				Name:        "secret-key",
				Usage:       "Token signing secret; must match the server's",
				EnvVars:     []string{envPrefix + "SECRET_KEY"},
				Destination: &secretKey,
				Required:    true,
			},
			&cli.DurationFlag{
				Name:        "ttl",
				EnvVars:     []string{envPrefix + "ACCESS_TOKEN_TTL"},
				Value:       5 * time.Minute,
				Destination: &ttl,
			},
		},
		Action: func(c *cli.Context) error {
			codec, err := auth.NewCodec([]byte(secretKey), ttl)
			if err != nil {
				return err
			}
			password, err := readSecret(c.App.Reader, c.App.ErrWriter, false)
			if err != nil {
				return err
			}
			if err := e.open(c); err != nil {
				return err
			}

			now := time.Now()
			res, err := e.userService(codec).Login(c.Context, email, password, now)
			switch {
			case errors.Is(err, common.ErrInvalidCredentials), errors.Is(err, common.ErrMissingCredentials):
				return errors.New("invalid email or password")
			case err != nil:
				return err
			}

			fmt.Fprintln(c.App.Writer, res.Token)
			fmt.Fprintf(c.App.ErrWriter, "expires at %s\n", now.Add(codec.TTL()).UTC().Format(time.RFC3339))
			return nil
		},
	}
}
