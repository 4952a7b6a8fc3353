// Package services implements the authentication use cases on top of the
// repositories, the password hasher and the token codec.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/paralympics/authapi/internal/common"
	"github.com/paralympics/authapi/internal/dbx"
	"github.com/paralympics/authapi/internal/logging"
	"github.com/paralympics/authapi/internal/server/auth"
	"github.com/paralympics/authapi/internal/server/models"
	"github.com/paralympics/authapi/internal/server/repositories/repomanager"
)

// LoginResult is returned on a successful login.
type LoginResult struct {
	UserID string
	Token  string
}

type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *auth.Hasher
	codec       *auth.Codec
	logger      logging.Logger
	now         func() time.Time
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, hasher *auth.Hasher, codec *auth.Codec, logger logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		codec:       codec,
		logger:      logger.With("component", "user_service"),
		now:         time.Now,
	}
}

// normalizeEmail trims surrounding whitespace and lower-cases the address.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	local, domain, ok := strings.Cut(email, "@")
	return ok && local != "" && domain != "" && !strings.ContainsAny(domain, "@ \t")
}

// Register creates a principal for email. The lookup inside the transaction
// is advisory; the storage unique constraint decides concurrent races.
func (s *UserService) Register(ctx context.Context, email, password string) (*models.User, error) {

	email = normalizeEmail(email)
	if !validEmail(email) {
		return nil, fmt.Errorf("%w: email is not a valid address", common.ErrInvalidRegistration)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordEmpty) || errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, fmt.Errorf("%w: %v", common.ErrInvalidRegistration, err)
		}
		s.logger.Error(ctx, "password hashing failed", "error", err)
		return nil, common.ErrorInternal
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC().Truncate(time.Microsecond),
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		_, err := repo.GetUserByEmail(ctx, email)
		if err == nil {
			return common.ErrAlreadyExists
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return err
		}

		_, err = repo.Create(ctx, user)
		return err
	})

	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, common.ErrAlreadyExists
		}
		s.logger.Error(ctx, "error creating user", "error", err)
		return nil, common.ErrStorageFailure
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

// Login checks the credentials and issues an access token valid from now.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string, now time.Time) (*LoginResult, error) {

	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, common.ErrMissingCredentials
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// same bcrypt cost as a real user
			s.hasher.Verify(password, s.hasher.Dummy())
			return nil, common.ErrInvalidCredentials
		}
		s.logger.Error(ctx, "error looking up user", "error", err)
		return nil, common.ErrStorageFailure
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, common.ErrInvalidCredentials
	}

	token, err := s.codec.Issue(user.ID, now)
	if err != nil {
		s.logger.Error(ctx, "error issuing token", "user_id", user.ID, "error", err)
		return nil, common.ErrorInternal
	}

	return &LoginResult{UserID: user.ID, Token: token}, nil
}

// GetUser resolves a principal by id. Missing principals yield
// common.ErrorNotFound.
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	return user, nil
}
