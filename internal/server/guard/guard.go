// Package guard authorizes requests carrying an access token before they
// reach protected handlers.
package guard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/paralympics/authapi/internal/common"
	"github.com/paralympics/authapi/internal/logging"
	"github.com/paralympics/authapi/internal/server/models"
	"github.com/paralympics/authapi/internal/server/respond"
)

const (
	MessageMissingToken = "authentication token is missing"
	MessageInvalidToken = "invalid or expired token"
	MessageInternal     = "internal server error"
)

// TokenValidator returns the principal id carried by a valid token.
type TokenValidator interface {
	Validate(token string, now time.Time) (string, error)
}

// UserResolver looks a principal up by id. Missing principals must be
// reported as common.ErrorNotFound.
type UserResolver interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

type Guard struct {
	tokens TokenValidator
	users  UserResolver
	logger logging.Logger
	now    func() time.Time
}

type Option func(*Guard)

// WithClock replaces time.Now as the source of the validation instant.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

func New(tokens TokenValidator, users UserResolver, logger logging.Logger, opts ...Option) *Guard {
	g := &Guard{
		tokens: tokens,
		users:  users,
		logger: logger.With("component", "guard"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Authorize validates credential at now and resolves its principal.
//
// Errors: common.ErrMissingToken for an empty credential,
// common.ErrInvalidToken for any token failure or a principal that no
// longer exists, common.ErrorInternal when the store cannot be read.
func (g *Guard) Authorize(ctx context.Context, credential string, now time.Time) (*models.User, error) {
	if credential == "" {
		return nil, common.ErrMissingToken
	}

	id, err := g.tokens.Validate(credential, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}

	user, err := g.users.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: principal %s no longer exists", common.ErrInvalidToken, id)
		}
		return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	return user, nil
}

// Protect admits a request only after Authorize succeeds; the principal is
// then available through UserFromContext. next never runs for rejected
// requests.
func (g *Guard) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		user, err := g.Authorize(ctx, Credential(r), g.now())
		if err != nil {
			switch {
			case errors.Is(err, common.ErrMissingToken):
				respond.Message(w, http.StatusUnauthorized, MessageMissingToken)
			case errors.Is(err, common.ErrInvalidToken):
				g.logger.Debug(ctx, "request rejected", "path", r.URL.Path, "reason", err.Error())
				respond.Message(w, http.StatusUnauthorized, MessageInvalidToken)
			default:
				g.logger.Error(ctx, "authorization failed", "path", r.URL.Path, "error", err)
				respond.Message(w, http.StatusInternalServerError, MessageInternal)
			}
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(ctx, user)))
	})
}

// Credential extracts the token from the Authorization header. Both a bare
// token and "Bearer <token>" are accepted.
func Credential(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get(common.AuthorizationHeaderName))
	prefix := strings.TrimSpace(common.BearerPrefix)
	if len(v) >= len(prefix) && strings.EqualFold(v[:len(prefix)], prefix) {
		rest := v[len(prefix):]
		if rest == "" || rest[0] == ' ' {
			return strings.TrimSpace(rest)
		}
	}
	return v
}

type userKey struct{}

// WithUser stores the authenticated principal in ctx.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFromContext returns the principal admitted by Protect.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userKey{}).(*models.User)
	return u, ok && u != nil
}
