package guard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/paralympics/authapi/internal/common"
	"github.com/paralympics/authapi/internal/logging"
	"github.com/paralympics/authapi/internal/server/auth"
	"github.com/paralympics/authapi/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, time.August, 28, 18, 0, 0, 0, time.UTC)

const ttl = 5 * time.Minute

type fakeUsers struct {
	users map[string]*models.User
	err   error
}

func (f *fakeUsers) GetUser(ctx context.Context, id string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

type fixture struct {
	codec *auth.Codec
	users *fakeUsers
	now   time.Time
	guard *Guard
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	codec, err := auth.NewCodec([]byte("guard-secret"), ttl)
	require.NoError(t, err)

	f := &fixture{
		codec: codec,
		users: &fakeUsers{users: map[string]*models.User{
			"u1": {ID: "u1", Email: "a@x.com"},
		}},
		now: t0,
	}
	f.guard = New(codec, f.users, logging.Nop(), WithClock(func() time.Time { return f.now }))
	return f
}

func (f *fixture) token(t *testing.T, id string) string {
	t.Helper()
	tok, err := f.codec.Issue(id, t0)
	require.NoError(t, err)
	return tok
}

func TestAuthorize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other, err := auth.NewCodec([]byte("other-secret"), ttl)
	require.NoError(t, err)
	forged, err := other.Issue("u1", t0)
	require.NoError(t, err)

	tests := []struct {
		name       string
		credential string
		now        time.Time
		usersErr   error
		wantErr    error
		wantCause  error
	}{
		{name: "admitted", credential: f.token(t, "u1"), now: t0.Add(time.Minute)},
		{name: "missing", credential: "", now: t0, wantErr: common.ErrMissingToken},
		{name: "garbage", credential: "abc", now: t0, wantErr: common.ErrInvalidToken, wantCause: common.ErrTokenMalformed},
		{name: "other secret", credential: forged, now: t0, wantErr: common.ErrInvalidToken, wantCause: common.ErrTokenBadSignature},
		{name: "expired", credential: f.token(t, "u1"), now: t0.Add(ttl), wantErr: common.ErrInvalidToken, wantCause: common.ErrTokenExpired},
		{name: "principal deleted", credential: f.token(t, "gone"), now: t0, wantErr: common.ErrInvalidToken},
		{name: "store down", credential: f.token(t, "u1"), now: t0, usersErr: errors.New("db down"), wantErr: common.ErrorInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.users.err = tt.usersErr
			defer func() { f.users.err = nil }()

			u, err := f.guard.Authorize(ctx, tt.credential, tt.now)
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Equal(t, "u1", u.ID)
				return
			}
			assert.Nil(t, u)
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.wantCause != nil {
				assert.ErrorIs(t, err, tt.wantCause)
			}
		})
	}
}

func TestCredential(t *testing.T) {
	tests := map[string]string{
		"":             "",
		"tok":          "tok",
		"  tok  ":      "tok",
		"Bearer tok":   "tok",
		"bearer tok":   "tok",
		"BEARER   tok": "tok",
		"Bearer":       "",
		"Bearer ":      "",
		"Bearertok":    "Bearertok",
		"a.b.c":        "a.b.c",
		"Bearer a.b.c": "a.b.c",
	}
	for header, want := range tests {
		r := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			r.Header.Set("Authorization", header)
		}
		assert.Equal(t, want, Credential(r), "header %q", header)
	}
}

func protectedHandler(calls *atomic.Int32) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		u, ok := UserFromContext(r.Context())
		if !ok {
			http.Error(w, "no user in context", http.StatusTeapot)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(u.ID))
	})
}

func TestProtect(t *testing.T) {
	f := newFixture(t)
	tok := f.token(t, "u1")

	tests := []struct {
		name       string
		header     string
		now        time.Time
		usersErr   error
		wantStatus int
		wantBody   string
		wantCalled bool
	}{
		{name: "bare token", header: tok, now: t0, wantStatus: http.StatusOK, wantBody: "u1", wantCalled: true},
		{name: "bearer token", header: "Bearer " + tok, now: t0, wantStatus: http.StatusOK, wantBody: "u1", wantCalled: true},
		{name: "no header", now: t0, wantStatus: http.StatusUnauthorized, wantBody: `{"message":"` + MessageMissingToken + `"}`},
		{name: "invalid", header: "nonsense", now: t0, wantStatus: http.StatusUnauthorized, wantBody: `{"message":"` + MessageInvalidToken + `"}`},
		{name: "expired", header: tok, now: t0.Add(ttl + time.Second), wantStatus: http.StatusUnauthorized, wantBody: `{"message":"` + MessageInvalidToken + `"}`},
		{name: "store down", header: tok, now: t0, usersErr: errors.New("db down"), wantStatus: http.StatusInternalServerError, wantBody: `{"message":"` + MessageInternal + `"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.now = tt.now
			f.users.err = tt.usersErr
			defer func() { f.users.err = nil }()

			var calls atomic.Int32
			h := f.guard.Protect(protectedHandler(&calls))

			r := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, r)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCalled {
				assert.Equal(t, tt.wantBody, rec.Body.String())
				assert.EqualValues(t, 1, calls.Load())
				return
			}
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Zero(t, calls.Load(), "handler must not run for rejected requests")
		})
	}
}

func TestProtect_CompositionOrder(t *testing.T) {
	f := newFixture(t)

	var order []string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
		w.WriteHeader(http.StatusNoContent)
	})
	tracing := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := UserFromContext(r.Context()); ok {
				order = append(order, "guard")
			}
			next.ServeHTTP(w, r)
		})
	}

	router := chi.NewRouter()
	router.With(f.guard.Protect, tracing).Get("/chi", inner)

	wrapped := f.guard.Protect(tracing(inner))

	for name, h := range map[string]http.Handler{"chi.With": router, "direct": wrapped} {
		t.Run(name, func(t *testing.T) {
			order = nil

			r := httptest.NewRequest(http.MethodGet, "/chi", nil)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, r)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Empty(t, order, "handler ran without a token")

			r = httptest.NewRequest(http.MethodGet, "/chi", nil)
			r.Header.Set("Authorization", f.token(t, "u1"))
			rec = httptest.NewRecorder()
			h.ServeHTTP(rec, r)
			assert.Equal(t, http.StatusNoContent, rec.Code)
			assert.Equal(t, []string{"guard", "handler"}, order)
		})
	}
}

func TestUserFromContext_Empty(t *testing.T) {
	_, ok := UserFromContext(context.Background())
	assert.False(t, ok)

	_, ok = UserFromContext(WithUser(context.Background(), nil))
	assert.False(t, ok)
}
