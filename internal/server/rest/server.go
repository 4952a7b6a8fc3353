// Package rest is the JSON over HTTP surface of the authentication core:
// POST /register, POST /login, the protected GET /me and GET /ping.
package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/paralympics/authapi/internal/logging"
	"github.com/paralympics/authapi/internal/server/guard"
	"github.com/paralympics/authapi/internal/server/models"
	"github.com/paralympics/authapi/internal/server/respond"
	"github.com/paralympics/authapi/internal/server/services"
)

// AuthService is implemented by services.UserService.
type AuthService interface {
	Register(ctx context.Context, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string, now time.Time) (*services.LoginResult, error)
}

type Options struct {
	// CORSAllowedOrigins enables CORS for the listed origins. Empty disables it.
	CORSAllowedOrigins []string
	// LoginRateLimit is the sustained number of login attempts per second
	// per client; zero or less disables limiting.
	LoginRateLimit float64
	LoginRateBurst int
	// Clock defaults to time.Now.
	Clock func() time.Time
}

type Server struct {
	users  AuthService
	guard  *guard.Guard
	logger logging.Logger
	opts   Options
	router chi.Router
}

func NewServer(users AuthService, g *guard.Guard, logger logging.Logger, opts Options) *Server {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	s := &Server{
		users:  users,
		guard:  g,
		logger: logger.With("component", "rest"),
		opts:   opts,
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(exposeRequestID)
	r.Use(s.requestLogger)
	r.Use(s.recoverer)
	if len(s.opts.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.opts.CORSAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
			ExposedHeaders: []string{middleware.RequestIDHeader},
			MaxAge:         300,
		}))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respond.Message(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respond.Message(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/ping", s.handlePing)
	r.Post("/register", s.handleRegister)
	r.With(loginRateLimiter(s.opts.LoginRateLimit, s.opts.LoginRateBurst, s.opts.Clock)).
		Post("/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.guard.Protect)
		r.Get("/me", s.handleMe)
	})

	return r
}
