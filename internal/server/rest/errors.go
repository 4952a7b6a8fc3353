package rest

import (
	"errors"
	"net/http"

	"github.com/paralympics/authapi/internal/common"
	"github.com/paralympics/authapi/internal/server/guard"
	"github.com/paralympics/authapi/internal/server/respond"
)

const (
	messageInternal           = "internal server error"
	messageInvalidCredentials = "invalid email or password"
)

// writeError maps service errors to status codes. Anything unrecognised is
// logged and answered with a generic 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrInvalidRegistration):
		respond.Message(w, http.StatusBadRequest, "a valid email and a password of 1 to 72 bytes are required")
	case errors.Is(err, common.ErrAlreadyExists):
		respond.Message(w, http.StatusConflict, "email already registered")
	case errors.Is(err, common.ErrMissingCredentials):
		respond.Message(w, http.StatusUnauthorized, "email and password are required")
	case errors.Is(err, common.ErrInvalidCredentials):
		respond.Message(w, http.StatusUnauthorized, messageInvalidCredentials)
	case errors.Is(err, common.ErrMissingToken):
		respond.Message(w, http.StatusUnauthorized, guard.MessageMissingToken)
	case errors.Is(err, common.ErrInvalidToken):
		respond.Message(w, http.StatusUnauthorized, guard.MessageInvalidToken)
	default:
		s.logger.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		respond.Message(w, http.StatusInternalServerError, messageInternal)
	}
}
