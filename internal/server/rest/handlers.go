package rest

import (
	"encoding/json"
	"net/http"

	"github.com/paralympics/authapi/internal/server/guard"
	"github.com/paralympics/authapi/internal/server/respond"
)

const maxBodyBytes = 1 << 20

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	UserID string `json:"user_id"`
	Token  string `json:"token"`
}

type meResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

type pingResponse struct {
	Status string `json:"status"`
}

func decodeCredentials(w http.ResponseWriter, r *http.Request) (*credentialsRequest, bool) {
	var req credentialsRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		respond.Message(w, http.StatusBadRequest, "request body must be a JSON object with email and password")
		return nil, false
	}
	return &req, true
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, pingResponse{Status: "OK"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	if _, err := s.users.Register(r.Context(), req.Email, req.Password); err != nil {
		s.writeError(w, r, err)
		return
	}

	respond.Message(w, http.StatusCreated, "user registered")
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	res, err := s.users.Login(r.Context(), req.Email, req.Password, s.opts.Clock())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, loginResponse{UserID: res.UserID, Token: res.Token})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := guard.UserFromContext(r.Context())
	if !ok {
		s.logger.Error(r.Context(), "protected route reached without a principal", "path", r.URL.Path)
		respond.Message(w, http.StatusInternalServerError, messageInternal)
		return
	}
	respond.JSON(w, http.StatusOK, meResponse{UserID: user.ID, Email: user.Email})
}
