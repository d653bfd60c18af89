package handler

import (
	"net/http"

	"github.com/sakif/gitmap/internal/apperror"
	"github.com/sakif/gitmap/internal/model"
	"github.com/sakif/gitmap/internal/service"
)

// AuthHandler serves signup, login, and token verification.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyRequest struct {
	Token string `json:"token"`
}

// authResponse is returned by signup and login. The user's password hash
// is excluded by the model's JSON tags.
type authResponse struct {
	Success bool        `json:"success"`
	User    *model.User `json:"user"`
	Token   string      `json:"token,omitempty"`
}

// HandleSignup registers an account and returns it logged in.
//
// POST /api/auth/signup
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.auth.Signup(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		Success: true,
		User:    result.User,
		Token:   result.Token,
	})
}

// HandleLogin authenticates with email and password.
//
// POST /api/auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		Success: true,
		User:    result.User,
		Token:   result.Token,
	})
}

// HandleVerify checks a token from the request body and returns its user.
// This is the client's session-restore call on page load.
//
// POST /api/auth/verify
func (h *AuthHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Token == "" {
		writeError(w, apperror.ValidationFailed("token", "Token is required"))
		return
	}

	user, err := h.auth.VerifyToken(r.Context(), req.Token)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{Success: true, User: user})
}
