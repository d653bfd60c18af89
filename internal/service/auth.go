// Package service contains the business logic between the HTTP handlers and
// the registry. Handlers parse requests and write responses; services
// validate, enforce rules, and orchestrate; the registry talks to storage.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/gitmap/internal/apperror"
	"github.com/sakif/gitmap/internal/auth"
	"github.com/sakif/gitmap/internal/model"
	"github.com/sakif/gitmap/internal/registry"
)

// Fixed demonstration credentials, active only when the service is built
// with demo mode on. The password check is bypassed for this pair; the demo
// user row is created on first use.
const (
	DemoEmail    = "demo@gitmap.com"
	DemoPassword = "demo123"
	demoUsername = "demo"
)

const minPasswordLen = 6

// AuthService owns signup, login, and token verification.
type AuthService struct {
	users     registry.Users
	sessions  registry.Sessions
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	demoMode  bool
	logger    *slog.Logger
}

// NewAuthService wires an AuthService. demoMode enables the fixed
// demonstration credential pair.
func NewAuthService(
	users registry.Users,
	sessions registry.Sessions,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	demoMode bool,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		sessions:  sessions,
		tokens:    tokens,
		passwords: passwords,
		demoMode:  demoMode,
		logger:    logger,
	}
}

// AuthResult bundles the authenticated user with the issued token so the
// handler can respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// Signup registers a new account and logs it in: the user row, the token,
// and the session row are all created here.
func (s *AuthService) Signup(ctx context.Context, username, email, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	switch {
	case username == "" || email == "" || password == "":
		return nil, apperror.ValidationFailed("", "Username, email, and password are required")
	case len(password) < minPasswordLen:
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("Password must be at least %d characters long", minPasswordLen))
	case !strings.Contains(email, "@"):
		return nil, apperror.ValidationFailed("email", "Email address is not valid")
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", "Password is not usable")
	}

	user, err := s.users.CreateUser(ctx, username, email, hash)
	if err != nil {
		return nil, fmt.Errorf("service/auth: creating user %q: %w", username, err)
	}

	result, err := s.issueSession(ctx, user, false)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user signed up",
		slog.Int64("userID", user.ID),
		slog.String("username", user.Username),
	)
	return result, nil
}

// Login authenticates with email and password, issuing a token and an
// additional session row. In demo mode the fixed demo pair bypasses
// password verification and *replaces* the demo user's sessions instead of
// stacking a new row per login.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if email == "" || password == "" {
		return nil, apperror.ValidationFailed("", "Email and password are required")
	}

	if s.demoMode && email == DemoEmail && password == DemoPassword {
		return s.demoLogin(ctx)
	}

	user, err := s.users.UserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}
	if user == nil {
		return nil, apperror.Unauthorized("Invalid email or password")
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, apperror.Unauthorized("Invalid email or password")
	}

	result, err := s.issueSession(ctx, user, false)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", slog.Int64("userID", user.ID))
	return result, nil
}

// VerifyToken requires both checks: the token must be
// cryptographically valid AND have a matching non-expired session row. A
// valid signature with no live session (replaced, expired) is rejected.
func (s *AuthService) VerifyToken(ctx context.Context, token string) (*model.User, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, apperror.Unauthorized("Invalid token")
	}

	session, err := s.sessions.LiveSession(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("service/auth: looking up session: %w", err)
	}
	if session == nil {
		return nil, apperror.Unauthorized("Session expired or invalid")
	}

	user, err := s.users.UserByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperror.Unauthorized("User not found")
	}
	return user, nil
}

func (s *AuthService) demoLogin(ctx context.Context) (*AuthResult, error) {
	// The demo row gets a real hash so it behaves like any other user if
	// demo mode is later switched off.
	hash, err := s.passwords.Hash(DemoPassword)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing demo password: %w", err)
	}

	user, err := s.users.EnsureUser(ctx, demoUsername, DemoEmail, hash)
	if err != nil {
		return nil, fmt.Errorf("service/auth: ensuring demo user: %w", err)
	}

	result, err := s.issueSession(ctx, user, true)
	if err != nil {
		return nil, err
	}

	s.logger.Info("demo login", slog.Int64("userID", user.ID))
	return result, nil
}

// issueSession generates the token and records the session row with the
// fixed 7-day expiry. replace collapses the user's sessions to one row (the
// demo-account upsert); otherwise each login adds a row.
func (s *AuthService) issueSession(ctx context.Context, user *model.User, replace bool) (*AuthResult, error) {
	token, err := s.tokens.Generate(user)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %d: %w", user.ID, err)
	}

	expiresAt := time.Now().Add(auth.TokenTTL)
	if replace {
		err = s.sessions.ReplaceSessions(ctx, user.ID, token, expiresAt)
	} else {
		err = s.sessions.CreateSession(ctx, user.ID, token, expiresAt)
	}
	if err != nil {
		return nil, fmt.Errorf("service/auth: recording session for user %d: %w", user.ID, err)
	}

	return &AuthResult{User: user, Token: token}, nil
}
