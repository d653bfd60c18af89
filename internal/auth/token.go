// Package auth provides password hashing, JWT issuance/validation, and the
// bearer-token middleware.
//
// A GitMap token is deliberately not sufficient on its own: the middleware
// requires both a valid signature/expiry AND a live session row for the
// exact token string. A cryptographically valid token whose session has been
// replaced or has expired is rejected. Neither check alone is enough.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"

	"github.com/sakif/gitmap/internal/model"
)

// TokenTTL is the fixed validity window for issued tokens and their session
// rows.
const TokenTTL = 7 * 24 * time.Hour

const issuer = "gitmap"

// Claims is the JWT payload. Alongside the registered claims the token
// carries the user's id, username, and email so clients can render identity
// without another round trip; the authoritative identity check still happens
// server-side against the users table.
type Claims struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// TokenService signs and validates bearer tokens with a shared HMAC secret.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService. Secrets shorter than 16 bytes are
// rejected outright; the documented default satisfies this but remains
// insecure and is warned about at startup.
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// Generate signs a token for the user, valid for TokenTTL from now.
func (s *TokenService) Generate(user *model.User) (string, error) {
	return s.GenerateWithDuration(user, TokenTTL)
}

// GenerateWithDuration signs a token with a custom validity window. Tests
// use this to mint already-expired tokens.
func (s *TokenService) GenerateWithDuration(user *model.User, d time.Duration) (string, error) {
	now := time.Now()

	c := Claims{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
			// Claim timestamps have second precision, so without a unique id
			// two tokens minted in the same second would be byte-identical.
			// Session rows are keyed by the token string; they must differ.
			ID: xid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a token string and returns its claims.
//
// Restricting the accepted algorithms to HS256 closes the algorithm
// confusion hole where a token signed with "none" might slip through.
func (s *TokenService) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}
	if c.UserID == 0 {
		return nil, fmt.Errorf("auth: token has no user id")
	}
	return c, nil
}
