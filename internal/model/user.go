// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// PasswordHash is never serialized — the `json:"-"` tag keeps it out of every
// API response. Handlers and services pass *model.User around freely without
// worrying about leaking the hash.
//
// The JSON field names mirror the storage column names (snake_case) because
// the API contract exposes rows as-is: clients were built against
// `created_at`, not `createdAt`.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Session is one issued bearer token. A user may hold several live sessions
// (one per login); a session stops being usable once ExpiresAt passes, but
// the row is not physically deleted.
type Session struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the session is past its expiry at the given instant.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
