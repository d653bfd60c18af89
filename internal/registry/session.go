package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/sakif/gitmap/internal/model"
	"github.com/sakif/gitmap/internal/store"
)

const sessionsTable = "user_sessions"

// CreateSession records an issued token. Multiple live sessions per user are
// allowed — one row per login.
func (r *Registry) CreateSession(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	_, err := r.store.Run(ctx, store.Insert(sessionsTable, store.Row{
		"user_id":    userID,
		"token":      token,
		"expires_at": expiresAt.UTC(),
		"created_at": time.Now().UTC(),
	}))
	if err != nil {
		return fmt.Errorf("registry: inserting session for user %d: %w", userID, err)
	}
	return nil
}

// LiveSession returns the non-expired session for the exact token, or nil.
// The expiry comparison happens here rather than in the store because the
// adapter's portable query intent is equality-only; a range predicate would
// not mean the same thing on every backend.
func (r *Registry) LiveSession(ctx context.Context, token string) (*model.Session, error) {
	row, err := r.store.Get(ctx, store.Query{
		Table: sessionsTable,
		Where: []store.Cond{store.Eq("token", token)},
	})
	if err != nil {
		return nil, fmt.Errorf("registry: getting session: %w", err)
	}
	if row == nil {
		return nil, nil
	}

	session := rowToSession(row)
	if session.Expired(time.Now()) {
		// Expired rows stay in place; they are simply never returned.
		return nil, nil
	}
	return session, nil
}

// ReplaceSessions drops every session row for the user and records a fresh
// one — the upsert semantics the demo account login uses.
func (r *Registry) ReplaceSessions(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	if _, err := r.store.Run(ctx, store.Delete(sessionsTable, store.Eq("user_id", userID))); err != nil {
		return fmt.Errorf("registry: clearing sessions for user %d: %w", userID, err)
	}
	return r.CreateSession(ctx, userID, token, expiresAt)
}

func rowToSession(row store.Row) *model.Session {
	return &model.Session{
		ID:        row.Int64("id"),
		UserID:    row.Int64("user_id"),
		Token:     row.String("token"),
		ExpiresAt: row.Time("expires_at"),
		CreatedAt: row.Time("created_at"),
	}
}
