package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/sakif/gitmap/internal/apperror"
	"github.com/sakif/gitmap/internal/model"
	"github.com/sakif/gitmap/internal/store"
)

const usersTable = "users"

// CreateUser inserts a new user. Duplicate username or email is reported as
// a Conflict; callers are expected to have probed with UserTaken first, the
// probe-then-insert pair being the best available without cross-backend
// unique constraints (only SQLite enforces them natively).
func (r *Registry) CreateUser(ctx context.Context, username, email, passwordHash string) (*model.User, error) {
	taken, err := r.UserTaken(ctx, username, email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperror.Conflict("User with this email or username already exists")
	}

	now := time.Now().UTC()
	res, err := r.store.Run(ctx, store.Insert(usersTable, store.Row{
		"username":      username,
		"email":         email,
		"password_hash": passwordHash,
		"created_at":    now,
		"updated_at":    now,
	}))
	if err != nil {
		return nil, fmt.Errorf("registry: inserting user %q: %w", username, err)
	}

	return r.UserByID(ctx, res.LastID)
}

// UserByID returns the user with the given id, or NotFound.
func (r *Registry) UserByID(ctx context.Context, id int64) (*model.User, error) {
	row, err := r.store.Get(ctx, store.Query{
		Table: usersTable,
		Where: []store.Cond{store.Eq("id", id)},
	})
	if err != nil {
		return nil, fmt.Errorf("registry: getting user %d: %w", id, err)
	}
	if row == nil {
		return nil, apperror.NotFound("user", id)
	}
	return rowToUser(row), nil
}

// UserByEmail returns the user with the given email, or nil when absent.
// The returned user includes the password hash for credential verification.
func (r *Registry) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	row, err := r.store.Get(ctx, store.Query{
		Table: usersTable,
		Where: []store.Cond{store.Eq("email", email)},
	})
	if err != nil {
		return nil, fmt.Errorf("registry: getting user by email: %w", err)
	}
	if row == nil {
		return nil, nil
	}
	return rowToUser(row), nil
}

// UserTaken reports whether the username or the email is already in use.
func (r *Registry) UserTaken(ctx context.Context, username, email string) (bool, error) {
	byEmail, err := r.store.Get(ctx, store.Query{
		Table: usersTable,
		Where: []store.Cond{store.Eq("email", email)},
	})
	if err != nil {
		return false, fmt.Errorf("registry: probing email: %w", err)
	}
	if byEmail != nil {
		return true, nil
	}

	byName, err := r.store.Get(ctx, store.Query{
		Table: usersTable,
		Where: []store.Cond{store.Eq("username", username)},
	})
	if err != nil {
		return false, fmt.Errorf("registry: probing username: %w", err)
	}
	return byName != nil, nil
}

// EnsureUser returns the user with the given email, creating it when absent.
// Used for the demo account and the seeded admin row — normal signups go
// through CreateUser and its conflict check.
func (r *Registry) EnsureUser(ctx context.Context, username, email, passwordHash string) (*model.User, error) {
	existing, err := r.UserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	return r.CreateUser(ctx, username, email, passwordHash)
}

func rowToUser(row store.Row) *model.User {
	return &model.User{
		ID:           row.Int64("id"),
		Username:     row.String("username"),
		Email:        row.String("email"),
		PasswordHash: row.String("password_hash"),
		CreatedAt:    row.Time("created_at"),
		UpdatedAt:    row.Time("updated_at"),
	}
}
