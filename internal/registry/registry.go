// Package registry is the typed data-access layer: users, sessions,
// repositories, and repository files expressed over the storage adapter.
//
// Everything here speaks adapter Query/Mutation intent, never SQL, so the
// registry behaves identically on all three backends. Ownership scoping
// lives here too: every repository and file read or write is filtered by the
// owning user's id, and a miss is reported as NotFound regardless of whether
// the row exists for someone else.
package registry

import (
	"context"
	"time"

	"github.com/sakif/gitmap/internal/model"
	"github.com/sakif/gitmap/internal/store"
)

// Users is the user slice of the registry.
type Users interface {
	CreateUser(ctx context.Context, username, email, passwordHash string) (*model.User, error)
	UserByID(ctx context.Context, id int64) (*model.User, error)
	UserByEmail(ctx context.Context, email string) (*model.User, error)
	UserTaken(ctx context.Context, username, email string) (bool, error)
	EnsureUser(ctx context.Context, username, email, passwordHash string) (*model.User, error)
}

// Sessions is the session slice of the registry.
type Sessions interface {
	CreateSession(ctx context.Context, userID int64, token string, expiresAt time.Time) error
	LiveSession(ctx context.Context, token string) (*model.Session, error)
	ReplaceSessions(ctx context.Context, userID int64, token string, expiresAt time.Time) error
}

// Repositories is the repository slice of the registry.
type Repositories interface {
	CreateRepository(ctx context.Context, owner *model.User, name, description string, isPrivate bool) (*model.Repository, error)
	RepositoriesForUser(ctx context.Context, userID int64) ([]model.Repository, error)
	RepositoryForUser(ctx context.Context, id, userID int64) (*model.Repository, error)
	UpdateRepository(ctx context.Context, id, userID int64, name, description string, isPrivate bool) (*model.Repository, error)
	DeleteRepository(ctx context.Context, id, userID int64) error
	TouchRepository(ctx context.Context, id int64) error
}

// Files is the repository-file slice of the registry.
type Files interface {
	CreateFile(ctx context.Context, repositoryID int64, filePath, fileName, content, fileType string) (*model.RepositoryFile, error)
	FilesForRepository(ctx context.Context, repositoryID int64) ([]model.RepositoryFile, error)
	DeleteFile(ctx context.Context, repositoryID, fileID int64) error
}

// Registry implements all four slices over one adapter handle.
type Registry struct {
	store      store.Store
	gitURLHost string
}

var (
	_ Users        = (*Registry)(nil)
	_ Sessions     = (*Registry)(nil)
	_ Repositories = (*Registry)(nil)
	_ Files        = (*Registry)(nil)
)

// New creates a Registry. gitURLHost is the host baked into synthesized
// git:// clone URLs.
func New(s store.Store, gitURLHost string) *Registry {
	return &Registry{store: s, gitURLHost: gitURLHost}
}
