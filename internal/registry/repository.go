package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/sakif/gitmap/internal/apperror"
	"github.com/sakif/gitmap/internal/model"
	"github.com/sakif/gitmap/internal/store"
)

const reposTable = "repositories"

// CreateRepository inserts a repository for the owner, synthesizing its
// clone URL from the fixed template git://<host>/<username>/<name>.git.
// A name already used by the same owner is a Conflict.
func (r *Registry) CreateRepository(ctx context.Context, owner *model.User, name, description string, isPrivate bool) (*model.Repository, error) {
	existing, err := r.store.Get(ctx, store.Query{
		Table: reposTable,
		Where: []store.Cond{
			store.Eq("user_id", owner.ID),
			store.Eq("name", name),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("registry: probing repository name: %w", err)
	}
	if existing != nil {
		return nil, apperror.Conflict("Repository name already exists")
	}

	now := time.Now().UTC()
	res, err := r.store.Run(ctx, store.Insert(reposTable, store.Row{
		"user_id":     owner.ID,
		"name":        name,
		"description": description,
		"is_private":  isPrivate,
		"git_url":     r.gitURL(owner.Username, name),
		"created_at":  now,
		"updated_at":  now,
	}))
	if err != nil {
		return nil, fmt.Errorf("registry: inserting repository %q: %w", name, err)
	}

	return r.repositoryByID(ctx, res.LastID)
}

// RepositoriesForUser lists the user's repositories, newest first.
func (r *Registry) RepositoriesForUser(ctx context.Context, userID int64) ([]model.Repository, error) {
	rows, err := r.store.All(ctx, store.Query{
		Table:   reposTable,
		Where:   []store.Cond{store.Eq("user_id", userID)},
		OrderBy: []string{"created_at"},
		Desc:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("registry: listing repositories for user %d: %w", userID, err)
	}

	repos := make([]model.Repository, 0, len(rows))
	for _, row := range rows {
		repos = append(repos, *rowToRepository(row))
	}
	return repos, nil
}

// RepositoryForUser returns the repository only when it is owned by userID;
// anything else is NotFound.
func (r *Registry) RepositoryForUser(ctx context.Context, id, userID int64) (*model.Repository, error) {
	row, err := r.store.Get(ctx, store.Query{
		Table: reposTable,
		Where: []store.Cond{
			store.Eq("id", id),
			store.Eq("user_id", userID),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("registry: getting repository %d: %w", id, err)
	}
	if row == nil {
		return nil, apperror.NotFound("repository", id)
	}
	return rowToRepository(row), nil
}

// UpdateRepository rewrites name, description, and visibility. Renaming to a
// name the owner already uses elsewhere is a Conflict. The clone URL is
// never rewritten: issued git_url values are stable identifiers.
func (r *Registry) UpdateRepository(ctx context.Context, id, userID int64, name, description string, isPrivate bool) (*model.Repository, error) {
	current, err := r.RepositoryForUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if name != current.Name {
		clash, err := r.store.Get(ctx, store.Query{
			Table: reposTable,
			Where: []store.Cond{
				store.Eq("user_id", userID),
				store.Eq("name", name),
			},
		})
		if err != nil {
			return nil, fmt.Errorf("registry: probing repository rename: %w", err)
		}
		if clash != nil {
			return nil, apperror.Conflict("Repository name already exists")
		}
	}

	_, err = r.store.Run(ctx, store.Update(reposTable, store.Row{
		"name":        name,
		"description": description,
		"is_private":  isPrivate,
		"updated_at":  time.Now().UTC(),
	}, store.Eq("id", id)))
	if err != nil {
		return nil, fmt.Errorf("registry: updating repository %d: %w", id, err)
	}

	return r.repositoryByID(ctx, id)
}

// DeleteRepository removes the repository and cascades to its files. The
// file delete runs first at this layer so backends without foreign-key
// support behave identically to SQLite's ON DELETE CASCADE.
func (r *Registry) DeleteRepository(ctx context.Context, id, userID int64) error {
	if _, err := r.RepositoryForUser(ctx, id, userID); err != nil {
		return err
	}

	if _, err := r.store.Run(ctx, store.Delete(filesTable, store.Eq("repository_id", id))); err != nil {
		return fmt.Errorf("registry: deleting files of repository %d: %w", id, err)
	}
	if _, err := r.store.Run(ctx, store.Delete(reposTable, store.Eq("id", id))); err != nil {
		return fmt.Errorf("registry: deleting repository %d: %w", id, err)
	}
	return nil
}

// TouchRepository bumps updated_at — the entire durable effect of a
// simulated push.
func (r *Registry) TouchRepository(ctx context.Context, id int64) error {
	_, err := r.store.Run(ctx, store.Update(reposTable, store.Row{
		"updated_at": time.Now().UTC(),
	}, store.Eq("id", id)))
	if err != nil {
		return fmt.Errorf("registry: touching repository %d: %w", id, err)
	}
	return nil
}

func (r *Registry) repositoryByID(ctx context.Context, id int64) (*model.Repository, error) {
	row, err := r.store.Get(ctx, store.Query{
		Table: reposTable,
		Where: []store.Cond{store.Eq("id", id)},
	})
	if err != nil {
		return nil, fmt.Errorf("registry: getting repository %d: %w", id, err)
	}
	if row == nil {
		return nil, apperror.NotFound("repository", id)
	}
	return rowToRepository(row), nil
}

func (r *Registry) gitURL(username, name string) string {
	return fmt.Sprintf("git://%s/%s/%s.git", r.gitURLHost, username, name)
}

func rowToRepository(row store.Row) *model.Repository {
	return &model.Repository{
		ID:          row.Int64("id"),
		UserID:      row.Int64("user_id"),
		Name:        row.String("name"),
		Description: row.String("description"),
		IsPrivate:   row.Bool("is_private"),
		GitURL:      row.String("git_url"),
		GitData:     row.String("git_data"),
		CreatedAt:   row.Time("created_at"),
		UpdatedAt:   row.Time("updated_at"),
	}
}
