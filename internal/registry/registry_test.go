package registry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/gitmap/internal/apperror"
	"github.com/sakif/gitmap/internal/model"
	"github.com/sakif/gitmap/internal/registry"
	"github.com/sakif/gitmap/internal/store"
)

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	return registry.New(store.NewMemory(), "localhost:3001")
}

func mustUser(t *testing.T, reg *registry.Registry, username, email string) *model.User {
	t.Helper()
	user, err := reg.CreateUser(context.Background(), username, email, "hash")
	require.NoError(t, err)
	return user
}

func TestCreateUserAndLookup(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	user := mustUser(t, reg, "al", "al@example.com")
	assert.Equal(t, int64(1), user.ID)
	assert.Equal(t, "al", user.Username)

	byEmail, err := reg.UserByEmail(ctx, "al@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, user.ID, byEmail.ID)
	assert.Equal(t, "hash", byEmail.PasswordHash)

	missing, err := reg.UserByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCreateUserDuplicateIsConflict(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	mustUser(t, reg, "al", "al@example.com")

	_, err := reg.CreateUser(ctx, "al", "other@example.com", "hash")
	assert.True(t, errors.Is(err, apperror.ErrConflict), "duplicate username")

	_, err = reg.CreateUser(ctx, "other", "al@example.com", "hash")
	assert.True(t, errors.Is(err, apperror.ErrConflict), "duplicate email")
}

func TestEnsureUserIsIdempotent(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	first, err := reg.EnsureUser(ctx, "demo", "demo@gitmap.com", "hash")
	require.NoError(t, err)

	second, err := reg.EnsureUser(ctx, "demo", "demo@gitmap.com", "hash")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestSessionLifecycle(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()
	user := mustUser(t, reg, "al", "al@example.com")

	require.NoError(t, reg.CreateSession(ctx, user.ID, "token-1", time.Now().Add(time.Hour)))

	session, err := reg.LiveSession(ctx, "token-1")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, user.ID, session.UserID)

	missing, err := reg.LiveSession(ctx, "no-such-token")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestExpiredSessionIsNotLive(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()
	user := mustUser(t, reg, "al", "al@example.com")

	require.NoError(t, reg.CreateSession(ctx, user.ID, "stale", time.Now().Add(-time.Minute)))

	session, err := reg.LiveSession(ctx, "stale")
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestReplaceSessionsCollapsesToOne(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()
	user := mustUser(t, reg, "demo", "demo@gitmap.com")

	require.NoError(t, reg.CreateSession(ctx, user.ID, "one", time.Now().Add(time.Hour)))
	require.NoError(t, reg.CreateSession(ctx, user.ID, "two", time.Now().Add(time.Hour)))

	require.NoError(t, reg.ReplaceSessions(ctx, user.ID, "three", time.Now().Add(time.Hour)))

	for _, token := range []string{"one", "two"} {
		s, err := reg.LiveSession(ctx, token)
		require.NoError(t, err)
		assert.Nil(t, s, token)
	}
	s, err := reg.LiveSession(ctx, "three")
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestCreateRepositorySynthesizesGitURL(t *testing.T) {
	reg := newTestRegistry(t)
	user := mustUser(t, reg, "al", "al@example.com")

	repo, err := reg.CreateRepository(context.Background(), user, "demo", "a demo", false)
	require.NoError(t, err)
	assert.Equal(t, "git://localhost:3001/al/demo.git", repo.GitURL)
	assert.Equal(t, user.ID, repo.UserID)
}

func TestCreateRepositoryDuplicateNameSameOwner(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()
	al := mustUser(t, reg, "al", "al@example.com")
	bo := mustUser(t, reg, "bo", "bo@example.com")

	_, err := reg.CreateRepository(ctx, al, "demo", "", false)
	require.NoError(t, err)

	_, err = reg.CreateRepository(ctx, al, "demo", "", false)
	assert.True(t, errors.Is(err, apperror.ErrConflict))

	// Same name under a different owner is fine.
	_, err = reg.CreateRepository(ctx, bo, "demo", "", false)
	assert.NoError(t, err)
}

func TestRepositoryOwnershipScoping(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()
	al := mustUser(t, reg, "al", "al@example.com")
	bo := mustUser(t, reg, "bo", "bo@example.com")

	repo, err := reg.CreateRepository(ctx, al, "demo", "", false)
	require.NoError(t, err)

	// The owner sees it; anyone else gets NotFound, identical to a
	// nonexistent id.
	_, err = reg.RepositoryForUser(ctx, repo.ID, al.ID)
	assert.NoError(t, err)

	_, err = reg.RepositoryForUser(ctx, repo.ID, bo.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestRepositoriesForUserNewestFirst(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()
	user := mustUser(t, reg, "al", "al@example.com")

	for _, name := range []string{"first", "second", "third"} {
		_, err := reg.CreateRepository(ctx, user, name, "", false)
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	repos, err := reg.RepositoriesForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, repos, 3)
	assert.Equal(t, "third", repos[0].Name)
	assert.Equal(t, "first", repos[2].Name)
}

func TestUpdateRepositoryKeepsGitURL(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()
	user := mustUser(t, reg, "al", "al@example.com")

	repo, err := reg.CreateRepository(ctx, user, "demo", "", false)
	require.NoError(t, err)

	updated, err := reg.UpdateRepository(ctx, repo.ID, user.ID, "renamed", "new desc", true)
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)
	assert.True(t, updated.IsPrivate)
	assert.Equal(t, repo.GitURL, updated.GitURL, "clone URL must stay stable across renames")
}

func TestUpdateRepositoryRenameClash(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()
	user := mustUser(t, reg, "al", "al@example.com")

	_, err := reg.CreateRepository(ctx, user, "taken", "", false)
	require.NoError(t, err)
	repo, err := reg.CreateRepository(ctx, user, "demo", "", false)
	require.NoError(t, err)

	_, err = reg.UpdateRepository(ctx, repo.ID, user.ID, "taken", "", false)
	assert.True(t, errors.Is(err, apperror.ErrConflict))
}

func TestDeleteRepositoryCascadesToFiles(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()
	user := mustUser(t, reg, "al", "al@example.com")

	repo, err := reg.CreateRepository(ctx, user, "demo", "", false)
	require.NoError(t, err)

	_, err = reg.CreateFile(ctx, repo.ID, "/", "README.md", "# demo", "text/markdown")
	require.NoError(t, err)

	require.NoError(t, reg.DeleteRepository(ctx, repo.ID, user.ID))

	files, err := reg.FilesForRepository(ctx, repo.ID)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestCreateFileDuplicateTripleIsConflict(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()
	user := mustUser(t, reg, "al", "al@example.com")

	repo, err := reg.CreateRepository(ctx, user, "demo", "", false)
	require.NoError(t, err)

	file, err := reg.CreateFile(ctx, repo.ID, "/", "main.go", "package main", "text/x-go")
	require.NoError(t, err)
	assert.Equal(t, int64(len("package main")), file.FileSize)

	_, err = reg.CreateFile(ctx, repo.ID, "/", "main.go", "other", "")
	assert.True(t, errors.Is(err, apperror.ErrConflict))

	// Same name under a different path is a different file.
	_, err = reg.CreateFile(ctx, repo.ID, "/cmd", "main.go", "package main", "")
	assert.NoError(t, err)
}

func TestFilesOrderedByPathThenName(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()
	user := mustUser(t, reg, "al", "al@example.com")

	repo, err := reg.CreateRepository(ctx, user, "demo", "", false)
	require.NoError(t, err)

	for _, f := range [][2]string{{"/src", "b.go"}, {"/", "readme.md"}, {"/src", "a.go"}} {
		_, err := reg.CreateFile(ctx, repo.ID, f[0], f[1], "", "")
		require.NoError(t, err)
	}

	files, err := reg.FilesForRepository(ctx, repo.ID)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "readme.md", files[0].FileName)
	assert.Equal(t, "a.go", files[1].FileName)
	assert.Equal(t, "b.go", files[2].FileName)
}

func TestDeleteFileScopedToRepository(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()
	user := mustUser(t, reg, "al", "al@example.com")

	repoA, err := reg.CreateRepository(ctx, user, "a", "", false)
	require.NoError(t, err)
	repoB, err := reg.CreateRepository(ctx, user, "b", "", false)
	require.NoError(t, err)

	file, err := reg.CreateFile(ctx, repoA.ID, "/", "x.txt", "x", "")
	require.NoError(t, err)

	// Deleting through the wrong repository id must be NotFound and leave
	// the file alone.
	err = reg.DeleteFile(ctx, repoB.ID, file.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	require.NoError(t, reg.DeleteFile(ctx, repoA.ID, file.ID))

	err = reg.DeleteFile(ctx, repoA.ID, file.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}
