package gitops_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/gitmap/internal/apperror"
	"github.com/sakif/gitmap/internal/gitops"
)

func newLocal(t *testing.T) (*gitops.Local, string) {
	t.Helper()

	runner := gitops.NewRunner("git")
	if !runner.Available() {
		t.Skip("git binary not available")
	}

	root := t.TempDir()
	return gitops.NewLocal(runner, root, 4, testLogger()), root
}

func TestInitSeedsReadme(t *testing.T) {
	local, root := newLocal(t)
	ctx := context.Background()

	result, err := local.Init(ctx, "myrepo", "My test repository")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, filepath.Join(root, "myrepo"), result.Path)
	assert.Equal(t, "Repository created successfully", result.Message)

	readme, err := os.ReadFile(filepath.Join(root, "myrepo", "README.md"))
	require.NoError(t, err)
	assert.Contains(t, string(readme), "# myrepo")
	assert.Contains(t, string(readme), "My test repository")

	// The README is committed, so the tree is clean.
	status, err := local.Status(ctx, "myrepo")
	require.NoError(t, err)
	assert.True(t, status.Clean())

	commits, err := local.Commits(ctx, "myrepo", 0)
	require.NoError(t, err)
	require.Len(t, commits, 1)
	assert.Equal(t, "Initial commit: Add README", commits[0].Message)
}

func TestInitTwiceIsIdempotent(t *testing.T) {
	local, _ := newLocal(t)
	ctx := context.Background()

	_, err := local.Init(ctx, "myrepo", "")
	require.NoError(t, err)

	again, err := local.Init(ctx, "myrepo", "")
	require.NoError(t, err)
	assert.Equal(t, "Repository already exists", again.Message)

	commits, err := local.Commits(ctx, "myrepo", 0)
	require.NoError(t, err)
	assert.Len(t, commits, 1, "second init must not add commits")
}

func TestInitRequiresPath(t *testing.T) {
	local, _ := newLocal(t)

	_, err := local.Init(context.Background(), "  ", "")
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

func TestAddCommitStatusCycle(t *testing.T) {
	local, root := newLocal(t)
	ctx := context.Background()

	_, err := local.Init(ctx, "work", "")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "work", "notes.txt"), []byte("hi\n"), 0o644))

	status, err := local.Status(ctx, "work")
	require.NoError(t, err)
	assert.Equal(t, []string{"notes.txt"}, status.Files.Untracked)

	require.NoError(t, local.Add(ctx, "work", []string{"notes.txt"}))

	status, err = local.Status(ctx, "work")
	require.NoError(t, err)
	assert.Equal(t, []string{"notes.txt"}, status.Files.Staged)

	require.NoError(t, local.Commit(ctx, "work", "Add notes"))

	status, err = local.Status(ctx, "work")
	require.NoError(t, err)
	assert.True(t, status.Clean())

	commits, err := local.Commits(ctx, "work", 10)
	require.NoError(t, err)
	require.Len(t, commits, 2)
	assert.Equal(t, "Add notes", commits[0].Message, "newest first")
}

func TestCommitRequiresMessage(t *testing.T) {
	local, _ := newLocal(t)
	ctx := context.Background()

	_, err := local.Init(ctx, "work", "")
	require.NoError(t, err)

	err = local.Commit(ctx, "work", "  ")
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

func TestBranchLifecycle(t *testing.T) {
	local, _ := newLocal(t)
	ctx := context.Background()

	_, err := local.Init(ctx, "work", "")
	require.NoError(t, err)

	require.NoError(t, local.CreateBranch(ctx, "work", "feature/x"))

	branches, err := local.Branches(ctx, "work")
	require.NoError(t, err)
	require.Len(t, branches, 2)

	byName := map[string]gitops.BranchInfo{}
	for _, b := range branches {
		byName[b.Name] = b
	}
	feature, ok := byName["feature/x"]
	require.True(t, ok)
	assert.True(t, feature.Current)
	assert.NotEmpty(t, feature.Commit)
	assert.Equal(t, "Initial commit: Add README", feature.Message)

	// Switch back and delete the merged branch.
	var base string
	for name := range byName {
		if name != "feature/x" {
			base = name
		}
	}
	require.NoError(t, local.Checkout(ctx, "work", base))
	require.NoError(t, local.DeleteBranch(ctx, "work", "feature/x"))

	branches, err = local.Branches(ctx, "work")
	require.NoError(t, err)
	assert.Len(t, branches, 1)
}

func TestDeleteBranchFailureSurfacesGitMessage(t *testing.T) {
	local, _ := newLocal(t)
	ctx := context.Background()

	_, err := local.Init(ctx, "work", "")
	require.NoError(t, err)

	err = local.DeleteBranch(ctx, "work", "no-such-branch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no-such-branch")
}

func TestCloneFromLocalPath(t *testing.T) {
	local, root := newLocal(t)
	ctx := context.Background()

	_, err := local.Init(ctx, "origin-repo", "")
	require.NoError(t, err)

	result, err := local.Clone(ctx, filepath.Join(root, "origin-repo"), "cloned")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "cloned"), result.Path)
	assert.Equal(t, "Repository cloned successfully", result.Message)

	again, err := local.Clone(ctx, filepath.Join(root, "origin-repo"), "cloned")
	require.NoError(t, err)
	assert.Equal(t, "Repository already exists", again.Message)
}

func TestCloneDefaultsTargetToURLBase(t *testing.T) {
	local, root := newLocal(t)
	ctx := context.Background()

	_, err := local.Init(ctx, "origin-repo", "")
	require.NoError(t, err)

	result, err := local.Clone(ctx, filepath.Join(root, "origin-repo"), "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "origin-repo"), result.Path)
	// The target already holds the origin repository itself.
	assert.Equal(t, "Repository already exists", result.Message)
}

func TestRepositoriesScan(t *testing.T) {
	local, root := newLocal(t)
	ctx := context.Background()

	_, err := local.Init(ctx, "one", "")
	require.NoError(t, err)
	_, err = local.Init(ctx, filepath.Join("nested", "two"), "")
	require.NoError(t, err)

	// Hidden directories are ignored even if they hold repositories.
	_, err = local.Init(ctx, filepath.Join(".hidden", "three"), "")
	require.NoError(t, err)

	repos, err := local.Repositories(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(root, "one"),
		filepath.Join(root, "nested", "two"),
	}, repos)
}

func TestRepositoriesScanHonorsCancellation(t *testing.T) {
	local, _ := newLocal(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := local.Repositories(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRepositoriesScanRespectsDepthBound(t *testing.T) {
	runner := gitops.NewRunner("git")
	if !runner.Available() {
		t.Skip("git binary not available")
	}

	root := t.TempDir()
	shallow := gitops.NewLocal(runner, root, 1, testLogger())

	deep := filepath.Join("a", "b", "c", "repo")
	_, err := shallow.Init(context.Background(), deep, "")
	require.NoError(t, err)

	repos, err := shallow.Repositories(context.Background())
	require.NoError(t, err)
	assert.Empty(t, repos, "repository below the depth bound must not be reported")
}
