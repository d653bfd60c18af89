package gitops

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sakif/gitmap/internal/apperror"
)

// Local runs git operations against repositories on the server's own
// filesystem. Relative paths resolve under root (normally the home
// directory), mirroring how desktop git clients treat bare names.
type Local struct {
	runner   *Runner
	root     string
	maxDepth int
	logger   *slog.Logger
}

// NewLocal wires a Local. root is the base for relative paths and the scan
// origin; maxDepth bounds how deep Repositories descends below it.
func NewLocal(runner *Runner, root string, maxDepth int, logger *slog.Logger) *Local {
	return &Local{runner: runner, root: root, maxDepth: maxDepth, logger: logger}
}

// PathResult reports a path-producing operation (init, clone).
type PathResult struct {
	Success bool   `json:"success"`
	Path    string `json:"path"`
	Message string `json:"message"`
}

// BranchInfo is one branch in a branch listing.
type BranchInfo struct {
	Name    string `json:"name"`
	Current bool   `json:"current"`
	Commit  string `json:"commit"`
	Message string `json:"message"`
}

// CommitInfo is one commit in a history listing.
type CommitInfo struct {
	Hash    string    `json:"hash"`
	Message string    `json:"message"`
	Author  string    `json:"author"`
	Date    time.Time `json:"date"`
}

// resolve turns a caller path into an absolute one under the root when
// relative. Empty paths are rejected before touching the filesystem.
func (l *Local) resolve(repoPath string) (string, error) {
	if strings.TrimSpace(repoPath) == "" {
		return "", apperror.ValidationFailed("repoPath", "Repository path is required")
	}
	if filepath.IsAbs(repoPath) {
		return filepath.Clean(repoPath), nil
	}
	return filepath.Join(l.root, repoPath), nil
}

func hasGitDir(path string) bool {
	info, err := os.Stat(filepath.Join(path, ".git"))
	return err == nil && info.IsDir()
}

// Init creates a directory (if needed), initializes a git repository in it,
// and seeds it with a README committed as the first commit. Calling it on
// an existing repository is a no-op reporting success.
func (l *Local) Init(ctx context.Context, repoPath, description string) (*PathResult, error) {
	full, err := l.resolve(repoPath)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(full, 0o755); err != nil {
		return nil, fmt.Errorf("gitops: creating %s: %w", full, err)
	}

	if hasGitDir(full) {
		return &PathResult{Success: true, Path: full, Message: "Repository already exists"}, nil
	}

	if _, err := l.runner.Run(ctx, full, "init"); err != nil {
		return nil, err
	}

	// Commit identity for the seeded commit. Failures are tolerated since a
	// global config may already cover it.
	if _, err := l.runner.Run(ctx, full, "config", "user.name", "GitMap User"); err != nil {
		l.logger.Debug("git config user.name failed", slog.Any("error", err))
	}
	if _, err := l.runner.Run(ctx, full, "config", "user.email", "gitmap@example.com"); err != nil {
		l.logger.Debug("git config user.email failed", slog.Any("error", err))
	}

	readme := readmeContent(filepath.Base(full), description)
	if err := os.WriteFile(filepath.Join(full, "README.md"), []byte(readme), 0o644); err != nil {
		return nil, fmt.Errorf("gitops: writing README: %w", err)
	}

	if _, err := l.runner.Run(ctx, full, "add", "README.md"); err != nil {
		return nil, err
	}
	if _, err := l.runner.Run(ctx, full, "commit", "-m", "Initial commit: Add README"); err != nil {
		return nil, err
	}

	l.logger.Info("repository initialized", slog.String("path", full))
	return &PathResult{Success: true, Path: full, Message: "Repository created successfully"}, nil
}

// Clone clones url into targetPath, defaulting the target to the URL's
// base name under the root. A target that already holds a repository is
// reported as existing rather than an error.
func (l *Local) Clone(ctx context.Context, url, targetPath string) (*PathResult, error) {
	if strings.TrimSpace(url) == "" {
		return nil, apperror.ValidationFailed("url", "Repository URL is required")
	}

	var full string
	if targetPath != "" {
		var err error
		if full, err = l.resolve(targetPath); err != nil {
			return nil, err
		}
	} else {
		name := strings.TrimSuffix(filepath.Base(url), ".git")
		full = filepath.Join(l.root, name)
	}

	if hasGitDir(full) {
		return &PathResult{Success: true, Path: full, Message: "Repository already exists"}, nil
	}

	if _, err := l.runner.Run(ctx, l.root, "clone", url, full); err != nil {
		return nil, err
	}

	l.logger.Info("repository cloned", slog.String("url", url), slog.String("path", full))
	return &PathResult{Success: true, Path: full, Message: "Repository cloned successfully"}, nil
}

// Add stages the given files, or everything when the list is empty.
func (l *Local) Add(ctx context.Context, repoPath string, files []string) error {
	full, err := l.resolve(repoPath)
	if err != nil {
		return err
	}
	args := append([]string{"add"}, files...)
	if len(files) == 0 {
		args = append(args, ".")
	}
	_, err = l.runner.Run(ctx, full, args...)
	return err
}

// Commit records staged changes with the given message.
func (l *Local) Commit(ctx context.Context, repoPath, message string) error {
	full, err := l.resolve(repoPath)
	if err != nil {
		return err
	}
	if strings.TrimSpace(message) == "" {
		return apperror.ValidationFailed("message", "Commit message is required")
	}
	_, err = l.runner.Run(ctx, full, "commit", "-m", message)
	return err
}

// Push pushes the current branch to its configured remote.
func (l *Local) Push(ctx context.Context, repoPath string) error {
	full, err := l.resolve(repoPath)
	if err != nil {
		return err
	}
	_, err = l.runner.Run(ctx, full, "push")
	return err
}

// Pull pulls from the configured remote.
func (l *Local) Pull(ctx context.Context, repoPath string) error {
	full, err := l.resolve(repoPath)
	if err != nil {
		return err
	}
	_, err = l.runner.Run(ctx, full, "pull")
	return err
}

// Fetch fetches from the configured remote.
func (l *Local) Fetch(ctx context.Context, repoPath string) error {
	full, err := l.resolve(repoPath)
	if err != nil {
		return err
	}
	_, err = l.runner.Run(ctx, full, "fetch")
	return err
}

// Checkout switches to an existing branch.
func (l *Local) Checkout(ctx context.Context, repoPath, branch string) error {
	full, err := l.resolve(repoPath)
	if err != nil {
		return err
	}
	if strings.TrimSpace(branch) == "" {
		return apperror.ValidationFailed("branch", "Branch name is required")
	}
	_, err = l.runner.Run(ctx, full, "checkout", branch)
	return err
}

// CreateBranch creates a branch and switches to it.
func (l *Local) CreateBranch(ctx context.Context, repoPath, branch string) error {
	full, err := l.resolve(repoPath)
	if err != nil {
		return err
	}
	if strings.TrimSpace(branch) == "" {
		return apperror.ValidationFailed("branch", "Branch name is required")
	}
	_, err = l.runner.Run(ctx, full, "checkout", "-b", branch)
	return err
}

// DeleteBranch deletes a fully merged local branch.
func (l *Local) DeleteBranch(ctx context.Context, repoPath, branch string) error {
	full, err := l.resolve(repoPath)
	if err != nil {
		return err
	}
	if strings.TrimSpace(branch) == "" {
		return apperror.ValidationFailed("branch", "Branch name is required")
	}
	_, err = l.runner.Run(ctx, full, "branch", "-d", branch)
	return err
}

// Branches lists local branches, flagging the current one.
func (l *Local) Branches(ctx context.Context, repoPath string) ([]BranchInfo, error) {
	full, err := l.resolve(repoPath)
	if err != nil {
		return nil, err
	}

	out, err := l.runner.Run(ctx, full, "branch", "--format=%(refname:short)%09%(objectname:short)%09%(subject)")
	if err != nil {
		return nil, err
	}

	current, err := l.runner.Run(ctx, full, "symbolic-ref", "--short", "HEAD")
	if err != nil {
		current = ""
	}

	branches := []BranchInfo{}
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 3)
		info := BranchInfo{Name: parts[0], Current: parts[0] == current}
		if len(parts) > 1 {
			info.Commit = parts[1]
		}
		if len(parts) > 2 {
			info.Message = parts[2]
		}
		branches = append(branches, info)
	}
	return branches, nil
}

// Commits returns the most recent commits, newest first. count defaults
// to 10 when zero or negative.
func (l *Local) Commits(ctx context.Context, repoPath string, count int) ([]CommitInfo, error) {
	full, err := l.resolve(repoPath)
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		count = 10
	}

	out, err := l.runner.Run(ctx, full, "log", "-n", strconv.Itoa(count), "--pretty=format:"+logFormat)
	if err != nil {
		return nil, err
	}

	commits := []CommitInfo{}
	for _, entry := range parseLog(out) {
		commits = append(commits, CommitInfo{
			Hash:    entry.Hash,
			Message: entry.Message,
			Author:  entry.Author,
			Date:    entry.Date,
		})
	}
	return commits, nil
}

// Status reports the working tree state of a repository on disk.
func (l *Local) Status(ctx context.Context, repoPath string) (*Status, error) {
	full, err := l.resolve(repoPath)
	if err != nil {
		return nil, err
	}
	return readStatus(ctx, l.runner, full)
}

// Repositories walks the root looking for git repositories. The walk is
// depth-bounded and honors context cancellation, so a huge or cyclic home
// directory cannot hang the request. Hidden directories are skipped; a
// .git directory marks its parent as a repository and ends descent there.
func (l *Local) Repositories(ctx context.Context) ([]string, error) {
	repos := []string{}
	if err := l.scan(ctx, l.root, 0, &repos); err != nil {
		return nil, err
	}
	return repos, nil
}

func (l *Local) scan(ctx context.Context, dir string, depth int, repos *[]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth > l.maxDepth {
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		// Unreadable directories are skipped, not fatal.
		return nil
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if name == ".git" {
			*repos = append(*repos, dir)
			return nil
		}
		if strings.HasPrefix(name, ".") {
			continue
		}
		if err := l.scan(ctx, filepath.Join(dir, name), depth+1, repos); err != nil {
			return err
		}
	}
	return nil
}

// readmeContent renders the README seeded into newly initialized
// repositories.
func readmeContent(repoName, description string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", repoName)
	if description != "" {
		fmt.Fprintf(&b, "\n%s\n", description)
	}
	b.WriteString(`
This repository was created with GitMap.

## Getting Started

This is a new Git repository. Start by adding some files and making your first commit.

` + "```bash" + `
# Add files to staging
git add .

# Make your first commit
git commit -m "Initial commit"
` + "```" + `
`)
	return b.String()
}
