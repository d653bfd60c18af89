package gitops

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/gitmap/internal/model"
	"github.com/sakif/gitmap/internal/registry"
)

// DefaultCommitMessage is used when an operation commits without an
// explicit message.
const DefaultCommitMessage = "Update files via GitMap"

// Engine actions. Anything else falls through to a generic materialize-only
// response.
const (
	ActionStatus = "status"
	ActionCommit = "commit"
	ActionPush   = "push"
	ActionPull   = "pull"
	ActionLog    = "log"
	ActionBranch = "branch"
)

// Engine answers git questions about database-backed repositories. Every
// operation builds the working tree fresh from the repository's file rows
// in a temp directory, runs git there, and removes the directory before
// returning. Nothing persists between calls; the database rows stay the
// single source of truth.
//
// Push and pull are simulated against the row store. There is no real
// remote behind the advertised git URL, so push bumps the repository's
// updated_at and pull re-reads the rows.
type Engine struct {
	repos  registry.Repositories
	files  registry.Files
	runner *Runner
	logger *slog.Logger
}

// NewEngine wires an Engine.
func NewEngine(repos registry.Repositories, files registry.Files, runner *Runner, logger *slog.Logger) *Engine {
	return &Engine{repos: repos, files: files, runner: runner, logger: logger}
}

// LogEntry is one commit in an operation's log output.
type LogEntry struct {
	Hash    string    `json:"hash"`
	Message string    `json:"message"`
	Author  string    `json:"author"`
	Email   string    `json:"email"`
	Date    time.Time `json:"date"`
}

// OperationResult is the engine's answer. Fields are populated per action;
// the zero fields are omitted from the JSON.
type OperationResult struct {
	Success  bool                   `json:"success"`
	Message  string                 `json:"message,omitempty"`
	Status   *Status                `json:"status,omitempty"`
	Files    []model.RepositoryFile `json:"files,omitempty"`
	Log      []LogEntry             `json:"log,omitempty"`
	Branches []string               `json:"branches,omitempty"`
	Current  string                 `json:"current,omitempty"`
	GitURL   string                 `json:"gitUrl,omitempty"`
}

// Operate runs one action against the user's repository. Unknown or
// unowned repository ids come back as not-found before any filesystem work
// happens.
func (e *Engine) Operate(ctx context.Context, user *model.User, repoID int64, action, commitMessage string) (*OperationResult, error) {
	repo, err := e.repos.RepositoryForUser(ctx, repoID, user.ID)
	if err != nil {
		return nil, err
	}

	files, err := e.files.FilesForRepository(ctx, repoID)
	if err != nil {
		return nil, err
	}

	ws, err := newWorkspace(repo.ID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := ws.Close(); err != nil {
			e.logger.Warn("workspace cleanup failed", slog.String("dir", ws.dir), slog.Any("error", err))
		}
	}()

	committed, err := e.materialize(ctx, ws, user, files, commitMessage)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("git operation",
		slog.String("action", action),
		slog.Int64("repoID", repo.ID),
		slog.Int("files", len(files)),
		slog.Bool("committed", committed),
	)

	switch action {
	case ActionStatus:
		status, err := readStatus(ctx, e.runner, ws.dir)
		if err != nil {
			return nil, err
		}
		return &OperationResult{Success: true, Status: status, Files: files}, nil

	case ActionCommit:
		if !committed {
			return &OperationResult{Success: true, Message: "No changes to commit"}, nil
		}
		return &OperationResult{Success: true, Message: "Changes committed successfully"}, nil

	case ActionPush:
		if err := e.repos.TouchRepository(ctx, repo.ID); err != nil {
			return nil, err
		}
		return &OperationResult{
			Success: true,
			Message: "Changes pushed successfully (simulated)",
			GitURL:  repo.GitURL,
		}, nil

	case ActionPull:
		return &OperationResult{
			Success: true,
			Message: "Repository pulled successfully (simulated)",
			Files:   files,
		}, nil

	case ActionLog:
		entries, err := e.readLog(ctx, ws.dir)
		if err != nil {
			return nil, err
		}
		return &OperationResult{Success: true, Log: entries}, nil

	case ActionBranch:
		branches, current, err := e.readBranches(ctx, ws.dir)
		if err != nil {
			return nil, err
		}
		return &OperationResult{Success: true, Branches: branches, Current: current}, nil

	default:
		return &OperationResult{Success: true, Message: "Git operation completed", Files: files}, nil
	}
}

// materialize initializes the snapshot working tree, writes the file rows
// into it, and makes the single snapshot commit when there is anything to
// commit. Reports whether a commit was made.
func (e *Engine) materialize(ctx context.Context, ws *workspace, user *model.User, files []model.RepositoryFile, commitMessage string) (bool, error) {
	if _, err := e.runner.Run(ctx, ws.dir, "init"); err != nil {
		return false, err
	}

	name := user.Username
	if name == "" {
		name = "GitMap User"
	}
	email := user.Email
	if email == "" {
		email = "user@gitmap.local"
	}
	if _, err := e.runner.Run(ctx, ws.dir, "config", "user.name", name); err != nil {
		return false, err
	}
	if _, err := e.runner.Run(ctx, ws.dir, "config", "user.email", email); err != nil {
		return false, err
	}

	for _, f := range files {
		if err := ws.WriteFile(f.FilePath, f.FileName, f.FileContent); err != nil {
			return false, err
		}
	}

	if _, err := e.runner.Run(ctx, ws.dir, "add", "."); err != nil {
		return false, err
	}

	status, err := readStatus(ctx, e.runner, ws.dir)
	if err != nil {
		return false, err
	}
	if status.Clean() {
		return false, nil
	}

	if commitMessage == "" {
		commitMessage = DefaultCommitMessage
	}
	if _, err := e.runner.Run(ctx, ws.dir, "commit", "-m", commitMessage); err != nil {
		return false, fmt.Errorf("gitops: snapshot commit: %w", err)
	}
	return true, nil
}

// logFormat renders one commit per line with unit separators between
// fields: hash, author name, author email, strict ISO date, subject.
const logFormat = "%H%x1f%an%x1f%ae%x1f%aI%x1f%s"

func (e *Engine) readLog(ctx context.Context, dir string) ([]LogEntry, error) {
	out, err := e.runner.Run(ctx, dir, "log", "--pretty=format:"+logFormat)
	if err != nil {
		// A snapshot with no file rows has no commits, and git log fails
		// on a repository without HEAD. That is an empty log, not an error.
		return []LogEntry{}, nil
	}
	return parseLog(out), nil
}

func parseLog(out string) []LogEntry {
	entries := []LogEntry{}
	for _, line := range strings.Split(out, "\n") {
		parts := strings.Split(line, "\x1f")
		if len(parts) != 5 {
			continue
		}
		date, _ := time.Parse(time.RFC3339, parts[3])
		entries = append(entries, LogEntry{
			Hash:    parts[0],
			Author:  parts[1],
			Email:   parts[2],
			Date:    date,
			Message: parts[4],
		})
	}
	return entries
}

func (e *Engine) readBranches(ctx context.Context, dir string) ([]string, string, error) {
	out, err := e.runner.Run(ctx, dir, "branch", "--format=%(refname:short)")
	if err != nil {
		return nil, "", err
	}

	branches := []string{}
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			branches = append(branches, line)
		}
	}

	// symbolic-ref answers even on an unborn branch, where `git branch`
	// lists nothing yet.
	current, err := e.runner.Run(ctx, dir, "symbolic-ref", "--short", "HEAD")
	if err != nil {
		current = ""
	}
	return branches, current, nil
}
