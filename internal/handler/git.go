package handler

import (
	"net/http"

	"github.com/sakif/gitmap/internal/apperror"
	"github.com/sakif/gitmap/internal/gitops"
)

// GitHandler serves git operations against repositories on the server's
// filesystem. The endpoint is a single action-dispatched POST: one request
// shape in, a per-action response out.
type GitHandler struct {
	local *gitops.Local
}

// NewGitHandler creates a GitHandler.
func NewGitHandler(local *gitops.Local) *GitHandler {
	return &GitHandler{local: local}
}

type gitRequest struct {
	Action      string   `json:"action"`
	RepoPath    string   `json:"repoPath"`
	URL         string   `json:"url"`
	TargetPath  string   `json:"targetPath"`
	Description string   `json:"description"`
	Message     string   `json:"message"`
	Branch      string   `json:"branch"`
	Files       []string `json:"files"`
	Count       int      `json:"count"`
}

// HandleGit dispatches one filesystem git action.
//
// POST /api/git
func (h *GitHandler) HandleGit(w http.ResponseWriter, r *http.Request) {
	var req gitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	ctx := r.Context()
	switch req.Action {
	case "status":
		status, err := h.local.Status(ctx, req.RepoPath)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, status)

	case "init":
		result, err := h.local.Init(ctx, req.RepoPath, req.Description)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)

	case "clone":
		result, err := h.local.Clone(ctx, req.URL, req.TargetPath)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)

	case "add":
		h.simple(w, h.local.Add(ctx, req.RepoPath, req.Files))

	case "commit":
		h.simple(w, h.local.Commit(ctx, req.RepoPath, req.Message))

	case "push":
		h.simple(w, h.local.Push(ctx, req.RepoPath))

	case "pull":
		h.simple(w, h.local.Pull(ctx, req.RepoPath))

	case "fetch":
		h.simple(w, h.local.Fetch(ctx, req.RepoPath))

	case "checkout":
		h.simple(w, h.local.Checkout(ctx, req.RepoPath, req.Branch))

	case "createBranch":
		h.simple(w, h.local.CreateBranch(ctx, req.RepoPath, req.Branch))

	case "deleteBranch":
		h.simple(w, h.local.DeleteBranch(ctx, req.RepoPath, req.Branch))

	case "getBranches":
		branches, err := h.local.Branches(ctx, req.RepoPath)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, branches)

	case "getCommits":
		commits, err := h.local.Commits(ctx, req.RepoPath, req.Count)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, commits)

	case "getRepositories":
		repos, err := h.local.Repositories(ctx)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, repos)

	default:
		writeError(w, apperror.ValidationFailed("action", "Unknown action"))
	}
}

func (h *GitHandler) simple(w http.ResponseWriter, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
