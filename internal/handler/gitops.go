package handler

import (
	"net/http"

	"github.com/sakif/gitmap/internal/apperror"
	"github.com/sakif/gitmap/internal/auth"
	"github.com/sakif/gitmap/internal/gitops"
)

// GitOpsHandler serves snapshot operations on database-backed
// repositories.
type GitOpsHandler struct {
	engine *gitops.Engine
}

// NewGitOpsHandler creates a GitOpsHandler.
func NewGitOpsHandler(engine *gitops.Engine) *GitOpsHandler {
	return &GitOpsHandler{engine: engine}
}

type gitOpsRequest struct {
	Action        string `json:"action"`
	RepositoryID  int64  `json:"repositoryId"`
	CommitMessage string `json:"commitMessage"`
}

// HandleOperate runs one git action against the caller's repository.
//
// POST /api/git-operations
func (h *GitOpsHandler) HandleOperate(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("No token provided"))
		return
	}

	var req gitOpsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.RepositoryID == 0 {
		writeError(w, apperror.ValidationFailed("repositoryId", "Repository id is required"))
		return
	}

	result, err := h.engine.Operate(r.Context(), user, req.RepositoryID, req.Action, req.CommitMessage)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
