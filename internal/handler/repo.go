package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/gitmap/internal/apperror"
	"github.com/sakif/gitmap/internal/auth"
	"github.com/sakif/gitmap/internal/service"
)

// RepoHandler serves repository CRUD. All routes sit behind RequireAuth,
// so the user is always present in the request context.
type RepoHandler struct {
	repos *service.RepoService
}

// NewRepoHandler creates a RepoHandler.
func NewRepoHandler(repos *service.RepoService) *RepoHandler {
	return &RepoHandler{repos: repos}
}

type createRepoRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPrivate   bool   `json:"isPrivate"`
}

// updateRepoRequest uses pointers so absent fields are distinguishable
// from explicit zero values: a PUT without "description" leaves it alone.
type updateRepoRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsPrivate   *bool   `json:"isPrivate"`
}

// repoID pulls the {id} URL parameter as an int64.
func repoID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, apperror.ValidationFailed("id", "Repository id must be a number")
	}
	return id, nil
}

// HandleList returns the caller's repositories, newest first.
//
// GET /api/repositories
func (h *RepoHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("No token provided"))
		return
	}

	repos, err := h.repos.List(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, repos)
}

// HandleCreate makes a repository.
//
// POST /api/repositories
func (h *RepoHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("No token provided"))
		return
	}

	var req createRepoRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	repo, err := h.repos.Create(r.Context(), user, req.Name, req.Description, req.IsPrivate)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success":    true,
		"repository": repo,
		"message":    "Repository created successfully",
	})
}

// HandleGet returns one repository.
//
// GET /api/repositories/{id}
func (h *RepoHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("No token provided"))
		return
	}

	id, err := repoID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	repo, err := h.repos.Get(r.Context(), user, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, repo)
}

// HandleUpdate changes name, description, or visibility.
//
// PUT /api/repositories/{id}
func (h *RepoHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("No token provided"))
		return
	}

	id, err := repoID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req updateRepoRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	repo, err := h.repos.Update(r.Context(), user, id, req.Name, req.Description, req.IsPrivate)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, repo)
}

// HandleDelete removes a repository and its files.
//
// DELETE /api/repositories/{id}
func (h *RepoHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("No token provided"))
		return
	}

	id, err := repoID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.repos.Delete(r.Context(), user, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
