package handler

import (
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/gitmap/internal/apperror"
	"github.com/sakif/gitmap/internal/auth"
	"github.com/sakif/gitmap/internal/service"
)

// maxUploadBytes caps multipart uploads. File contents live in a database
// column, so this stays far below what a blob store would accept.
const maxUploadBytes = 10 << 20

// FileHandler serves the file routes nested under a repository.
type FileHandler struct {
	repos *service.RepoService
}

// NewFileHandler creates a FileHandler.
func NewFileHandler(repos *service.RepoService) *FileHandler {
	return &FileHandler{repos: repos}
}

type createFileRequest struct {
	FilePath    string `json:"filePath"`
	FileName    string `json:"fileName"`
	FileContent string `json:"fileContent"`
	FileType    string `json:"fileType"`
}

// HandleList returns a repository's files ordered by path then name.
//
// GET /api/repositories/{id}/files
func (h *FileHandler) HandleList(w http.ResponseWriter, r *http.Request) {
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

	files, err := h.repos.ListFiles(r.Context(), user, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, files)
}

// HandleCreate adds a file from a JSON body.
//
// POST /api/repositories/{id}/files
func (h *FileHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
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

	var req createFileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	file, err := h.repos.CreateFile(r.Context(), user, id, req.FilePath, req.FileName, req.FileContent, req.FileType)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"file":    file,
		"message": "File created successfully",
	})
}

// HandleUpload adds a file from a multipart form. The part name is "file";
// an optional "filePath" field places it below the repository root. The
// content type comes from the upload when present, otherwise from the file
// extension.
//
// POST /api/repositories/{id}/files/upload
func (h *FileHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
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

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, apperror.ValidationFailed("file", "Request is not a valid multipart form"))
		return
	}

	part, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, apperror.ValidationFailed("file", "No file provided"))
		return
	}
	defer part.Close()

	content, err := io.ReadAll(io.LimitReader(part, maxUploadBytes))
	if err != nil {
		writeError(w, apperror.ValidationFailed("file", "Could not read uploaded file"))
		return
	}

	filePath := r.FormValue("filePath")
	if filePath == "" {
		filePath = "/"
	}

	fileType := header.Header.Get("Content-Type")
	if fileType == "" || fileType == "application/octet-stream" {
		fileType = fileTypeByExtension(header.Filename)
	}

	file, err := h.repos.CreateFile(r.Context(), user, id, filePath, header.Filename, string(content), fileType)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"file":    file,
		"message": "File uploaded successfully",
	})
}

// HandleDelete removes one file from a repository.
//
// DELETE /api/repositories/{id}/files/{fileID}
func (h *FileHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
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

	fileID, err := strconv.ParseInt(chi.URLParam(r, "fileID"), 10, 64)
	if err != nil {
		writeError(w, apperror.ValidationFailed("fileID", "File id must be a number"))
		return
	}

	if err := h.repos.DeleteFile(r.Context(), user, id, fileID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// sourceTypes maps code file extensions to content types the standard mime
// package does not know.
var sourceTypes = map[string]string{
	".js":    "text/javascript",
	".ts":    "text/typescript",
	".jsx":   "text/jsx",
	".tsx":   "text/tsx",
	".html":  "text/html",
	".htm":   "text/html",
	".css":   "text/css",
	".scss":  "text/scss",
	".sass":  "text/sass",
	".json":  "application/json",
	".md":    "text/markdown",
	".txt":   "text/plain",
	".py":    "text/x-python",
	".java":  "text/x-java-source",
	".cpp":   "text/x-c++src",
	".cc":    "text/x-c++src",
	".cxx":   "text/x-c++src",
	".c":     "text/x-csrc",
	".php":   "text/x-php",
	".rb":    "text/x-ruby",
	".go":    "text/x-go",
	".rs":    "text/x-rust",
	".swift": "text/x-swift",
	".kt":    "text/x-kotlin",
}

func fileTypeByExtension(name string) string {
	if t, ok := sourceTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return t
	}
	return "application/octet-stream"
}
