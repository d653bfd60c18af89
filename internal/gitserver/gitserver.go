// Package gitserver answers git smart-HTTP protocol requests for the URLs
// advertised on repositories.
//
// It is a protocol stub, not a real pack service: the ref advertisement is
// a fixed empty listing and the pack endpoints return empty results with
// the correct content types, which is enough for clients probing the
// advertised URL. Repository contents are served by the API, not by
// git-upload-pack.
package gitserver

import (
	"log/slog"
	"net/http"
	"regexp"
)

// repoPathRe matches `<username>/<repo>.git/<command>` with no empty
// segments. Anything else is an invalid repository path.
var repoPathRe = regexp.MustCompile(`^([^/]+)/([^/]+)\.git/(.+)$`)

// advertisement is the empty ref listing: the service announcement line
// followed by the pkt-line flush.
const advertisement = "# service=git-upload-pack\n0000"

// Handler serves the git smart-HTTP endpoints under a path prefix.
type Handler struct {
	logger *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{logger: logger}
}

// ServeHTTP dispatches on the repository path suffix. The route is mounted
// with a wildcard, so r.URL.Path arrives already stripped of the mount
// prefix by the caller passing the tail through.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.Serve(w, r, r.URL.Path)
}

// Serve handles one smart-HTTP request whose repository path (relative to
// the mount point) is tail.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request, tail string) {
	m := repoPathRe.FindStringSubmatch(tail)
	if m == nil {
		http.Error(w, "Invalid repository path", http.StatusBadRequest)
		return
	}
	username, repo, command := m[1], m[2], m[3]

	h.logger.Debug("git-server request",
		slog.String("method", r.Method),
		slog.String("username", username),
		slog.String("repo", repo),
		slog.String("command", command),
	)

	switch {
	case r.Method == http.MethodGet && command == "info/refs":
		w.Header().Set("Content-Type", "application/x-git-upload-pack-advertisement")
		_, _ = w.Write([]byte(advertisement))

	case r.Method == http.MethodPost && command == "git-upload-pack":
		w.Header().Set("Content-Type", "application/x-git-upload-pack-result")

	case r.Method == http.MethodPost && command == "git-receive-pack":
		w.Header().Set("Content-Type", "application/x-git-receive-pack-result")

	default:
		http.Error(w, "Not implemented", http.StatusNotImplemented)
	}
}
