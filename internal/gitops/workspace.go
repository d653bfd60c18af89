package gitops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/gitmap/internal/apperror"
)

// workspace is a throwaway directory holding one materialized working tree.
// The xid suffix keeps concurrent operations on the same repository from
// colliding under the shared temp root.
type workspace struct {
	dir string
}

// newWorkspace creates the temp directory for one engine operation.
func newWorkspace(repoID int64) (*workspace, error) {
	dir := filepath.Join(os.TempDir(), fmt.Sprintf("gitmap-%d-%s", repoID, xid.New()))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("gitops: creating workspace: %w", err)
	}
	return &workspace{dir: dir}, nil
}

// WriteFile places one file under the workspace, creating parent
// directories as needed. filePath is the repository-relative directory and
// may be "/" for the root. A path whose ".." segments would resolve outside
// the workspace is rejected; everything written here must be removable by
// Close.
func (w *workspace) WriteFile(filePath, fileName, content string) error {
	full := filepath.Join(w.dir, filepath.FromSlash(filePath), fileName)
	if !strings.HasPrefix(full, w.dir+string(os.PathSeparator)) {
		return apperror.ValidationFailed("filePath", "File path escapes the repository root")
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("gitops: creating directory for %s: %w", fileName, err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return fmt.Errorf("gitops: writing %s: %w", fileName, err)
	}
	return nil
}

// Close removes the workspace and everything in it. Safe to defer
// immediately after newWorkspace.
func (w *workspace) Close() error {
	return os.RemoveAll(w.dir)
}
