package store

import (
	"fmt"

	"github.com/sakif/gitmap/internal/config"
)

// Open constructs the adapter backend selected by configuration. This is the
// single place backend choice happens; everything downstream holds a Store
// and cannot tell the backends apart.
func Open(cfg config.Config) (Store, error) {
	switch cfg.StorageBackend {
	case config.BackendSQLite:
		return OpenSQLite(cfg.DBPath, cfg.GitURLHost)
	case config.BackendMemory:
		return NewMemory(), nil
	case config.BackendRemote:
		return NewRemote(cfg.RemoteURL, cfg.RemoteKey), nil
	default:
		return nil, fmt.Errorf("store: unknown backend %q", cfg.StorageBackend)
	}
}
