// Package cauldron is the public entry point for embedding the crafting
// engine. It selects and attaches a storage backend from a types.Config
// while keeping the backend implementations internal.
//
// Example:
//
//	store, err := cauldron.Open(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".cauldron-db",
//	})
//	if err != nil {
//	    return err
//	}
//	defer store.Detach()
package cauldron

import (
	"fmt"

	"github.com/mesh-intelligence/cauldron/internal/memory"
	"github.com/mesh-intelligence/cauldron/internal/redis"
	"github.com/mesh-intelligence/cauldron/internal/sqlite"
	"github.com/mesh-intelligence/cauldron/pkg/types"
)

// Version is the cauldron release version.
const Version = "0.1.0"

// NewStore returns an unattached store for the named backend.
// Returns ErrBackendUnknown for unrecognized names.
func NewStore(backend string) (types.Store, error) {
	switch backend {
	case types.BackendSQLite:
		return sqlite.NewBackend(), nil
	case types.BackendRedis:
		return redis.NewStore(), nil
	case types.BackendMemory:
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrBackendUnknown, backend)
	}
}

// Open creates the store named by config.Backend and attaches it. The
// caller must Detach the returned store.
func Open(config types.Config) (types.Store, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	store, err := NewStore(config.Backend)
	if err != nil {
		return nil, err
	}
	if err := store.Attach(config); err != nil {
		return nil, fmt.Errorf("attach %s store: %w", config.Backend, err)
	}
	return store, nil
}
