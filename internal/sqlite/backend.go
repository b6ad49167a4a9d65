// Package sqlite implements the SQLite storage backend for cauldron.
// Elements and recipes live in a single database file under DataDir; unique
// constraints on element name keys and sorted element pairs enforce the
// one-name and one-recipe-per-pair invariants across every process sharing
// the file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/cauldron/pkg/types"
)

// DBFileName is the database file created inside DataDir.
const DBFileName = "cauldron.db"

// busyTimeout is how long SQLite waits on a lock held by another process.
const busyTimeout = 5 * time.Second

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var _ types.Store = (*Backend)(nil)

// Backend implements types.Store on an SQLite database.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	path     string
	timeout  time.Duration
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend() *Backend {
	return &Backend{}
}

// Attach opens (creating if needed) DataDir/cauldron.db and applies the
// schema. Existing data is kept. Returns ErrAlreadyAttached if already
// attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	path := filepath.Join(dataDir, DBFileName)
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	// One connection serializes writers inside this process; busy_timeout
	// covers writers in other processes.
	db.SetMaxOpenConns(1)

	if err := applySchema(db); err != nil {
		db.Close()
		return err
	}

	b.db = db
	b.path = path
	b.config = config
	b.timeout = config.GetTimeout()
	b.attached = true
	return nil
}

// Detach closes the database. Idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	b.attached = false
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}
	return nil
}

// Path returns the database file path of an attached backend.
func (b *Backend) Path() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.path
}

// dsn builds a modernc.org/sqlite connection string with the pragmas every
// connection needs.
func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeout.Milliseconds()))
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Set("_txlock", "immediate")
	return "file:" + path + "?" + q.Encode()
}

func applySchema(db *sql.DB) error {
	for _, ddl := range schemaDDL {
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	for _, ddl := range indexDDL {
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("creating index: %w", err)
		}
	}
	return nil
}

// begin read-locks the backend and applies the per-operation timeout. The
// returned release func must be called when the operation finishes.
func (b *Backend) begin(ctx context.Context) (context.Context, func(), error) {
	b.mu.RLock()
	if !b.attached {
		b.mu.RUnlock()
		return nil, nil, types.ErrStoreDetached
	}
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	return ctx, func() {
		cancel()
		b.mu.RUnlock()
	}, nil
}

// FindElementByName implements types.Store.
func (b *Backend) FindElementByName(ctx context.Context, name string) (*types.Element, error) {
	ctx, release, err := b.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return (&ops{q: b.db}).FindElementByName(ctx, name)
}

// CreateElement implements types.Store.
func (b *Backend) CreateElement(ctx context.Context, name, emoji string) (*types.Element, error) {
	ctx, release, err := b.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return (&ops{q: b.db}).CreateElement(ctx, name, emoji)
}

// FindRecipeByPair implements types.Store.
func (b *Backend) FindRecipeByPair(ctx context.Context, idA, idB string) (*types.Recipe, error) {
	ctx, release, err := b.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return (&ops{q: b.db}).FindRecipeByPair(ctx, idA, idB)
}

// CreateRecipe implements types.Store.
func (b *Backend) CreateRecipe(ctx context.Context, idA, idB, resultID, discoverer string) (*types.Recipe, error) {
	ctx, release, err := b.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	var r *types.Recipe
	err = b.transact(ctx, func(tx types.Tx) error {
		var err error
		r, err = tx.CreateRecipe(ctx, idA, idB, resultID, discoverer)
		return err
	})
	return r, err
}

// ListElements implements types.Store.
func (b *Backend) ListElements(ctx context.Context) ([]*types.Element, error) {
	ctx, release, err := b.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return (&ops{q: b.db}).listElements(ctx)
}

// ListRecipes implements types.Store.
func (b *Backend) ListRecipes(ctx context.Context) ([]*types.Recipe, error) {
	ctx, release, err := b.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return (&ops{q: b.db}).listRecipes(ctx)
}

// Transact implements types.Store. fn runs inside one SQL transaction that
// is committed only if fn returns nil.
func (b *Backend) Transact(ctx context.Context, fn func(tx types.Tx) error) error {
	ctx, release, err := b.begin(ctx)
	if err != nil {
		return err
	}
	defer release()
	return b.transact(ctx, fn)
}

func (b *Backend) transact(ctx context.Context, fn func(tx types.Tx) error) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&ops{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// newUUID generates a UUID v7 string.
func newUUID() string {
	return uuid.Must(uuid.NewV7()).String()
}
