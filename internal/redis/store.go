// Package redis implements a shared Store on Redis so several cauldron
// processes can play in one world. Writes are buffered per unit of work and
// committed with WATCH/MULTI/EXEC; new recipes are announced on a Pub/Sub
// channel.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/mesh-intelligence/cauldron/pkg/types"
)

// commitAttempts bounds how often an aborted EXEC is re-checked and retried.
const commitAttempts = 5

var (
	_ types.Store         = (*Store)(nil)
	_ types.DiscoveryFeed = (*Store)(nil)
)

// Store implements types.Store on a Redis server.
// The store is thread-safe and can be used concurrently from multiple goroutines.
type Store struct {
	mu        sync.RWMutex
	attached  bool
	rdb       *goredis.Client
	namespace string
	timeout   time.Duration
	now       func() time.Time
}

// NewStore creates an unattached Redis store.
func NewStore() *Store {
	return &Store{now: time.Now}
}

// Attach connects to config.Redis.Addr and verifies connectivity with PING.
// Returns ErrAlreadyAttached if already attached.
func (s *Store) Attach(config types.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}
	if config.Redis.Addr == "" {
		return types.ErrRedisAddrEmpty
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:     config.Redis.Addr,
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), config.GetTimeout())
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return fmt.Errorf("connecting to redis at %s: %w", config.Redis.Addr, err)
	}

	s.rdb = rdb
	s.namespace = config.Redis.GetNamespace()
	s.timeout = config.GetTimeout()
	s.attached = true
	return nil
}

// Detach closes the Redis connection. Idempotent.
func (s *Store) Detach() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.attached {
		return nil
	}
	s.attached = false
	err := s.rdb.Close()
	s.rdb = nil
	return err
}

// begin read-locks the store and applies the per-operation timeout. The
// returned release func must be called when the operation finishes.
func (s *Store) begin(ctx context.Context) (context.Context, func(), error) {
	s.mu.RLock()
	if !s.attached {
		s.mu.RUnlock()
		return nil, nil, types.ErrStoreDetached
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	return ctx, func() {
		cancel()
		s.mu.RUnlock()
	}, nil
}

// FindElementByName implements types.Store.
func (s *Store) FindElementByName(ctx context.Context, name string) (*types.Element, error) {
	ctx, release, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return s.elementByKey(ctx, types.NameKey(name))
}

// CreateElement implements types.Store.
func (s *Store) CreateElement(ctx context.Context, name, emoji string) (*types.Element, error) {
	var e *types.Element
	err := s.Transact(ctx, func(tx types.Tx) error {
		var err error
		e, err = tx.CreateElement(ctx, name, emoji)
		return err
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// FindRecipeByPair implements types.Store.
func (s *Store) FindRecipeByPair(ctx context.Context, idA, idB string) (*types.Recipe, error) {
	ctx, release, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	a, b := types.SortPair(idA, idB)
	return s.recipeByKey(ctx, RecipeKey(s.namespace, a, b), nil)
}

// CreateRecipe implements types.Store.
func (s *Store) CreateRecipe(ctx context.Context, idA, idB, resultID, discoverer string) (*types.Recipe, error) {
	var r *types.Recipe
	err := s.Transact(ctx, func(tx types.Tx) error {
		var err error
		r, err = tx.CreateRecipe(ctx, idA, idB, resultID, discoverer)
		return err
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListElements implements types.Store.
func (s *Store) ListElements(ctx context.Context) ([]*types.Element, error) {
	ctx, release, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	keys, err := s.rdb.LRange(ctx, ElementsKey(s.namespace), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("listing elements: %w", err)
	}

	pipe := s.rdb.Pipeline()
	cmds := make([]*goredis.MapStringStringCmd, len(keys))
	for i, k := range keys {
		cmds[i] = pipe.HGetAll(ctx, ElementKey(s.namespace, k))
	}
	if len(keys) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, fmt.Errorf("reading elements: %w", err)
		}
	}

	out := make([]*types.Element, 0, len(keys))
	for i, cmd := range cmds {
		e, err := hashToElement(cmd.Val())
		if err != nil {
			return nil, fmt.Errorf("element %q: %w", keys[i], err)
		}
		out = append(out, e)
	}
	return out, nil
}

// ListRecipes implements types.Store.
func (s *Store) ListRecipes(ctx context.Context) ([]*types.Recipe, error) {
	ctx, release, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	keys, err := s.rdb.LRange(ctx, RecipesKey(s.namespace), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("listing recipes: %w", err)
	}
	cache := make(map[string]*types.Element)
	out := make([]*types.Recipe, 0, len(keys))
	for _, k := range keys {
		r, err := s.recipeByKey(ctx, k, cache)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Transact implements types.Store. Writes made by fn are buffered and
// committed together only if fn returns nil. Keys claimed by another writer
// between fn and the commit surface as ErrDuplicateName or ErrDuplicatePair.
func (s *Store) Transact(ctx context.Context, fn func(tx types.Tx) error) error {
	ctx, release, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer release()

	t := newTxn(s)
	if err := fn(t); err != nil {
		return err
	}
	if t.empty() {
		return nil
	}
	if err := s.commit(ctx, t); err != nil {
		return err
	}
	s.publish(ctx, t.recipes)
	return nil
}

// commit writes the buffered elements and recipes in one MULTI/EXEC guarded
// by WATCH on every key it creates.
func (s *Store) commit(ctx context.Context, t *txn) error {
	ns := s.namespace
	watched := t.keys()

	for range commitAttempts {
		err := s.rdb.Watch(ctx, func(rtx *goredis.Tx) error {
			for _, e := range t.elements {
				n, err := rtx.Exists(ctx, ElementKey(ns, e.Key())).Result()
				if err != nil {
					return err
				}
				if n > 0 {
					return types.ErrDuplicateName
				}
			}
			for _, r := range t.recipes {
				n, err := rtx.Exists(ctx, RecipeKey(ns, r.ElementA.ElementID, r.ElementB.ElementID)).Result()
				if err != nil {
					return err
				}
				if n > 0 {
					return types.ErrDuplicatePair
				}
			}

			_, err := rtx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
				for _, e := range t.elements {
					pipe.HSet(ctx, ElementKey(ns, e.Key()), elementToHash(e))
					pipe.HSet(ctx, ElementIDsKey(ns), e.ElementID, e.Key())
					pipe.RPush(ctx, ElementsKey(ns), e.Key())
				}
				for _, r := range t.recipes {
					key := RecipeKey(ns, r.ElementA.ElementID, r.ElementB.ElementID)
					pipe.HSet(ctx, key, recipeToHash(r))
					pipe.LPush(ctx, RecipesKey(ns), key)
				}
				return nil
			})
			return err
		}, watched...)

		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		if err != nil && !isDomainError(err) {
			return fmt.Errorf("committing to redis: %w", err)
		}
		return err
	}
	return fmt.Errorf("committing to redis after %d attempts: %w", commitAttempts, goredis.TxFailedErr)
}

func isDomainError(err error) bool {
	return errors.Is(err, types.ErrDuplicateName) || errors.Is(err, types.ErrDuplicatePair)
}

// elementByKey reads one element hash. Returns ErrNotFound if it is absent.
func (s *Store) elementByKey(ctx context.Context, nameKey string) (*types.Element, error) {
	h, err := s.rdb.HGetAll(ctx, ElementKey(s.namespace, nameKey)).Result()
	if err != nil {
		return nil, fmt.Errorf("reading element: %w", err)
	}
	if len(h) == 0 {
		return nil, types.ErrNotFound
	}
	return hashToElement(h)
}

// elementByID resolves an element ID through the ID index. cache may be nil.
func (s *Store) elementByID(ctx context.Context, id string, cache map[string]*types.Element) (*types.Element, error) {
	if e, ok := cache[id]; ok {
		return e, nil
	}
	nameKey, err := s.rdb.HGet(ctx, ElementIDsKey(s.namespace), id).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolving element %s: %w", id, err)
	}
	e, err := s.elementByKey(ctx, nameKey)
	if err != nil {
		return nil, err
	}
	if cache != nil {
		cache[id] = e
	}
	return e, nil
}

// recipeByKey reads one recipe hash and its elements. cache may be nil.
func (s *Store) recipeByKey(ctx context.Context, key string, cache map[string]*types.Element) (*types.Recipe, error) {
	h, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("reading recipe: %w", err)
	}
	if len(h) == 0 {
		return nil, types.ErrNotFound
	}
	r, err := hashToRecipe(h)
	if err != nil {
		return nil, fmt.Errorf("recipe %s: %w", key, err)
	}

	for _, ref := range []struct {
		id  string
		dst *types.Element
	}{
		{h[fieldElementA], &r.ElementA},
		{h[fieldElementB], &r.ElementB},
		{h[fieldResult], &r.Result},
	} {
		e, err := s.elementByID(ctx, ref.id, cache)
		if err != nil {
			return nil, fmt.Errorf("recipe %s: %w", key, err)
		}
		*ref.dst = *e
	}
	return r, nil
}

// newUUID generates a UUID v7 string.
func newUUID() string {
	return uuid.Must(uuid.NewV7()).String()
}
