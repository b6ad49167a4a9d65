// Package memory implements an in-process Store for single-user sessions and
// tests. Nothing is persisted; a process restart starts from an empty store.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/cauldron/pkg/types"
)

var _ types.Store = (*Store)(nil)

// Store keeps elements and recipes in maps guarded by a single mutex.
// Transact holds the mutex for the whole unit of work.
type Store struct {
	mu       sync.Mutex
	attached bool

	elements []*types.Element
	byKey    map[string]*types.Element
	byID     map[string]*types.Element

	recipes []*recipeRow
	byPair  map[pairKey]*recipeRow

	now func() time.Time
}

type pairKey struct{ a, b string }

type recipeRow struct {
	id         string
	pair       pairKey
	resultID   string
	discoverer string
	createdAt  time.Time
}

// NewStore creates an unattached memory store.
func NewStore() *Store {
	return &Store{now: time.Now}
}

// Attach implements types.Store.
func (s *Store) Attach(config types.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}
	s.elements = nil
	s.byKey = make(map[string]*types.Element)
	s.byID = make(map[string]*types.Element)
	s.recipes = nil
	s.byPair = make(map[pairKey]*recipeRow)
	s.attached = true
	return nil
}

// Detach implements types.Store. Contents are discarded.
func (s *Store) Detach() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attached = false
	return nil
}

// FindElementByName implements types.Store.
func (s *Store) FindElementByName(ctx context.Context, name string) (*types.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	return (&view{s}).FindElementByName(ctx, name)
}

// CreateElement implements types.Store.
func (s *Store) CreateElement(ctx context.Context, name, emoji string) (*types.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	return (&view{s}).CreateElement(ctx, name, emoji)
}

// FindRecipeByPair implements types.Store.
func (s *Store) FindRecipeByPair(ctx context.Context, idA, idB string) (*types.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	return (&view{s}).FindRecipeByPair(ctx, idA, idB)
}

// CreateRecipe implements types.Store.
func (s *Store) CreateRecipe(ctx context.Context, idA, idB, resultID, discoverer string) (*types.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	return (&view{s}).CreateRecipe(ctx, idA, idB, resultID, discoverer)
}

// ListElements implements types.Store.
func (s *Store) ListElements(ctx context.Context) ([]*types.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	out := make([]*types.Element, len(s.elements))
	for i, e := range s.elements {
		cp := *e
		out[i] = &cp
	}
	return out, nil
}

// ListRecipes implements types.Store.
func (s *Store) ListRecipes(ctx context.Context) ([]*types.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	out := make([]*types.Recipe, 0, len(s.recipes))
	for i := len(s.recipes) - 1; i >= 0; i-- {
		out = append(out, s.hydrate(s.recipes[i]))
	}
	return out, nil
}

// Transact implements types.Store. Elements and recipes created by fn are
// removed again if fn fails.
func (s *Store) Transact(ctx context.Context, fn func(tx types.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}

	nElements, nRecipes := len(s.elements), len(s.recipes)
	if err := fn(&view{s}); err != nil {
		s.rollback(nElements, nRecipes)
		return err
	}
	return nil
}

// rollback truncates the creation logs to the given lengths.
func (s *Store) rollback(nElements, nRecipes int) {
	for _, e := range s.elements[nElements:] {
		delete(s.byKey, e.Key())
		delete(s.byID, e.ElementID)
	}
	s.elements = s.elements[:nElements]

	for _, r := range s.recipes[nRecipes:] {
		delete(s.byPair, r.pair)
	}
	s.recipes = s.recipes[:nRecipes]
}

// check reports whether the store can serve a request. Caller holds s.mu.
func (s *Store) check(ctx context.Context) error {
	if !s.attached {
		return types.ErrStoreDetached
	}
	return ctx.Err()
}

func (s *Store) hydrate(r *recipeRow) *types.Recipe {
	return &types.Recipe{
		RecipeID:   r.id,
		ElementA:   *s.byID[r.pair.a],
		ElementB:   *s.byID[r.pair.b],
		Result:     *s.byID[r.resultID],
		Discoverer: r.discoverer,
		CreatedAt:  r.createdAt,
	}
}

// view implements types.Tx on a store whose mutex is already held.
type view struct {
	s *Store
}

func (v *view) FindElementByName(_ context.Context, name string) (*types.Element, error) {
	e, ok := v.s.byKey[types.NameKey(name)]
	if !ok {
		return nil, types.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (v *view) CreateElement(_ context.Context, name, emoji string) (*types.Element, error) {
	if err := types.ValidateElementName(name); err != nil {
		return nil, err
	}
	if emoji == "" {
		return nil, types.ErrInvalidData
	}
	name = types.NormalizeElementName(name)
	key := types.NameKey(name)
	if _, ok := v.s.byKey[key]; ok {
		return nil, types.ErrDuplicateName
	}

	e := &types.Element{
		ElementID: newUUID(),
		Name:      name,
		Emoji:     emoji,
		CreatedAt: v.s.now().UTC(),
	}
	v.s.elements = append(v.s.elements, e)
	v.s.byKey[key] = e
	v.s.byID[e.ElementID] = e

	cp := *e
	return &cp, nil
}

func (v *view) FindRecipeByPair(_ context.Context, idA, idB string) (*types.Recipe, error) {
	a, b := types.SortPair(idA, idB)
	r, ok := v.s.byPair[pairKey{a, b}]
	if !ok {
		return nil, types.ErrNotFound
	}
	return v.s.hydrate(r), nil
}

func (v *view) CreateRecipe(_ context.Context, idA, idB, resultID, discoverer string) (*types.Recipe, error) {
	for _, id := range []string{idA, idB, resultID} {
		if _, ok := v.s.byID[id]; !ok {
			return nil, types.ErrNotFound
		}
	}
	a, b := types.SortPair(idA, idB)
	pk := pairKey{a, b}
	if _, ok := v.s.byPair[pk]; ok {
		return nil, types.ErrDuplicatePair
	}

	r := &recipeRow{
		id:         newUUID(),
		pair:       pk,
		resultID:   resultID,
		discoverer: discoverer,
		createdAt:  v.s.now().UTC(),
	}
	v.s.recipes = append(v.s.recipes, r)
	v.s.byPair[pk] = r
	return v.s.hydrate(r), nil
}

// newUUID generates a UUID v7 string.
func newUUID() string {
	return uuid.Must(uuid.NewV7()).String()
}
