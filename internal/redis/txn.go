package redis

import (
	"context"

	"github.com/mesh-intelligence/cauldron/pkg/types"
)

// txn implements types.Tx for one Store.Transact call. Creations are held in
// memory until commit and are visible to reads made through the same txn.
type txn struct {
	s *Store

	elements []*types.Element
	byKey    map[string]*types.Element
	byID     map[string]*types.Element

	recipes []*types.Recipe
	byPair  map[[2]string]*types.Recipe
}

func newTxn(s *Store) *txn {
	return &txn{
		s:      s,
		byKey:  make(map[string]*types.Element),
		byID:   make(map[string]*types.Element),
		byPair: make(map[[2]string]*types.Recipe),
	}
}

func (t *txn) empty() bool {
	return len(t.elements) == 0 && len(t.recipes) == 0
}

// keys returns every key the commit creates, for WATCH.
func (t *txn) keys() []string {
	ns := t.s.namespace
	out := make([]string, 0, len(t.elements)+len(t.recipes))
	for _, e := range t.elements {
		out = append(out, ElementKey(ns, e.Key()))
	}
	for _, r := range t.recipes {
		out = append(out, RecipeKey(ns, r.ElementA.ElementID, r.ElementB.ElementID))
	}
	return out
}

func (t *txn) FindElementByName(ctx context.Context, name string) (*types.Element, error) {
	if e, ok := t.byKey[types.NameKey(name)]; ok {
		cp := *e
		return &cp, nil
	}
	return t.s.elementByKey(ctx, types.NameKey(name))
}

func (t *txn) CreateElement(ctx context.Context, name, emoji string) (*types.Element, error) {
	if err := types.ValidateElementName(name); err != nil {
		return nil, err
	}
	if emoji == "" {
		return nil, types.ErrInvalidData
	}
	name = types.NormalizeElementName(name)
	key := types.NameKey(name)

	if _, ok := t.byKey[key]; ok {
		return nil, types.ErrDuplicateName
	}
	n, err := t.s.rdb.Exists(ctx, ElementKey(t.s.namespace, key)).Result()
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, types.ErrDuplicateName
	}

	e := &types.Element{
		ElementID: newUUID(),
		Name:      name,
		Emoji:     emoji,
		CreatedAt: t.s.now().UTC(),
	}
	t.elements = append(t.elements, e)
	t.byKey[key] = e
	t.byID[e.ElementID] = e

	cp := *e
	return &cp, nil
}

func (t *txn) FindRecipeByPair(ctx context.Context, idA, idB string) (*types.Recipe, error) {
	a, b := types.SortPair(idA, idB)
	if r, ok := t.byPair[[2]string{a, b}]; ok {
		cp := *r
		return &cp, nil
	}
	return t.s.recipeByKey(ctx, RecipeKey(t.s.namespace, a, b), nil)
}

func (t *txn) CreateRecipe(ctx context.Context, idA, idB, resultID, discoverer string) (*types.Recipe, error) {
	a, b := types.SortPair(idA, idB)
	elA, err := t.element(ctx, a)
	if err != nil {
		return nil, err
	}
	elB, err := t.element(ctx, b)
	if err != nil {
		return nil, err
	}
	result, err := t.element(ctx, resultID)
	if err != nil {
		return nil, err
	}

	pair := [2]string{a, b}
	if _, ok := t.byPair[pair]; ok {
		return nil, types.ErrDuplicatePair
	}
	n, err := t.s.rdb.Exists(ctx, RecipeKey(t.s.namespace, a, b)).Result()
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, types.ErrDuplicatePair
	}

	r := &types.Recipe{
		RecipeID:   newUUID(),
		ElementA:   *elA,
		ElementB:   *elB,
		Result:     *result,
		Discoverer: discoverer,
		CreatedAt:  t.s.now().UTC(),
	}
	t.recipes = append(t.recipes, r)
	t.byPair[pair] = r

	cp := *r
	return &cp, nil
}

// element resolves an ID against pending creations first, then Redis.
func (t *txn) element(ctx context.Context, id string) (*types.Element, error) {
	if e, ok := t.byID[id]; ok {
		return e, nil
	}
	return t.s.elementByID(ctx, id, nil)
}
