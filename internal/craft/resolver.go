// Package craft resolves element combinations against a store.
//
// A pair is resolved once. The first caller to combine two elements
// generates the result with alchemy.Generate, persists it, and is recorded
// as the discoverer; every later caller, in any order and from any process
// sharing the store, gets the stored result back.
package craft

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mesh-intelligence/cauldron/internal/alchemy"
	"github.com/mesh-intelligence/cauldron/pkg/types"
)

// DefaultMaxAttempts bounds how many times a combination is retried after
// losing a write race it could not resolve by re-reading.
const DefaultMaxAttempts = 3

// AnonymousPrefix starts the discoverer ID given to callers without one.
const AnonymousPrefix = "anon-"

// errConflict marks an attempt that lost a race and should be retried.
var errConflict = errors.New("concurrent write conflict")

// Combination is the outcome of combining two elements.
type Combination struct {
	Result          types.Element
	FirstDiscoverer string
	IsNew           bool // true only for the call that created the recipe
	Recipe          *types.Recipe
}

// Resolver combines elements through a types.Store.
type Resolver struct {
	store       types.Store
	sanitizer   alchemy.Sanitizer
	logger      *slog.Logger
	maxAttempts int
	now         func() time.Time
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithSanitizer rewrites generated names before they are stored.
func WithSanitizer(s alchemy.Sanitizer) Option {
	return func(r *Resolver) {
		r.sanitizer = s
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = l
	}
}

// WithMaxAttempts sets how many times a conflicting combination is tried.
// Values below 1 are ignored.
func WithMaxAttempts(n int) Option {
	return func(r *Resolver) {
		if n >= 1 {
			r.maxAttempts = n
		}
	}
}

// WithClock replaces time.Now for anonymous discoverer IDs.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

// NewResolver creates a Resolver on an attached store.
func NewResolver(store types.Store, opts ...Option) *Resolver {
	r := &Resolver{
		store:       store,
		sanitizer:   alchemy.NopSanitizer{},
		logger:      slog.Default(),
		maxAttempts: DefaultMaxAttempts,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveCombination combines the elements named nameA and nameB.
//
// If the pair already has a recipe the stored result and its first
// discoverer are returned with IsNew false, and discoverer is ignored.
// Otherwise the result is generated from the stored element names, created
// if no element has that name yet, and recorded with discoverer as the
// first discoverer. An empty discoverer is replaced by an anonymous ID.
//
// Errors: ErrInvalidName for blank names, ErrUnknownElement if either
// element does not exist, ErrStoreUnavailable for store failures.
func (r *Resolver) ResolveCombination(ctx context.Context, nameA, nameB, discoverer string) (*Combination, error) {
	if strings.TrimSpace(nameA) == "" || strings.TrimSpace(nameB) == "" {
		return nil, fmt.Errorf("%w: both element names are required", types.ErrInvalidName)
	}
	if discoverer == "" {
		discoverer = r.Anonymous()
	}

	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		c, err := r.resolve(ctx, nameA, nameB, discoverer)
		if !errors.Is(err, errConflict) {
			return c, err
		}
		lastErr = err
		r.logger.Debug("combination conflict, retrying",
			"a", nameA,
			"b", nameB,
			"attempt", attempt,
			"error", err)
	}
	return nil, fmt.Errorf("%w: %w", types.ErrStoreUnavailable, lastErr)
}

// Anonymous returns a discoverer ID for a caller that supplied none.
func (r *Resolver) Anonymous() string {
	return fmt.Sprintf("%s%d", AnonymousPrefix, r.now().UnixMilli())
}

func (r *Resolver) resolve(ctx context.Context, nameA, nameB, discoverer string) (*Combination, error) {
	a, err := r.lookup(ctx, nameA)
	if err != nil {
		return nil, err
	}
	b, err := r.lookup(ctx, nameB)
	if err != nil {
		return nil, err
	}

	recipe, err := r.store.FindRecipeByPair(ctx, a.ElementID, b.ElementID)
	if err == nil {
		r.logger.Debug("recipe cache hit",
			"a", a.Name,
			"b", b.Name,
			"result", recipe.Result.Name)
		return known(recipe), nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		return nil, unavailable(err)
	}

	gen := alchemy.Generate(a.Name, b.Name)
	name := r.sanitizer.Sanitize(gen.Name)
	if strings.TrimSpace(name) == "" {
		name = gen.Name
	}

	var created *types.Recipe
	err = r.store.Transact(ctx, func(tx types.Tx) error {
		result, err := findOrCreate(ctx, tx, name, gen.Emoji)
		if err != nil {
			return err
		}
		created, err = tx.CreateRecipe(ctx, a.ElementID, b.ElementID, result.ElementID, discoverer)
		return err
	})

	switch {
	case err == nil:
		r.logger.Info("new discovery",
			"a", a.Name,
			"b", b.Name,
			"result", created.Result.Name,
			"emoji", created.Result.Emoji,
			"discoverer", discoverer)
		return &Combination{
			Result:          created.Result,
			FirstDiscoverer: created.Discoverer,
			IsNew:           true,
			Recipe:          created,
		}, nil

	case errors.Is(err, types.ErrDuplicatePair):
		// Another caller resolved the pair first; theirs is the recipe.
		recipe, ferr := r.store.FindRecipeByPair(ctx, a.ElementID, b.ElementID)
		if errors.Is(ferr, types.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", errConflict, err)
		}
		if ferr != nil {
			return nil, unavailable(ferr)
		}
		r.logger.Debug("lost discovery race",
			"a", a.Name,
			"b", b.Name,
			"winner", recipe.Discoverer)
		return known(recipe), nil

	case errors.Is(err, types.ErrDuplicateName):
		return nil, fmt.Errorf("%w: %w", errConflict, err)

	default:
		return nil, unavailable(err)
	}
}

// lookup finds an input element, mapping ErrNotFound to ErrUnknownElement.
func (r *Resolver) lookup(ctx context.Context, name string) (*types.Element, error) {
	e, err := r.store.FindElementByName(ctx, name)
	if errors.Is(err, types.ErrNotFound) {
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownElement, strings.TrimSpace(name))
	}
	if err != nil {
		return nil, unavailable(err)
	}
	return e, nil
}

// findOrCreate returns the element named name, creating it if needed.
func findOrCreate(ctx context.Context, tx types.Tx, name, emoji string) (*types.Element, error) {
	e, err := tx.FindElementByName(ctx, name)
	if !errors.Is(err, types.ErrNotFound) {
		return e, err
	}
	e, err = tx.CreateElement(ctx, name, emoji)
	if errors.Is(err, types.ErrDuplicateName) {
		return tx.FindElementByName(ctx, name)
	}
	return e, err
}

func known(recipe *types.Recipe) *Combination {
	return &Combination{
		Result:          recipe.Result,
		FirstDiscoverer: recipe.Discoverer,
		IsNew:           false,
		Recipe:          recipe,
	}
}

// unavailable wraps store failures that are not part of the store contract
// with ErrStoreUnavailable. Contract errors pass through.
func unavailable(err error) error {
	for _, domain := range []error{
		types.ErrInvalidName,
		types.ErrInvalidData,
		types.ErrUnknownElement,
		types.ErrStoreUnavailable,
	} {
		if errors.Is(err, domain) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", types.ErrStoreUnavailable, err)
}

// Elements lists every element in creation order.
func (r *Resolver) Elements(ctx context.Context) ([]*types.Element, error) {
	els, err := r.store.ListElements(ctx)
	if err != nil {
		return nil, unavailable(err)
	}
	return els, nil
}

// Recipes lists every recipe, newest first.
func (r *Resolver) Recipes(ctx context.Context) ([]*types.Recipe, error) {
	recipes, err := r.store.ListRecipes(ctx)
	if err != nil {
		return nil, unavailable(err)
	}
	return recipes, nil
}
