package types

import (
	"context"
	"errors"
)

// Tx is the set of element and recipe operations available both directly on
// a Store and inside Store.Transact.
type Tx interface {
	// FindElementByName looks up an element case-insensitively.
	// Returns ErrNotFound if no element has that name.
	FindElementByName(ctx context.Context, name string) (*Element, error)

	// CreateElement stores a new element with a generated ID.
	// Returns ErrInvalidName for names rejected by ValidateElementName and
	// ErrDuplicateName if the name already exists case-insensitively.
	CreateElement(ctx context.Context, name, emoji string) (*Element, error)

	// FindRecipeByPair returns the recipe for the unordered pair {idA, idB}.
	// Returns ErrNotFound if the pair has not been resolved.
	FindRecipeByPair(ctx context.Context, idA, idB string) (*Recipe, error)

	// CreateRecipe records the result of the unordered pair {idA, idB}.
	// Returns ErrNotFound if any referenced element is missing and
	// ErrDuplicatePair if the pair already has a recipe.
	CreateRecipe(ctx context.Context, idA, idB, resultID, discoverer string) (*Recipe, error)
}

// Store is the backend-agnostic persistence contract for elements and
// recipes. Callers attach to a backend, issue operations, and detach when
// done. Implementations are safe for concurrent use.
type Store interface {
	Tx

	// ListElements returns every element in creation order.
	ListElements(ctx context.Context) ([]*Element, error)

	// ListRecipes returns every recipe, newest first.
	ListRecipes(ctx context.Context) ([]*Recipe, error)

	// Transact runs fn as one unit of work. If fn returns an error nothing
	// it wrote is kept, and that error is returned unchanged. A concurrent
	// writer that claimed a name or pair first surfaces as ErrDuplicateName
	// or ErrDuplicatePair, either from a Tx call or from Transact itself.
	Transact(ctx context.Context, fn func(tx Tx) error) error

	// Attach connects the Store to the backend described by config.
	// Returns ErrAlreadyAttached if called while already attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent: multiple calls succeed.
	// After Detach, operations return ErrStoreDetached.
	Detach() error
}

// DiscoveryFeed is implemented by stores that can push newly created recipes
// to subscribers. The channel closes when ctx is done.
type DiscoveryFeed interface {
	Discoveries(ctx context.Context) (<-chan *Recipe, error)
}

// Store lifecycle errors.
var (
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
)

// Store operation errors.
var (
	ErrNotFound         = errors.New("entity not found")
	ErrInvalidName      = errors.New("invalid element name")
	ErrInvalidData      = errors.New("invalid entity data")
	ErrDuplicateName    = errors.New("element name already exists")
	ErrDuplicatePair    = errors.New("pair already has a recipe")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Combination errors.
var (
	ErrUnknownElement = errors.New("unknown element")
)
