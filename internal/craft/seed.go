package craft

import (
	"context"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/cauldron/pkg/types"
)

// Seed creates any of types.StartingElements that the store lacks and
// returns how many it created. Running it again is a no-op.
func Seed(ctx context.Context, store types.Store) (int, error) {
	created := 0
	for _, el := range types.StartingElements {
		_, err := store.FindElementByName(ctx, el.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, types.ErrNotFound) {
			return created, fmt.Errorf("seeding %s: %w", el.Name, err)
		}

		_, err = store.CreateElement(ctx, el.Name, el.Emoji)
		switch {
		case err == nil:
			created++
		case errors.Is(err, types.ErrDuplicateName):
			// seeded concurrently by another process
		default:
			return created, fmt.Errorf("seeding %s: %w", el.Name, err)
		}
	}
	return created, nil
}
