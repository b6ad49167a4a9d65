// Package storetest provides a conformance suite that every types.Store
// implementation runs from its own tests.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/cauldron/pkg/types"
)

// Factory returns an attached, empty store. It registers its own cleanup.
type Factory func(t *testing.T) types.Store

var errAbort = errors.New("abort")

// Run exercises the full types.Store contract against stores from newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("elements", func(t *testing.T) { testElements(t, newStore) })
	t.Run("recipes", func(t *testing.T) { testRecipes(t, newStore) })
	t.Run("listing order", func(t *testing.T) { testListingOrder(t, newStore) })
	t.Run("transact", func(t *testing.T) { testTransact(t, newStore) })
	t.Run("concurrent first discovery", func(t *testing.T) { testConcurrentRecipe(t, newStore) })
	t.Run("detach", func(t *testing.T) { testDetach(t, newStore) })
}

// MustCreate creates elements by name with a fixed emoji and returns them in
// argument order.
func MustCreate(t *testing.T, s types.Store, names ...string) []*types.Element {
	t.Helper()
	out := make([]*types.Element, 0, len(names))
	for _, n := range names {
		e, err := s.CreateElement(context.Background(), n, "✨")
		require.NoError(t, err, "create %q", n)
		out = append(out, e)
	}
	return out
}

func testElements(t *testing.T, newStore Factory) {
	ctx := context.Background()

	t.Run("create then find case-insensitively", func(t *testing.T) {
		s := newStore(t)
		created, err := s.CreateElement(ctx, "Water", "💧")
		require.NoError(t, err)
		assert.NotEmpty(t, created.ElementID)
		assert.Equal(t, "Water", created.Name)
		assert.Equal(t, "💧", created.Emoji)
		assert.False(t, created.CreatedAt.IsZero())

		for _, q := range []string{"Water", "water", "WATER", " water "} {
			got, err := s.FindElementByName(ctx, q)
			require.NoError(t, err, q)
			assert.Equal(t, created.ElementID, got.ElementID)
			assert.Equal(t, "Water", got.Name, "display case is preserved")
		}
	})

	t.Run("missing element", func(t *testing.T) {
		s := newStore(t)
		_, err := s.FindElementByName(ctx, "Plasma")
		assert.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("duplicate name differs only in case", func(t *testing.T) {
		s := newStore(t)
		MustCreate(t, s, "Steam")
		_, err := s.CreateElement(ctx, "STEAM", "💨")
		assert.ErrorIs(t, err, types.ErrDuplicateName)

		all, err := s.ListElements(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("invalid names are rejected", func(t *testing.T) {
		s := newStore(t)
		for _, n := range []string{"", "  ", "fire_water"} {
			_, err := s.CreateElement(ctx, n, "✨")
			assert.ErrorIs(t, err, types.ErrInvalidName, "%q", n)
		}
	})

	t.Run("empty emoji is rejected", func(t *testing.T) {
		s := newStore(t)
		_, err := s.CreateElement(ctx, "Void", "")
		assert.ErrorIs(t, err, types.ErrInvalidData)
	})
}

func testRecipes(t *testing.T, newStore Factory) {
	ctx := context.Background()

	t.Run("lookup is order independent", func(t *testing.T) {
		s := newStore(t)
		els := MustCreate(t, s, "Fire", "Water", "Steam")
		fire, water, steam := els[0], els[1], els[2]

		created, err := s.CreateRecipe(ctx, fire.ElementID, water.ElementID, steam.ElementID, "alice")
		require.NoError(t, err)
		assert.NotEmpty(t, created.RecipeID)
		assert.Equal(t, "alice", created.Discoverer)
		assert.Equal(t, "Steam", created.Result.Name)

		for _, pair := range [][2]string{
			{fire.ElementID, water.ElementID},
			{water.ElementID, fire.ElementID},
		} {
			got, err := s.FindRecipeByPair(ctx, pair[0], pair[1])
			require.NoError(t, err)
			assert.Equal(t, created.RecipeID, got.RecipeID)
			assert.Equal(t, steam.ElementID, got.Result.ElementID)
			assert.Equal(t, "alice", got.Discoverer)
			assert.ElementsMatch(t, []string{"Fire", "Water"}, []string{got.ElementA.Name, got.ElementB.Name})
		}
	})

	t.Run("missing recipe", func(t *testing.T) {
		s := newStore(t)
		els := MustCreate(t, s, "Fire", "Water")
		_, err := s.FindRecipeByPair(ctx, els[0].ElementID, els[1].ElementID)
		assert.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("duplicate pair keeps first discoverer", func(t *testing.T) {
		s := newStore(t)
		els := MustCreate(t, s, "Earth", "Wind", "Dust", "Storm")
		earth, wind, dust, storm := els[0], els[1], els[2], els[3]

		_, err := s.CreateRecipe(ctx, earth.ElementID, wind.ElementID, dust.ElementID, "first")
		require.NoError(t, err)
		_, err = s.CreateRecipe(ctx, wind.ElementID, earth.ElementID, storm.ElementID, "second")
		assert.ErrorIs(t, err, types.ErrDuplicatePair)

		got, err := s.FindRecipeByPair(ctx, earth.ElementID, wind.ElementID)
		require.NoError(t, err)
		assert.Equal(t, "first", got.Discoverer)
		assert.Equal(t, "Dust", got.Result.Name)
	})

	t.Run("self combination", func(t *testing.T) {
		s := newStore(t)
		els := MustCreate(t, s, "Water", "Bitter Pulse")
		water, pulse := els[0], els[1]

		_, err := s.CreateRecipe(ctx, water.ElementID, water.ElementID, pulse.ElementID, "bob")
		require.NoError(t, err)
		got, err := s.FindRecipeByPair(ctx, water.ElementID, water.ElementID)
		require.NoError(t, err)
		assert.Equal(t, "Bitter Pulse", got.Result.Name)
		assert.Equal(t, "Water", got.ElementA.Name)
		assert.Equal(t, "Water", got.ElementB.Name)
	})

	t.Run("result may be an input", func(t *testing.T) {
		s := newStore(t)
		els := MustCreate(t, s, "Ash", "Fire")
		_, err := s.CreateRecipe(ctx, els[0].ElementID, els[1].ElementID, els[0].ElementID, "carol")
		require.NoError(t, err)
	})

	t.Run("unknown element reference", func(t *testing.T) {
		s := newStore(t)
		els := MustCreate(t, s, "Fire")
		_, err := s.CreateRecipe(ctx, els[0].ElementID, "missing-id", els[0].ElementID, "dave")
		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func testListingOrder(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t)

	els := MustCreate(t, s, "Water", "Fire", "Earth", "Wind", "Steam", "Dust", "Mud")
	water, fire, earth, wind, steam, dust, mud := els[0], els[1], els[2], els[3], els[4], els[5], els[6]

	all, err := s.ListElements(ctx)
	require.NoError(t, err)
	names := make([]string, len(all))
	for i, e := range all {
		names[i] = e.Name
	}
	assert.Equal(t, []string{"Water", "Fire", "Earth", "Wind", "Steam", "Dust", "Mud"}, names)

	_, err = s.CreateRecipe(ctx, fire.ElementID, water.ElementID, steam.ElementID, "u1")
	require.NoError(t, err)
	_, err = s.CreateRecipe(ctx, earth.ElementID, wind.ElementID, dust.ElementID, "u2")
	require.NoError(t, err)
	_, err = s.CreateRecipe(ctx, earth.ElementID, water.ElementID, mud.ElementID, "u3")
	require.NoError(t, err)

	recipes, err := s.ListRecipes(ctx)
	require.NoError(t, err)
	require.Len(t, recipes, 3)
	assert.Equal(t, "u3", recipes[0].Discoverer)
	assert.Equal(t, "u2", recipes[1].Discoverer)
	assert.Equal(t, "u1", recipes[2].Discoverer)
	assert.Equal(t, "Mud", recipes[0].Result.Name)
}

func testTransact(t *testing.T, newStore Factory) {
	ctx := context.Background()

	t.Run("commit makes writes visible", func(t *testing.T) {
		s := newStore(t)
		els := MustCreate(t, s, "Fire", "Water")

		err := s.Transact(ctx, func(tx types.Tx) error {
			steam, err := tx.CreateElement(ctx, "Steam", "💨")
			if err != nil {
				return err
			}
			found, err := tx.FindElementByName(ctx, "steam")
			if err != nil {
				return err
			}
			if found.ElementID != steam.ElementID {
				return errors.New("element created in transaction not visible to it")
			}
			_, err = tx.CreateRecipe(ctx, els[0].ElementID, els[1].ElementID, steam.ElementID, "alice")
			return err
		})
		require.NoError(t, err)

		got, err := s.FindRecipeByPair(ctx, els[1].ElementID, els[0].ElementID)
		require.NoError(t, err)
		assert.Equal(t, "Steam", got.Result.Name)
	})

	t.Run("error discards writes", func(t *testing.T) {
		s := newStore(t)
		els := MustCreate(t, s, "Fire", "Water")

		err := s.Transact(ctx, func(tx types.Tx) error {
			steam, err := tx.CreateElement(ctx, "Steam", "💨")
			if err != nil {
				return err
			}
			if _, err := tx.CreateRecipe(ctx, els[0].ElementID, els[1].ElementID, steam.ElementID, "alice"); err != nil {
				return err
			}
			return errAbort
		})
		assert.ErrorIs(t, err, errAbort)

		_, err = s.FindElementByName(ctx, "Steam")
		assert.ErrorIs(t, err, types.ErrNotFound)
		_, err = s.FindRecipeByPair(ctx, els[0].ElementID, els[1].ElementID)
		assert.ErrorIs(t, err, types.ErrNotFound)

		all, err := s.ListElements(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("existing name inside transaction", func(t *testing.T) {
		s := newStore(t)
		MustCreate(t, s, "Steam")

		err := s.Transact(ctx, func(tx types.Tx) error {
			_, err := tx.CreateElement(ctx, "steam", "💨")
			return err
		})
		assert.ErrorIs(t, err, types.ErrDuplicateName)
	})

	t.Run("existing pair inside transaction", func(t *testing.T) {
		s := newStore(t)
		els := MustCreate(t, s, "Fire", "Water", "Steam")
		_, err := s.CreateRecipe(ctx, els[0].ElementID, els[1].ElementID, els[2].ElementID, "first")
		require.NoError(t, err)

		err = s.Transact(ctx, func(tx types.Tx) error {
			_, err := tx.CreateRecipe(ctx, els[1].ElementID, els[0].ElementID, els[2].ElementID, "second")
			return err
		})
		assert.ErrorIs(t, err, types.ErrDuplicatePair)
	})
}

func testConcurrentRecipe(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t)
	els := MustCreate(t, s, "Fire", "Water", "Steam")
	fire, water, steam := els[0], els[1], els[2]

	const workers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		wins     int
		dupes    int
		failures []error
	)
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := fire.ElementID, water.ElementID
			if i%2 == 1 {
				a, b = b, a
			}
			err := s.Transact(ctx, func(tx types.Tx) error {
				_, err := tx.CreateRecipe(ctx, a, b, steam.ElementID, "worker")
				return err
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, types.ErrDuplicatePair):
				dupes++
			default:
				failures = append(failures, err)
			}
		}(i)
	}
	wg.Wait()

	assert.Empty(t, failures)
	assert.Equal(t, 1, wins)
	assert.Equal(t, workers-1, dupes)

	recipes, err := s.ListRecipes(ctx)
	require.NoError(t, err)
	assert.Len(t, recipes, 1)
}

func testDetach(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.Detach())
	require.NoError(t, s.Detach(), "detach is idempotent")

	_, err := s.FindElementByName(ctx, "Water")
	assert.ErrorIs(t, err, types.ErrStoreDetached)
	_, err = s.ListElements(ctx)
	assert.ErrorIs(t, err, types.ErrStoreDetached)
	err = s.Transact(ctx, func(types.Tx) error { return nil })
	assert.ErrorIs(t, err, types.ErrStoreDetached)
}
