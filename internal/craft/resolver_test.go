package craft

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/cauldron/internal/alchemy"
	"github.com/mesh-intelligence/cauldron/internal/memory"
	"github.com/mesh-intelligence/cauldron/pkg/types"
)

// newSeededStore returns an attached memory store holding the starting
// elements.
func newSeededStore(t *testing.T) *memory.Store {
	t.Helper()
	s := memory.NewStore()
	require.NoError(t, s.Attach(types.Config{Backend: types.BackendMemory}))
	t.Cleanup(func() { s.Detach() })
	n, err := Seed(context.Background(), s)
	require.NoError(t, err)
	require.Equal(t, len(types.StartingElements), n)
	return s
}

// hookStore wraps a store and runs hooks around Transact and lookups.
type hookStore struct {
	types.Store
	beforeTransact func(call int) error
	findErr        error

	mu    sync.Mutex
	calls int
}

func (h *hookStore) Transact(ctx context.Context, fn func(tx types.Tx) error) error {
	h.mu.Lock()
	h.calls++
	call := h.calls
	h.mu.Unlock()
	if h.beforeTransact != nil {
		if err := h.beforeTransact(call); err != nil {
			return err
		}
	}
	return h.Store.Transact(ctx, fn)
}

func (h *hookStore) FindElementByName(ctx context.Context, name string) (*types.Element, error) {
	if h.findErr != nil {
		return nil, h.findErr
	}
	return h.Store.FindElementByName(ctx, name)
}

func TestResolveEndToEnd(t *testing.T) {
	ctx := context.Background()
	s := newSeededStore(t)
	r := NewResolver(s)

	first, err := r.ResolveCombination(ctx, "Fire", "Water", "alice")
	require.NoError(t, err)
	assert.True(t, first.IsNew)
	assert.Equal(t, "Steam", first.Result.Name)
	assert.Equal(t, "💨", first.Result.Emoji)
	assert.Equal(t, "alice", first.FirstDiscoverer)
	require.NotNil(t, first.Recipe)

	again, err := r.ResolveCombination(ctx, "Water", "Fire", "bob")
	require.NoError(t, err)
	assert.False(t, again.IsNew)
	assert.Equal(t, first.Result.ElementID, again.Result.ElementID)
	assert.Equal(t, "alice", again.FirstDiscoverer, "later callers never replace the discoverer")
	assert.Equal(t, first.Recipe.RecipeID, again.Recipe.RecipeID)

	els, err := r.Elements(ctx)
	require.NoError(t, err)
	assert.Len(t, els, 5)

	recipes, err := r.Recipes(ctx)
	require.NoError(t, err)
	assert.Len(t, recipes, 1)
}

func TestResolveGeneratedResults(t *testing.T) {
	tests := []struct {
		name  string
		a, b  string
		want  string
		emoji string
	}{
		{"magic earth wind", "Earth", "Wind", "Dust", "🌪️"},
		{"magic earth water", "water", "EARTH", "Mud", "🟫"},
		{"self combination", "Water", "Water", "Bitter Pulse", "💫"},
		{"hash fallback", "Fire", "Fire", "Frozen Breeze", "💨"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(newSeededStore(t))
			c, err := r.ResolveCombination(context.Background(), tt.a, tt.b, "tester")
			require.NoError(t, err)
			assert.True(t, c.IsNew)
			assert.Equal(t, tt.want, c.Result.Name)
			assert.Equal(t, tt.emoji, c.Result.Emoji)
		})
	}
}

func TestResolveChainsOnDiscoveredElements(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(newSeededStore(t))

	_, err := r.ResolveCombination(ctx, "Fire", "Water", "alice")
	require.NoError(t, err)

	c, err := r.ResolveCombination(ctx, "steam", "water", "alice")
	require.NoError(t, err)
	assert.Equal(t, "Tiny Forest", c.Result.Name)
	assert.Equal(t, "🌲", c.Result.Emoji)
}

func TestResolveReusesExistingResultElement(t *testing.T) {
	ctx := context.Background()
	s := newSeededStore(t)
	existing, err := s.CreateElement(ctx, "Steam", "♨️")
	require.NoError(t, err)

	c, err := NewResolver(s).ResolveCombination(ctx, "Fire", "Water", "alice")
	require.NoError(t, err)
	assert.True(t, c.IsNew, "the recipe is new even though its result is not")
	assert.Equal(t, existing.ElementID, c.Result.ElementID)
	assert.Equal(t, "♨️", c.Result.Emoji, "the stored element wins over the generated emoji")

	els, err := s.ListElements(ctx)
	require.NoError(t, err)
	assert.Len(t, els, 5)
}

func TestResolveRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	s := newSeededStore(t)
	r := NewResolver(s)

	_, err := r.ResolveCombination(ctx, "Plasma", "Fire", "alice")
	assert.ErrorIs(t, err, types.ErrUnknownElement)
	assert.Contains(t, err.Error(), "Plasma")

	_, err = r.ResolveCombination(ctx, "Fire", "Plasma", "alice")
	assert.ErrorIs(t, err, types.ErrUnknownElement)

	for _, pair := range [][2]string{{"", "Fire"}, {"Fire", "  "}} {
		_, err = r.ResolveCombination(ctx, pair[0], pair[1], "alice")
		assert.ErrorIs(t, err, types.ErrInvalidName)
	}

	recipes, err := s.ListRecipes(ctx)
	require.NoError(t, err)
	assert.Empty(t, recipes, "rejected combinations write nothing")
}

func TestResolveAnonymousDiscoverer(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	r := NewResolver(newSeededStore(t), WithClock(func() time.Time { return at }))

	c, err := r.ResolveCombination(context.Background(), "Earth", "Fire", "")
	require.NoError(t, err)
	assert.Equal(t, "anon-1700000000123", c.FirstDiscoverer)
}

func TestResolveWithSanitizer(t *testing.T) {
	r := NewResolver(newSeededStore(t), WithSanitizer(alchemy.SanitizerFunc(strings.ToUpper)))

	c, err := r.ResolveCombination(context.Background(), "Water", "Water", "alice")
	require.NoError(t, err)
	assert.Equal(t, "BITTER PULSE", c.Result.Name)
}

func TestResolveConcurrentFirstDiscovery(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(newSeededStore(t))

	const callers = 16
	results := make([]*Combination, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := "Fire", "Water"
			if i%2 == 1 {
				a, b = b, a
			}
			results[i], errs[i] = r.ResolveCombination(ctx, a, b, "caller")
		}(i)
	}
	wg.Wait()

	newCount := 0
	for i := range callers {
		require.NoError(t, errs[i])
		if results[i].IsNew {
			newCount++
		}
		assert.Equal(t, results[0].Result.ElementID, results[i].Result.ElementID)
	}
	assert.Equal(t, 1, newCount, "exactly one caller discovers the pair")

	recipes, err := r.Recipes(ctx)
	require.NoError(t, err)
	assert.Len(t, recipes, 1)
}

func TestResolveLosesRaceToEarlierWriter(t *testing.T) {
	ctx := context.Background()
	s := newSeededStore(t)
	winner := NewResolver(s)

	racing := &hookStore{Store: s}
	racing.beforeTransact = func(call int) error {
		if call == 1 {
			_, err := winner.ResolveCombination(ctx, "Fire", "Water", "winner")
			return err
		}
		return nil
	}

	c, err := NewResolver(racing).ResolveCombination(ctx, "Water", "Fire", "loser")
	require.NoError(t, err)
	assert.False(t, c.IsNew)
	assert.Equal(t, "winner", c.FirstDiscoverer)
	assert.Equal(t, "Steam", c.Result.Name)
}

func TestResolveRetriesNameConflict(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds on retry", func(t *testing.T) {
		racing := &hookStore{Store: newSeededStore(t)}
		racing.beforeTransact = func(call int) error {
			if call == 1 {
				return types.ErrDuplicateName
			}
			return nil
		}

		c, err := NewResolver(racing).ResolveCombination(ctx, "Fire", "Water", "alice")
		require.NoError(t, err)
		assert.True(t, c.IsNew)
		assert.Equal(t, 2, racing.calls)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		racing := &hookStore{Store: newSeededStore(t)}
		racing.beforeTransact = func(int) error { return types.ErrDuplicateName }

		_, err := NewResolver(racing, WithMaxAttempts(2)).ResolveCombination(ctx, "Fire", "Water", "alice")
		assert.ErrorIs(t, err, types.ErrStoreUnavailable)
		assert.Equal(t, 2, racing.calls)
	})
}

func TestResolveStoreFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("lookup failure", func(t *testing.T) {
		broken := &hookStore{Store: newSeededStore(t), findErr: errors.New("connection refused")}
		_, err := NewResolver(broken).ResolveCombination(ctx, "Fire", "Water", "alice")
		assert.ErrorIs(t, err, types.ErrStoreUnavailable)
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("write failure", func(t *testing.T) {
		broken := &hookStore{Store: newSeededStore(t)}
		broken.beforeTransact = func(int) error { return errors.New("disk full") }
		_, err := NewResolver(broken).ResolveCombination(ctx, "Fire", "Water", "alice")
		assert.ErrorIs(t, err, types.ErrStoreUnavailable)
	})

	t.Run("detached store", func(t *testing.T) {
		s := newSeededStore(t)
		require.NoError(t, s.Detach())
		r := NewResolver(s)

		_, err := r.ResolveCombination(ctx, "Fire", "Water", "alice")
		assert.ErrorIs(t, err, types.ErrStoreUnavailable)
		assert.ErrorIs(t, err, types.ErrStoreDetached)

		_, err = r.Elements(ctx)
		assert.ErrorIs(t, err, types.ErrStoreUnavailable)
		_, err = r.Recipes(ctx)
		assert.ErrorIs(t, err, types.ErrStoreUnavailable)
	})
}

func TestResolveLogsDiscoveries(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	r := NewResolver(newSeededStore(t), WithLogger(logger))
	ctx := context.Background()

	_, err := r.ResolveCombination(ctx, "Fire", "Water", "alice")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "new discovery")
	assert.Contains(t, buf.String(), "result=Steam")

	buf.Reset()
	_, err = r.ResolveCombination(ctx, "Fire", "Water", "bob")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "recipe cache hit")
}

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newSeededStore(t)

	n, err := Seed(ctx, s)
	require.NoError(t, err)
	assert.Zero(t, n)

	els, err := s.ListElements(ctx)
	require.NoError(t, err)
	names := make([]string, len(els))
	for i, e := range els {
		names[i] = e.Name
	}
	assert.Equal(t, []string{"Water", "Fire", "Earth", "Wind"}, names)
}
