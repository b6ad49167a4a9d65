package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/cauldron/internal/craft"
	"github.com/mesh-intelligence/cauldron/internal/memory"
	"github.com/mesh-intelligence/cauldron/internal/sqlite"
	"github.com/mesh-intelligence/cauldron/pkg/types"
)

func newMemoryStore(t *testing.T) types.Store {
	t.Helper()
	s := memory.NewStore()
	require.NoError(t, s.Attach(types.Config{Backend: types.BackendMemory}))
	t.Cleanup(func() { s.Detach() })
	return s
}

// playedStore returns a store with the starting elements and three
// discoveries made in a known order.
func playedStore(t *testing.T) types.Store {
	t.Helper()
	ctx := context.Background()
	s := newMemoryStore(t)
	_, err := craft.Seed(ctx, s)
	require.NoError(t, err)

	r := craft.NewResolver(s)
	for _, c := range []struct{ a, b, who string }{
		{"Fire", "Water", "alice"},
		{"Earth", "Wind", "bob"},
		{"Steam", "Water", "carol"},
	} {
		_, err := r.ResolveCombination(ctx, c.a, c.b, c.who)
		require.NoError(t, err)
	}
	return s
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestExport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "snap")
	stats, err := Export(context.Background(), playedStore(t), dir)
	require.NoError(t, err)
	assert.Equal(t, 7, stats.Elements)
	assert.Equal(t, 3, stats.Recipes)

	elements := readLines(t, filepath.Join(dir, ElementsFile))
	require.Len(t, elements, 7)
	assert.Contains(t, elements[0], `"name":"Water"`)
	assert.Contains(t, elements[0], `"emoji":"💧"`)

	recipes := readLines(t, filepath.Join(dir, RecipesFile))
	require.Len(t, recipes, 3)
	assert.Contains(t, recipes[0], `"discoverer":"alice"`, "oldest recipe first")
	assert.Contains(t, recipes[0], `"result":"Steam"`)
	assert.Contains(t, recipes[2], `"discoverer":"carol"`)

	leftovers, err := filepath.Glob(filepath.Join(dir, ".jsonl-*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestRoundTripIntoSQLite(t *testing.T) {
	ctx := context.Background()
	src := playedStore(t)
	dir := t.TempDir()
	_, err := Export(ctx, src, dir)
	require.NoError(t, err)

	dst := sqlite.NewBackend()
	require.NoError(t, dst.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	t.Cleanup(func() { dst.Detach() })

	stats, err := Import(ctx, dst, dir)
	require.NoError(t, err)
	assert.Equal(t, Stats{Elements: 7, Recipes: 3}, stats)

	want, err := src.ListRecipes(ctx)
	require.NoError(t, err)
	got, err := dst.ListRecipes(ctx)
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Result.Name, got[i].Result.Name)
		assert.Equal(t, want[i].Discoverer, got[i].Discoverer)
	}

	// The imported world answers combinations from its recipes.
	c, err := craft.NewResolver(dst).ResolveCombination(ctx, "water", "fire", "dave")
	require.NoError(t, err)
	assert.False(t, c.IsNew)
	assert.Equal(t, "alice", c.FirstDiscoverer)
}

func TestImportKeepsExistingRecords(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	_, err := Export(ctx, playedStore(t), dir)
	require.NoError(t, err)

	dst := newMemoryStore(t)
	_, err = craft.Seed(ctx, dst)
	require.NoError(t, err)
	first, err := craft.NewResolver(dst).ResolveCombination(ctx, "Fire", "Water", "zed")
	require.NoError(t, err)

	stats, err := Import(ctx, dst, dir)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Elements, "Dust and Tiny Forest are new")
	assert.Equal(t, 2, stats.Recipes)
	assert.Equal(t, 6, stats.Existing)

	got, err := dst.FindRecipeByPair(ctx, first.Recipe.ElementA.ElementID, first.Recipe.ElementB.ElementID)
	require.NoError(t, err)
	assert.Equal(t, "zed", got.Discoverer, "first write wins")
}

func TestImportSkipsBadLines(t *testing.T) {
	dir := t.TempDir()
	elements := strings.Join([]string{
		`{"name":"Water","emoji":"💧"}`,
		`{not json`,
		``,
		`{"name":"Fire","emoji":"🔥","future_field":42}`,
		`{"name":"bad_name","emoji":"✨"}`,
		`{"name":"Steam","emoji":"💨"}`,
	}, "\n")
	recipes := strings.Join([]string{
		`{"element_a":"Fire","element_b":"Water","result":"Steam","discoverer":"alice"}`,
		`{"element_a":"Fire","element_b":"Plasma","result":"Steam","discoverer":"bob"}`,
		`[1,2,3]`,
	}, "\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ElementsFile), []byte(elements), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, RecipesFile), []byte(recipes), 0o644))

	s := newMemoryStore(t)
	stats, err := Import(context.Background(), s, dir)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Elements)
	assert.Equal(t, 1, stats.Recipes)
	assert.Equal(t, 4, stats.Skipped)
}

func TestImportMissingFiles(t *testing.T) {
	ctx := context.Background()

	t.Run("elements file is required", func(t *testing.T) {
		_, err := Import(ctx, newMemoryStore(t), t.TempDir())
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("recipes file is optional", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, ElementsFile), []byte(`{"name":"Water","emoji":"💧"}`+"\n"), 0o644))
		stats, err := Import(ctx, newMemoryStore(t), dir)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Elements)
	})
}
