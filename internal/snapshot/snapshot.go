// Package snapshot moves a world between stores as a pair of JSONL files.
//
// Export writes elements.jsonl in creation order and recipes.jsonl oldest
// first, so Import replays them in the order they were made. Recipes refer
// to elements by name because element IDs are assigned by the receiving
// store. Import never overwrites: names and pairs already present are kept.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mesh-intelligence/cauldron/pkg/types"
)

// Snapshot file names.
const (
	ElementsFile = "elements.jsonl"
	RecipesFile  = "recipes.jsonl"
)

type elementRecord struct {
	ElementID string    `json:"element_id"`
	Name      string    `json:"name"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
}

type recipeRecord struct {
	RecipeID   string    `json:"recipe_id"`
	ElementA   string    `json:"element_a"`
	ElementB   string    `json:"element_b"`
	Result     string    `json:"result"`
	Discoverer string    `json:"discoverer"`
	CreatedAt  time.Time `json:"created_at"`
}

// Stats counts what Export wrote or Import applied.
type Stats struct {
	Elements int `json:"elements"` // elements written or created
	Recipes  int `json:"recipes"`  // recipes written or created
	Existing int `json:"existing"` // records already present in the target store
	Skipped  int `json:"skipped"`  // malformed or invalid records
}

// Export writes every element and recipe in store to dir, creating dir if
// needed.
func Export(ctx context.Context, store types.Store, dir string) (Stats, error) {
	var stats Stats
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return stats, fmt.Errorf("creating snapshot dir: %w", err)
	}

	elements, err := store.ListElements(ctx)
	if err != nil {
		return stats, fmt.Errorf("listing elements: %w", err)
	}
	recipes, err := store.ListRecipes(ctx)
	if err != nil {
		return stats, fmt.Errorf("listing recipes: %w", err)
	}

	elementRecs := make([]elementRecord, len(elements))
	for i, e := range elements {
		elementRecs[i] = elementRecord{
			ElementID: e.ElementID,
			Name:      e.Name,
			Emoji:     e.Emoji,
			CreatedAt: e.CreatedAt,
		}
	}

	// ListRecipes is newest first; the file is oldest first.
	recipeRecs := make([]recipeRecord, len(recipes))
	for i, r := range recipes {
		recipeRecs[len(recipes)-1-i] = recipeRecord{
			RecipeID:   r.RecipeID,
			ElementA:   r.ElementA.Name,
			ElementB:   r.ElementB.Name,
			Result:     r.Result.Name,
			Discoverer: r.Discoverer,
			CreatedAt:  r.CreatedAt,
		}
	}

	if err := writeJSONL(filepath.Join(dir, ElementsFile), elementRecs); err != nil {
		return stats, fmt.Errorf("writing %s: %w", ElementsFile, err)
	}
	if err := writeJSONL(filepath.Join(dir, RecipesFile), recipeRecs); err != nil {
		return stats, fmt.Errorf("writing %s: %w", RecipesFile, err)
	}
	stats.Elements = len(elementRecs)
	stats.Recipes = len(recipeRecs)
	return stats, nil
}

// Import replays the snapshot in dir into store. Elements load before
// recipes. A missing recipes.jsonl is treated as empty; a missing
// elements.jsonl is an error.
func Import(ctx context.Context, store types.Store, dir string) (Stats, error) {
	var stats Stats

	elementRecs, skipped, err := readJSONL(filepath.Join(dir, ElementsFile))
	if err != nil {
		return stats, err
	}
	stats.Skipped += skipped

	for _, raw := range elementRecs {
		var rec elementRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			stats.Skipped++
			continue
		}
		_, err := store.CreateElement(ctx, rec.Name, rec.Emoji)
		switch {
		case err == nil:
			stats.Elements++
		case errors.Is(err, types.ErrDuplicateName):
			stats.Existing++
		case errors.Is(err, types.ErrInvalidName), errors.Is(err, types.ErrInvalidData):
			stats.Skipped++
		default:
			return stats, fmt.Errorf("importing element %q: %w", rec.Name, err)
		}
	}

	recipeRecs, skipped, err := readJSONL(filepath.Join(dir, RecipesFile))
	if errors.Is(err, os.ErrNotExist) {
		return stats, nil
	}
	if err != nil {
		return stats, err
	}
	stats.Skipped += skipped

	for _, raw := range recipeRecs {
		var rec recipeRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			stats.Skipped++
			continue
		}
		ids, err := resolveNames(ctx, store, rec.ElementA, rec.ElementB, rec.Result)
		if errors.Is(err, types.ErrNotFound) || errors.Is(err, types.ErrInvalidName) {
			stats.Skipped++
			continue
		}
		if err != nil {
			return stats, fmt.Errorf("importing recipe %s: %w", rec.RecipeID, err)
		}

		_, err = store.CreateRecipe(ctx, ids[0], ids[1], ids[2], rec.Discoverer)
		switch {
		case err == nil:
			stats.Recipes++
		case errors.Is(err, types.ErrDuplicatePair):
			stats.Existing++
		default:
			return stats, fmt.Errorf("importing recipe %s: %w", rec.RecipeID, err)
		}
	}
	return stats, nil
}

// resolveNames maps element names to IDs in store.
func resolveNames(ctx context.Context, store types.Store, names ...string) ([]string, error) {
	ids := make([]string, len(names))
	for i, n := range names {
		if n == "" {
			return nil, types.ErrInvalidName
		}
		e, err := store.FindElementByName(ctx, n)
		if err != nil {
			return nil, err
		}
		ids[i] = e.ElementID
	}
	return ids, nil
}
