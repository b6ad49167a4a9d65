package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/cauldron/internal/craft"
	"github.com/mesh-intelligence/cauldron/pkg/cauldron"
	"github.com/mesh-intelligence/cauldron/pkg/types"
)

// openStore attaches the configured backend and makes sure the starting
// elements exist. The caller must Detach the returned store.
func (a *app) openStore(ctx context.Context) (types.Store, error) {
	store, err := cauldron.Open(a.config)
	if err != nil {
		return nil, err
	}
	n, err := craft.Seed(ctx, store)
	if err != nil {
		store.Detach()
		return nil, fmt.Errorf("seed starting elements: %w", err)
	}
	if n > 0 {
		a.logger.Info("seeded starting elements", "count", n, "backend", a.config.Backend)
	}
	return store, nil
}

// resolver wraps store with the command's logger.
func (a *app) resolver(store types.Store) *craft.Resolver {
	return craft.NewResolver(store, craft.WithLogger(a.logger))
}

// printJSON writes v as indented JSON to the command's output.
func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Fprintln(out(cmd), string(data))
	return nil
}

// elementOut and recipeOut are the JSON shapes printed by the listing
// commands.
type elementOut struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Emoji string `json:"emoji"`
}

type recipeOut struct {
	ElementA        string `json:"element_a"`
	ElementB        string `json:"element_b"`
	Result          string `json:"result"`
	ResultEmoji     string `json:"result_emoji"`
	FirstDiscoverer string `json:"first_discoverer"`
}

func toRecipeOut(r *types.Recipe) recipeOut {
	return recipeOut{
		ElementA:        r.ElementA.Name,
		ElementB:        r.ElementB.Name,
		Result:          r.Result.Name,
		ResultEmoji:     r.Result.Emoji,
		FirstDiscoverer: r.Discoverer,
	}
}

// formatRecipe renders a recipe as one line of text.
func formatRecipe(r *types.Recipe) string {
	return fmt.Sprintf("%s %s + %s %s = %s %s  (%s)",
		r.ElementA.Emoji, r.ElementA.Name,
		r.ElementB.Emoji, r.ElementB.Name,
		r.Result.Emoji, r.Result.Name,
		r.Discoverer)
}
