package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/cauldron/pkg/types"
)

const defaultWatchInterval = 2 * time.Second

func (a *app) newWatchCmd() *cobra.Command {
	var (
		interval time.Duration
		all      bool
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print discoveries as they happen",
		Long: `Print new recipes until interrupted. Stores that push discoveries (redis)
are subscribed to; the others are polled every --interval.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if interval <= 0 {
				return usageErrorf("--interval must be positive")
			}
			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Detach()

			w := &recipePrinter{w: out(cmd), json: a.flags.jsonMode}
			if feed, ok := store.(types.DiscoveryFeed); ok {
				return a.watchFeed(ctx, store, feed, w, all)
			}
			return a.watchPoll(ctx, store, w, interval, all)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", defaultWatchInterval, "polling interval for stores without push")
	cmd.Flags().BoolVar(&all, "all", false, "print existing recipes first")
	return cmd
}

// watchFeed prints recipes pushed by the store.
func (a *app) watchFeed(ctx context.Context, store types.Store, feed types.DiscoveryFeed, w *recipePrinter, all bool) error {
	ch, err := feed.Discoveries(ctx)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	if all {
		existing, err := store.ListRecipes(ctx)
		if err != nil {
			return err
		}
		w.printOldestFirst(existing)
	}
	for r := range ch {
		w.print(r)
	}
	return nil
}

// watchPoll lists recipes every interval and prints the ones not seen yet.
func (a *app) watchPoll(ctx context.Context, store types.Store, w *recipePrinter, interval time.Duration, all bool) error {
	seen := make(map[string]bool)
	existing, err := store.ListRecipes(ctx)
	if err != nil {
		return err
	}
	for _, r := range existing {
		seen[r.RecipeID] = true
	}
	if all {
		w.printOldestFirst(existing)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		recipes, err := store.ListRecipes(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			a.logger.Warn("polling recipes failed", "error", err)
			continue
		}
		var fresh []*types.Recipe
		for _, r := range recipes {
			if !seen[r.RecipeID] {
				seen[r.RecipeID] = true
				fresh = append(fresh, r)
			}
		}
		w.printOldestFirst(fresh)
	}
}

// recipePrinter writes recipes as text lines or JSON lines.
type recipePrinter struct {
	w    io.Writer
	json bool
}

// printOldestFirst prints a newest-first listing in chronological order.
func (p *recipePrinter) printOldestFirst(recipes []*types.Recipe) {
	for i := len(recipes) - 1; i >= 0; i-- {
		p.print(recipes[i])
	}
}

func (p *recipePrinter) print(r *types.Recipe) {
	if !p.json {
		fmt.Fprintln(p.w, formatRecipe(r))
		return
	}
	data, err := json.Marshal(toRecipeOut(r))
	if err != nil {
		return
	}
	fmt.Fprintln(p.w, string(data))
}
