package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) newElementsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "elements",
		Short: "List every element, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Detach()

			els, err := a.resolver(store).Elements(ctx)
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				res := make([]elementOut, len(els))
				for i, e := range els {
					res[i] = elementOut{ID: e.ElementID, Name: e.Name, Emoji: e.Emoji}
				}
				return printJSON(cmd, res)
			}
			for _, e := range els {
				fmt.Fprintf(out(cmd), "%s %s\n", e.Emoji, e.Name)
			}
			return nil
		},
	}
}

func (a *app) newRecipesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recipes",
		Short: "List every discovered recipe, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Detach()

			recipes, err := a.resolver(store).Recipes(ctx)
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				res := make([]recipeOut, len(recipes))
				for i, r := range recipes {
					res[i] = toRecipeOut(r)
				}
				return printJSON(cmd, res)
			}
			for _, r := range recipes {
				fmt.Fprintln(out(cmd), formatRecipe(r))
			}
			return nil
		},
	}
}
