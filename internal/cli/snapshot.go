package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/cauldron/internal/snapshot"
)

func (a *app) newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <dir>",
		Short: "Write elements and recipes to JSONL files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Detach()

			stats, err := snapshot.Export(ctx, store, args[0])
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return printJSON(cmd, stats)
			}
			fmt.Fprintf(out(cmd), "Exported %d elements and %d recipes to %s\n", stats.Elements, stats.Recipes, args[0])
			return nil
		},
	}
}

func (a *app) newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <dir>",
		Short: "Load elements and recipes from JSONL files",
		Long: `Load a snapshot written by export. Elements and recipes that already exist
are kept; malformed lines are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Detach()

			stats, err := snapshot.Import(ctx, store, args[0])
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return printJSON(cmd, stats)
			}
			fmt.Fprintf(out(cmd), "Imported %d elements and %d recipes (%d already present, %d skipped)\n",
				stats.Elements, stats.Recipes, stats.Existing, stats.Skipped)
			return nil
		},
	}
}
