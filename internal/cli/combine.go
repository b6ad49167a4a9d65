package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

type combineOut struct {
	IsNew  bool `json:"isNew"`
	Result struct {
		Name            string `json:"name"`
		Emoji           string `json:"emoji"`
		FirstDiscoverer string `json:"firstDiscoverer"`
	} `json:"result"`
}

func (a *app) newCombineCmd() *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "combine <a> <b>",
		Short: "Combine two elements",
		Long: `Combine two elements by name (case-insensitive). The first combination of a
pair creates its result and records you as the discoverer; later combinations
return the same result.

Example:
  cauldron combine Fire Water --user alice`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Detach()

			c, err := a.resolver(store).ResolveCombination(ctx, args[0], args[1], user)
			if err != nil {
				return err
			}

			if a.flags.jsonMode {
				var res combineOut
				res.IsNew = c.IsNew
				res.Result.Name = c.Result.Name
				res.Result.Emoji = c.Result.Emoji
				res.Result.FirstDiscoverer = c.FirstDiscoverer
				return printJSON(cmd, res)
			}
			if c.IsNew {
				fmt.Fprintf(out(cmd), "%s %s  (new discovery by %s)\n", c.Result.Emoji, c.Result.Name, c.FirstDiscoverer)
				return nil
			}
			fmt.Fprintf(out(cmd), "%s %s  (first discovered by %s)\n", c.Result.Emoji, c.Result.Name, c.FirstDiscoverer)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "discoverer ID (default: anonymous)")
	return cmd
}
