package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/cauldron/pkg/cauldron"
)

const modulePath = "github.com/mesh-intelligence/cauldron"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the cauldron version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(out(cmd), "cauldron v%s\nmodule: %s\n", cauldron.Version, modulePath)
			return nil
		},
	}
}
