package cli

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/cauldron/internal/api"
)

func (a *app) newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve the JSON API until interrupted.

The listen address comes from --addr, then CAULDRON_ADDR, then PORT
(default 3000) on all interfaces. CAULDRON_READ_HEADER_TIMEOUT and
CAULDRON_SHUTDOWN_TIMEOUT tune the server.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			srvCfg, err := api.ParseConfig()
			if err != nil {
				return usageErrorf("%v", err)
			}
			if addr != "" {
				srvCfg.Addr = addr
			}

			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Detach()

			a.logger.Info("starting server",
				"backend", a.config.Backend,
				"data_dir", a.config.DataDir,
				"addr", srvCfg.ListenAddr())
			return api.NewServer(a.resolver(store), a.logger).ListenAndServe(ctx, srvCfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, host:port")
	return cmd
}
