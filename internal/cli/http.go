package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hyunolike/learnathon-1st-team1/internal/httpapi"
)

func (a *app) newHTTPCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "http",
		Short: "Serve the REST API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			eng, cfg, logger, err := a.openEngine(ctx)
			if err != nil {
				return err
			}
			defer eng.Close()

			if addr == "" {
				addr = cfg.HTTP.Addr
			}
			srv := httpapi.NewServer(eng,
				httpapi.WithLogger(logger),
				httpapi.WithDefaultTopK(cfg.Search.TopK),
				httpapi.WithVersion(a.info.Version),
				httpapi.WithAllowedRoots(cfg.HTTP.AllowedRoots...))
			return srv.Listen(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, 127.0.0.1:8080)")
	return cmd
}
