package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hyunolike/learnathon-1st-team1/internal/mcp"
	"github.com/hyunolike/learnathon-1st-team1/internal/storage"
)

func (a *app) newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server on stdio",
		Long: `Start the Model Context Protocol server. It speaks JSON-RPC over
stdin/stdout and exposes the ingest_repository, search_code and get_status
tools.

Example MCP client configuration:
  {
    "mcpServers": {
      "coderag": {
        "command": "/path/to/coderag",
        "args": ["serve"]
      }
    }
  }`,
		Args: cobra.NoArgs,
		RunE: a.runServe,
	}
}

func (a *app) runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	eng, cfg, logger, err := a.openEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	logger.Info("coderag MCP server starting",
		"version", a.info.Version,
		"build_mode", storage.BuildMode,
		"driver", storage.DriverName)

	server := mcp.NewServer(eng, mcp.WithLogger(logger), mcp.WithDefaultTopK(cfg.Search.TopK))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("MCP server ready, listening on stdio")
		errChan <- server.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		logger.Info("shutting down", "signal", sig.String())
		cancel()
		return nil
	case err := <-errChan:
		return err
	}
}
