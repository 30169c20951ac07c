// Package cli implements the coderag command line.
//
// Every subcommand loads the configuration named by --config (or
// CODERAG_CONFIG), opens the engine under its data directory and closes it
// on exit. Logs go to stderr; command output goes to stdout so the MCP
// transport and JSON results stay clean.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hyunolike/learnathon-1st-team1/internal/config"
	"github.com/hyunolike/learnathon-1st-team1/internal/engine"
	"github.com/hyunolike/learnathon-1st-team1/internal/logging"
)

// BuildInfo is stamped in by the linker
type BuildInfo struct {
	Version   string
	BuildTime string
}

type app struct {
	info       BuildInfo
	configPath string
}

// NewRootCommand builds the command tree
func NewRootCommand(info BuildInfo) *cobra.Command {
	a := &app{info: info}

	root := &cobra.Command{
		Use:   "coderag",
		Short: "Hybrid code search over ingested repositories",
		Long: `coderag ingests source repositories into chunked, language-tagged
documents and answers queries by fusing BM25 keyword scores with dense
embedding similarity.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to a YAML config file")

	root.AddCommand(
		a.newServeCommand(),
		a.newHTTPCommand(),
		a.newIngestCommand(),
		a.newSearchCommand(),
		a.newStatusCommand(),
		a.newVersionCommand(),
	)
	return root
}

// Execute runs the root command with ctx
func Execute(ctx context.Context, info BuildInfo) error {
	return NewRootCommand(info).ExecuteContext(ctx)
}

func (a *app) loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logging.New(cfg.Log.Level, cfg.Log.Format), nil
}

func (a *app) openEngine(ctx context.Context) (*engine.Engine, *config.Config, *slog.Logger, error) {
	cfg, logger, err := a.loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	eng, err := engine.Open(ctx, cfg, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open engine: %w", err)
	}
	return eng, cfg, logger, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
