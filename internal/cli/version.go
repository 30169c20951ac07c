package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyunolike/learnathon-1st-team1/internal/storage"
)

func (a *app) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "coderag version %s\n", a.info.Version)
			fmt.Fprintf(w, "Build Time: %s\n", a.info.BuildTime)
			fmt.Fprintf(w, "Build Mode: %s\n", storage.BuildMode)
			fmt.Fprintf(w, "SQLite Driver: %s\n", storage.DriverName)
			fmt.Fprintf(w, "Vector Extension: %v\n", storage.VectorExtensionAvailable)
		},
	}
}
