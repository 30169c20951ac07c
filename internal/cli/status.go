package cli

import (
	"github.com/spf13/cobra"
)

func (a *app) newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show corpus and index statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, _, _, err := a.openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer eng.Close()
			return printJSON(cmd.OutOrStdout(), eng.Status(cmd.Context()))
		},
	}
}
