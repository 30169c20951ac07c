package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hyunolike/learnathon-1st-team1/internal/engine"
	"github.com/hyunolike/learnathon-1st-team1/internal/language"
	"github.com/hyunolike/learnathon-1st-team1/internal/repo"
	"github.com/hyunolike/learnathon-1st-team1/pkg/types"
)

func (a *app) newIngestCommand() *cobra.Command {
	var languages []string
	cmd := &cobra.Command{
		Use:   "ingest <path-or-url>",
		Short: "Ingest a local directory or clone and ingest a git URL",
		Long: `Ingest walks the tree, chunks every recognized file and indexes the
chunks for keyword and vector search. An argument naming an existing
directory is read in place; anything else is treated as a git URL and
shallow-cloned into the clone base, which is removed afterwards.

Ingesting the same path or URL again replaces its previous contents.`,
		Example: `  coderag ingest ./myproject
  coderag ingest https://github.com/user/repo.git --languages go,python`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tags, err := parseLanguages(languages)
			if err != nil {
				return err
			}

			eng, _, _, err := a.openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer eng.Close()

			target := args[0]
			opts := &engine.IngestOptions{Languages: tags}

			var report *types.IngestionReport
			if info, statErr := os.Stat(target); statErr == nil && info.IsDir() {
				report, err = eng.IngestRepository(cmd.Context(), target, opts)
			} else {
				if err := repo.ValidateURL(target); err != nil {
					return fmt.Errorf("%s is neither a directory nor a git URL: %w", target, err)
				}
				report, err = eng.IngestURL(cmd.Context(), target, opts)
			}
			if err != nil {
				return fmt.Errorf("ingestion failed: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringSliceVarP(&languages, "languages", "l", nil, "only ingest these languages (e.g. go,python,markdown)")
	return cmd
}

func parseLanguages(names []string) ([]types.LanguageTag, error) {
	tags := make([]types.LanguageTag, 0, len(names))
	for _, name := range names {
		tag, ok := language.ParseTag(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown language %q", types.ErrInvalidInput, name)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}
