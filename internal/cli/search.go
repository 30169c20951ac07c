package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyunolike/learnathon-1st-team1/pkg/types"
)

func (a *app) newSearchCommand() *cobra.Command {
	var (
		topK         int
		sparseWeight float64
		denseWeight  float64
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the ingested corpus",
		Long: `Performs hybrid search across every ingested source. Each result's score
is sparse_weight * BM25 + dense_weight * cosine similarity, with both
signals normalized to [0,1].`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, cfg, _, err := a.openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer eng.Close()

			if !cmd.Flags().Changed("top-k") {
				topK = cfg.Search.TopK
			}
			var weights *types.FusionWeights
			if cmd.Flags().Changed("sparse-weight") || cmd.Flags().Changed("dense-weight") {
				w := eng.Weights()
				if cmd.Flags().Changed("sparse-weight") {
					w.Sparse = sparseWeight
				}
				if cmd.Flags().Changed("dense-weight") {
					w.Dense = denseWeight
				}
				weights = &w
			}

			resp, err := eng.SearchWithWeights(cmd.Context(), args[0], topK, weights)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().IntVarP(&topK, "top-k", "k", types.DefaultTopK, "maximum number of results")
	cmd.Flags().Float64Var(&sparseWeight, "sparse-weight", types.DefaultSparseWeight, "weight of the BM25 score")
	cmd.Flags().Float64Var(&denseWeight, "dense-weight", types.DefaultDenseWeight, "weight of the embedding score")
	return cmd
}
