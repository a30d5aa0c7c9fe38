package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coachkit/knowledge-engine/internal/search"
)

var (
	contextStyle      string
	contextVariations bool
)

var contextCmd = &cobra.Command{
	Use:   "context <query> [query...]",
	Short: "Assemble retrieval context for one or more queries",
	Long: `Searches every query, merges and deduplicates the results, and prints
a formatted context block ready to paste into a prompt.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		database, store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		searcher := newSearcher(cfg, store)
		assembler := search.NewAssembler(searcher, search.NewSynonymVariations(nil))

		result, err := assembler.BuildContext(context.Background(), args, search.BuildOptions{
			Threshold:     cfg.Search.Threshold,
			Style:         search.Style(contextStyle),
			Mode:          search.Mode(cfg.Search.Mode),
			UseVariations: contextVariations,
		})
		if err != nil {
			return err
		}

		if result.Context == "" {
			fmt.Println("No relevant knowledge found.")
			return nil
		}
		fmt.Println(result.Context)
		if verbose {
			fmt.Printf("\n%d chunks from %d document(s)\n",
				result.Metadata.TotalChunks, len(result.Metadata.DocumentSources))
		}
		return nil
	},
}

func init() {
	contextCmd.Flags().StringVarP(&contextStyle, "style", "s", "", "output style: detailed, summary or bullet")
	contextCmd.Flags().BoolVar(&contextVariations, "variations", false, "broaden each query with domain synonyms")
	rootCmd.AddCommand(contextCmd)
}
