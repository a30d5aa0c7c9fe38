package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coachkit/knowledge-engine/internal/search"
)

var (
	searchMode       string
	searchLimit      int
	searchThreshold  float64
	searchDocType    string
	searchVariations bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the knowledge base",
	Args:  cobra.MinimumNArgs(1),
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

		query := strings.Join(args, " ")
		opts := search.Options{
			Threshold:  cfg.Search.Threshold,
			MaxResults: cfg.Search.MaxResults,
			Mode:       search.Mode(cfg.Search.Mode),
		}
		if searchMode != "" {
			opts.Mode = search.Mode(searchMode)
		}
		if searchLimit > 0 {
			opts.MaxResults = searchLimit
		}
		if cmd.Flags().Changed("threshold") {
			opts.Threshold = searchThreshold
		}
		if searchDocType != "" {
			opts.DocTypes = []string{searchDocType}
		}

		searcher := newSearcher(cfg, store)

		var results []search.Result
		if searchVariations {
			results, err = searcher.SearchWithVariations(context.Background(), query, opts, search.NewSynonymVariations(nil))
		} else {
			results, err = searcher.Search(context.Background(), query, opts)
		}
		if err != nil {
			return err
		}

		if len(results) == 0 {
			fmt.Println("No results.")
			return nil
		}
		for i, r := range results {
			fmt.Printf("%d. [%.2f] %s (%s)\n", i+1, r.Score, r.DocumentTitle, r.DocumentType)
			fmt.Printf("   %s\n", firstLine(r.Content))
		}
		return nil
	},
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 120 {
		s = s[:120] + "..."
	}
	return s
}

func init() {
	searchCmd.Flags().StringVarP(&searchMode, "mode", "m", "", "search mode: lexical or vector")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "l", 0, "maximum results")
	searchCmd.Flags().Float64Var(&searchThreshold, "threshold", 0, "minimum relevance score")
	searchCmd.Flags().StringVarP(&searchDocType, "type", "t", "", "restrict to a document type")
	searchCmd.Flags().BoolVar(&searchVariations, "variations", false, "broaden the query with domain synonyms")
	rootCmd.AddCommand(searchCmd)
}
