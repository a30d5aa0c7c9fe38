package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coachkit/knowledge-engine/internal/importer"
	"github.com/coachkit/knowledge-engine/internal/progress"
)

var (
	importNamespace string
	importDocType   string
	importCategory  string
	importInclude   []string
	importExclude   []string
	importProcess   bool
)

var importCmd = &cobra.Command{
	Use:   "import <directory>",
	Short: "Import files from a directory as documents",
	Long: `Walks a directory and stores every matching text file as a document
titled by its relative path. Re-importing updates changed files and
skips unchanged ones.`,
	Args: cobra.ExactArgs(1),
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

		processor, err := newProcessor(cfg, store, importProcess)
		if err != nil {
			return err
		}

		opts := importer.Options{
			Dir:       args[0],
			Include:   cfg.Import.Include,
			Exclude:   cfg.Import.Exclude,
			DocType:   cfg.Import.DocType,
			Namespace: cfg.Import.Namespace,
			Category:  importCategory,
			Process:   importProcess,
		}
		if len(importInclude) > 0 {
			opts.Include = importInclude
		}
		if len(importExclude) > 0 {
			opts.Exclude = importExclude
		}
		if importNamespace != "" {
			opts.Namespace = importNamespace
		}
		if importDocType != "" {
			opts.DocType = importDocType
		}

		imp := importer.New(store, processor, progress.NewReporter())
		result, err := imp.Import(context.Background(), opts)
		if err != nil {
			return err
		}

		fmt.Printf("Imported %d, updated %d, skipped %d, failed %d\n",
			result.Imported, result.Updated, result.Skipped, result.Failed)
		if result.Failed > 0 {
			return fmt.Errorf("%d file(s) failed to import", result.Failed)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().StringVarP(&importNamespace, "namespace", "n", "", "document namespace (default from config)")
	importCmd.Flags().StringVarP(&importDocType, "type", "t", "", "document type (default from config)")
	importCmd.Flags().StringVar(&importCategory, "category", "", "document category")
	importCmd.Flags().StringSliceVar(&importInclude, "include", nil, "include glob patterns")
	importCmd.Flags().StringSliceVar(&importExclude, "exclude", nil, "exclude glob patterns")
	importCmd.Flags().BoolVar(&importProcess, "process", false, "chunk and embed each document after import")
	rootCmd.AddCommand(importCmd)
}
