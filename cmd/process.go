package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var processPending bool

var processCmd = &cobra.Command{
	Use:   "process [document-id]",
	Short: "Chunk and embed documents",
	Long: `Runs the processing pipeline on a document: split into chunks, generate
embeddings and store the result. With --pending, processes every active
document that has no chunks yet.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !processPending && len(args) == 0 {
			return fmt.Errorf("provide a document id or --pending")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		database, store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		processor, err := newProcessor(cfg, store, true)
		if err != nil {
			return err
		}

		ctx := context.Background()
		if processPending {
			n, errs := processor.ProcessPending(ctx)
			fmt.Printf("Processed %d document(s)\n", n)
			for _, e := range errs {
				fmt.Printf("  error: %v\n", e)
			}
			if len(errs) > 0 {
				return fmt.Errorf("%d document(s) failed", len(errs))
			}
			return nil
		}

		job, err := processor.Process(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Job %s: %s\n", job.ID, job.Status)
		return nil
	},
}

func init() {
	processCmd.Flags().BoolVar(&processPending, "pending", false, "process every document without chunks")
	rootCmd.AddCommand(processCmd)
}
