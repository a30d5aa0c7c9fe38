package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coachkit/knowledge-engine/internal/syncer"
)

var syncIncremental bool

var syncCmd = &cobra.Command{
	Use:   "sync <namespace>",
	Short: "Reconcile a namespace with its remote vector store",
	Long: `Uploads missing documents, replaces stale ones and removes remote files
no local document owns. With --incremental, only never-synced documents
are uploaded.`,
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

		reconciler := newReconciler(cfg, store)
		if reconciler == nil {
			return fmt.Errorf("no vector stores configured; add vector_stores to %s", cfgFile)
		}

		mode := syncer.ModeFull
		if syncIncremental {
			mode = syncer.ModeIncremental
		}

		result, err := reconciler.Sync(context.Background(), args[0], mode)
		if err != nil {
			return err
		}

		fmt.Printf("Uploaded %d, updated %d, deleted %d, failed %d\n",
			result.Uploaded, result.Updated, result.Deleted, result.Failed)
		for _, op := range result.Operations {
			if op.Success {
				continue
			}
			fmt.Printf("  %s %s: %s\n", op.Action, op.Title, op.Message)
		}
		if !result.Success() {
			return fmt.Errorf("%d operation(s) failed", result.Failed)
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <namespace>",
	Short: "Show a namespace's sync status",
	Args:  cobra.ExactArgs(1),
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

		reconciler := newReconciler(cfg, store)
		if reconciler == nil {
			return fmt.Errorf("no vector stores configured; add vector_stores to %s", cfgFile)
		}

		status, err := reconciler.Status(context.Background(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Namespace:       %s\n", status.Namespace)
		fmt.Printf("State:           %s\n", status.State)
		fmt.Printf("Local documents: %d\n", status.LocalDocuments)
		fmt.Printf("Linked:          %d\n", status.Linked)
		fmt.Printf("Pending:         %d\n", status.Pending)
		fmt.Printf("Remote files:    %d\n", status.RemoteFiles)
		fmt.Printf("Orphans:         %d\n", status.Orphans)
		return nil
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncIncremental, "incremental", false, "only upload never-synced documents")
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statusCmd)
}
