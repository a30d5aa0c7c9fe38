package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/coachkit/knowledge-engine/internal/mcp"
	"github.com/coachkit/knowledge-engine/internal/search"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing knowledge retrieval tools for AI agents like Claude Code.`,
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
		reconciler := newReconciler(cfg, store)

		mcpserver.Version = Version

		fmt.Fprintf(os.Stderr, "kengine MCP server started on stdio (db=%s)\n", cfg.DatabasePath)

		srv := mcpserver.NewServer(searcher, assembler, reconciler)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
