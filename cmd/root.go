package cmd

import (
	"github.com/spf13/cobra"

	"github.com/coachkit/knowledge-engine/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "kengine",
	Short: "Document knowledge base with chunked retrieval and remote sync",
	Long: `Kengine ingests documents, splits them into embedded chunks and answers
similarity queries over them. It assembles retrieval context for AI
prompts, mirrors each namespace into a hosted vector store, and exposes
everything over an HTTP API and MCP tools.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
