package cmd

import (
	"github.com/spf13/cobra"

	"github.com/coachkit/knowledge-engine/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize kengine configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure the knowledge engine and generates a .kengine.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
