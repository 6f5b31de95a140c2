package main

import (
	"os"

	"github.com/spf13/cobra"
)

// configPath overrides the layered config lookup when set.
var configPath string

var rootCmd = &cobra.Command{
	Use:   "boomai",
	Short: "Task orchestration and consensus engine",
	Long: `boomai answers chat requests by picking an execution policy per request:

- Arithmetic and clock questions run on local tools without a model call
- Short factual questions get a single model call
- List-shaped or length-bounded questions race several candidates and
  take the first answer ahead by a voting margin
- Multi-part requests are decomposed into steps that run in order

With no arguments, launches the terminal chat.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: user config merged with .boomai.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
