package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/keshon/server-chatter/internal/logging"
	v "github.com/keshon/server-chatter/internal/version"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "chatter",
	Short: "Operator tools for the chatter bot",
	Long: v.AppDescription + "\n\n" +
		"Inspect the response decision, render generation prompts and probe the generation API without connecting to Discord.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(logLevel, "console")
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level")

	rootCmd.AddCommand(decideCmd())
	rootCmd.AddCommand(promptCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
