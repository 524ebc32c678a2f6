package cmd

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "stock-forecast",
	Short: "Stock price prediction service with a web dashboard and Telegram bot",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "directory containing config.yaml")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(migrateCmd)
}
