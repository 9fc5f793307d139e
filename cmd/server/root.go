package main

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "kestrel",
	Short: "Kestrel is a video game catalog backend",
	Long: `Kestrel serves a game catalog sourced from IGDB, with per-user
libraries, now-playing lists and comment threads.`,
	Args:         cobra.OnlyValidArgs,
	SilenceUsage: true,
}

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().StringVar(&configPath, "config", ".", "Directory containing the .env file")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
