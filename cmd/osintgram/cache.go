package main

import (
	"github.com/spf13/cobra"
	"osintgram/pkg/logger"
	"osintgram/pkg/sessioncache"
	"osintgram/pkg/ui"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the cached login session",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget the cached login session",
	Long: `Empty the session file (output.session_file, default config/settings.json)
so the next run logs in again with the stored credentials.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		cache := sessioncache.New(cfg.Output.SessionFile, logger.NewNopLogger())
		if !cache.Exists() {
			ui.PrintWarning("No session cache", cache.Path())
			return nil
		}
		if err := cache.Clear(); err != nil {
			return err
		}
		ui.PrintSuccess("Cache Cleared.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
