package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"osintgram/pkg/config"
	"osintgram/pkg/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage osintgram configuration files.

Configuration is read from, highest priority first:
  - Command line flags
  - Environment variables (OSINTGRAM_*, also loaded from .env)
  - Configuration file
  - Default values`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default values",
	Long: `Write a configuration file with every option at its default value.

The file is created as '.osintgram.yaml' in the current directory unless a
different path is given with --config.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration with secrets masked",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd, configValidateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = ".osintgram.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists: %s", path)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}

	ui.PrintSuccess("Configuration file created: " + path)
	fmt.Fprintln(cmd.OutOrStdout(), "\nNext steps:")
	fmt.Fprintln(cmd.OutOrStdout(), "1. Run 'osintgram auth login' to store your Instagram credentials")
	fmt.Fprintln(cmd.OutOrStdout(), "2. Run 'osintgram config validate' to check the configuration")
	fmt.Fprintln(cmd.OutOrStdout(), "3. Start the shell with 'osintgram <target>'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(maskedConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

// maskedConfig returns a copy of cfg safe to print
func maskedConfig(cfg *config.Config) config.Config {
	masked := *cfg
	masked.Instagram.Password = mask(masked.Instagram.Password)
	masked.Instagram.SessionID = mask(masked.Instagram.SessionID)
	masked.Instagram.CSRFToken = mask(masked.Instagram.CSRFToken)
	return masked
}

func mask(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) > 8:
		return s[:4] + "..." + s[len(s)-4:]
	default:
		return "***"
	}
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var warnings []string
	if cfg.Instagram.Username == "" {
		warnings = append(warnings, "no Instagram username configured, stored credentials will be used")
	}
	if cfg.Instagram.Password != "" {
		warnings = append(warnings, "password stored in plain configuration, prefer 'osintgram auth login'")
	}
	if err := os.MkdirAll(cfg.Output.BaseDirectory, 0755); err != nil {
		return fmt.Errorf("cannot create output directory: %w", err)
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			return fmt.Errorf("cannot create log directory: %w", err)
		}
	}

	for _, w := range warnings {
		ui.PrintWarning("Warning", w)
	}
	ui.PrintSuccess("Configuration is valid")

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "  Output directory: %s\n", cfg.Output.BaseDirectory)
	fmt.Fprintf(out, "  Session file:     %s\n", cfg.Output.SessionFile)
	fmt.Fprintf(out, "  Feed limit:       %d posts\n", cfg.Instagram.FeedLimit)
	fmt.Fprintf(out, "  Rate limit:       %d requests/minute\n", cfg.RateLimit.RequestsPerMinute)
	fmt.Fprintf(out, "  Log level:        %s\n", cfg.Logging.Level)
	return nil
}
