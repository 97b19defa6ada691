package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"

	"github.com/spf13/cobra"
	"osintgram/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile   string
	logLevel     string
	outputDir    string
	writeFile    bool
	jsonDump     bool
	limit        int
	assumeYes    bool
	clearCookies bool
	noColor      bool
)

// rootCmd runs one operation against a target, or opens the interactive
// shell when no operation is given
var rootCmd = &cobra.Command{
	Use:   "osintgram <target> [command]",
	Short: "OSINT toolkit for Instagram accounts",
	Long: `Osintgram collects information about one Instagram account per session:
followers, followings, posts, captions, comments, geotags, media and
statistics derived from them.

Every command lists its results on the console and can also write them to
"<output>/<target>/<target>_<command>.txt" (--file) and ".json" (--json).

Run "osintgram <target>" for the interactive shell, or pass a command to run
it once, e.g. "osintgram <target> followers".

Use it only on accounts you are authorised to investigate and within
Instagram's terms of service.`,
	Example: `  # Interactive shell on a target
  osintgram someone

  # One command, exporting text and JSON files
  osintgram someone followers --file --json

  # First 20 follower emails without prompting
  osintgram fwersemail someone --limit 20`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	Args:          cobra.RangeArgs(1, 2),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.SetColor(!noColor && ui.ColorSupported(os.Stdout))
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 2 {
			return runOnce(cmd, args[0], args[1])
		}
		return runShell(cmd, args[0])
	},
}

// Execute runs the command line and returns the process exit status
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		reportError(err)
	}
	return exitCode(err)
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "config file (default is ./.osintgram.yaml or ~/.config/osintgram/config.yaml)")
	flags.StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	flags.StringVarP(&outputDir, "output", "o", "", "base directory for exported files (default \"output\")")
	flags.BoolVarP(&writeFile, "file", "f", false, "write results to a text file")
	flags.BoolVarP(&jsonDump, "json", "j", false, "write results to a JSON file")
	flags.IntVar(&limit, "limit", 0, "maximum results for commands that take a count (0 means all)")
	flags.BoolVarP(&assumeYes, "yes", "y", false, "answer yes to prompts (follow requests, collect all)")
	flags.BoolVarP(&clearCookies, "clear-cookies", "C", false, "clear the cached login session before starting")
	flags.BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.SetVersionTemplate(`Osintgram {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// reportError prints a failed command's error the way the user should act on it
func reportError(err error) {
	var te *targetError
	switch {
	case errors.Is(err, errAbandoned):
	case challengeURL(err) != "":
		ui.PrintError("Challenge required", challengeURL(err))
		ui.PrintWarning("Open the link in a browser, complete the verification and run osintgram again")
	case errors.As(err, &te):
		ui.PrintError(fmt.Sprintf("Cannot select target %q", te.name), te.err)
	default:
		ui.PrintError("Error", err)
	}
}
