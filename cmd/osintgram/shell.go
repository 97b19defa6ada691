package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	errs "osintgram/pkg/errors"
	"osintgram/pkg/osint"
	"osintgram/pkg/ui"
)

var shellCmd = &cobra.Command{
	Use:   "shell <target>",
	Short: "Open the interactive shell on a target",
	Long: `Open the interactive shell on a target.

Inside the shell type a command name to run it. Besides the operations:
  FILE=y / FILE=n   turn text file export on or off
  JSON=y / JSON=n   turn JSON file export on or off
  target            switch to another target
  cache             clear the cached login session
  help              list the commands
  quit / exit       leave the shell`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runShell(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(shellCmd)
	rootCmd.AddGroup(&cobra.Group{ID: "operations", Title: "Operations (osintgram <operation> <target>):"})

	for _, op := range osint.Operations() {
		rootCmd.AddCommand(&cobra.Command{
			Use:     op.Name + " <target>",
			Short:   op.Description,
			GroupID: "operations",
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runOnce(cmd, args[0], op.Name)
			},
		})
	}
}

// runOnce logs in, selects target and runs a single operation
func runOnce(cmd *cobra.Command, target, operation string) error {
	if _, ok := osint.Lookup(operation); !ok {
		return fmt.Errorf("unknown command %q, run 'osintgram --help' for the list", operation)
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	if err := a.selectTarget(ctx, target); err != nil {
		return err
	}
	return a.runSingle(ctx, operation, stdinIsInteractive())
}

// runShell logs in, selects target and reads commands until quit or EOF
func runShell(cmd *cobra.Command, target string) error {
	ui.PrintLogo()

	ctx := cmd.Context()
	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	if err := a.selectTarget(ctx, target); err != nil {
		return err
	}

	sh := &shell{app: a, out: a.out}
	return sh.run(ctx)
}

// shell is the interactive command loop
type shell struct {
	app *app
	out io.Writer
}

func (s *shell) run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := s.app.prompt.line(ui.Yellow("Run a command: "))
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(s.out)
			return nil
		}
		if err != nil {
			return err
		}

		quit, err := s.dispatch(ctx, line)
		if quit {
			return nil
		}
		if err == nil || errors.Is(err, errAbandoned) {
			continue
		}
		if errs.IsChallenge(err) {
			return err
		}
		reportError(err)
	}
}

// dispatch runs one shell line. quit is true when the user asked to leave.
func (s *shell) dispatch(ctx context.Context, line string) (quit bool, err error) {
	command := strings.TrimSpace(line)
	if command != "" {
		s.app.log.DebugWithFields("shell command", map[string]interface{}{"command": command})
	}

	switch strings.ToLower(command) {
	case "":
		return false, nil
	case "quit", "exit":
		ui.PrintHighlight("Goodbye!")
		return true, nil
	case "help":
		s.printHelp()
		return false, nil
	case "file=y":
		s.app.session.SetTextExport(true)
		ui.PrintSuccess("Write to file: enabled")
		return false, nil
	case "file=n":
		s.app.session.SetTextExport(false)
		ui.PrintSuccess("Write to file: disabled")
		return false, nil
	case "json=y":
		s.app.session.SetJSONExport(true)
		ui.PrintSuccess("Export to JSON: enabled")
		return false, nil
	case "json=n":
		s.app.session.SetJSONExport(false)
		ui.PrintSuccess("Export to JSON: disabled")
		return false, nil
	case "cache":
		if err := s.app.session.ClearCache(); err != nil {
			return false, err
		}
		ui.PrintSuccess("Cache Cleared.")
		return false, nil
	case "target":
		name, err := s.app.prompt.line("Insert new target username: ")
		if err != nil || name == "" {
			return false, errAbandoned
		}
		return false, s.app.changeTarget(ctx, name)
	}

	return false, s.app.runOperation(ctx, command, true)
}

func (s *shell) printHelp() {
	export := s.app.session.Export()
	fmt.Fprintln(s.out, ui.Cyan("Available commands:"))
	for _, op := range osint.Operations() {
		fmt.Fprintf(s.out, "  %s %s\n", ui.Yellow(pad(op.Name)), op.Description)
	}

	fmt.Fprintln(s.out)
	fmt.Fprintf(s.out, "  %s %s (now %s)\n", ui.Yellow(pad("FILE=y/n")), "Write results to a text file", onOff(export.ToText))
	fmt.Fprintf(s.out, "  %s %s (now %s)\n", ui.Yellow(pad("JSON=y/n")), "Write results to a JSON file", onOff(export.ToJSON))
	fmt.Fprintf(s.out, "  %s %s\n", ui.Yellow(pad("target")), "Switch to another target")
	fmt.Fprintf(s.out, "  %s %s\n", ui.Yellow(pad("cache")), "Clear the cached login session")
	fmt.Fprintf(s.out, "  %s %s\n", ui.Yellow(pad("quit")), "Leave the shell")
	fmt.Fprintf(s.out, "\nFiles are written to %s\n", ui.Dim(export.OutputDirectory))
}

func pad(name string) string {
	return fmt.Sprintf("%-14s", name)
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
