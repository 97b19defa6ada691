// Package ui holds the console helpers of the command line: colours, the
// target banner, progress counters and desktop notifications.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// ASCIILogo is printed when the interactive shell starts
const ASCIILogo = `
   ___      _       _
  / _ \ ___(_)_ __ | |_ __ _ _ __ __ _ _ __ ___
 | | | / __| | '_ \| __/ _' | '__/ _' | '_ ' _ \
 | |_| \__ \ | | | | || (_| | | | (_| | | | | | |
  \___/|___/_|_| |_|\__\__, |_|  \__,_|_| |_| |_|
                       |___/
`

// Output receives everything printed by this package
var Output io.Writer = os.Stdout

var colorEnabled = true

var (
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	yellow  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	red     = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	green   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	dim     = lipgloss.NewStyle().Faint(true)
)

// Colour helpers
var (
	Cyan    = colorize(cyan)
	Yellow  = colorize(yellow)
	Red     = colorize(red)
	Green   = colorize(green)
	Magenta = colorize(magenta)
	Dim     = colorize(dim)
)

func colorize(style lipgloss.Style) func(string) string {
	return func(text string) string {
		if !colorEnabled {
			return text
		}
		return style.Render(text)
	}
}

// SetColor turns colour output on or off
func SetColor(on bool) {
	colorEnabled = on
}

// ColorEnabled reports whether colour output is on
func ColorEnabled() bool {
	return colorEnabled
}

// ColorSupported reports whether f is a terminal that should get colours.
// NO_COLOR disables colours regardless of the terminal.
func ColorSupported(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// PrintLogo prints the ASCII logo with color
func PrintLogo() {
	fmt.Fprint(Output, Cyan(ASCIILogo)+"\n")
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(Output, Red(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(Output, Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	fmt.Fprintln(Output, Green(msg))
}

// PrintInfo prints a label/value pair
func PrintInfo(label string, value string) {
	fmt.Fprintf(Output, "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(Output, Yellow(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(Output, Yellow(msg))
	}
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	fmt.Fprintln(Output, Magenta(msg))
}

// TargetBanner describes the selected target
type TargetBanner struct {
	LoggedInAs string
	Target     string
	ID         string
	Private    bool
	Following  bool
}

// PrintTarget prints the logged-in account and the target with its flags
func PrintTarget(b TargetBanner) {
	PrintInfo("Logged as", b.LoggedInAs)
	line := fmt.Sprintf("%s %s %s", Cyan("Target:"), Green(b.Target), Red(b.ID))
	if b.Private {
		line += " " + Red("[PRIVATE PROFILE]")
	}
	if b.Following {
		line += " " + Green("[FOLLOWING]")
	} else {
		line += " " + Red("[NOT FOLLOWING]")
	}
	fmt.Fprintln(Output, line)
}
