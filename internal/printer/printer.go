// Package printer renders blackboardd's terminal output — case tables,
// engine lifecycle lines, and Cobra-facing errors — with the same
// color-coded conventions the rest of the CLI toolchain uses.
package printer

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

func init() {
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
)

// Success reports that an operation completed, prefixed with a checkmark.
func Success(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if strings.HasPrefix(msg, "✓") {
		green.Print(msg)
		return
	}
	green.Printf("✓ %s", msg)
}

// Info writes an uncolored status line, e.g. "engine stopped".
func Info(format string, a ...any) {
	fmt.Printf(format, a...)
}

// Warning reports a non-fatal condition, e.g. the case-snapshot API
// stopping with an error.
func Warning(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if strings.HasPrefix(msg, "⚠️") {
		yellow.Print(msg)
		return
	}
	yellow.Printf("⚠️  %s", msg)
}

// Error prints a title, an explanation, and optional remediation steps to
// stderr, and returns a bare error carrying only the title — the detail
// lives on the terminal, not in the Cobra-printed error line.
func Error(title, explanation string, suggestions []string) error {
	red.Fprintf(os.Stderr, "%s\n\n", title)
	fmt.Fprintf(os.Stderr, "%s\n", explanation)
	printSuggestions(suggestions)
	return fmt.Errorf("%s", title)
}

func printSuggestions(suggestions []string) {
	if len(suggestions) == 0 {
		return
	}
	fmt.Fprintln(os.Stderr)
	if len(suggestions) == 1 {
		fmt.Fprintf(os.Stderr, "%s\n", suggestions[0])
		return
	}
	fmt.Fprintln(os.Stderr, "Either:")
	for i, s := range suggestions {
		fmt.Fprintf(os.Stderr, "  %d. %s\n", i+1, s)
	}
}

// Step announces the start of a multi-line block of output, e.g. a case's
// full detail view.
func Step(format string, a ...any) {
	cyan.Printf("→ %s", fmt.Sprintf(format, a...))
}

// Println writes a plain line with no color, table rows and JSON dumps.
func Println(a ...any) {
	fmt.Println(a...)
}

// Printf writes a plain formatted line with no color.
func Printf(format string, a ...any) {
	fmt.Printf(format, a...)
}
