package output

import (
	"os"

	"github.com/fatih/color"
)

var (
	// Candidate status colors
	UpToDate    = color.New(color.FgGreen)
	NeedsUpdate = color.New(color.FgYellow)
	Patched     = color.New(color.FgCyan)
	Submitted   = color.New(color.FgGreen)
	Failed      = color.New(color.FgRed)
	Skipped     = color.New(color.FgMagenta)

	// Message colors
	Success = color.New(color.FgGreen)
	Warning = color.New(color.FgYellow)
	Error   = color.New(color.FgRed)
	Info    = color.New(color.FgCyan)
	Dim     = color.New(color.Faint)

	// Structural colors
	Header  = color.New(color.FgWhite, color.Bold)
	Package = color.New(color.FgBlue, color.Bold)
	Version = color.New(color.FgCyan)
)

// NoColor disables color output
func NoColor() {
	color.NoColor = true
}

// ForceColor enables color output even when not a TTY
func ForceColor() {
	color.NoColor = false
}

// IsTerminal returns true if stdout is a terminal
func IsTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// StatusColor returns the appropriate color for a candidate status
func StatusColor(status string) *color.Color {
	switch status {
	case "up-to-date":
		return UpToDate
	case "needs-update":
		return NeedsUpdate
	case "patched":
		return Patched
	case "submitted":
		return Submitted
	case "failed":
		return Failed
	case "skipped":
		return Skipped
	default:
		return color.New(color.Reset)
	}
}

// PrintSuccess prints a success message
func PrintSuccess(format string, args ...interface{}) {
	Success.Printf("✓ "+format+"\n", args...)
}

// PrintError prints an error message
func PrintError(format string, args ...interface{}) {
	Error.Fprintf(os.Stderr, "✗ "+format+"\n", args...)
}

// PrintWarning prints a warning message
func PrintWarning(format string, args ...interface{}) {
	Warning.Printf("⚠ "+format+"\n", args...)
}

// PrintInfo prints an info message
func PrintInfo(format string, args ...interface{}) {
	Info.Printf("→ "+format+"\n", args...)
}

// Sprintf returns a colored string without printing
func Sprintf(c *color.Color, format string, args ...interface{}) string {
	return c.Sprintf(format, args...)
}

// Sprint returns a colored string without printing
func Sprint(c *color.Color, a ...interface{}) string {
	return c.Sprint(a...)
}

// Printf prints with color
func Printf(c *color.Color, format string, args ...interface{}) {
	c.Printf(format, args...)
}

// Println prints with color and newline
func Println(c *color.Color, a ...interface{}) {
	c.Println(a...)
}

// FormatStatus formats a status string with appropriate color
func FormatStatus(status string) string {
	c := StatusColor(status)
	return c.Sprintf("[%s]", status)
}

// FormatFeedstock formats a feedstock repository name with color
func FormatFeedstock(name string) string {
	return Package.Sprint(name)
}

// FormatBump formats a version transition
func FormatBump(oldVersion, newVersion string) string {
	return Version.Sprintf("%s → %s", oldVersion, newVersion)
}
