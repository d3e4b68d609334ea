// Package ui provides terminal styling for cdx output. Styling is
// suppressed automatically when stdout is not a terminal so captured
// output stays machine-readable.
package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	ColorPass = lipgloss.AdaptiveColor{Light: "#2e7d32", Dark: "#7dc87d"}
	ColorWarn = lipgloss.AdaptiveColor{Light: "#b26a00", Dark: "#e0af68"}
	ColorFail = lipgloss.AdaptiveColor{Light: "#c62828", Dark: "#f7768e"}
	ColorDim  = lipgloss.AdaptiveColor{Light: "#757575", Dark: "#565f89"}
)

var (
	passStyle = lipgloss.NewStyle().Foreground(ColorPass)
	warnStyle = lipgloss.NewStyle().Foreground(ColorWarn)
	failStyle = lipgloss.NewStyle().Foreground(ColorFail)
	dimStyle  = lipgloss.NewStyle().Foreground(ColorDim)
)

// Status icons.
const (
	IconPass = "✓"
	IconFail = "✗"
	IconWarn = "⚠"
)

// isTTY reports whether stdout is a terminal. Overridable in tests.
var isTTY = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func render(style lipgloss.Style, s string) string {
	if !isTTY() {
		return s
	}
	return style.Render(s)
}

// Pass renders s in the success color.
func Pass(s string) string { return render(passStyle, s) }

// Warn renders s in the warning color.
func Warn(s string) string { return render(warnStyle, s) }

// Fail renders s in the failure color.
func Fail(s string) string { return render(failStyle, s) }

// Dim renders s in the muted color.
func Dim(s string) string { return render(dimStyle, s) }
