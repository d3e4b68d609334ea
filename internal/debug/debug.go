// Package debug gates diagnostic output behind CDX_DEBUG or --verbose,
// and normal informational output behind --quiet.
package debug

import (
	"fmt"
	"os"
)

var (
	enabled     = os.Getenv("CDX_DEBUG") != ""
	verboseMode = false
	quietMode   = false
)

func Enabled() bool {
	return enabled || verboseMode
}

// SetVerbose enables verbose/debug output.
func SetVerbose(verbose bool) {
	verboseMode = verbose
}

// SetQuiet suppresses non-essential output.
func SetQuiet(quiet bool) {
	quietMode = quiet
}

// IsQuiet reports whether quiet mode is enabled.
func IsQuiet() bool {
	return quietMode
}

// Logf writes diagnostic output to stderr when debug output is enabled.
func Logf(format string, args ...any) {
	if Enabled() {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// PrintNormal prints informational output unless quiet mode is enabled.
func PrintNormal(format string, args ...any) {
	if !quietMode {
		fmt.Printf(format, args...)
	}
}
