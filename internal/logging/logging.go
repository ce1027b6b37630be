// Package logging provides the structured logger shared by every
// component, replacing bare fmt.Printf calls with charmbracelet/log.
package logging

import (
	"os"

	"github.com/charmbracelet/log"
)

// New builds a logger prefixed with the component name, writing to
// stderr so stdout stays free for structured command output: results on
// stdout, progress on stderr.
func New(component string) *log.Logger {
	l := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          component,
	})
	return l
}

// Default is the package-wide fallback logger for code paths that don't
// carry an injected logger (e.g. package-level helpers called from tests).
var Default = New("geofetch")
