// Package probe infers whether the logger is running a background logging session
// by looking at command lines in the process table.
//
// The logger is only ever started with the "msg" marker argument when it logs in the background,
// so a process-table line naming the logger binary and containing the marker means a session is active.
// A one-shot invocation (e.g. a temperature read) never carries the marker.
package probe

import (
	"context"
	"strings"
)

type RunState string

const (
	Idle    RunState = "idle"
	Logging RunState = "logging"
)

// Prober reports the logger's current run state.
// Implementations compute it fresh on every call, and still return their best classification alongside an error.
type Prober interface {
	State(ctx context.Context) (RunState, error)
}

// Matcher classifies a process listing.
type Matcher struct {
	// LoggerPath is the full path of the logger binary as it appears on its command line.
	LoggerPath string
	// Marker is the argument only present on background logging invocations.
	Marker string
}

// Classify returns Logging if any line of listing contains both LoggerPath and Marker past the start of the line.
// Matches at index 0 are ignored, so the listing's own search command is not mistaken for the logger.
func (m Matcher) Classify(listing string) RunState {
	for _, line := range strings.Split(listing, "\n") {
		if strings.Index(line, m.LoggerPath) > 0 && strings.Index(line, m.Marker) > 0 {
			return Logging
		}
	}
	return Idle
}
