// Package errmsg provides consistent error formatting for user-facing messages.
package errmsg

import "fmt"

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by domain.
const (
	// Library operations
	OpLibraryScan Op = "scan library"

	// Playback operations
	OpPlaybackStart  Op = "start playback"
	OpPlaybackSeek   Op = "seek"
	OpPlaybackNext   Op = "skip to next item"
	OpPlaybackPrev   Op = "skip to previous item"
	OpPlaybackToggle Op = "toggle playback"
	OpPlaybackRate   Op = "set playback rate"

	// Session operations
	OpSessionSave    Op = "save session"
	OpSessionLoad    Op = "load session"
	OpSessionRestore Op = "restore session"

	// Transport bridge
	OpBridgeStart Op = "start media controls bridge"

	// Initialization
	OpInitialize Op = "initialize application"
)

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %v", op, err)
}

// FormatWith creates an error message with additional context.
func FormatWith(op Op, context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Format(op, err)
	}
	return fmt.Sprintf("Failed to %s '%s': %v", op, context, err)
}
