package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrNoOptions is returned for choice questions without options.
	ErrNoOptions = errors.New("tui: question has no options")
)
