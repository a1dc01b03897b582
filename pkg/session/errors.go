package session

import "errors"

var (
	// ErrFormIDRequired is returned when Start is called without a form id.
	ErrFormIDRequired = errors.New("session: form id is required")
	// ErrFormNotFound is returned when the API does not know the form.
	ErrFormNotFound = errors.New("session: form not found")
	// ErrNoSession is returned for operations that need a started session.
	ErrNoSession = errors.New("session: no active session")
	// ErrSessionComplete is returned for operations attempted after completion.
	ErrSessionComplete = errors.New("session: session is complete")
	// ErrNotAwaitingInput is returned when a transition starts while another
	// one is in flight or after a failure.
	ErrNotAwaitingInput = errors.New("session: not awaiting input")
	// ErrCannotGoBack is returned when the current step forbids going back.
	ErrCannotGoBack = errors.New("session: cannot go back from this step")
	// ErrStaleResponse is returned when a remote response arrives after a
	// newer transition has started. The response is discarded.
	ErrStaleResponse = errors.New("session: stale response discarded")
	// ErrEmptyResponse is returned when a submission yields neither a next
	// step nor completion.
	ErrEmptyResponse = errors.New("session: response has no next step")
)
