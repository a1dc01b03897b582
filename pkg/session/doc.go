// Package session implements the respondent state machine: starting or
// resuming a session, validating and submitting steps, going back and
// recording completion.
//
// A Flow moves through Initializing, AwaitingInput and Submitting to either
// Complete or Errored. Local validation failures never leave AwaitingInput
// and never reach the API. Completion is monotonic for a session.
package session
