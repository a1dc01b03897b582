package session

import "github.com/goliatone/go-formflow/pkg/model"

// State is the position of a Flow in the step state machine.
type State string

const (
	StateInitializing  State = "initializing"
	StateAwaitingInput State = "awaiting_input"
	StateSubmitting    State = "submitting"
	StateComplete      State = "complete"
	StateErrored       State = "errored"
)

// Terminal reports whether no further transitions are possible without a
// new Start.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateErrored
}

// Snapshot is a read-only copy of a Flow's state.
type Snapshot struct {
	State      State
	Form       model.FormDescriptor
	Step       model.StepDescriptor
	Session    model.Session
	Completion *model.CompletionData
	Err        error
}
