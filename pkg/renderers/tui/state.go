package tui

// State tracks answers collected for a step and server-provided errors keyed
// by question id.
type State struct {
	values map[string]any
	errors map[string][]string
}

// NewState seeds the state with prefilled answers and errors.
func NewState(prefill map[string]any, errs map[string][]string) *State {
	return &State{
		values: cloneValues(prefill),
		errors: cloneErrors(errs),
	}
}

// Values returns the current answers (mutable).
func (s *State) Values() map[string]any {
	if s == nil {
		return nil
	}
	return s.values
}

// ErrorsFor returns the errors attached to a question.
func (s *State) ErrorsFor(id string) []string {
	if s == nil || len(s.errors) == 0 {
		return nil
	}
	return s.errors[id]
}

// Get returns the answer for a question.
func (s *State) Get(id string) (any, bool) {
	if s == nil {
		return nil, false
	}
	value, ok := s.values[id]
	return value, ok
}

// Set records an answer and drops stale errors for the question.
func (s *State) Set(id string, value any) {
	if s.values == nil {
		s.values = make(map[string]any)
	}
	s.values[id] = value
	delete(s.errors, id)
}

// Clear forgets the answer for a question that became hidden.
func (s *State) Clear(id string) {
	delete(s.values, id)
}

func cloneValues(src map[string]any) map[string]any {
	if len(src) == 0 {
		return make(map[string]any)
	}
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = deepCopy(v)
	}
	return out
}

func cloneErrors(src map[string][]string) map[string][]string {
	if len(src) == 0 {
		return make(map[string][]string)
	}
	out := make(map[string][]string, len(src))
	for k, v := range src {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func deepCopy(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		clone := make(map[string]any, len(typed))
		for k, v := range typed {
			clone[k] = deepCopy(v)
		}
		return clone
	case []any:
		clone := make([]any, len(typed))
		for i, v := range typed {
			clone[i] = deepCopy(v)
		}
		return clone
	case []string:
		return append([]string(nil), typed...)
	default:
		return typed
	}
}
