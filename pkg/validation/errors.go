package validation

import (
	"sort"
	"strings"
)

// Error collects field-level validation failures keyed by question id.
type Error struct {
	Fields map[string][]string
}

// Error concatenates every field message in a stable order.
func (e *Error) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "validation: invalid answers"
	}
	ids := make([]string, 0, len(e.Fields))
	for id := range e.Fields {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, id+": "+strings.Join(e.Fields[id], ", "))
	}
	return "validation: " + strings.Join(parts, "; ")
}

// For returns the messages attached to a question id.
func (e *Error) For(id string) []string {
	if e == nil {
		return nil
	}
	return e.Fields[id]
}

func (e *Error) add(id, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[id] = append(e.Fields[id], message)
}

func (e *Error) empty() bool {
	return e == nil || len(e.Fields) == 0
}
