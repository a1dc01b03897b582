package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/goliatone/go-formflow/pkg/render"
)

var (
	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("api: not found")
	// ErrBaseURLMissing is returned when the client has no base URL.
	ErrBaseURLMissing = errors.New("api: base url is required")
)

// RemoteError describes a failed API call: a non-2xx status or an envelope
// with success=false. Field errors reported by the server are mapped onto
// question ids.
type RemoteError struct {
	Op         string
	StatusCode int
	Message    string
	Mapping    render.ErrorMapping
}

func (e *RemoteError) Error() string {
	var b strings.Builder
	b.WriteString("api: ")
	b.WriteString(e.Op)
	if e.StatusCode != 0 && e.StatusCode != http.StatusOK {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	msg := strings.TrimSpace(e.Message)
	summary := e.Mapping.Summary()
	switch {
	case msg != "" && summary != "":
		b.WriteString(": ")
		b.WriteString(msg)
		b.WriteString(": ")
		b.WriteString(summary)
	case msg != "":
		b.WriteString(": ")
		b.WriteString(msg)
	case summary != "":
		b.WriteString(": ")
		b.WriteString(summary)
	default:
		b.WriteString(": request failed")
	}
	return b.String()
}

// Is lets errors.Is(err, ErrNotFound) match 404 remote errors.
func (e *RemoteError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// HasFieldErrors reports whether the server rejected specific answers.
func (e *RemoteError) HasFieldErrors() bool {
	return len(e.Mapping.Fields) > 0
}

// FieldErrors extracts the question-level messages from err, if any.
func FieldErrors(err error) map[string][]string {
	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote.Mapping.Fields
	}
	return nil
}
