package testsupport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/goliatone/go-formflow/pkg/api"
	"github.com/goliatone/go-formflow/pkg/model"
)

// Form is a scripted form served by Backend.
type Form struct {
	Descriptor model.FormDescriptor
	Steps      []model.StepDescriptor
	Theme      *model.ThemeConfig
	Completion *model.CompletionData
}

// SessionRecord is the server-side view of a session.
type SessionRecord struct {
	ID        string
	FormID    string
	Step      int
	Responses map[string]any
	Complete  bool
}

// Backend is an in-memory implementation of the public form API served over
// httptest. It records calls so tests can assert on request traffic.
type Backend struct {
	mu sync.Mutex

	forms    map[string]*Form
	sessions map[string]*SessionRecord
	nextID   int

	// Reject maps question ids to server-side error messages returned on the
	// next submission that includes them.
	Reject map[string]string
	// FailOps makes the named operations ("start", "submit", "step", "theme",
	// "progress") answer with HTTP 500.
	FailOps map[string]bool
	// EnvelopeFailure makes the named operations answer HTTP 200 with
	// success=false.
	EnvelopeFailure map[string]bool

	StartRequests  []api.StartSessionRequest
	Submissions    []api.SubmitRequest
	ProgressSaves  []api.ProgressRequest
	ThemeFetches   int
	StepFetches    []int
	progressSignal chan struct{}
}

// NewBackend returns a Backend serving the supplied forms.
func NewBackend(forms ...*Form) *Backend {
	b := &Backend{
		forms:           make(map[string]*Form, len(forms)),
		sessions:        make(map[string]*SessionRecord),
		Reject:          make(map[string]string),
		FailOps:         make(map[string]bool),
		EnvelopeFailure: make(map[string]bool),
		progressSignal:  make(chan struct{}, 16),
	}
	for _, form := range forms {
		b.forms[form.Descriptor.ID] = form
	}
	return b
}

// Server starts an httptest server for the backend and closes it when the
// test ends.
func (b *Backend) Server(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(b.Router())
	t.Cleanup(srv.Close)
	return srv
}

// Router exposes the chi router so callers can mount it elsewhere.
func (b *Backend) Router() http.Handler {
	r := chi.NewRouter()
	r.Route("/public", func(r chi.Router) {
		r.Post("/sessions/start", b.handleStart)
		r.Post("/sessions/{sessionID}/responses", b.handleSubmit)
		r.Get("/sessions/{sessionID}/steps/{step}", b.handleStep)
		r.Put("/sessions/{sessionID}/progress", b.handleProgress)
		r.Get("/forms/{formID}/theme", b.handleTheme)
	})
	return r
}

// Session returns a copy of the server-side session record.
func (b *Backend) Session(id string) (SessionRecord, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, ok := b.sessions[id]
	if !ok {
		return SessionRecord{}, false
	}
	out := *rec
	out.Responses = make(map[string]any, len(rec.Responses))
	for k, v := range rec.Responses {
		out.Responses[k] = v
	}
	return out, true
}

// SessionCount reports how many distinct sessions the backend created.
func (b *Backend) SessionCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions)
}

// Counts returns the recorded start, submit and theme call counts.
func (b *Backend) Counts() (starts, submits, themes int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.StartRequests), len(b.Submissions), b.ThemeFetches
}

// ClearRejections stops rejecting answers.
func (b *Backend) ClearRejections() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Reject = make(map[string]string)
}

// ProgressSaved returns a channel receiving one value per progress save.
func (b *Backend) ProgressSaved() <-chan struct{} {
	return b.progressSignal
}

func (b *Backend) handleStart(w http.ResponseWriter, r *http.Request) {
	var req api.StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeEnvelope(w, http.StatusBadRequest, false, nil, "invalid payload", nil)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.StartRequests = append(b.StartRequests, req)
	if b.fail(w, "start") {
		return
	}

	form, ok := b.forms[req.FormID]
	if !ok {
		writeEnvelope(w, http.StatusNotFound, false, nil, "form not found", nil)
		return
	}

	rec, ok := b.sessions[req.SessionID]
	if !ok || req.SessionID == "" {
		id := req.SessionID
		if id == "" {
			b.nextID++
			id = fmt.Sprintf("srv-%d", b.nextID)
		}
		rec = &SessionRecord{ID: id, FormID: form.Descriptor.ID, Step: 1, Responses: make(map[string]any)}
		b.sessions[id] = rec
	}

	writeEnvelope(w, http.StatusOK, true, api.StartSessionResponse{
		SessionID: rec.ID,
		Form:      form.Descriptor,
		Step:      form.Steps[rec.Step-1],
	}, "", nil)
}

func (b *Backend) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req api.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeEnvelope(w, http.StatusBadRequest, false, nil, "invalid payload", nil)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.Submissions = append(b.Submissions, req)
	if b.fail(w, "submit") {
		return
	}

	rec, ok := b.sessions[chi.URLParam(r, "sessionID")]
	if !ok {
		writeEnvelope(w, http.StatusNotFound, false, nil, "session not found", nil)
		return
	}
	form := b.forms[rec.FormID]

	errs := make(map[string][]string)
	for idx, resp := range req.Responses {
		if msg, reject := b.Reject[resp.QuestionID]; reject {
			errs[fmt.Sprintf("responses[%d].%s", idx, resp.QuestionID)] = []string{msg}
		}
	}
	if len(errs) > 0 {
		writeEnvelope(w, http.StatusUnprocessableEntity, false, nil, "Some answers were rejected", errs)
		return
	}

	for _, resp := range req.Responses {
		rec.Responses[resp.QuestionID] = resp.Value
	}

	if rec.Step >= len(form.Steps) {
		rec.Complete = true
		writeEnvelope(w, http.StatusOK, true, api.SubmitResponse{
			IsComplete:     true,
			CompletionData: form.Completion,
		}, "", nil)
		return
	}

	rec.Step++
	next := form.Steps[rec.Step-1]
	writeEnvelope(w, http.StatusOK, true, api.SubmitResponse{NextStep: &next}, "", nil)
}

func (b *Backend) handleStep(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.fail(w, "step") {
		return
	}
	rec, ok := b.sessions[chi.URLParam(r, "sessionID")]
	if !ok {
		writeEnvelope(w, http.StatusNotFound, false, nil, "session not found", nil)
		return
	}
	n, err := strconv.Atoi(chi.URLParam(r, "step"))
	form := b.forms[rec.FormID]
	if err != nil || n < 1 || n > len(form.Steps) {
		writeEnvelope(w, http.StatusNotFound, false, nil, "step not found", nil)
		return
	}
	b.StepFetches = append(b.StepFetches, n)
	rec.Step = n
	writeEnvelope(w, http.StatusOK, true, form.Steps[n-1], "", nil)
}

func (b *Backend) handleProgress(w http.ResponseWriter, r *http.Request) {
	var req api.ProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeEnvelope(w, http.StatusBadRequest, false, nil, "invalid payload", nil)
		return
	}

	b.mu.Lock()
	b.ProgressSaves = append(b.ProgressSaves, req)
	failed := b.fail(w, "progress")
	b.mu.Unlock()

	if !failed {
		writeEnvelope(w, http.StatusOK, true, nil, "", nil)
	}
	select {
	case b.progressSignal <- struct{}{}:
	default:
	}
}

func (b *Backend) handleTheme(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.ThemeFetches++
	if b.fail(w, "theme") {
		return
	}
	form, ok := b.forms[chi.URLParam(r, "formID")]
	if !ok || form.Theme == nil {
		writeEnvelope(w, http.StatusNotFound, false, nil, "theme not found", nil)
		return
	}
	writeEnvelope(w, http.StatusOK, true, form.Theme, "", nil)
}

func (b *Backend) fail(w http.ResponseWriter, op string) bool {
	if b.FailOps[op] {
		writeEnvelope(w, http.StatusInternalServerError, false, nil, "internal error", nil)
		return true
	}
	if b.EnvelopeFailure[op] {
		writeEnvelope(w, http.StatusOK, false, nil, op+" unavailable", nil)
		return true
	}
	return false
}

func writeEnvelope(w http.ResponseWriter, status int, success bool, data any, message string, errs map[string][]string) {
	payload := map[string]any{
		"success": success,
		"message": message,
	}
	if data != nil {
		payload["data"] = data
	}
	if len(errs) > 0 {
		payload["errors"] = errs
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
