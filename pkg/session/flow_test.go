package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/goliatone/go-formflow/pkg/api"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/session"
	"github.com/goliatone/go-formflow/pkg/store"
	"github.com/goliatone/go-formflow/pkg/testsupport"
	"github.com/goliatone/go-formflow/pkg/theme"
	"github.com/goliatone/go-formflow/pkg/validation"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

type harness struct {
	backend *testsupport.Backend
	client  *api.Client
	store   *store.Memory
}

func newHarness(t *testing.T, forms ...*testsupport.Form) *harness {
	t.Helper()

	if len(forms) == 0 {
		forms = []*testsupport.Form{testsupport.LeadForm()}
	}
	backend := testsupport.NewBackend(forms...)
	srv := backend.Server(t)
	client, err := api.New(srv.URL)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	return &harness{backend: backend, client: client, store: store.NewMemory()}
}

func (h *harness) flow(t *testing.T, opts ...session.Option) *session.Flow {
	t.Helper()

	opts = append([]session.Option{session.WithStore(h.store)}, opts...)
	f := session.New(h.client, opts...)
	t.Cleanup(f.Close)
	return f
}

func TestScenarioANewVisitor(t *testing.T) {
	h := newHarness(t)
	f := h.flow(t, session.WithIDGenerator(func() string { return "generated-1" }))

	snap, err := f.Start(context.Background(), "lead-form", session.StartOptions{
		Tracking: model.TrackingData{"utm_campaign": "spring"},
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if len(h.backend.StartRequests) != 1 {
		t.Fatalf("expected one start call, got %d", len(h.backend.StartRequests))
	}
	if got := h.backend.StartRequests[0].SessionID; got != "" {
		t.Fatalf("new visitor must not send a session id, sent %q", got)
	}
	if snap.State != session.StateAwaitingInput {
		t.Fatalf("state = %s", snap.State)
	}
	if snap.Step.StepNumber != 1 || snap.Step.TotalSteps != 3 {
		t.Fatalf("expected step 1 of 3, got %d of %d", snap.Step.StepNumber, snap.Step.TotalSteps)
	}
	if snap.Session.SessionID != "srv-1" {
		t.Fatalf("server session id should win, got %q", snap.Session.SessionID)
	}

	var stored model.Session
	if err := store.LoadJSON(context.Background(), h.store, store.SessionKey("lead-form"), &stored); err != nil {
		t.Fatalf("session not persisted: %v", err)
	}
	if stored.SessionID != "srv-1" || stored.CurrentStep != 1 {
		t.Fatalf("unexpected stored session: %+v", stored)
	}
}

func TestScenarioBReturningVisitorResumes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first := h.flow(t)
	if _, err := first.Start(ctx, "lead-form", session.StartOptions{}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := first.Submit(ctx, testsupport.StepAnswers(1)); err != nil {
		t.Fatalf("submit: %v", err)
	}

	second := h.flow(t)
	snap, err := second.Start(ctx, "lead-form", session.StartOptions{})
	if err != nil {
		t.Fatalf("resume: %v", err)
	}

	if got := h.backend.StartRequests[1].SessionID; got != "srv-1" {
		t.Fatalf("resume must resend the stored session id, sent %q", got)
	}
	if snap.Step.StepNumber != 2 {
		t.Fatalf("expected to resume at step 2, got %d", snap.Step.StepNumber)
	}
	if h.backend.SessionCount() != 1 {
		t.Fatalf("resuming must not create a new server session, have %d", h.backend.SessionCount())
	}
	if snap.Session.Responses["name"].Value != "Ada Lovelace" {
		t.Fatalf("resumed session lost recorded answers: %+v", snap.Session.Responses)
	}
}

func TestStartTwiceReusesSessionWhileIncomplete(t *testing.T) {
	h := newHarness(t)
	f := h.flow(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := f.Start(ctx, "lead-form", session.StartOptions{}); err != nil {
			t.Fatalf("start %d: %v", i, err)
		}
	}
	if got := h.backend.StartRequests[1].SessionID; got != "srv-1" {
		t.Fatalf("second start sent %q", got)
	}
	if h.backend.SessionCount() != 1 {
		t.Fatalf("expected one server session, got %d", h.backend.SessionCount())
	}
}

func TestExplicitSessionIDTakesPrecedence(t *testing.T) {
	h := newHarness(t)
	f := h.flow(t)

	snap, err := f.Start(context.Background(), "lead-form", session.StartOptions{SessionID: "from-link"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if h.backend.StartRequests[0].SessionID != "from-link" || snap.Session.SessionID != "from-link" {
		t.Fatalf("explicit id not used: sent %q, got %q", h.backend.StartRequests[0].SessionID, snap.Session.SessionID)
	}
}

func TestScenarioCCompletionConsumedOnce(t *testing.T) {
	h := newHarness(t)
	f := h.flow(t)
	ctx := context.Background()

	if _, err := f.Start(ctx, "lead-form", session.StartOptions{}); err != nil {
		t.Fatalf("start: %v", err)
	}
	var snap session.Snapshot
	for step := 1; step <= 3; step++ {
		var err error
		snap, err = f.Submit(ctx, testsupport.StepAnswers(step))
		if err != nil {
			t.Fatalf("submit step %d: %v", step, err)
		}
	}

	if snap.State != session.StateComplete || !snap.Session.IsComplete {
		t.Fatalf("expected completion, got state %s", snap.State)
	}
	if snap.Completion == nil || snap.Completion.Score != 87 {
		t.Fatalf("unexpected completion: %+v", snap.Completion)
	}

	data, err := session.Consume(ctx, h.store, snap.Session.SessionID)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if diff := cmp.Diff(*testsupport.LeadForm().Completion, data); diff != "" {
		t.Fatalf("completion mismatch (-want +got):\n%s", diff)
	}

	if _, err := session.Consume(ctx, h.store, snap.Session.SessionID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second consume should be not found, got %v", err)
	}

	rec, ok := h.backend.Session(snap.Session.SessionID)
	if !ok || !rec.Complete {
		t.Fatalf("server session not complete: %+v", rec)
	}
	if rec.Responses["company"] != "Analytical Engines" {
		t.Fatalf("conditional answer not submitted: %+v", rec.Responses)
	}
}

func TestCompletionIsMonotonic(t *testing.T) {
	h := newHarness(t)
	f := h.flow(t)
	ctx := context.Background()

	if _, err := f.Start(ctx, "lead-form", session.StartOptions{}); err != nil {
		t.Fatalf("start: %v", err)
	}
	for step := 1; step <= 3; step++ {
		if _, err := f.Submit(ctx, testsupport.StepAnswers(step)); err != nil {
			t.Fatalf("submit %d: %v", step, err)
		}
	}

	if _, err := f.Submit(ctx, testsupport.StepAnswers(3)); !errors.Is(err, session.ErrSessionComplete) {
		t.Fatalf("submit after completion: %v", err)
	}
	snap, err := f.GoBack(ctx)
	if !errors.Is(err, session.ErrSessionComplete) {
		t.Fatalf("go back after completion: %v", err)
	}
	if !snap.Session.IsComplete || snap.State != session.StateComplete {
		t.Fatalf("completion reverted: %+v", snap)
	}
	if f.SaveProgress(map[string]any{"notes": "late"}) {
		t.Fatalf("progress must not be saved after completion")
	}

	// a completed stored session is not resumed
	next := h.flow(t)
	if _, err := next.Start(ctx, "lead-form", session.StartOptions{}); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if got := h.backend.StartRequests[len(h.backend.StartRequests)-1].SessionID; got != "" {
		t.Fatalf("completed session must not be resumed, sent %q", got)
	}
}

func TestStartByIDOfCompletedSessionStaysComplete(t *testing.T) {
	h := newHarness(t)
	f := h.flow(t)
	ctx := context.Background()

	if _, err := f.Start(ctx, "lead-form", session.StartOptions{}); err != nil {
		t.Fatalf("start: %v", err)
	}
	for step := 1; step <= 3; step++ {
		if _, err := f.Submit(ctx, testsupport.StepAnswers(step)); err != nil {
			t.Fatalf("submit %d: %v", step, err)
		}
	}
	starts, _, _ := h.backend.Counts()

	snap, err := f.Start(ctx, "lead-form", session.StartOptions{SessionID: "srv-1"})
	if !errors.Is(err, session.ErrSessionComplete) {
		t.Fatalf("restart by id: %v", err)
	}
	if snap.State != session.StateComplete || !snap.Session.IsComplete || snap.Session.SessionID != "srv-1" {
		t.Fatalf("completion reverted: state %s complete %v id %q", snap.State, snap.Session.IsComplete, snap.Session.SessionID)
	}

	// a fresh flow over the same store finds the stored record
	next := h.flow(t)
	snap, err = next.Start(ctx, "lead-form", session.StartOptions{SessionID: "srv-1"})
	if !errors.Is(err, session.ErrSessionComplete) || snap.State != session.StateComplete {
		t.Fatalf("restart from store: %v (%s)", err, snap.State)
	}
	if _, err := next.Submit(ctx, testsupport.StepAnswers(1)); !errors.Is(err, session.ErrSessionComplete) {
		t.Fatalf("submit on held completion: %v", err)
	}

	if got, _, _ := h.backend.Counts(); got != starts {
		t.Fatalf("completed session must not be started again, %d new start calls", got-starts)
	}
	var stored model.Session
	if err := store.LoadJSON(ctx, h.store, store.SessionKey("lead-form"), &stored); err != nil {
		t.Fatalf("load stored session: %v", err)
	}
	if !stored.IsComplete {
		t.Fatalf("stored record lost its completion: %+v", stored)
	}
}

func TestScenarioDThemeNotFoundAppliesDefault(t *testing.T) {
	h := newHarness(t)

	var mu sync.Mutex
	var applied []theme.Active
	applicator := theme.NewApplicator(h.client, theme.WithSink(theme.SinkFunc(func(active theme.Active) {
		mu.Lock()
		defer mu.Unlock()
		applied = append(applied, active)
	})))
	f := h.flow(t, session.WithThemes(applicator))

	snap, err := f.Start(context.Background(), "lead-form", session.StartOptions{})
	if err != nil {
		t.Fatalf("start must not fail on theme 404: %v", err)
	}
	f.Close()

	if snap.Err != nil || snap.State != session.StateAwaitingInput {
		t.Fatalf("theme failure leaked into flow: %+v", snap)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(applied) != 1 {
		t.Fatalf("expected theme applied once, got %d", len(applied))
	}
	if diff := cmp.Diff(theme.Default(), applied[0].Config); diff != "" {
		t.Fatalf("expected default theme (-want +got):\n%s", diff)
	}
}

func TestEmbeddedThemeSkipsFetch(t *testing.T) {
	form := testsupport.LeadForm()
	form.Descriptor.Theme = &model.ThemeConfig{Colors: model.ThemeColors{Primary: "#ff6600"}}
	h := newHarness(t, form)

	applicator := theme.NewApplicator(h.client)
	f := h.flow(t, session.WithThemes(applicator))
	if _, err := f.Start(context.Background(), "lead-form", session.StartOptions{}); err != nil {
		t.Fatalf("start: %v", err)
	}
	f.Close()

	if got := applicator.Active().Config.Colors.Primary; got != "#ff6600" {
		t.Fatalf("embedded theme not applied, primary %q", got)
	}
	if _, _, themes := h.backend.Counts(); themes != 0 {
		t.Fatalf("embedded theme must not be fetched, got %d fetches", themes)
	}
}

func TestScenarioERequiredCheckboxRejectedLocally(t *testing.T) {
	h := newHarness(t)
	f := h.flow(t)
	ctx := context.Background()

	if _, err := f.Start(ctx, "lead-form", session.StartOptions{}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.Submit(ctx, testsupport.StepAnswers(1)); err != nil {
		t.Fatalf("submit step 1: %v", err)
	}
	_, submitsBefore, _ := h.backend.Counts()

	answers := testsupport.StepAnswers(2)
	answers["channels"] = []any{}
	snap, err := f.Submit(ctx, answers)

	var verr *validation.Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(verr.For("channels")) == 0 {
		t.Fatalf("expected channels error, got %v", verr)
	}
	if snap.State != session.StateAwaitingInput {
		t.Fatalf("local failure must keep awaiting input, got %s", snap.State)
	}
	if _, submits, _ := h.backend.Counts(); submits != submitsBefore {
		t.Fatalf("local validation failure contacted the API")
	}
}

func TestHiddenConditionalQuestionIsSkipped(t *testing.T) {
	h := newHarness(t)
	f := h.flow(t)
	ctx := context.Background()

	if _, err := f.Start(ctx, "lead-form", session.StartOptions{}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.Submit(ctx, testsupport.StepAnswers(1)); err != nil {
		t.Fatalf("submit step 1: %v", err)
	}

	snap, err := f.Submit(ctx, map[string]any{"type": "personal", "channels": []any{"phone"}})
	if err != nil {
		t.Fatalf("hidden required question should not block: %v", err)
	}
	if snap.Step.StepNumber != 3 {
		t.Fatalf("expected step 3, got %d", snap.Step.StepNumber)
	}
	last := h.backend.Submissions[len(h.backend.Submissions)-1]
	for _, resp := range last.Responses {
		if resp.QuestionID == "company" {
			t.Fatalf("hidden question submitted: %+v", last.Responses)
		}
	}
}

func TestServerFieldErrorsReturnToAwaitingInput(t *testing.T) {
	h := newHarness(t)
	h.backend.Reject["email"] = "Email already registered"
	f := h.flow(t)
	ctx := context.Background()

	if _, err := f.Start(ctx, "lead-form", session.StartOptions{}); err != nil {
		t.Fatalf("start: %v", err)
	}
	snap, err := f.Submit(ctx, testsupport.StepAnswers(1))
	if err == nil {
		t.Fatalf("expected server rejection")
	}
	if snap.State != session.StateAwaitingInput {
		t.Fatalf("state = %s", snap.State)
	}
	want := map[string][]string{"email": {"Email already registered"}}
	if diff := cmp.Diff(want, api.FieldErrors(err)); diff != "" {
		t.Fatalf("field errors (-want +got):\n%s", diff)
	}
	if len(snap.Session.Responses) != 0 {
		t.Fatalf("rejected answers must not be recorded: %+v", snap.Session.Responses)
	}

	delete(h.backend.Reject, "email")
	if snap, err = f.Submit(ctx, testsupport.StepAnswers(1)); err != nil || snap.Step.StepNumber != 2 {
		t.Fatalf("retry after correction failed: %v", err)
	}
}

func TestRemoteFailureErrorsFlow(t *testing.T) {
	h := newHarness(t)
	f := h.flow(t)
	ctx := context.Background()

	if _, err := f.Start(ctx, "lead-form", session.StartOptions{}); err != nil {
		t.Fatalf("start: %v", err)
	}
	h.backend.FailOps["submit"] = true

	snap, err := f.Submit(ctx, testsupport.StepAnswers(1))
	if err == nil || snap.State != session.StateErrored || snap.Err == nil {
		t.Fatalf("expected errored state, got %s (%v)", snap.State, err)
	}
	if _, err := f.Submit(ctx, testsupport.StepAnswers(1)); !errors.Is(err, session.ErrNotAwaitingInput) {
		t.Fatalf("errored flow must not auto-retry, got %v", err)
	}

	h.backend.FailOps["submit"] = false
	if _, err := f.Start(ctx, "lead-form", session.StartOptions{}); err != nil {
		t.Fatalf("manual restart: %v", err)
	}
	if _, err := f.Submit(ctx, testsupport.StepAnswers(1)); err != nil {
		t.Fatalf("submit after restart: %v", err)
	}
}

func TestStartUnknownFormIsNotFound(t *testing.T) {
	h := newHarness(t)
	f := h.flow(t)

	snap, err := f.Start(context.Background(), "nope", session.StartOptions{})
	if !errors.Is(err, session.ErrFormNotFound) {
		t.Fatalf("expected ErrFormNotFound, got %v", err)
	}
	if snap.State != session.StateErrored {
		t.Fatalf("state = %s", snap.State)
	}

	if _, err := f.Start(context.Background(), "", session.StartOptions{}); !errors.Is(err, session.ErrFormIDRequired) {
		t.Fatalf("expected ErrFormIDRequired, got %v", err)
	}
}

func TestEnvelopeFailureOnStartErrors(t *testing.T) {
	h := newHarness(t)
	h.backend.EnvelopeFailure["start"] = true
	f := h.flow(t)

	snap, err := f.Start(context.Background(), "lead-form", session.StartOptions{})
	if err == nil || snap.State != session.StateErrored {
		t.Fatalf("success=false must fail start, got %s (%v)", snap.State, err)
	}
}

func TestGoBackKeepsAnswers(t *testing.T) {
	h := newHarness(t)
	f := h.flow(t)
	ctx := context.Background()

	if _, err := f.Start(ctx, "lead-form", session.StartOptions{}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.GoBack(ctx); !errors.Is(err, session.ErrCannotGoBack) {
		t.Fatalf("first step cannot go back, got %v", err)
	}
	for step := 1; step <= 2; step++ {
		if _, err := f.Submit(ctx, testsupport.StepAnswers(step)); err != nil {
			t.Fatalf("submit %d: %v", step, err)
		}
	}

	snap, err := f.GoBack(ctx)
	if err != nil {
		t.Fatalf("go back: %v", err)
	}
	if snap.Step.StepNumber != 2 || snap.Session.CurrentStep != 2 {
		t.Fatalf("expected step 2, got step %d current %d", snap.Step.StepNumber, snap.Session.CurrentStep)
	}

	want := map[string]any{
		"name":     "Ada Lovelace",
		"email":    "ada@example.com",
		"type":     "business",
		"company":  "Analytical Engines",
		"channels": []any{"email"},
	}
	testsupport.AssertEqual(t, want, f.Answers())
}

func TestAnswersDriveConditionalFromEarlierStep(t *testing.T) {
	h := newHarness(t, testsupport.ReferralForm())
	f := h.flow(t)
	ctx := context.Background()

	if _, err := f.Start(ctx, "referral", session.StartOptions{}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.Submit(ctx, map[string]any{"source": "partner"}); err != nil {
		t.Fatalf("submit step 1: %v", err)
	}
	testsupport.AssertEqual(t, map[string]any{"source": "partner"}, f.Answers())

	snap, err := f.Submit(ctx, map[string]any{})
	var verr *validation.Error
	if !errors.As(err, &verr) || len(verr.For("partner")) == 0 {
		t.Fatalf("expected partner to be required, got %v", err)
	}
	if snap.State != session.StateAwaitingInput || snap.Step.StepNumber != 2 {
		t.Fatalf("local rejection must keep step 2, got %s step %d", snap.State, snap.Step.StepNumber)
	}

	snap, err = f.Submit(ctx, map[string]any{"partner": "Acme"})
	if err != nil || snap.State != session.StateComplete {
		t.Fatalf("submit step 2: %v (%s)", err, snap.State)
	}
}

func TestSaveProgressIsThrottledAndBestEffort(t *testing.T) {
	h := newHarness(t)
	h.backend.FailOps["progress"] = true
	f := h.flow(t, session.WithProgressInterval(time.Hour))
	ctx := context.Background()

	if f.SaveProgress(map[string]any{"name": "A"}) {
		t.Fatalf("progress without a session must be skipped")
	}
	if _, err := f.Start(ctx, "lead-form", session.StartOptions{}); err != nil {
		t.Fatalf("start: %v", err)
	}

	if !f.SaveProgress(map[string]any{"name": "Ada"}) {
		t.Fatalf("first save should be scheduled")
	}
	if f.SaveProgress(map[string]any{"name": "Ada L"}) {
		t.Fatalf("second save within interval should be throttled")
	}

	select {
	case <-h.backend.ProgressSaved():
	case <-time.After(2 * time.Second):
		t.Fatalf("progress save never reached the server")
	}
	f.Close()

	if snap := f.Snapshot(); snap.State != session.StateAwaitingInput || snap.Err != nil {
		t.Fatalf("progress failure surfaced: %+v", snap)
	}
	if len(h.backend.ProgressSaves) != 1 || h.backend.ProgressSaves[0].Responses[0].Value != "Ada" {
		t.Fatalf("unexpected progress payload: %+v", h.backend.ProgressSaves)
	}
}
