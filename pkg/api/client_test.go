package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/api"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/testsupport"
)

func newClient(t *testing.T, backend *testsupport.Backend, opts ...api.Option) *api.Client {
	t.Helper()

	srv := backend.Server(t)
	client, err := api.New(srv.URL+"/", opts...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := api.New("  "); !errors.Is(err, api.ErrBaseURLMissing) {
		t.Fatalf("expected ErrBaseURLMissing, got %v", err)
	}
}

func TestClientStartSubmitComplete(t *testing.T) {
	backend := testsupport.NewBackend(testsupport.LeadForm())
	client := newClient(t, backend)
	ctx := context.Background()

	started, err := client.StartSession(ctx, api.StartSessionRequest{
		FormID:       "lead-form",
		TrackingData: model.TrackingData{"utm_source": "newsletter"},
	})
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if started.SessionID == "" {
		t.Fatalf("expected server assigned session id")
	}
	if started.Step.StepNumber != 1 || len(started.Step.Questions) != 2 {
		t.Fatalf("unexpected first step: %+v", started.Step)
	}

	for step := 1; step <= 3; step++ {
		var responses []model.Response
		for id, value := range testsupport.StepAnswers(step) {
			responses = append(responses, model.Response{QuestionID: id, Value: value, Timestamp: time.Now()})
		}
		out, err := client.SubmitResponses(ctx, started.SessionID, api.SubmitRequest{
			Responses:   responses,
			CurrentStep: step,
			Timestamp:   time.Now(),
		})
		if err != nil {
			t.Fatalf("submit step %d: %v", step, err)
		}
		if step < 3 {
			if out.NextStep == nil || out.NextStep.StepNumber != step+1 {
				t.Fatalf("expected next step %d, got %+v", step+1, out.NextStep)
			}
			continue
		}
		if !out.IsComplete || out.CompletionData == nil {
			t.Fatalf("expected completion, got %+v", out)
		}
		if out.CompletionData.LeadStatus != model.LeadStatusYes {
			t.Fatalf("lead status = %q", out.CompletionData.LeadStatus)
		}
	}

	if len(backend.StartRequests) != 1 || backend.StartRequests[0].TrackingData["utm_source"] != "newsletter" {
		t.Fatalf("tracking data not forwarded: %+v", backend.StartRequests)
	}
}

func TestClientNotFound(t *testing.T) {
	backend := testsupport.NewBackend(testsupport.LeadForm())
	client := newClient(t, backend)

	_, err := client.StartSession(context.Background(), api.StartSessionRequest{FormID: "missing"})
	if !errors.Is(err, api.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	_, err = client.GetTheme(context.Background(), "lead-form")
	if !errors.Is(err, api.ErrNotFound) {
		t.Fatalf("expected theme ErrNotFound, got %v", err)
	}
}

func TestClientEnvelopeFailureOnSuccessStatus(t *testing.T) {
	backend := testsupport.NewBackend(testsupport.LeadForm())
	backend.EnvelopeFailure["start"] = true
	client := newClient(t, backend)

	_, err := client.StartSession(context.Background(), api.StartSessionRequest{FormID: "lead-form"})
	var remote *api.RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if remote.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", remote.StatusCode)
	}
	if remote.Message != "start unavailable" {
		t.Fatalf("message = %q", remote.Message)
	}
	if errors.Is(err, api.ErrNotFound) {
		t.Fatalf("envelope failure must not match ErrNotFound")
	}
}

func TestClientMapsFieldErrors(t *testing.T) {
	backend := testsupport.NewBackend(testsupport.LeadForm())
	backend.Reject["email"] = "Email domain is blocked"
	client := newClient(t, backend)
	ctx := context.Background()

	started, err := client.StartSession(ctx, api.StartSessionRequest{FormID: "lead-form"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	_, err = client.SubmitResponses(ctx, started.SessionID, api.SubmitRequest{
		Responses:   []model.Response{{QuestionID: "name", Value: "Ada"}, {QuestionID: "email", Value: "ada@blocked.test"}},
		CurrentStep: 1,
	})
	if err == nil {
		t.Fatalf("expected rejection")
	}

	want := map[string][]string{"email": {"Email domain is blocked"}}
	if diff := cmp.Diff(want, api.FieldErrors(err)); diff != "" {
		t.Fatalf("field errors mismatch (-want +got):\n%s", diff)
	}

	var remote *api.RemoteError
	if !errors.As(err, &remote) || !remote.HasFieldErrors() {
		t.Fatalf("expected field errors on remote error: %v", err)
	}
}

func TestClientSendsHeadersAndDecodesTheme(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Api-Key")
		if r.URL.Path != "/v1/public/forms/f-1/theme" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"colors": map[string]any{"primary": "#ff0000"}},
		})
	}))
	t.Cleanup(srv.Close)

	client, err := api.New(srv.URL+"/v1", api.WithHeader("X-Api-Key", "secret"))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	theme, err := client.GetTheme(context.Background(), "f-1")
	if err != nil {
		t.Fatalf("get theme: %v", err)
	}
	if theme.Colors.Primary != "#ff0000" {
		t.Fatalf("primary = %q", theme.Colors.Primary)
	}
	if gotKey != "secret" {
		t.Fatalf("header not sent, got %q", gotKey)
	}
}

func TestClientNonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	client, err := api.New(srv.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	err = client.SaveProgress(context.Background(), "s-1", api.ProgressRequest{CurrentStep: 1})

	var remote *api.RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if remote.StatusCode != http.StatusBadGateway || remote.Message != http.StatusText(http.StatusBadGateway) {
		t.Fatalf("unexpected remote error: %+v", remote)
	}
}
