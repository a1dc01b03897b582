package render_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/render"
)

func TestMapErrorPayload_ServerPaths(t *testing.T) {
	questions := []model.Question{
		{ID: "name", Type: model.QuestionTypeText},
		{ID: "email", Type: model.QuestionTypeEmail},
		{ID: "phone", Type: model.QuestionTypePhone},
		{ID: "topics", Type: model.QuestionTypeCheckbox},
	}

	payload := map[string][]string{
		"/data/name":                 {"Name is required", " Name is required "},
		"responses[1].email":         {"Email invalid"},
		"$.responses.2.value":        {"Ignored without id"},
		"body.topics[0]":             {"Topic unknown"},
		"phone":                      {"Phone malformed"},
		"non_field_errors":           {"Form level error"},
		"request/body/unknown-field": {"Should fall back to form errors"},
		"":                           {"Unscoped form error"},
	}

	mapped := render.MapErrorPayload(questions, payload)

	wantFields := map[string][]string{
		"name":   {"Name is required"},
		"email":  {"Email invalid"},
		"topics": {"Topic unknown"},
		"phone":  {"Phone malformed"},
	}
	if diff := cmp.Diff(wantFields, mapped.Fields); diff != "" {
		t.Fatalf("field errors mismatch (-want +got):\n%s", diff)
	}

	wantForm := []string{"Unscoped form error", "Ignored without id", "Form level error", "Should fall back to form errors"}
	if diff := cmp.Diff(wantForm, mapped.Form); diff != "" {
		t.Fatalf("form errors mismatch (-want +got):\n%s", diff)
	}
}

func TestMapErrorPayload_WithoutQuestionsKeepsKeys(t *testing.T) {
	mapped := render.MapErrorPayload(nil, map[string][]string{"data.email": {"bad"}})
	if diff := cmp.Diff(map[string][]string{"email": {"bad"}}, mapped.Fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
}

func TestErrorMapping_Summary(t *testing.T) {
	mapping := render.ErrorMapping{
		Fields: map[string][]string{"phone": {"too short"}, "email": {"invalid"}},
		Form:   []string{"Please fix the errors below"},
	}
	want := "Please fix the errors below; email: invalid; phone: too short"
	if got := mapping.Summary(); got != want {
		t.Fatalf("want %q, got %q", want, got)
	}
	if mapping.Empty() {
		t.Fatalf("mapping should not be empty")
	}
}
