package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/testsupport"
	"github.com/goliatone/go-formflow/pkg/theme"
)

type stubDriver struct {
	inputs       []string
	selectIdx    []int
	multiIdx     [][]int
	textAreas    []string
	infoMessages []string
	inputCfgs    []InputConfig
	selectCfgs   []SelectConfig
	multiCfgs    []SelectConfig
	inputPos     int
	selectPos    int
	multiPos     int
	textPos      int
}

func (s *stubDriver) Input(_ context.Context, cfg InputConfig) (string, error) {
	s.inputCfgs = append(s.inputCfgs, cfg)
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted")
	}
	val := s.inputs[s.inputPos]
	s.inputPos++
	return val, nil
}

func (s *stubDriver) Confirm(_ context.Context, _ ConfirmConfig) (bool, error) {
	return false, errors.New("no confirm scripted")
}

func (s *stubDriver) Select(_ context.Context, cfg SelectConfig) (int, error) {
	s.selectCfgs = append(s.selectCfgs, cfg)
	if s.selectPos >= len(s.selectIdx) {
		return -1, errors.New("no select scripted")
	}
	val := s.selectIdx[s.selectPos]
	s.selectPos++
	return val, nil
}

func (s *stubDriver) MultiSelect(_ context.Context, cfg SelectConfig) ([]int, error) {
	s.multiCfgs = append(s.multiCfgs, cfg)
	if s.multiPos >= len(s.multiIdx) {
		return nil, errors.New("no multiselect scripted")
	}
	val := s.multiIdx[s.multiPos]
	s.multiPos++
	return val, nil
}

func (s *stubDriver) TextArea(_ context.Context, _ TextAreaConfig) (string, error) {
	if s.textPos >= len(s.textAreas) {
		return "", errors.New("no textarea scripted")
	}
	val := s.textAreas[s.textPos]
	s.textPos++
	return val, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infoMessages = append(s.infoMessages, msg)
	return nil
}

func TestAskStep_RetriesInvalidEmail(t *testing.T) {
	driver := &stubDriver{inputs: []string{"Ada", "not-an-email", "ada@example.com"}}
	p := New(WithPromptDriver(driver))

	got, err := p.AskStep(context.Background(), testsupport.LeadForm().Steps[0], nil, nil)
	if err != nil {
		t.Fatalf("ask step: %v", err)
	}

	want := map[string]any{"name": "Ada", "email": "ada@example.com"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("answers mismatch (-want +got):\n%s", diff)
	}
	if len(driver.infoMessages) != 1 || !strings.HasPrefix(driver.infoMessages[0], "Invalid Work email") {
		t.Fatalf("expected one validation message, got %v", driver.infoMessages)
	}
}

func TestAskStep_ConditionalQuestionFollowsAnswers(t *testing.T) {
	step := testsupport.LeadForm().Steps[1]

	t.Run("shown", func(t *testing.T) {
		driver := &stubDriver{
			selectIdx: []int{0},
			inputs:    []string{"Analytical Engines"},
			multiIdx:  [][]int{{1}},
		}
		got, err := New(WithPromptDriver(driver)).AskStep(context.Background(), step, nil, nil)
		if err != nil {
			t.Fatalf("ask step: %v", err)
		}
		want := map[string]any{"type": "business", "company": "Analytical Engines", "channels": []any{"phone"}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("answers mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("hidden", func(t *testing.T) {
		driver := &stubDriver{
			selectIdx: []int{1},
			multiIdx:  [][]int{{0}},
		}
		defaults := map[string]any{"company": "Stale Co"}
		got, err := New(WithPromptDriver(driver)).AskStep(context.Background(), step, defaults, nil)
		if err != nil {
			t.Fatalf("ask step: %v", err)
		}
		if _, ok := got["company"]; ok {
			t.Fatalf("hidden question answered: %v", got)
		}
		if driver.inputPos != 0 {
			t.Fatalf("hidden question was prompted")
		}
	})
}

func TestAskStep_ConditionalOnEarlierStepAnswer(t *testing.T) {
	step := testsupport.ReferralForm().Steps[1]

	driver := &stubDriver{inputs: []string{"Acme"}, textAreas: []string{""}}
	got, err := New(WithPromptDriver(driver)).AskStep(context.Background(), step, map[string]any{"source": "partner"}, nil)
	if err != nil {
		t.Fatalf("ask step: %v", err)
	}
	want := map[string]any{"partner": "Acme", "notes": ""}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("answers mismatch (-want +got):\n%s", diff)
	}

	driver = &stubDriver{textAreas: []string{""}}
	got, err = New(WithPromptDriver(driver)).AskStep(context.Background(), step, map[string]any{"source": "search"}, nil)
	if err != nil {
		t.Fatalf("ask step: %v", err)
	}
	if driver.inputPos != 0 {
		t.Fatalf("hidden partner question was prompted")
	}
	if _, ok := got["partner"]; ok {
		t.Fatalf("hidden question answered: %v", got)
	}
}

func TestAskStep_RequiredCheckboxLoopsUntilSelected(t *testing.T) {
	step := model.StepDescriptor{Questions: []model.Question{{
		ID: "topics", Type: model.QuestionTypeCheckbox, Title: "Topics", Required: true,
		Options: []model.Option{{Label: "Pricing", Value: "pricing"}, {Label: "Support", Value: "support"}},
	}}}
	driver := &stubDriver{multiIdx: [][]int{{}, {0, 1}}}

	got, err := New(WithPromptDriver(driver)).AskStep(context.Background(), step, nil, nil)
	if err != nil {
		t.Fatalf("ask step: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"topics": []any{"pricing", "support"}}, got); diff != "" {
		t.Fatalf("answers mismatch (-want +got):\n%s", diff)
	}
	if len(driver.infoMessages) != 1 {
		t.Fatalf("expected one validation message, got %v", driver.infoMessages)
	}
}

func TestAskStep_PrefillsDefaultsAndShowsServerErrors(t *testing.T) {
	step := model.StepDescriptor{Questions: []model.Question{
		{ID: "score", Type: model.QuestionTypeRating, Title: "Score", Required: true},
		{
			ID: "plan", Type: model.QuestionTypeSelect, Title: "Plan",
			Options: []model.Option{{Label: "Basic", Value: "basic"}, {Label: "Pro", Value: "pro"}},
		},
		{
			ID: "tags", Type: model.QuestionTypeMultiselect, Title: "Tags",
			Options: []model.Option{{Label: "A", Value: "a"}, {Label: "B", Value: "b"}},
		},
	}}
	driver := &stubDriver{inputs: []string{"11", "7"}, selectIdx: []int{2}, multiIdx: [][]int{{}}}
	defaults := map[string]any{"score": 4.0, "plan": "pro", "tags": []any{"b"}}
	serverErrs := map[string][]string{"score": {"Score looks suspicious"}}

	got, err := New(WithPromptDriver(driver)).AskStep(context.Background(), step, defaults, serverErrs)
	if err != nil {
		t.Fatalf("ask step: %v", err)
	}

	if driver.inputCfgs[0].Default != "4" {
		t.Fatalf("rating default = %q", driver.inputCfgs[0].Default)
	}
	if driver.inputCfgs[0].Help != "Rate from 1 to 10" {
		t.Fatalf("rating help = %q", driver.inputCfgs[0].Help)
	}
	if driver.selectCfgs[0].DefaultIndex != 1 {
		t.Fatalf("select default index = %d", driver.selectCfgs[0].DefaultIndex)
	}
	if diff := cmp.Diff([]string{"Basic", "Pro", skipOption}, driver.selectCfgs[0].Options); diff != "" {
		t.Fatalf("optional select options (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1}, driver.multiCfgs[0].Defaults); diff != "" {
		t.Fatalf("multiselect defaults (-want +got):\n%s", diff)
	}

	want := map[string]any{"score": "7", "plan": "", "tags": []any{}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("answers mismatch (-want +got):\n%s", diff)
	}
	wantInfo := []string{"Score: Score looks suspicious", "Invalid Score: must be at most 10"}
	if len(driver.infoMessages) != 2 || driver.infoMessages[0] != wantInfo[0] {
		t.Fatalf("info messages = %v", driver.infoMessages)
	}
}

func TestAskStep_ChoiceWithoutOptions(t *testing.T) {
	step := model.StepDescriptor{Questions: []model.Question{{ID: "pick", Type: model.QuestionTypeRadio, Required: true}}}
	_, err := New(WithPromptDriver(&stubDriver{})).AskStep(context.Background(), step, nil, nil)
	if !errors.Is(err, ErrNoOptions) {
		t.Fatalf("expected ErrNoOptions, got %v", err)
	}
}

func TestNavigate(t *testing.T) {
	driver := &stubDriver{selectIdx: []int{1}}
	p := New(WithPromptDriver(driver))

	action, err := p.Navigate(context.Background(), model.StepDescriptor{StepNumber: 1, CanGoBack: true})
	if err != nil || action != ActionContinue || driver.selectPos != 0 {
		t.Fatalf("first step must not offer back: %v %v", action, err)
	}
	action, err = p.Navigate(context.Background(), model.StepDescriptor{StepNumber: 2, CanGoBack: true})
	if err != nil || action != ActionBack {
		t.Fatalf("expected back, got %v %v", action, err)
	}
}

func TestStylesFollowTheme(t *testing.T) {
	styles := NewStyles()
	cfg := theme.Default()
	cfg.Colors.Primary = "#0f0"
	cfg.Colors.Error = "#ff0000"
	styles.ApplyTheme(theme.Active{Config: cfg})

	question, errColor := styles.current()
	if question != "green+b" || errColor != "red" {
		t.Fatalf("unexpected styles %q %q", question, errColor)
	}

	styles.ApplyTheme(theme.Active{Config: model.ThemeConfig{Colors: model.ThemeColors{Primary: "teal"}}})
	if question, _ := styles.current(); question != defaultQuestionFormat {
		t.Fatalf("unparseable colour should fall back, got %q", question)
	}
}

func TestStateSetClearsErrors(t *testing.T) {
	state := NewState(map[string]any{"tags": []any{"a"}}, map[string][]string{"tags": {"bad"}})
	state.Set("tags", []any{"b"})
	if len(state.ErrorsFor("tags")) != 0 {
		t.Fatalf("errors not cleared on set")
	}
	state.Clear("tags")
	if _, ok := state.Get("tags"); ok {
		t.Fatalf("value not cleared")
	}
}
