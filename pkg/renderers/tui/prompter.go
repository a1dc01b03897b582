package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/validation"
	"github.com/goliatone/go-formflow/pkg/visibility"
)

const skipOption = "(skip)"

// Action is the navigation choice made after answering a step.
type Action int

const (
	ActionContinue Action = iota
	ActionBack
)

// Prompter asks a step's questions in a terminal. Conditional questions are
// re-evaluated against the answers given so far, and each answer is checked
// against the step's validator before moving on.
type Prompter struct {
	driver    PromptDriver
	evaluator visibility.Evaluator
	styles    *Styles
	out       io.Writer
}

// New constructs a Prompter with defaults (survey driver writing to stdout).
func New(options ...Option) *Prompter {
	p := &Prompter{
		evaluator: visibility.New(),
		styles:    NewStyles(),
		out:       os.Stdout,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(p)
	}
	if p.driver == nil {
		driver := newSurveyDriver(p.styles)
		driver.out = p.out
		p.driver = driver
	}
	return p
}

// AskStep prompts every visible question of step and returns the answers of
// the questions still visible once all prompts are done. answers holds what
// the session recorded so far: it prefills prompts and decides the display of
// questions that depend on earlier steps. serverErrs are shown next to the
// matching question.
func (p *Prompter) AskStep(ctx context.Context, step model.StepDescriptor, answers map[string]any, serverErrs map[string][]string) (map[string]any, error) {
	if ctx == nil {
		return nil, errors.New("tui: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	schema := validation.Build(step.Questions, validation.WithEvaluator(p.evaluator))
	state := NewState(answers, serverErrs)

	for _, q := range step.Questions {
		if !visibility.Visible(p.evaluator, q, state.Values()) {
			state.Clear(q.ID)
			continue
		}
		for _, msg := range state.ErrorsFor(q.ID) {
			p.info(ctx, fmt.Sprintf("%s: %s", displayLabel(q), msg))
		}
		if err := p.ask(ctx, q, schema, state); err != nil {
			return nil, err
		}
	}

	// a later answer can hide an earlier question
	out := make(map[string]any, len(step.Questions))
	for _, q := range visibility.Filter(p.evaluator, step.Questions, state.Values()) {
		if value, ok := state.Get(q.ID); ok {
			out[q.ID] = value
		}
	}
	return out, nil
}

// Navigate asks whether to continue or go back when the step allows it.
func (p *Prompter) Navigate(ctx context.Context, step model.StepDescriptor) (Action, error) {
	if !step.CanGoBack || step.StepNumber <= 1 {
		return ActionContinue, nil
	}
	idx, err := p.driver.Select(ctx, SelectConfig{
		Message: "Next",
		Options: []string{"Continue", "Back to previous step"},
	})
	if err != nil {
		return ActionContinue, err
	}
	if idx == 1 {
		return ActionBack, nil
	}
	return ActionContinue, nil
}

// Confirm asks a yes/no question.
func (p *Prompter) Confirm(ctx context.Context, msg string, def bool) (bool, error) {
	return p.driver.Confirm(ctx, ConfirmConfig{Message: msg, Default: def})
}

// Print writes an informational message through the driver.
func (p *Prompter) Print(ctx context.Context, msg string) error {
	return p.driver.Info(ctx, p.styles.infoPrefix()+msg)
}

func (p *Prompter) info(ctx context.Context, msg string) {
	_ = p.Print(ctx, msg)
}

func (p *Prompter) ask(ctx context.Context, q model.Question, schema *validation.Schema, state *State) error {
	for {
		value, err := p.prompt(ctx, q, state)
		if err != nil {
			return err
		}
		if err := schema.ValidateField(q.ID, value); err != nil {
			p.info(ctx, fmt.Sprintf("Invalid %s: %s", displayLabel(q), fieldMessages(q.ID, err)))
			continue
		}
		state.Set(q.ID, value)
		return nil
	}
}

func (p *Prompter) prompt(ctx context.Context, q model.Question, state *State) (any, error) {
	current, _ := state.Get(q.ID)
	label := displayLabel(q)
	help := displayHelp(q)

	if q.Type.IsMultiValue() {
		return p.promptChoices(ctx, q, label, help, current)
	}

	switch q.Type {
	case model.QuestionTypeTextarea:
		return p.driver.TextArea(ctx, TextAreaConfig{
			Message: label,
			Default: stringValue(current),
			Help:    help,
		})

	case model.QuestionTypeRadio, model.QuestionTypeSelect:
		return p.promptChoice(ctx, q, label, help, current)

	case model.QuestionTypeRating:
		if len(q.Options) > 0 {
			return p.promptChoice(ctx, q, label, help, current)
		}
		if help == "" {
			help = fmt.Sprintf("Rate from %s to %s", formatBound(q.Settings.Min, 1), formatBound(q.Settings.Max, 10))
		}

	case model.QuestionTypeFile:
		if help == "" {
			help = "Enter a link to the file"
		}
	}

	return p.driver.Input(ctx, InputConfig{
		Message: label,
		Default: stringValue(current),
		Help:    help,
	})
}

func (p *Prompter) promptChoice(ctx context.Context, q model.Question, label, help string, current any) (any, error) {
	if len(q.Options) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoOptions, q.ID)
	}
	options := optionLabels(q.Options)
	if !q.IsRequired() {
		options = append(options, skipOption)
	}
	idx, err := p.driver.Select(ctx, SelectConfig{
		Message:      label,
		Options:      options,
		DefaultIndex: optionIndex(q.Options, stringValue(current)),
		Help:         help,
	})
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(q.Options) {
		return "", nil
	}
	return q.Options[idx].Value, nil
}

func (p *Prompter) promptChoices(ctx context.Context, q model.Question, label, help string, current any) (any, error) {
	if len(q.Options) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoOptions, q.ID)
	}
	var defaults []int
	for _, value := range listValue(current) {
		if idx := optionIndex(q.Options, value); idx >= 0 {
			defaults = append(defaults, idx)
		}
	}
	indices, err := p.driver.MultiSelect(ctx, SelectConfig{
		Message:  label,
		Options:  optionLabels(q.Options),
		Defaults: defaults,
		Help:     help,
	})
	if err != nil {
		return nil, err
	}
	selected := make([]any, 0, len(indices))
	for _, idx := range indices {
		if idx >= 0 && idx < len(q.Options) {
			selected = append(selected, q.Options[idx].Value)
		}
	}
	return selected, nil
}

func displayLabel(q model.Question) string {
	label := q.Title
	if label == "" {
		label = q.ID
	}
	if !q.IsRequired() {
		label += " (optional)"
	}
	return label
}

func displayHelp(q model.Question) string {
	if q.Description != "" {
		return q.Description
	}
	return q.Placeholder
}

func fieldMessages(id string, err error) string {
	var verr *validation.Error
	if errors.As(err, &verr) {
		if msgs := verr.For(id); len(msgs) > 0 {
			return strings.Join(msgs, ", ")
		}
	}
	return err.Error()
}

func optionLabels(options []model.Option) []string {
	out := make([]string, 0, len(options))
	for _, opt := range options {
		label := opt.Label
		if label == "" {
			label = opt.Value
		}
		out = append(out, label)
	}
	return out
}

func optionIndex(options []model.Option, value string) int {
	if value == "" {
		return -1
	}
	for i, opt := range options {
		if opt.Value == value {
			return i
		}
	}
	return -1
}

func stringValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	default:
		return fmt.Sprint(typed)
	}
}

func listValue(value any) []string {
	switch typed := value.(type) {
	case []string:
		return typed
	case []any:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			out = append(out, stringValue(item))
		}
		return out
	case string:
		if typed == "" {
			return nil
		}
		return []string{typed}
	default:
		return nil
	}
}

func formatBound(bound *float64, fallback float64) string {
	if bound != nil {
		return strconv.FormatFloat(*bound, 'f', -1, 64)
	}
	return strconv.FormatFloat(fallback, 'f', -1, 64)
}
