// Package view renders the respondent-facing screens that are not prompts:
// step headers, the completion view, the not-found view and failures.
// Server-provided copy is sanitised before it reaches a template.
package view

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-formflow/pkg/api"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/theme"
)

//go:embed templates/*.tpl
var embedded embed.FS

// Renderer renders views from templates.
type Renderer struct {
	engine     *Engine
	translator Translator
	locale     string
}

// Option configures the Renderer.
type Option func(*config)

type config struct {
	templates  fs.FS
	translator Translator
	locale     string
}

// WithTemplates replaces the embedded templates. The fs must provide
// step_header.txt, completion.txt, completion.html, not_found.txt and
// failure.txt (each with a .tpl extension).
func WithTemplates(files fs.FS) Option {
	return func(cfg *config) {
		if files != nil {
			cfg.templates = files
		}
	}
}

// WithTranslator localizes the fixed copy of the views for locale.
func WithTranslator(t Translator, locale string) Option {
	return func(cfg *config) {
		cfg.translator = t
		cfg.locale = locale
	}
}

// New constructs a Renderer using the embedded templates by default.
func New(options ...Option) (*Renderer, error) {
	cfg := &config{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(cfg)
	}
	if cfg.templates == nil {
		sub, err := fs.Sub(embedded, "templates")
		if err != nil {
			return nil, fmt.Errorf("view: embedded templates: %w", err)
		}
		cfg.templates = sub
	}
	engine, err := NewEngine(cfg.templates, ".tpl")
	if err != nil {
		return nil, err
	}
	return &Renderer{engine: engine, translator: cfg.translator, locale: cfg.locale}, nil
}

// StepHeader renders the title block shown above a step's prompts.
func (r *Renderer) StepHeader(form model.FormDescriptor, step model.StepDescriptor) (string, error) {
	title := form.Title
	if title == "" {
		title = form.Name
	}
	total := step.TotalSteps
	if total < step.StepNumber {
		total = step.StepNumber
	}
	return r.engine.RenderTemplate("step_header.txt", pongo2.Context{
		"form_title": plainText(title),
		"progress":   r.text(KeyStepProgress, step.StepNumber, total),
		"headline":   plainText(step.Headline),
		"subheading": plainText(step.Subheading),
	})
}

// Completion renders the terminal completion view.
func (r *Renderer) Completion(data model.CompletionData) (string, error) {
	ctx := r.completionContext(data)
	ctx["message"] = plainText(data.Message)
	return r.engine.RenderTemplate("completion.txt", ctx)
}

// CompletionPage renders a standalone HTML completion page styled with the
// active theme.
func (r *Renderer) CompletionPage(data model.CompletionData, active theme.Active) (string, error) {
	ctx := r.completionContext(data)
	ctx["message"] = richText(data.Message)
	ctx["stylesheet"] = strings.ReplaceAll(active.Stylesheet, "</", `<\/`)
	logo := ""
	if active.Renderer != nil && active.Renderer.AssetURL != nil {
		logo = safeURL(active.Renderer.AssetURL(theme.LogoAsset))
	}
	ctx["logo_url"] = logo
	return r.engine.RenderTemplate("completion.html", ctx)
}

// NotFound renders the terminal not-found view.
func (r *Renderer) NotFound(formID string) (string, error) {
	return r.engine.RenderTemplate("not_found.txt", pongo2.Context{
		"form_id": plainText(formID),
	})
}

// Failure renders a remote failure, listing server field errors when the
// API reported any.
func (r *Renderer) Failure(err error) (string, error) {
	ctx := pongo2.Context{"message": ""}
	if err == nil {
		return r.engine.RenderTemplate("failure.txt", ctx)
	}

	var remote *api.RemoteError
	if errors.As(err, &remote) {
		msg := plainText(remote.Message)
		ctx["message"] = msg
		var lines []string
		lines = append(lines, remote.Mapping.Form...)
		ids := make([]string, 0, len(remote.Mapping.Fields))
		for id := range remote.Mapping.Fields {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			lines = append(lines, id+": "+strings.Join(remote.Mapping.Fields[id], ", "))
		}
		ctx["fields"] = lines
		if msg == "" && remote.Mapping.Empty() {
			ctx["message"] = err.Error()
		}
	} else {
		ctx["message"] = err.Error()
	}
	return r.engine.RenderTemplate("failure.txt", ctx)
}

func (r *Renderer) completionContext(data model.CompletionData) pongo2.Context {
	steps := make([]string, 0, len(data.NextSteps))
	for _, step := range data.NextSteps {
		if clean := plainText(step); clean != "" {
			steps = append(steps, clean)
		}
	}
	status := data.LeadStatus
	if status == "" {
		status = model.LeadStatusUnknown
	}
	score := ""
	if data.Score != 0 {
		score = fmt.Sprintf("%g", data.Score)
	}
	labels := map[string]string{
		"score":       r.text(KeyScore),
		"next_steps":  r.text(KeyNextSteps),
		"continue_at": r.text(KeyContinueAt),
		"continue":    r.text(KeyContinue),
	}
	return pongo2.Context{
		"heading":      r.text(headingKey(status)),
		"lead_status":  string(status),
		"score":        score,
		"next_steps":   steps,
		"redirect_url": safeURL(data.RedirectURL),
		"labels":       labels,
	}
}

func headingKey(status model.LeadStatus) string {
	switch status {
	case model.LeadStatusYes:
		return KeyHeadingYes
	case model.LeadStatusMaybe:
		return KeyHeadingMaybe
	case model.LeadStatusNo:
		return KeyHeadingNo
	default:
		return KeyHeadingUnknown
	}
}
