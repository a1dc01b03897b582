package view

import (
	"fmt"
	"strings"
)

// Translator resolves localized copy for the fixed strings of the views.
// Server-provided copy is shown as sent.
type Translator interface {
	Translate(locale, key string, args ...any) (string, error)
}

// TranslatorFunc adapts a function into a Translator.
type TranslatorFunc func(locale, key string, args ...any) (string, error)

// Translate delegates to the underlying function.
func (fn TranslatorFunc) Translate(locale, key string, args ...any) (string, error) {
	return fn(locale, key, args...)
}

// Copy keys understood by the views.
const (
	KeyHeadingYes     = "completion.heading.yes"
	KeyHeadingMaybe   = "completion.heading.maybe"
	KeyHeadingNo      = "completion.heading.no"
	KeyHeadingUnknown = "completion.heading.unknown"
	KeyScore          = "completion.score"
	KeyNextSteps      = "completion.nextSteps"
	KeyContinueAt     = "completion.continueAt"
	KeyContinue       = "completion.continue"
	KeyStepProgress   = "step.progress"
)

var defaultCopy = map[string]string{
	KeyHeadingYes:     "You're a great fit!",
	KeyHeadingMaybe:   "Thanks! We'll review your answers.",
	KeyHeadingNo:      "Thanks for your time.",
	KeyHeadingUnknown: "Thank you!",
	KeyScore:          "Score",
	KeyNextSteps:      "Next steps",
	KeyContinueAt:     "Continue at",
	KeyContinue:       "Continue",
	KeyStepProgress:   "Step %d of %d",
}

// text returns the localized string for key, falling back to the built-in
// copy when no translator is set or the translation is missing.
func (r *Renderer) text(key string, args ...any) string {
	if r.translator != nil {
		msg, err := r.translator.Translate(r.locale, key, args...)
		if err == nil && strings.TrimSpace(msg) != "" {
			return msg
		}
	}
	fallback, ok := defaultCopy[key]
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(fallback, args...)
	}
	return fallback
}
