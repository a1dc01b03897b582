package tui

import (
	"io"

	"github.com/goliatone/go-formflow/pkg/visibility"
)

// Option configures the Prompter.
type Option func(*Prompter)

// WithPromptDriver overrides the prompt driver used by the prompter.
func WithPromptDriver(driver PromptDriver) Option {
	return func(p *Prompter) {
		if driver != nil {
			p.driver = driver
		}
	}
}

// WithEvaluator overrides the conditional-display evaluator.
func WithEvaluator(eval visibility.Evaluator) Option {
	return func(p *Prompter) {
		if eval != nil {
			p.evaluator = eval
		}
	}
}

// WithStyles shares terminal styles with a theme sink.
func WithStyles(styles *Styles) Option {
	return func(p *Prompter) {
		if styles != nil {
			p.styles = styles
		}
	}
}

// WithOutput redirects informational output of the default survey driver.
func WithOutput(w io.Writer) Option {
	return func(p *Prompter) {
		if w != nil {
			p.out = w
		}
	}
}
