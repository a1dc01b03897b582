package visibility

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-formflow/pkg/model"
)

// Evaluator determines whether a question should be visible given its
// conditional rule and the live (unsubmitted) answers.
type Evaluator interface {
	Eval(rule model.ConditionalRule, ctx Context) (bool, error)
}

// Context provides inputs to an Evaluator. Values holds the current answers
// keyed by question id while Extras allows callers to inject arbitrary
// context such as tracking parameters.
type Context struct {
	Values map[string]any
	Extras map[string]any
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(rule model.ConditionalRule, ctx Context) (bool, error)

// Eval delegates to the underlying function.
func (fn EvaluatorFunc) Eval(rule model.ConditionalRule, ctx Context) (bool, error) {
	return fn(rule, ctx)
}

// Rules is the default evaluator implementing the equals/contains/
// greaterThan/lessThan operators.
type Rules struct{}

// New returns the default evaluator.
func New() *Rules { return &Rules{} }

// Eval reports whether the rule's condition matches the controlling answer.
// A missing controlling answer never matches.
func (Rules) Eval(rule model.ConditionalRule, ctx Context) (bool, error) {
	dependsOn := strings.TrimSpace(rule.DependsOn)
	if dependsOn == "" {
		return false, fmt.Errorf("visibility: rule has no dependsOn question")
	}
	actual, ok := ctx.Values[dependsOn]
	if !ok || actual == nil {
		return false, nil
	}

	switch rule.Condition {
	case model.ConditionEquals, "":
		return equals(actual, rule.Value), nil
	case model.ConditionContains:
		return contains(actual, rule.Value), nil
	case model.ConditionGreaterThan:
		a, okA := toFloat(actual)
		b, okB := toFloat(rule.Value)
		return okA && okB && a > b, nil
	case model.ConditionLessThan:
		a, okA := toFloat(actual)
		b, okB := toFloat(rule.Value)
		return okA && okB && a < b, nil
	default:
		return false, fmt.Errorf("visibility: unsupported condition %q", rule.Condition)
	}
}

// Visible applies a question's conditional rule. Questions without a rule are
// always visible; a "show" rule reveals the question when the condition
// matches and a "hide" rule hides it. Evaluation errors keep the question
// visible so required answers are not silently skipped.
func Visible(eval Evaluator, q model.Question, values map[string]any) bool {
	if q.Conditional == nil {
		return true
	}
	if eval == nil {
		eval = New()
	}
	matched, err := eval.Eval(*q.Conditional, Context{Values: values})
	if err != nil {
		return true
	}
	if q.Conditional.Action == model.ConditionalHide {
		return !matched
	}
	return matched
}

// Filter returns the questions visible for the given answers, preserving
// order.
func Filter(eval Evaluator, questions []model.Question, values map[string]any) []model.Question {
	out := make([]model.Question, 0, len(questions))
	for _, q := range questions {
		if Visible(eval, q, values) {
			out = append(out, q)
		}
	}
	return out
}

func equals(actual, expected any) bool {
	if list, ok := asList(actual); ok {
		if len(list) != 1 {
			return false
		}
		actual = list[0]
	}
	if a, okA := toFloat(actual); okA {
		if b, okB := toFloat(expected); okB {
			return a == b
		}
	}
	return stringify(actual) == stringify(expected)
}

func contains(actual, expected any) bool {
	needle := stringify(expected)
	if list, ok := asList(actual); ok {
		for _, item := range list {
			if stringify(item) == needle {
				return true
			}
		}
		return false
	}
	return strings.Contains(strings.ToLower(stringify(actual)), strings.ToLower(needle))
}

func asList(value any) ([]any, bool) {
	switch typed := value.(type) {
	case []any:
		return typed, true
	case []string:
		out := make([]any, len(typed))
		for i, v := range typed {
			out[i] = v
		}
		return out, true
	default:
		return nil, false
	}
}

func stringify(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(typed)
	case bool:
		return strconv.FormatBool(typed)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(typed))
	}
}

func toFloat(value any) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
