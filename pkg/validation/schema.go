package validation

import (
	"errors"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/visibility"
)

const requiredMessage = "This field is required"

// Field is the compiled contract for a single question.
type Field struct {
	Question model.Question
	Required bool
	Schema   *openapi3.Schema

	variant variant
}

// Schema validates answers for one step. Build a fresh schema for every step;
// schemas are never shared across question sets.
type Schema struct {
	fields    []Field
	evaluator visibility.Evaluator
}

// Option configures Build.
type Option func(*Schema)

// WithEvaluator overrides the conditional-display evaluator used to skip
// hidden questions.
func WithEvaluator(eval visibility.Evaluator) Option {
	return func(s *Schema) {
		if eval != nil {
			s.evaluator = eval
		}
	}
}

// Build compiles the ordered questions into a Schema. It is deterministic:
// the same questions always yield an equivalent schema.
func Build(questions []model.Question, opts ...Option) *Schema {
	s := &Schema{
		fields:    make([]Field, 0, len(questions)),
		evaluator: visibility.New(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	for _, q := range questions {
		if strings.TrimSpace(q.ID) == "" {
			continue
		}
		v := variantFor(q.Type)
		required := q.IsRequired()
		s.fields = append(s.fields, Field{
			Question: q,
			Required: required,
			Schema:   foldRules(v.base(q), q.Validation, v.kind(), required),
			variant:  v,
		})
	}
	return s
}

// Fields returns the compiled field contracts in question order.
func (s *Schema) Fields() []Field {
	if s == nil {
		return nil
	}
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field returns the contract for a question id.
func (s *Schema) Field(id string) (Field, bool) {
	if s == nil {
		return Field{}, false
	}
	for _, f := range s.fields {
		if f.Question.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

// Validate checks every visible question against the supplied answers and
// returns a *Error listing all failures, or nil.
func (s *Schema) Validate(values map[string]any) error {
	if s == nil {
		return nil
	}
	verr := &Error{}
	for _, f := range s.fields {
		if !visibility.Visible(s.evaluator, f.Question, values) {
			continue
		}
		if _, err := f.check(values[f.Question.ID]); err != nil {
			verr.add(f.Question.ID, err.Error())
		}
	}
	if verr.empty() {
		return nil
	}
	return verr
}

// ValidateField checks a single answer. Unknown question ids pass.
func (s *Schema) ValidateField(id string, value any) error {
	f, ok := s.Field(id)
	if !ok {
		return nil
	}
	if _, err := f.check(value); err != nil {
		verr := &Error{}
		verr.add(id, err.Error())
		return verr
	}
	return nil
}

// Normalize returns the coerced answers for visible questions, dropping empty
// optional values. Call it after Validate succeeds.
func (s *Schema) Normalize(values map[string]any) map[string]any {
	out := make(map[string]any)
	if s == nil {
		return out
	}
	for _, f := range s.fields {
		if !visibility.Visible(s.evaluator, f.Question, values) {
			continue
		}
		coerced, err := f.check(values[f.Question.ID])
		if err != nil || isEmpty(coerced) {
			continue
		}
		out[f.Question.ID] = coerced
	}
	return out
}

// OpenAPI renders the step as an object schema, mostly useful for debugging
// and documentation of a step's contract.
func (s *Schema) OpenAPI() *openapi3.Schema {
	root := openapi3.NewObjectSchema()
	if s == nil {
		return root
	}
	var required []string
	for _, f := range s.fields {
		root = root.WithProperty(f.Question.ID, f.Schema)
		if f.Required {
			required = append(required, f.Question.ID)
		}
	}
	sort.Strings(required)
	root.Required = required
	return root
}

// check coerces the raw answer and validates it against the field contract.
func (f Field) check(raw any) (any, error) {
	coerced, err := f.variant.coerce(raw)
	if err != nil {
		return nil, f.message(err)
	}
	if isEmpty(coerced) {
		if f.Required {
			return nil, f.message(errors.New(requiredMessage))
		}
		return coerced, nil
	}
	if err := f.Schema.VisitJSON(coerced); err != nil {
		return nil, f.message(schemaReason(err))
	}
	return coerced, nil
}

func (f Field) message(err error) error {
	if f.Question.Validation != nil {
		if custom := strings.TrimSpace(f.Question.Validation.Message); custom != "" {
			return errors.New(custom)
		}
	}
	return err
}

func schemaReason(err error) error {
	var schemaErr *openapi3.SchemaError
	if errors.As(err, &schemaErr) && strings.TrimSpace(schemaErr.Reason) != "" {
		return errors.New(schemaErr.Reason)
	}
	return err
}

func isEmpty(value any) bool {
	switch typed := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(typed) == ""
	case []any:
		return len(typed) == 0
	default:
		return false
	}
}
