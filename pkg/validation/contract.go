package validation

import (
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formflow/pkg/model"
)

const (
	minPhoneLength = 10
	defaultRateMin = 1
	defaultRateMax = 10
)

// emailPattern is intentionally loose; net/mail performs the strict check.
const emailPattern = `^[^\s@]+@[^\s@]+\.[^\s@]+$`

var errNotANumber = errors.New("must be a number")

// variant is the per-question-type base contract: the schema a value must
// satisfy and how raw input is coerced into the JSON shape the schema
// expects.
type variant interface {
	base(q model.Question) *openapi3.Schema
	coerce(raw any) (any, error)
	kind() valueKind
}

type valueKind int

const (
	kindString valueKind = iota
	kindNumber
	kindList
)

func variantFor(t model.QuestionType) variant {
	switch t {
	case model.QuestionTypeEmail:
		return emailVariant{}
	case model.QuestionTypeNumber:
		return numberVariant{}
	case model.QuestionTypePhone:
		return phoneVariant{}
	case model.QuestionTypeCheckbox, model.QuestionTypeMultiselect:
		return choiceListVariant{}
	case model.QuestionTypeRating:
		return ratingVariant{}
	case model.QuestionTypeRadio, model.QuestionTypeSelect:
		return choiceVariant{}
	default:
		return textVariant{}
	}
}

type textVariant struct{}

func (textVariant) base(model.Question) *openapi3.Schema { return openapi3.NewStringSchema() }
func (textVariant) coerce(raw any) (any, error)         { return coerceString(raw) }
func (textVariant) kind() valueKind                      { return kindString }

type emailVariant struct{}

func (emailVariant) base(model.Question) *openapi3.Schema {
	return openapi3.NewStringSchema().WithPattern(emailPattern)
}

func (emailVariant) coerce(raw any) (any, error) {
	value, err := coerceString(raw)
	if err != nil || value == "" {
		return value, err
	}
	if _, err := mail.ParseAddress(value); err != nil {
		return nil, errors.New("must be a valid email address")
	}
	return value, nil
}

func (emailVariant) kind() valueKind { return kindString }

type phoneVariant struct{}

func (phoneVariant) base(model.Question) *openapi3.Schema {
	return openapi3.NewStringSchema().WithMinLength(minPhoneLength)
}
func (phoneVariant) coerce(raw any) (any, error) { return coerceString(raw) }
func (phoneVariant) kind() valueKind              { return kindString }

type numberVariant struct{}

func (numberVariant) base(q model.Question) *openapi3.Schema {
	schema := openapi3.NewFloat64Schema()
	if q.Settings.Min != nil {
		schema = schema.WithMin(*q.Settings.Min)
	}
	if q.Settings.Max != nil {
		schema = schema.WithMax(*q.Settings.Max)
	}
	return schema
}
func (numberVariant) coerce(raw any) (any, error) { return coerceNumber(raw) }
func (numberVariant) kind() valueKind              { return kindNumber }

type ratingVariant struct{}

func (ratingVariant) base(q model.Question) *openapi3.Schema {
	lower, upper := float64(defaultRateMin), float64(defaultRateMax)
	if q.Settings.Min != nil {
		lower = *q.Settings.Min
	}
	if q.Settings.Max != nil {
		upper = *q.Settings.Max
	}
	return openapi3.NewFloat64Schema().WithMin(lower).WithMax(upper)
}
func (ratingVariant) coerce(raw any) (any, error) { return coerceNumber(raw) }
func (ratingVariant) kind() valueKind              { return kindNumber }

type choiceVariant struct{}

func (choiceVariant) base(q model.Question) *openapi3.Schema {
	schema := openapi3.NewStringSchema()
	if values := q.OptionValues(); len(values) > 0 {
		schema = schema.WithEnum(toAnySlice(values)...)
	}
	return schema
}
func (choiceVariant) coerce(raw any) (any, error) { return coerceString(raw) }
func (choiceVariant) kind() valueKind              { return kindString }

type choiceListVariant struct{}

func (choiceListVariant) base(q model.Question) *openapi3.Schema {
	items := openapi3.NewStringSchema()
	if values := q.OptionValues(); len(values) > 0 {
		items = items.WithEnum(toAnySlice(values)...)
	}
	return openapi3.NewArraySchema().WithItems(items)
}

func (choiceListVariant) coerce(raw any) (any, error) {
	switch typed := raw.(type) {
	case nil:
		return []any{}, nil
	case []any:
		out := make([]any, 0, len(typed))
		for _, item := range typed {
			s, err := coerceString(item)
			if err != nil {
				return nil, err
			}
			if s == "" {
				continue
			}
			out = append(out, s)
		}
		return out, nil
	case []string:
		return coerceList(toAnySlice(typed))
	case string:
		if strings.TrimSpace(typed) == "" {
			return []any{}, nil
		}
		return []any{strings.TrimSpace(typed)}, nil
	default:
		return nil, fmt.Errorf("must be a list of options, got %T", raw)
	}
}

func (choiceListVariant) kind() valueKind { return kindList }

func coerceList(values []any) (any, error) {
	return choiceListVariant{}.coerce(values)
}

// foldRules applies explicit validation rules over the variant's base
// contract. Array variants keep their array type: length bounds become item
// counts and patterns constrain each item.
func foldRules(schema *openapi3.Schema, rules *model.ValidationRules, kind valueKind, required bool) *openapi3.Schema {
	multi := kind == kindList
	if multi && required {
		schema = schema.WithMinItems(1)
	}
	if kind == kindString && required && schema.MinLength == 0 {
		schema = schema.WithMinLength(1)
	}
	if rules == nil {
		return schema
	}

	if rules.MinLength != nil && *rules.MinLength >= 0 {
		switch kind {
		case kindList:
			schema = schema.WithMinItems(int64(*rules.MinLength))
		case kindString:
			schema = schema.WithMinLength(int64(*rules.MinLength))
		}
	}
	if rules.MaxLength != nil && *rules.MaxLength >= 0 {
		switch kind {
		case kindList:
			schema = schema.WithMaxItems(int64(*rules.MaxLength))
		case kindString:
			schema = schema.WithMaxLength(int64(*rules.MaxLength))
		}
	}
	if pattern := strings.TrimSpace(rules.Pattern); pattern != "" {
		if _, err := regexp.Compile(pattern); err == nil {
			if multi && schema.Items != nil && schema.Items.Value != nil {
				schema.Items.Value = schema.Items.Value.WithPattern(pattern)
			} else if kind == kindString {
				schema = schema.WithPattern(pattern)
			}
		}
	}
	return schema
}

func coerceString(raw any) (string, error) {
	switch typed := raw.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(typed), nil
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(typed), nil
	case int64:
		return strconv.FormatInt(typed, 10), nil
	case bool:
		return strconv.FormatBool(typed), nil
	default:
		return "", fmt.Errorf("must be text, got %T", raw)
	}
}

func coerceNumber(raw any) (any, error) {
	switch typed := raw.(type) {
	case nil:
		return nil, nil
	case float64:
		return typed, nil
	case float32:
		return float64(typed), nil
	case int:
		return float64(typed), nil
	case int64:
		return float64(typed), nil
	case string:
		trimmed := strings.TrimSpace(typed)
		if trimmed == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil, errNotANumber
		}
		return f, nil
	default:
		return nil, errNotANumber
	}
}

func toAnySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
