package model

import (
	"encoding/json"
	"strings"
	"time"
)

// QuestionType enumerates the input kinds a step can ask for.
type QuestionType string

const (
	QuestionTypeText        QuestionType = "text"
	QuestionTypeTextarea    QuestionType = "textarea"
	QuestionTypeEmail       QuestionType = "email"
	QuestionTypePhone       QuestionType = "phone"
	QuestionTypeNumber      QuestionType = "number"
	QuestionTypeRadio       QuestionType = "radio"
	QuestionTypeCheckbox    QuestionType = "checkbox"
	QuestionTypeSelect      QuestionType = "select"
	QuestionTypeMultiselect QuestionType = "multiselect"
	QuestionTypeRating      QuestionType = "rating"
	QuestionTypeDate        QuestionType = "date"
	QuestionTypeTime        QuestionType = "time"
	QuestionTypeDatetime    QuestionType = "datetime"
	QuestionTypeFile        QuestionType = "file"
)

// IsMultiValue reports whether answers for the type are lists of option
// values.
func (t QuestionType) IsMultiValue() bool {
	return t == QuestionTypeCheckbox || t == QuestionTypeMultiselect
}

// Option is a selectable choice for radio, select, checkbox and multiselect
// questions.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// QuestionSettings carries type-specific knobs. Min/Max bound rating and
// number answers.
type QuestionSettings struct {
	Min  *float64 `json:"min,omitempty"`
	Max  *float64 `json:"max,omitempty"`
	Step *float64 `json:"step,omitempty"`
}

// ValidationRules are explicit per-question constraints. Nil pointers mean
// the rule is absent; Required overrides Question.Required when set.
type ValidationRules struct {
	Required  *bool  `json:"required,omitempty"`
	MinLength *int   `json:"minLength,omitempty"`
	MaxLength *int   `json:"maxLength,omitempty"`
	Pattern   string `json:"pattern,omitempty"`
	Message   string `json:"message,omitempty"`
}

// ConditionOperator is the comparison applied by a ConditionalRule.
type ConditionOperator string

const (
	ConditionEquals      ConditionOperator = "equals"
	ConditionContains    ConditionOperator = "contains"
	ConditionGreaterThan ConditionOperator = "greaterThan"
	ConditionLessThan    ConditionOperator = "lessThan"
)

// ConditionalAction decides what a matching condition does to the dependent
// question.
type ConditionalAction string

const (
	ConditionalShow ConditionalAction = "show"
	ConditionalHide ConditionalAction = "hide"
)

// ConditionalRule makes a question's visibility depend on the live answer of
// another question. DependsOn is a weak reference by question id.
type ConditionalRule struct {
	DependsOn string            `json:"dependsOn"`
	Condition ConditionOperator `json:"condition"`
	Value     any               `json:"value"`
	Action    ConditionalAction `json:"action,omitempty"`
}

// Question is a single server-supplied prompt inside a step.
type Question struct {
	ID          string           `json:"id"`
	Type        QuestionType     `json:"type"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Placeholder string           `json:"placeholder,omitempty"`
	Required    bool             `json:"required"`
	Options     []Option         `json:"options,omitempty"`
	Settings    QuestionSettings `json:"settings,omitempty"`
	Validation  *ValidationRules `json:"validation,omitempty"`
	Conditional *ConditionalRule `json:"conditional,omitempty"`
}

// IsRequired resolves the effective required flag: explicit rules win over
// the question flag.
func (q Question) IsRequired() bool {
	if q.Validation != nil && q.Validation.Required != nil {
		return *q.Validation.Required
	}
	return q.Required
}

// OptionValues returns the raw option values in declaration order.
func (q Question) OptionValues() []string {
	if len(q.Options) == 0 {
		return nil
	}
	out := make([]string, 0, len(q.Options))
	for _, opt := range q.Options {
		out = append(out, opt.Value)
	}
	return out
}

// StepDescriptor is one screen of grouped questions. It is replaced wholesale
// on every transition.
type StepDescriptor struct {
	StepNumber int        `json:"stepNumber"`
	TotalSteps int        `json:"totalSteps"`
	Questions  []Question `json:"questions"`
	Headline   string     `json:"headline,omitempty"`
	Subheading string     `json:"subheading,omitempty"`
	IsComplete bool       `json:"isComplete"`
	CanGoBack  bool       `json:"canGoBack"`
	IsLastStep bool       `json:"isLastStep"`
}

// Question returns the question with the given id.
func (s StepDescriptor) Question(id string) (Question, bool) {
	for _, q := range s.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// FormDescriptor describes the form a session belongs to.
type FormDescriptor struct {
	ID          string       `json:"id"`
	Name        string       `json:"name,omitempty"`
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Theme       *ThemeConfig `json:"theme,omitempty"`
}

// Response is a captured answer to one question.
type Response struct {
	QuestionID string    `json:"questionId"`
	Value      any       `json:"value"`
	Timestamp  time.Time `json:"timestamp"`
}

// Session is one respondent's pass through a form.
type Session struct {
	SessionID   string              `json:"sessionId"`
	FormID      string              `json:"formId"`
	CurrentStep int                 `json:"currentStep"`
	TotalSteps  int                 `json:"totalSteps"`
	Responses   map[string]Response `json:"responses"`
	IsComplete  bool                `json:"isComplete"`
	StartedAt   time.Time           `json:"startedAt"`
	LastUpdated time.Time           `json:"lastUpdated"`
}

// Clone returns a deep-enough copy so callers can read a snapshot without
// racing later mutations.
func (s Session) Clone() Session {
	out := s
	if s.Responses != nil {
		out.Responses = make(map[string]Response, len(s.Responses))
		for id, resp := range s.Responses {
			out.Responses[id] = resp
		}
	}
	return out
}

// MergeResponses overwrites answers by question id. Existing keys are never
// deleted.
func (s *Session) MergeResponses(responses []Response) {
	if len(responses) == 0 {
		return
	}
	if s.Responses == nil {
		s.Responses = make(map[string]Response, len(responses))
	}
	for _, resp := range responses {
		if resp.QuestionID == "" {
			continue
		}
		s.Responses[resp.QuestionID] = resp
	}
}

// Values flattens recorded responses into a question id → value map.
func (s Session) Values() map[string]any {
	out := make(map[string]any, len(s.Responses))
	for id, resp := range s.Responses {
		out[id] = resp.Value
	}
	return out
}

// LeadStatus is the server-side qualification outcome.
type LeadStatus string

const (
	LeadStatusYes     LeadStatus = "yes"
	LeadStatusNo      LeadStatus = "no"
	LeadStatusMaybe   LeadStatus = "maybe"
	LeadStatusUnknown LeadStatus = "unknown"
)

// UnmarshalJSON folds unrecognised statuses into LeadStatusUnknown.
func (l *LeadStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*l = ParseLeadStatus(raw)
	return nil
}

// ParseLeadStatus normalises a raw status string.
func ParseLeadStatus(raw string) LeadStatus {
	switch LeadStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case LeadStatusYes:
		return LeadStatusYes
	case LeadStatusNo:
		return LeadStatusNo
	case LeadStatusMaybe:
		return LeadStatusMaybe
	default:
		return LeadStatusUnknown
	}
}

// CompletionData is produced at most once per session by the terminal
// submission.
type CompletionData struct {
	LeadStatus  LeadStatus `json:"leadStatus"`
	Score       float64    `json:"score"`
	Message     string     `json:"message,omitempty"`
	RedirectURL string     `json:"redirectUrl,omitempty"`
	NextSteps   []string   `json:"nextSteps,omitempty"`
}

// TrackingData carries attribution parameters (utm_*, referrer, ...) sent
// with the start-session call.
type TrackingData map[string]string
