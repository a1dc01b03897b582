package testsupport

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/model"
)

// LeadForm returns a three step lead qualification form used across package
// tests. Step two carries a conditional question and step three is the last
// step.
func LeadForm() *Form {
	return &Form{
		Descriptor: model.FormDescriptor{
			ID:    "lead-form",
			Name:  "lead-form",
			Title: "Get a quote",
		},
		Steps: []model.StepDescriptor{
			{
				StepNumber: 1,
				TotalSteps: 3,
				Headline:   "About you",
				Subheading: "Tell us <b>who</b> you are",
				Questions: []model.Question{
					{ID: "name", Type: model.QuestionTypeText, Title: "Full name", Required: true},
					{ID: "email", Type: model.QuestionTypeEmail, Title: "Work email", Required: true},
				},
			},
			{
				StepNumber: 2,
				TotalSteps: 3,
				Headline:   "Your company",
				CanGoBack:  true,
				Questions: []model.Question{
					{
						ID: "type", Type: model.QuestionTypeRadio, Title: "Buying for", Required: true,
						Options: []model.Option{{Label: "A business", Value: "business"}, {Label: "Myself", Value: "personal"}},
					},
					{
						ID: "company", Type: model.QuestionTypeText, Title: "Company", Required: true,
						Conditional: &model.ConditionalRule{DependsOn: "type", Condition: model.ConditionEquals, Value: "business", Action: model.ConditionalShow},
					},
					{
						ID: "channels", Type: model.QuestionTypeCheckbox, Title: "Contact me by", Required: true,
						Options: []model.Option{{Label: "Email", Value: "email"}, {Label: "Phone", Value: "phone"}},
					},
				},
			},
			{
				StepNumber: 3,
				TotalSteps: 3,
				Headline:   "Almost done",
				CanGoBack:  true,
				IsLastStep: true,
				Questions: []model.Question{
					{ID: "interest", Type: model.QuestionTypeRating, Title: "How interested are you?", Required: true},
					{ID: "notes", Type: model.QuestionTypeTextarea, Title: "Anything else?"},
				},
			},
		},
		Completion: &model.CompletionData{
			LeadStatus:  model.LeadStatusYes,
			Score:       87,
			Message:     "Thanks! <script>alert(1)</script>We will be in touch.",
			RedirectURL: "https://example.com/thanks",
			NextSteps:   []string{"Check your inbox", "Book a call"},
		},
	}
}

// StepAnswers returns valid answers for each LeadForm step.
func StepAnswers(step int) map[string]any {
	switch step {
	case 1:
		return map[string]any{"name": "Ada Lovelace", "email": "ada@example.com"}
	case 2:
		return map[string]any{"type": "business", "company": "Analytical Engines", "channels": []any{"email"}}
	default:
		return map[string]any{"interest": "9", "notes": "Call after 3pm"}
	}
}

// ReferralForm returns a two step form whose second step carries a required
// question shown only when the first step's "source" answer is "partner".
func ReferralForm() *Form {
	return &Form{
		Descriptor: model.FormDescriptor{ID: "referral", Name: "referral", Title: "How did you hear about us?"},
		Steps: []model.StepDescriptor{
			{
				StepNumber: 1,
				TotalSteps: 2,
				Headline:   "Source",
				Questions: []model.Question{{
					ID: "source", Type: model.QuestionTypeRadio, Title: "Source", Required: true,
					Options: []model.Option{{Label: "A partner", Value: "partner"}, {Label: "Search", Value: "search"}},
				}},
			},
			{
				StepNumber: 2,
				TotalSteps: 2,
				Headline:   "Details",
				IsLastStep: true,
				Questions: []model.Question{
					{
						ID: "partner", Type: model.QuestionTypeText, Title: "Partner name", Required: true,
						Conditional: &model.ConditionalRule{DependsOn: "source", Condition: model.ConditionEquals, Value: "partner", Action: model.ConditionalShow},
					},
					{ID: "notes", Type: model.QuestionTypeTextarea, Title: "Notes"},
				},
			},
		},
		Completion: &model.CompletionData{LeadStatus: model.LeadStatusMaybe, Message: "Thanks for the referral."},
	}
}

// AssertEqual fails the test with a readable diff when want and got differ.
func AssertEqual(t *testing.T, want, got any, opts ...cmp.Option) {
	t.Helper()

	if diff := cmp.Diff(want, got, opts...); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}
