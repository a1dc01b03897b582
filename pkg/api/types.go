package api

import (
	"encoding/json"
	"time"

	"github.com/goliatone/go-formflow/pkg/model"
)

// Envelope wraps every API payload. Success=false is a failure regardless of
// the HTTP status code.
type Envelope struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data,omitempty"`
	Message string              `json:"message,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// StartSessionRequest is the payload for the start-session operation.
// SessionID is only set when resuming.
type StartSessionRequest struct {
	FormID       string             `json:"formId"`
	SessionID    string             `json:"sessionId,omitempty"`
	TrackingData model.TrackingData `json:"trackingData,omitempty"`
}

// StartSessionResponse carries the form and its current step. SessionID is
// populated when the server assigns or confirms an id.
type StartSessionResponse struct {
	SessionID string               `json:"sessionId,omitempty"`
	Form      model.FormDescriptor `json:"form"`
	Step      model.StepDescriptor `json:"step"`
}

// SubmitRequest posts the answers for the current step.
type SubmitRequest struct {
	Responses   []model.Response `json:"responses"`
	CurrentStep int              `json:"currentStep"`
	Timestamp   time.Time        `json:"timestamp"`
}

// SubmitResponse is either a next step or a terminal completion.
type SubmitResponse struct {
	NextStep       *model.StepDescriptor `json:"nextStep,omitempty"`
	IsComplete     bool                  `json:"isComplete"`
	CompletionData *model.CompletionData `json:"completionData,omitempty"`
}

// ProgressRequest is the best-effort draft save payload.
type ProgressRequest struct {
	Responses   []model.Response `json:"responses"`
	CurrentStep int              `json:"currentStep"`
	LastUpdated time.Time        `json:"lastUpdated"`
}
