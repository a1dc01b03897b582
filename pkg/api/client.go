package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/render"
)

const (
	tracerName     = "github.com/goliatone/go-formflow/pkg/api"
	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 4 << 20
)

// Client talks to the public form API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	headers    http.Header
	logger     *zap.Logger
	tracer     trace.Tracer
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithHeader adds a static header to every request (API keys, tenant ids).
func WithHeader(name, value string) Option {
	return func(c *Client) {
		if strings.TrimSpace(name) != "" {
			c.headers.Set(name, value)
		}
	}
}

// WithLogger attaches a zap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTracerProvider overrides the global OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		if tp != nil {
			c.tracer = tp.Tracer(tracerName)
		}
	}
}

// New constructs a Client for the API rooted at baseURL.
func New(baseURL string, options ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return nil, ErrBaseURLMissing
	}
	parsed, err := url.Parse(strings.TrimRight(trimmed, "/"))
	if err != nil {
		return nil, fmt.Errorf("api: parse base url: %w", err)
	}

	c := &Client{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: defaultTimeout},
		headers:    make(http.Header),
		logger:     zap.NewNop(),
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(c)
	}
	return c, nil
}

// StartSession starts a new session or resumes the one named in req.
func (c *Client) StartSession(ctx context.Context, req StartSessionRequest) (StartSessionResponse, error) {
	var out StartSessionResponse
	err := c.do(ctx, "start session", http.MethodPost, []string{"public", "sessions", "start"}, req, &out,
		attribute.String("form.id", req.FormID),
		attribute.Bool("session.resumed", req.SessionID != ""),
	)
	return out, err
}

// SubmitResponses posts the answers for the current step.
func (c *Client) SubmitResponses(ctx context.Context, sessionID string, req SubmitRequest) (SubmitResponse, error) {
	var out SubmitResponse
	err := c.do(ctx, "submit responses", http.MethodPost, []string{"public", "sessions", sessionID, "responses"}, req, &out,
		attribute.String("session.id", sessionID),
		attribute.Int("step.number", req.CurrentStep),
	)
	return out, err
}

// GetStep fetches a step by number.
func (c *Client) GetStep(ctx context.Context, sessionID string, stepNumber int) (model.StepDescriptor, error) {
	var out model.StepDescriptor
	err := c.do(ctx, "get step", http.MethodGet, []string{"public", "sessions", sessionID, "steps", strconv.Itoa(stepNumber)}, nil, &out,
		attribute.String("session.id", sessionID),
		attribute.Int("step.number", stepNumber),
	)
	return out, err
}

// GetTheme fetches the theme configured for a form. A missing theme yields
// an error matching ErrNotFound.
func (c *Client) GetTheme(ctx context.Context, formID string) (model.ThemeConfig, error) {
	var out model.ThemeConfig
	err := c.do(ctx, "get theme", http.MethodGet, []string{"public", "forms", formID, "theme"}, nil, &out,
		attribute.String("form.id", formID),
	)
	return out, err
}

// SaveProgress stores draft answers.
func (c *Client) SaveProgress(ctx context.Context, sessionID string, req ProgressRequest) error {
	return c.do(ctx, "save progress", http.MethodPut, []string{"public", "sessions", sessionID, "progress"}, req, nil,
		attribute.String("session.id", sessionID),
	)
}

func (c *Client) do(ctx context.Context, op, method string, segments []string, body, out any, attrs ...attribute.KeyValue) (err error) {
	ctx, span := c.tracer.Start(ctx, "formflow.api "+op, trace.WithAttributes(attrs...))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	endpoint := c.endpoint(segments...)

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: %s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("api: %s: request: %w", op, err)
	}
	for name, values := range c.headers {
		for _, value := range values {
			req.Header.Add(name, value)
		}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("api request failed", zap.String("op", op), zap.String("url", endpoint), zap.Error(err))
		return fmt.Errorf("api: %s: %w", op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	c.logger.Debug("api request",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("url", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("api: %s: read body: %w", op, err)
	}

	var envelope Envelope
	decodeErr := json.Unmarshal(raw, &envelope)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		remote := &RemoteError{Op: op, StatusCode: resp.StatusCode}
		if decodeErr == nil {
			remote.Message = envelope.Message
			remote.Mapping = render.MapErrorPayload(nil, envelope.Errors)
		} else {
			remote.Message = http.StatusText(resp.StatusCode)
		}
		return remote
	}
	if decodeErr != nil {
		return fmt.Errorf("api: %s: decode envelope: %w", op, decodeErr)
	}
	if !envelope.Success {
		return &RemoteError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    envelope.Message,
			Mapping:    render.MapErrorPayload(nil, envelope.Errors),
		}
	}

	if out == nil || len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("api: %s: decode data: %w", op, err)
	}
	return nil
}

func (c *Client) endpoint(segments ...string) string {
	return c.baseURL.JoinPath(segments...).String()
}
