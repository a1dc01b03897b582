package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/goliatone/go-formflow/pkg/api"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/store"
	"github.com/goliatone/go-formflow/pkg/theme"
	"github.com/goliatone/go-formflow/pkg/validation"
	"github.com/goliatone/go-formflow/pkg/visibility"
)

// DefaultProgressInterval is the minimum gap between two progress saves.
const DefaultProgressInterval = 2 * time.Second

// Remote is the subset of the form API the flow drives. *api.Client
// satisfies it.
type Remote interface {
	StartSession(ctx context.Context, req api.StartSessionRequest) (api.StartSessionResponse, error)
	SubmitResponses(ctx context.Context, sessionID string, req api.SubmitRequest) (api.SubmitResponse, error)
	GetStep(ctx context.Context, sessionID string, stepNumber int) (model.StepDescriptor, error)
	SaveProgress(ctx context.Context, sessionID string, req api.ProgressRequest) error
}

// ThemeLoader applies a form theme. *theme.Applicator satisfies it.
type ThemeLoader interface {
	Apply(ctx context.Context, formID string) theme.Active
	ApplyConfig(formID string, partial model.ThemeConfig) theme.Active
}

// StartOptions carries optional inputs for Start.
type StartOptions struct {
	// SessionID resumes a known session and takes precedence over the stored
	// one.
	SessionID string
	Tracking  model.TrackingData
}

// Flow drives one respondent through a multi-step form. Remote calls run
// without holding the lock; each transition takes a generation token and a
// response whose token is no longer current is discarded.
type Flow struct {
	remote    Remote
	store     store.Store
	themes    ThemeLoader
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
	limiter   *rate.Limiter
	evaluator visibility.Evaluator

	mu         sync.Mutex
	state      State
	form       model.FormDescriptor
	step       model.StepDescriptor
	session    model.Session
	completion *model.CompletionData
	err        error
	generation uint64

	wg     sync.WaitGroup
	bg     context.Context
	cancel context.CancelFunc
}

// Option configures a Flow.
type Option func(*Flow)

// WithStore persists sessions and completion data in s.
func WithStore(s store.Store) Option {
	return func(f *Flow) {
		if s != nil {
			f.store = s
		}
	}
}

// WithThemes triggers theme loading on every successful Start.
func WithThemes(loader ThemeLoader) Option {
	return func(f *Flow) {
		f.themes = loader
	}
}

// WithLogger attaches a zap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Flow) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithClock injects the time source for response timestamps.
func WithClock(now func() time.Time) Option {
	return func(f *Flow) {
		if now != nil {
			f.now = now
		}
	}
}

// WithIDGenerator overrides the session id generator.
func WithIDGenerator(gen func() string) Option {
	return func(f *Flow) {
		if gen != nil {
			f.newID = gen
		}
	}
}

// WithProgressInterval throttles SaveProgress to one call per interval.
func WithProgressInterval(interval time.Duration) Option {
	return func(f *Flow) {
		if interval > 0 {
			f.limiter = rate.NewLimiter(rate.Every(interval), 1)
		}
	}
}

// WithEvaluator overrides the conditional-display evaluator.
func WithEvaluator(eval visibility.Evaluator) Option {
	return func(f *Flow) {
		if eval != nil {
			f.evaluator = eval
		}
	}
}

// New constructs a Flow over remote.
func New(remote Remote, options ...Option) *Flow {
	bg, cancel := context.WithCancel(context.Background())
	f := &Flow{
		remote:    remote,
		store:     store.NewMemory(),
		logger:    zap.NewNop(),
		now:       time.Now,
		newID:     uuid.NewString,
		limiter:   rate.NewLimiter(rate.Every(DefaultProgressInterval), 1),
		evaluator: visibility.New(),
		state:     StateInitializing,
		bg:        bg,
		cancel:    cancel,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(f)
	}
	return f
}

// Start begins or resumes a session for formID. A stored, incomplete session
// for the same form is resumed with its id; otherwise a new one is created.
// Naming a session that already completed returns ErrSessionComplete and
// leaves the flow in StateComplete.
func (f *Flow) Start(ctx context.Context, formID string, opts StartOptions) (Snapshot, error) {
	if formID == "" {
		return f.Snapshot(), ErrFormIDRequired
	}

	resumeID, stored, completed := f.resolveIdentity(ctx, formID, opts)
	if completed != nil {
		return f.holdComplete(*completed), ErrSessionComplete
	}

	f.mu.Lock()
	f.generation++
	gen := f.generation
	f.state = StateInitializing
	f.err = nil
	f.mu.Unlock()

	fallbackID := resumeID
	if fallbackID == "" {
		fallbackID = f.newID()
	}

	logger := f.logger.With(zap.String("form_id", formID))
	resp, err := f.remote.StartSession(ctx, api.StartSessionRequest{
		FormID:       formID,
		SessionID:    resumeID,
		TrackingData: opts.Tracking,
	})

	f.mu.Lock()
	if gen != f.generation {
		f.mu.Unlock()
		return f.Snapshot(), ErrStaleResponse
	}
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			err = fmt.Errorf("%w: %w", ErrFormNotFound, err)
		}
		f.fail(err)
		snap := f.snapshotLocked()
		f.mu.Unlock()
		logger.Warn("session start failed", zap.Error(err))
		return snap, err
	}

	sessionID := resp.SessionID
	if sessionID == "" {
		sessionID = fallbackID
	}

	now := f.now()
	session := model.Session{SessionID: sessionID, FormID: formID, StartedAt: now}
	if stored != nil && stored.SessionID == sessionID {
		session = stored.Clone()
	}
	session.CurrentStep = resp.Step.StepNumber
	session.TotalSteps = resp.Step.TotalSteps
	session.IsComplete = false
	session.LastUpdated = now

	f.form = resp.Form
	f.step = resp.Step
	f.session = session
	f.completion = nil
	f.state = StateAwaitingInput
	snap := f.snapshotLocked()
	f.mu.Unlock()

	logger.Info("session started",
		zap.String("session_id", sessionID),
		zap.Bool("resumed", resumeID != ""),
		zap.Int("step", resp.Step.StepNumber),
	)

	f.persistSession(ctx, session)
	f.loadTheme(resp.Form, formID)
	return snap, nil
}

// resolveIdentity picks the session id to resume. The third result is set
// when opts names a session that is already complete.
func (f *Flow) resolveIdentity(ctx context.Context, formID string, opts StartOptions) (string, *model.Session, *model.Session) {
	if opts.SessionID != "" {
		f.mu.Lock()
		current := f.session.Clone()
		f.mu.Unlock()
		if current.SessionID == opts.SessionID && current.IsComplete {
			return "", nil, &current
		}
	}

	var stored model.Session
	err := store.LoadJSON(ctx, f.store, store.SessionKey(formID), &stored)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		f.logger.Warn("stored session unreadable", zap.String("form_id", formID), zap.Error(err))
	}
	found := err == nil && stored.FormID == formID && stored.SessionID != ""
	if found && stored.IsComplete {
		if opts.SessionID == stored.SessionID {
			return "", nil, &stored
		}
		found = false
	}
	var prior *model.Session
	if found {
		prior = &stored
	}

	if opts.SessionID != "" {
		return opts.SessionID, prior, nil
	}
	if prior != nil {
		return prior.SessionID, prior, nil
	}
	return "", nil, nil
}

// holdComplete moves the flow to StateComplete for an already completed
// session without contacting the API or rewriting the stored record.
func (f *Flow) holdComplete(completed model.Session) Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.session.SessionID != completed.SessionID {
		f.generation++
		f.session = completed
		f.step = model.StepDescriptor{}
		f.completion = nil
	}
	f.state = StateComplete
	f.err = nil
	return f.snapshotLocked()
}

// Submit validates values against the current step and posts them. Local
// validation failures return a *validation.Error without contacting the API.
func (f *Flow) Submit(ctx context.Context, values map[string]any) (Snapshot, error) {
	f.mu.Lock()
	if err := f.readyLocked(); err != nil {
		snap := f.snapshotLocked()
		f.mu.Unlock()
		return snap, err
	}

	step := f.step
	merged := f.session.Values()
	for _, q := range step.Questions {
		delete(merged, q.ID)
	}
	for id, value := range values {
		merged[id] = value
	}

	schema := validation.Build(step.Questions, validation.WithEvaluator(f.evaluator))
	if err := schema.Validate(merged); err != nil {
		snap := f.snapshotLocked()
		f.mu.Unlock()
		return snap, err
	}

	now := f.now()
	normalized := schema.Normalize(merged)
	responses := make([]model.Response, 0, len(normalized))
	for _, q := range step.Questions {
		if value, ok := normalized[q.ID]; ok {
			responses = append(responses, model.Response{QuestionID: q.ID, Value: value, Timestamp: now})
		}
	}

	f.generation++
	gen := f.generation
	f.state = StateSubmitting
	sessionID := f.session.SessionID
	f.mu.Unlock()

	logger := f.logger.With(zap.String("session_id", sessionID), zap.Int("step", step.StepNumber))
	resp, err := f.remote.SubmitResponses(ctx, sessionID, api.SubmitRequest{
		Responses:   responses,
		CurrentStep: step.StepNumber,
		Timestamp:   now,
	})

	f.mu.Lock()
	if gen != f.generation {
		f.mu.Unlock()
		logger.Debug("discarding stale submission response")
		return f.Snapshot(), ErrStaleResponse
	}
	if err != nil {
		var remote *api.RemoteError
		if errors.As(err, &remote) {
			scopeFieldErrors(remote, step)
		}
		if remote != nil && remote.HasFieldErrors() {
			f.state = StateAwaitingInput
		} else {
			f.fail(err)
		}
		snap := f.snapshotLocked()
		f.mu.Unlock()
		logger.Warn("submission failed", zap.Error(err))
		return snap, err
	}

	f.session.MergeResponses(responses)
	f.session.LastUpdated = now

	switch {
	case resp.IsComplete:
		f.session.IsComplete = true
		f.completion = resp.CompletionData
		f.state = StateComplete
	case resp.NextStep != nil:
		f.step = *resp.NextStep
		f.session.CurrentStep = f.step.StepNumber
		if f.step.TotalSteps > 0 {
			f.session.TotalSteps = f.step.TotalSteps
		}
		f.state = StateAwaitingInput
	default:
		f.fail(ErrEmptyResponse)
		snap := f.snapshotLocked()
		f.mu.Unlock()
		return snap, ErrEmptyResponse
	}

	session := f.session.Clone()
	completion := f.completion
	snap := f.snapshotLocked()
	f.mu.Unlock()

	if session.IsComplete {
		logger.Info("session complete")
		if completion != nil {
			if err := store.SaveJSON(ctx, f.store, store.CompletionKey(session.SessionID), completion); err != nil {
				logger.Warn("completion not persisted", zap.Error(err))
			}
		}
	} else {
		logger.Debug("advanced to next step", zap.Int("next_step", session.CurrentStep))
	}
	f.persistSession(ctx, session)
	return snap, nil
}

// GoBack fetches the previous step when the current one allows it. Recorded
// answers remain available through Defaults.
func (f *Flow) GoBack(ctx context.Context) (Snapshot, error) {
	f.mu.Lock()
	if err := f.readyLocked(); err != nil {
		snap := f.snapshotLocked()
		f.mu.Unlock()
		return snap, err
	}
	if !f.step.CanGoBack || f.step.StepNumber <= 1 {
		snap := f.snapshotLocked()
		f.mu.Unlock()
		return snap, ErrCannotGoBack
	}

	f.generation++
	gen := f.generation
	sessionID := f.session.SessionID
	target := f.step.StepNumber - 1
	f.mu.Unlock()

	step, err := f.remote.GetStep(ctx, sessionID, target)

	f.mu.Lock()
	if gen != f.generation {
		f.mu.Unlock()
		return f.Snapshot(), ErrStaleResponse
	}
	if err != nil {
		f.fail(err)
		snap := f.snapshotLocked()
		f.mu.Unlock()
		f.logger.Warn("go back failed", zap.String("session_id", sessionID), zap.Error(err))
		return snap, err
	}

	f.step = step
	f.session.CurrentStep = step.StepNumber
	f.session.LastUpdated = f.now()
	f.state = StateAwaitingInput
	session := f.session.Clone()
	snap := f.snapshotLocked()
	f.mu.Unlock()

	f.persistSession(ctx, session)
	return snap, nil
}

// SaveProgress posts draft answers in the background. It reports whether a
// save was scheduled; throttled or inapplicable calls return false. Failures
// are logged only.
func (f *Flow) SaveProgress(draft map[string]any) bool {
	f.mu.Lock()
	if f.session.SessionID == "" || f.state != StateAwaitingInput {
		f.mu.Unlock()
		return false
	}
	if !f.limiter.Allow() {
		f.mu.Unlock()
		return false
	}

	now := f.now()
	values := f.session.Values()
	for id, value := range draft {
		values[id] = value
	}
	req := api.ProgressRequest{
		Responses:   make([]model.Response, 0, len(values)),
		CurrentStep: f.session.CurrentStep,
		LastUpdated: now,
	}
	for _, id := range sortedKeys(values) {
		req.Responses = append(req.Responses, model.Response{QuestionID: id, Value: values[id], Timestamp: now})
	}
	sessionID := f.session.SessionID
	f.mu.Unlock()

	f.background(func(ctx context.Context) {
		if err := f.remote.SaveProgress(ctx, sessionID, req); err != nil {
			f.logger.Warn("progress save failed", zap.String("session_id", sessionID), zap.Error(err))
		}
	})
	return true
}

// Answers returns every answer recorded in the session. It prefills a
// re-rendered step and is the context Submit evaluates conditional display
// against, so questions depending on earlier steps resolve the same way.
func (f *Flow) Answers() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session.Values()
}

// Evaluator returns the conditional-display evaluator in use.
func (f *Flow) Evaluator() visibility.Evaluator {
	return f.evaluator
}

// Snapshot returns a copy of the current state.
func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

// Close cancels background work (theme loading, progress saves) and waits
// for it to return. A theme fetch cut short falls back to the default theme.
func (f *Flow) Close() {
	f.cancel()
	f.wg.Wait()
}

func (f *Flow) readyLocked() error {
	switch {
	case f.session.SessionID == "":
		return ErrNoSession
	case f.state == StateComplete || f.session.IsComplete:
		return ErrSessionComplete
	case f.state != StateAwaitingInput:
		return fmt.Errorf("%w (state %s)", ErrNotAwaitingInput, f.state)
	}
	return nil
}

func (f *Flow) fail(err error) {
	if f.state == StateComplete {
		return
	}
	f.state = StateErrored
	f.err = err
}

func (f *Flow) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:   f.state,
		Form:    f.form,
		Step:    f.step,
		Session: f.session.Clone(),
		Err:     f.err,
	}
	if f.completion != nil {
		completion := *f.completion
		snap.Completion = &completion
	}
	return snap
}

func (f *Flow) persistSession(ctx context.Context, session model.Session) {
	if err := store.SaveJSON(ctx, f.store, store.SessionKey(session.FormID), session); err != nil {
		f.logger.Warn("session not persisted", zap.String("session_id", session.SessionID), zap.Error(err))
	}
}

func (f *Flow) loadTheme(form model.FormDescriptor, formID string) {
	if f.themes == nil {
		return
	}
	f.background(func(ctx context.Context) {
		if form.Theme != nil {
			f.themes.ApplyConfig(formID, *form.Theme)
			return
		}
		f.themes.Apply(ctx, formID)
	})
}

func (f *Flow) background(fn func(ctx context.Context)) {
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		fn(f.bg)
	}()
}

// scopeFieldErrors moves server errors keyed by something other than a
// question of step into the form-level messages.
func scopeFieldErrors(remote *api.RemoteError, step model.StepDescriptor) {
	ids := make([]string, 0, len(remote.Mapping.Fields))
	for id := range remote.Mapping.Fields {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if _, ok := step.Question(id); ok {
			continue
		}
		remote.Mapping.Form = append(remote.Mapping.Form, remote.Mapping.Fields[id]...)
		delete(remote.Mapping.Fields, id)
	}
	if len(remote.Mapping.Fields) == 0 {
		remote.Mapping.Fields = nil
	}
}

func sortedKeys(values map[string]any) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
