package theme

import (
	"context"
	"errors"
	"sync"
	"time"

	gotheme "github.com/goliatone/go-theme"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/goliatone/go-formflow/pkg/api"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/store"
)

// DefaultTTL is how long a fetched theme stays cached.
const DefaultTTL = 10 * time.Minute

const prefetchConcurrency = 4

// Fetcher retrieves a form's theme. *api.Client satisfies it.
type Fetcher interface {
	GetTheme(ctx context.Context, formID string) (model.ThemeConfig, error)
}

// Active is the theme currently applied to the presentation layer.
type Active struct {
	FormID     string
	Config     model.ThemeConfig
	Renderer   *gotheme.RendererConfig
	Stylesheet string
}

// Sink receives every applied theme. It is the single boundary where style
// values leave the runtime.
type Sink interface {
	ApplyTheme(active Active)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Active)

func (f SinkFunc) ApplyTheme(active Active) {
	f(active)
}

// Applicator loads, caches and applies form themes. Failures never surface:
// callers always get a complete theme, falling back to Default.
type Applicator struct {
	fetcher Fetcher
	store   store.Store
	ttl     time.Duration
	now     func() time.Time
	logger  *zap.Logger
	base    model.ThemeConfig

	group singleflight.Group

	mu     sync.RWMutex
	sinks  []Sink
	active *Active
}

// Option configures the Applicator.
type Option func(*Applicator)

// WithStore caches merged themes in s instead of process memory.
func WithStore(s store.Store) Option {
	return func(a *Applicator) {
		if s != nil {
			a.store = s
		}
	}
}

// WithTTL overrides the cache lifetime. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(a *Applicator) {
		if ttl > 0 {
			a.ttl = ttl
		}
	}
}

// WithClock injects the time source used for cache expiry.
func WithClock(now func() time.Time) Option {
	return func(a *Applicator) {
		if now != nil {
			a.now = now
		}
	}
}

// WithLogger attaches a zap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Applicator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithBase replaces the theme that remote payloads are merged over.
func WithBase(base model.ThemeConfig) Option {
	return func(a *Applicator) {
		a.base = Merge(Default(), base)
	}
}

// WithSink registers a sink notified on every Apply.
func WithSink(sink Sink) Option {
	return func(a *Applicator) {
		if sink != nil {
			a.sinks = append(a.sinks, sink)
		}
	}
}

// NewApplicator constructs an Applicator backed by fetcher.
func NewApplicator(fetcher Fetcher, options ...Option) *Applicator {
	a := &Applicator{
		fetcher: fetcher,
		store:   store.NewMemory(),
		ttl:     DefaultTTL,
		now:     time.Now,
		logger:  zap.NewNop(),
		base:    Default(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(a)
	}
	if missing := MissingFields(a.base); len(missing) > 0 {
		a.logger.Warn("base theme has blank tokens", zap.Strings("tokens", missing))
	}
	return a
}

type cacheEntry struct {
	Theme     model.ThemeConfig `json:"theme"`
	FetchedAt time.Time         `json:"fetchedAt"`
}

// Load returns the merged theme for formID, serving from cache while fresh.
// Concurrent loads for the same form share one fetch.
func (a *Applicator) Load(ctx context.Context, formID string) model.ThemeConfig {
	if formID == "" {
		return a.base
	}
	if cfg, ok := a.cached(ctx, formID); ok {
		return cfg
	}

	v, _, _ := a.group.Do(formID, func() (any, error) {
		if cfg, ok := a.cached(ctx, formID); ok {
			return cfg, nil
		}
		return a.fetch(ctx, formID), nil
	})
	return v.(model.ThemeConfig)
}

func (a *Applicator) cached(ctx context.Context, formID string) (model.ThemeConfig, bool) {
	var entry cacheEntry
	if err := store.LoadJSON(ctx, a.store, store.ThemeKey(formID), &entry); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			a.logger.Debug("theme cache read failed", zap.String("form_id", formID), zap.Error(err))
		}
		return model.ThemeConfig{}, false
	}
	if a.now().Sub(entry.FetchedAt) >= a.ttl {
		return model.ThemeConfig{}, false
	}
	return entry.Theme, true
}

func (a *Applicator) fetch(ctx context.Context, formID string) model.ThemeConfig {
	if a.fetcher == nil {
		return a.base
	}
	partial, err := a.fetcher.GetTheme(ctx, formID)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			a.logger.Debug("no theme configured, using default", zap.String("form_id", formID))
		} else {
			a.logger.Warn("theme fetch failed, using default", zap.String("form_id", formID), zap.Error(err))
		}
		return a.base
	}

	merged := Merge(a.base, partial)
	entry := cacheEntry{Theme: merged, FetchedAt: a.now()}
	if err := store.SaveJSON(ctx, a.store, store.ThemeKey(formID), entry); err != nil {
		a.logger.Debug("theme cache write failed", zap.String("form_id", formID), zap.Error(err))
	}
	return merged
}

// Apply loads the theme for formID and pushes it to every sink.
func (a *Applicator) Apply(ctx context.Context, formID string) Active {
	return a.publish(formID, a.Load(ctx, formID))
}

// ApplyConfig merges an embedded theme over the base and pushes it to every
// sink without contacting the API.
func (a *Applicator) ApplyConfig(formID string, partial model.ThemeConfig) Active {
	return a.publish(formID, Merge(a.base, partial))
}

func (a *Applicator) publish(formID string, cfg model.ThemeConfig) Active {
	rc := Tokens(formID, cfg)
	active := Active{
		FormID:     formID,
		Config:     cfg,
		Renderer:   rc,
		Stylesheet: Stylesheet(rc, cfg.CustomCSS),
	}

	a.mu.Lock()
	a.active = &active
	sinks := append([]Sink(nil), a.sinks...)
	a.mu.Unlock()

	for _, sink := range sinks {
		sink.ApplyTheme(active)
	}
	return active
}

// Active returns the last applied theme, or the default when none was
// applied yet.
func (a *Applicator) Active() Active {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.active != nil {
		return *a.active
	}
	rc := Tokens("", a.base)
	return Active{Config: a.base, Renderer: rc, Stylesheet: Stylesheet(rc, a.base.CustomCSS)}
}

// Prefetch warms the cache for several forms concurrently.
func (a *Applicator) Prefetch(ctx context.Context, formIDs ...string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(prefetchConcurrency)
	for _, id := range formIDs {
		id := id
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			a.Load(gctx, id)
			return nil
		})
	}
	return g.Wait()
}
