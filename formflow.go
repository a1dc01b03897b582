package formflow

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/internal/config"
	"github.com/goliatone/go-formflow/pkg/api"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/session"
	"github.com/goliatone/go-formflow/pkg/store"
	"github.com/goliatone/go-formflow/pkg/theme"
)

// Config aliases the runtime configuration so callers outside the module can
// build one without importing internal packages.
type Config = config.Config

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return config.Default()
}

// LoadConfig reads a YAML configuration file over the defaults.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// Runtime bundles the components one respondent session needs: the API
// client, the persistence store, the theme applicator and the flow.
type Runtime struct {
	Client *api.Client
	Store  store.Store
	Themes *theme.Applicator
	Flow   *session.Flow

	logger  *zap.Logger
	closers []func() error
}

// Option customises New.
type Option func(*options)

type options struct {
	logger     *zap.Logger
	httpClient *http.Client
	store      store.Store
	sinks      []theme.Sink
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithHTTPClient replaces the HTTP client built from api.timeout.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithStore bypasses store.driver and uses s directly.
func WithStore(s store.Store) Option {
	return func(o *options) {
		if s != nil {
			o.store = s
		}
	}
}

// WithThemeSink registers a sink notified whenever a theme is applied.
func WithThemeSink(sink theme.Sink) Option {
	return func(o *options) {
		if sink != nil {
			o.sinks = append(o.sinks, sink)
		}
	}
}

// New assembles a Runtime from cfg. The store is opened according to
// store.driver; a redis store is pinged before New returns.
func New(ctx context.Context, cfg *Config, opts ...Option) (*Runtime, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &options{logger: zap.NewNop()}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(o)
	}

	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.API.Timeout}
	}
	clientOpts := []api.Option{
		api.WithHTTPClient(httpClient),
		api.WithLogger(o.logger.Named("api")),
	}
	for name, value := range cfg.API.Headers {
		clientOpts = append(clientOpts, api.WithHeader(name, value))
	}
	client, err := api.New(cfg.API.BaseURL, clientOpts...)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{Client: client, logger: o.logger}

	s := o.store
	if s == nil {
		opened, closer, err := OpenStore(ctx, cfg.Store)
		if err != nil {
			return nil, err
		}
		s = opened
		if closer != nil {
			rt.closers = append(rt.closers, closer)
		}
	}
	rt.Store = s

	themeOpts := []theme.Option{
		theme.WithStore(s),
		theme.WithLogger(o.logger.Named("theme")),
	}
	if cfg.Theme.CacheTTL > 0 {
		themeOpts = append(themeOpts, theme.WithTTL(cfg.Theme.CacheTTL))
	}
	for _, sink := range o.sinks {
		themeOpts = append(themeOpts, theme.WithSink(sink))
	}
	rt.Themes = theme.NewApplicator(client, themeOpts...)

	flowOpts := []session.Option{
		session.WithStore(s),
		session.WithThemes(rt.Themes),
		session.WithLogger(o.logger.Named("session")),
	}
	if cfg.Progress.Interval > 0 {
		flowOpts = append(flowOpts, session.WithProgressInterval(cfg.Progress.Interval))
	}
	rt.Flow = session.New(client, flowOpts...)
	return rt, nil
}

// OpenStore opens the store selected by cfg.Driver. The returned closer is
// nil for stores without resources to release.
func OpenStore(ctx context.Context, cfg config.StoreConfig) (store.Store, func() error, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return store.NewMemory(), nil, nil
	case config.DriverFile:
		s, err := store.NewFile(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	case config.DriverSQLite:
		s, err := store.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.DriverRedis:
		s := store.OpenRedis(store.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return nil, nil, fmt.Errorf("formflow: redis %s: %w", cfg.Redis.Addr, err)
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("formflow: unknown store driver %q", cfg.Driver)
	}
}

// Completion consumes the completion data stored for sessionID. It can be
// read once.
func (r *Runtime) Completion(ctx context.Context, sessionID string) (model.CompletionData, error) {
	return session.Consume(ctx, r.Store, sessionID)
}

// Close waits for background work to finish and releases the store.
func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}
	if r.Flow != nil {
		r.Flow.Close()
	}
	var errs []error
	for _, closer := range r.closers {
		if err := closer(); err != nil {
			errs = append(errs, err)
		}
	}
	_ = r.logger.Sync()
	return errors.Join(errs...)
}
