// Command formflow runs multi-step forms in the terminal against a formflow
// API.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	formflow "github.com/goliatone/go-formflow"
	"github.com/goliatone/go-formflow/internal/config"
	"github.com/goliatone/go-formflow/pkg/renderers/tui"
	"github.com/goliatone/go-formflow/pkg/view"
)

// app carries state shared by the commands.
type app struct {
	configPath string
	apiURL     string
	driver     string
	storePath  string
	logLevel   string

	cfg    *formflow.Config
	logger *zap.Logger
	views  *view.Renderer

	// prompts overrides the survey driver.
	prompts tui.PromptDriver

	newRuntime func(ctx context.Context, cfg *formflow.Config, opts ...formflow.Option) (*formflow.Runtime, error)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCmd(&app{})
	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	if a.newRuntime == nil {
		a.newRuntime = formflow.New
	}

	root := &cobra.Command{
		Use:          "formflow",
		Short:        "Fill in multi-step forms from the terminal",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "formflow.yaml", "configuration file")
	flags.StringVar(&a.apiURL, "api-url", "", "API base URL (overrides api.baseURL)")
	flags.StringVar(&a.driver, "store", "", "store driver: memory, file, sqlite or redis")
	flags.StringVar(&a.storePath, "store-path", "", "store directory or database path")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newRunCmd(a),
		newThemeCmd(a),
		newStepCmd(a),
		newCompletionCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := formflow.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.apiURL != "" {
		cfg.API.BaseURL = a.apiURL
	}
	if a.driver != "" {
		cfg.Store.Driver = a.driver
	}
	if a.storePath != "" {
		cfg.Store.Path = a.storePath
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	if a.logger == nil {
		logger, err := newLogger(cfg.Log, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		a.logger = logger
	}

	if a.views == nil {
		views, err := view.New()
		if err != nil {
			return err
		}
		a.views = views
	}
	return nil
}

func (a *app) runtime(ctx context.Context, opts ...formflow.Option) (*formflow.Runtime, error) {
	opts = append([]formflow.Option{formflow.WithLogger(a.logger)}, opts...)
	return a.newRuntime(ctx, a.cfg, opts...)
}

func newLogger(cfg config.LogConfig, errOut io.Writer) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoder := zapcore.NewJSONEncoder(encoderCfg)
	if cfg.Development {
		encoderCfg = zap.NewDevelopmentEncoderConfig()
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}
	core := zapcore.NewCore(encoder, zapcore.AddSync(errOut), zap.NewAtomicLevelAt(level))

	opts := []zap.Option{zap.AddCaller()}
	if cfg.Development {
		opts = append(opts, zap.Development())
	}
	return zap.New(core, opts...).Named("formflow"), nil
}
