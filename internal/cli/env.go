package cli

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/keepsake/internal/config"
	"github.com/roach88/keepsake/internal/engine"
	"github.com/roach88/keepsake/internal/logger"
	"github.com/roach88/keepsake/internal/notify"
	"github.com/roach88/keepsake/internal/store"
	"github.com/roach88/keepsake/internal/telemetry"
)

// env is the per-invocation wiring: config, logger, tracing, store,
// scheduler and engine.
type env struct {
	cfg     *config.Config
	log     *zap.Logger
	engine  *engine.Engine
	closers []func(context.Context) error
}

// loadSettings reads configuration and builds the logger. Flags override
// the config file and environment.
func loadSettings(opts *RootOptions) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.DatabasePath = opts.Database
	}

	var log *zap.Logger
	if opts.Verbose {
		log, err = logger.NewDevelopmentLogger(true)
	} else {
		log, err = logger.NewProductionLogger(cfg.Debug)
	}
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to create logger", err)
	}
	return cfg, log, nil
}

// openEnv wires everything a store-backed command needs. Callers must
// Close the env.
func openEnv(ctx context.Context, opts *RootOptions) (*env, error) {
	cfg, log, err := loadSettings(opts)
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg, log: log}

	engineOpts := []engine.EngineOption{engine.WithLogger(log)}
	if cfg.Telemetry.Enabled {
		tp, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.Endpoint)
		if err != nil {
			e.Close()
			return nil, WrapExitError(ExitCommandError, "failed to initialize tracing", err)
		}
		e.closers = append(e.closers, func(ctx context.Context) error {
			return telemetry.Shutdown(ctx, tp)
		})
		engineOpts = append(engineOpts, engine.WithTracer(tp.Tracer(cfg.Telemetry.ServiceName)))
	}

	log.Debug("opening database", zap.String("path", cfg.DatabasePath))
	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		e.Close()
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	e.closers = append(e.closers, func(context.Context) error { return st.Close() })

	scheduler := opts.Scheduler
	if scheduler == nil {
		url := cfg.Scheduler.AMQPURL
		if cfg.Scheduler.Backend == notify.BackendRedis {
			url = cfg.Scheduler.RedisURL
		}
		s, closer, err := notify.Open(ctx, cfg.Scheduler.Backend, url,
			notify.WithHorizon(time.Duration(cfg.Scheduler.HorizonDays)*24*time.Hour),
			notify.WithLogger(log),
		)
		if err != nil {
			e.Close()
			return nil, WrapExitError(ExitCommandError, "failed to connect scheduler", err)
		}
		scheduler = s
		e.closers = append(e.closers, func(context.Context) error { return closer.Close() })
	}

	engineOpts = append(engineOpts, engine.WithScheduler(scheduler))
	if opts.Clock != nil {
		engineOpts = append(engineOpts, engine.WithClock(opts.Clock))
	}
	if opts.IDs != nil {
		engineOpts = append(engineOpts, engine.WithIDGenerator(opts.IDs))
	}
	e.engine = engine.New(st, engineOpts...)
	return e, nil
}

// Close releases resources in reverse order of acquisition.
func (e *env) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	// Sync on a terminal stderr returns EINVAL on some platforms.
	_ = logger.Sync(e.log)
	return errors.Join(errs...)
}
