// FILE: evsink/src/cmd/evsink/bootstrap.go
package main

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"evsink/src/internal/config"
	"evsink/src/internal/metrics"
	"evsink/src/internal/reporter"
	"evsink/src/internal/sink"
	"evsink/src/internal/source"
	"evsink/src/internal/telemetry"

	"github.com/lixenwraith/log"
)

// App wires the process-wide telemetry logger to its producer and consumer
type App struct {
	cfg      *config.Config
	events   *telemetry.Logger
	reporter *reporter.Reporter
	source   source.Source
	metrics  *metrics.Server
}

// bootstrap builds every component and starts the consumer side before the
// source, so no event is produced before it can be drained
func bootstrap(cfg *config.Config) (*App, error) {
	events, err := telemetry.InitWithCapacity(int(cfg.Queue.InitialCapacity))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	app := &App{cfg: cfg, events: events}

	sinks, err := sink.NewAll(cfg.Sinks, logger)
	if err != nil {
		_ = telemetry.Shutdown()
		return nil, fmt.Errorf("failed to create sinks: %w", err)
	}

	app.reporter, err = reporter.New(events, &cfg.Reporter, cfg.Queue.WarnDepth, sinks, logger)
	if err != nil {
		for _, s := range sinks {
			_ = s.Close()
		}
		_ = telemetry.Shutdown()
		return nil, fmt.Errorf("failed to create reporter: %w", err)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(events.Queue(), events.Dropped, telemetry.StrayCalls)
		app.reporter.SetObserver(m)
	}

	app.reporter.Start()

	if m != nil {
		app.metrics = metrics.NewServer(m, cfg.Metrics.Path, logger)
		addr := net.JoinHostPort(cfg.Metrics.Host, strconv.FormatInt(cfg.Metrics.Port, 10))
		if err := app.metrics.Start(addr); err != nil {
			_ = app.shutdown(time.Second)
			return nil, err
		}
	}

	// The source drives the package-level producer functions, as engine code would
	app.source, err = source.New(&cfg.Source, telemetry.Global(), logger)
	if err != nil {
		_ = app.shutdown(time.Second)
		return nil, fmt.Errorf("failed to create source: %w", err)
	}
	if app.source != nil {
		if err := app.source.Start(); err != nil {
			_ = app.shutdown(time.Second)
			return nil, fmt.Errorf("failed to start source: %w", err)
		}
	}

	return app, nil
}

// sourceDone is closed when the input is exhausted; nil (never ready) without a source
func (a *App) sourceDone() <-chan struct{} {
	if a.source == nil {
		return nil
	}
	return a.source.Done()
}

// shutdown stops the producer side, drains the queue and stops the metrics server
func (a *App) shutdown(timeout time.Duration) error {
	if a.source != nil {
		a.source.Stop()
	}

	if err := telemetry.Shutdown(); err != nil {
		logger.Warn("msg", "Telemetry shutdown",
			"component", "main",
			"error", err)
	}

	drainErr := a.reporter.Shutdown(timeout)

	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := a.metrics.Shutdown(ctx); err != nil {
			logger.Error("msg", "Metrics server shutdown failed",
				"component", "main",
				"error", err)
		}
	}

	return drainErr
}

// initializeLogger configures evsink's own diagnostic logger
func initializeLogger(cfg *config.Config) error {
	logger = log.NewLogger()
	logCfg := log.DefaultConfig()

	if cfg.Quiet {
		logCfg.EnableConsole = false
		logCfg.DisableFile = true
		if err := logger.ApplyConfig(logCfg); err != nil {
			return err
		}
		return logger.Start()
	}

	level, err := parseLogLevel(cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logCfg.Level = level

	// Configure based on output mode
	switch cfg.Logging.Output {
	case "none":
		logCfg.DisableFile = true
		logCfg.EnableConsole = false

	case "stdout", "stderr":
		logCfg.DisableFile = true
		logCfg.EnableConsole = true
		logCfg.ConsoleTarget = cfg.Logging.Output

	case "file":
		logCfg.EnableConsole = false
		configureFileLogging(logCfg, cfg)

	case "both":
		logCfg.EnableConsole = true
		configureFileLogging(logCfg, cfg)
		configureConsoleTarget(logCfg, cfg)

	default:
		return fmt.Errorf("invalid log output mode: %s", cfg.Logging.Output)
	}

	// Apply format if specified
	if cfg.Logging.Console != nil && cfg.Logging.Console.Format != "" {
		logCfg.Format = cfg.Logging.Console.Format
	}

	if err := logger.ApplyConfig(logCfg); err != nil {
		return fmt.Errorf("failed to apply logger config: %w", err)
	}
	return logger.Start()
}

// configureFileLogging sets up file-based logging parameters
func configureFileLogging(logCfg *log.Config, cfg *config.Config) {
	logCfg.DisableFile = false
	if cfg.Logging.File != nil {
		logCfg.Directory = cfg.Logging.File.Directory
		logCfg.Name = cfg.Logging.File.Name
		logCfg.MaxSizeKB = cfg.Logging.File.MaxSizeMB * 1000
		logCfg.MaxTotalSizeKB = cfg.Logging.File.MaxTotalSizeMB * 1000
		if cfg.Logging.File.RetentionHours > 0 {
			logCfg.RetentionPeriodHrs = cfg.Logging.File.RetentionHours
		}
	}
}

// configureConsoleTarget sets up console output parameters
func configureConsoleTarget(logCfg *log.Config, cfg *config.Config) {
	target := "stderr"
	if cfg.Logging.Console != nil && cfg.Logging.Console.Target != "" {
		target = cfg.Logging.Console.Target
	}
	logCfg.ConsoleTarget = target
}

// applyFlagOverrides lets dedicated flags win over every config source
func applyFlagOverrides(cfg *config.Config, fc *FlagConfig) {
	if fc.Quiet {
		cfg.Quiet = true
	}
	if fc.Input != "" {
		cfg.Source.Type = "nixjson"
		cfg.Source.Path = fc.Input
	}
	if fc.LogOutput != "" {
		cfg.Logging.Output = fc.LogOutput
	}
	if fc.LogLevel != "" {
		cfg.Logging.Level = fc.LogLevel
	}
	if fc.LogConsole != "" {
		if cfg.Logging.Console == nil {
			cfg.Logging.Console = &config.LogConsoleConfig{}
		}
		cfg.Logging.Console.Target = fc.LogConsole
	}
}
