// FILE: evsink/src/cmd/evsink/main.go
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"evsink/src/internal/config"
	"evsink/src/internal/version"

	"github.com/lixenwraith/log"
)

var logger *log.Logger

func main() {
	// Parse flags first to get quiet mode early
	flagCfg, err := ParseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	InitOutputHandler(flagCfg.Quiet)

	if flagCfg.ShowVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	// Load configuration; keys after "--" override file and environment
	cfg, err := config.Load(flagCfg.ConfigFile, flagCfg.ConfigArgs)
	if err != nil {
		FatalError(1, "Failed to load config: %v\n", err)
	}
	applyFlagOverrides(cfg, flagCfg)

	if flagCfg.WriteConfig != "" {
		if err := cfg.SaveToFile(flagCfg.WriteConfig); err != nil {
			FatalError(1, "Failed to write config: %v\n", err)
		}
		Print("Configuration written to %s\n", flagCfg.WriteConfig)
		os.Exit(0)
	}

	if err := initializeLogger(cfg); err != nil {
		FatalError(1, "Failed to initialize logger: %v\n", err)
	}
	defer shutdownLogger()

	logger.Info("msg", "evsink starting",
		"component", "main",
		"version", version.String(),
		"source", cfg.Source.Type,
		"sinks", len(cfg.Sinks),
		"log_output", cfg.Logging.Output)

	// Register before bootstrap so an early signal is not lost
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	app, err := bootstrap(cfg)
	if err != nil {
		logger.Error("msg", "Failed to bootstrap", "component", "main", "error", err)
		shutdownLogger()
		os.Exit(1)
	}

	statusDone := make(chan struct{})
	if enableStatusReporter() {
		go statusReporter(app, time.Duration(cfg.Reporter.StatusIntervalMS)*time.Millisecond, statusDone)
	}

	select {
	case <-app.sourceDone():
		logger.Info("msg", "Input exhausted, draining", "component", "main")
	case sig := <-sigChan:
		logger.Info("msg", "Shutdown signal received, draining",
			"component", "main",
			"signal", sig.String())
	case <-app.reporter.Done():
		logger.Warn("msg", "Reporter exited unexpectedly", "component", "main")
	}
	close(statusDone)

	// A second signal abandons the drain
	go func() {
		<-sigChan
		logger.Error("msg", "Second signal received, forcing exit", "component", "main")
		shutdownLogger()
		os.Exit(1)
	}()

	timeout := time.Duration(cfg.Reporter.ShutdownTimeoutMS) * time.Millisecond
	if err := app.shutdown(timeout); err != nil {
		logger.Error("msg", "Shutdown incomplete", "component", "main", "error", err)
		shutdownLogger()
		os.Exit(1)
	}

	logger.Info("msg", "Shutdown complete", "component", "main")
}

func shutdownLogger() {
	if logger != nil {
		if err := logger.Shutdown(2 * time.Second); err != nil {
			// Best effort - can't log the shutdown error
			Error("Logger shutdown error: %v\n", err)
		}
	}
}

func enableStatusReporter() bool {
	// Status reporter can be disabled via environment variable
	return os.Getenv("EVSINK_DISABLE_STATUS_REPORTER") != "1"
}
