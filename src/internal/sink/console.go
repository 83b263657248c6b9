// FILE: evsink/src/internal/sink/console.go
package sink

import (
	"context"
	"io"
	"os"
	"sync/atomic"
	"time"

	"evsink/src/internal/config"
	"evsink/src/internal/core"
	"evsink/src/internal/format"

	"github.com/lixenwraith/log"
	"golang.org/x/term"
)

// ConsoleSink writes entries to stdout, stderr, or both. In split mode error
// and warning messages go to stderr and everything else to stdout.
type ConsoleSink struct {
	name      string
	target    string
	stdout    io.Writer
	stderr    io.Writer
	formatter format.Formatter
	logger    *log.Logger
	startTime time.Time

	// Statistics
	totalWritten  atomic.Uint64
	totalBatches  atomic.Uint64
	failedBatches atomic.Uint64
	formatErrors  atomic.Uint64
	lastWritten   atomic.Value // time.Time
}

// NewConsoleSink creates a console sink
func NewConsoleSink(name string, opts *config.ConsoleSinkOptions, formatter format.Formatter, logger *log.Logger) *ConsoleSink {
	s := &ConsoleSink{
		name:      name,
		target:    opts.Target,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		formatter: formatter,
		logger:    logger,
		startTime: time.Now(),
	}
	s.lastWritten.Store(time.Time{})

	logger.Info("msg", "Console sink created",
		"component", "console_sink",
		"name", name,
		"target", opts.Target,
		"format", formatter.Name())
	return s
}

func (s *ConsoleSink) Name() string {
	return s.name
}

func (s *ConsoleSink) Write(ctx context.Context, entries []core.Entry) error {
	s.totalBatches.Add(1)

	var written, skipped int
	var firstErr error
	for _, entry := range entries {
		formatted, err := s.formatter.Format(entry)
		if err != nil {
			s.formatErrors.Add(1)
			s.logger.Error("msg", "Failed to format entry for console",
				"component", "console_sink",
				"error", err)
			if firstErr == nil {
				firstErr = err
			}
			skipped++
			continue
		}

		if _, err := s.writerFor(entry).Write(formatted); err != nil {
			s.failedBatches.Add(1)
			return err
		}
		s.totalWritten.Add(1)
		written++
	}

	s.lastWritten.Store(time.Now())
	return partialResult(written, skipped, firstErr)
}

func (s *ConsoleSink) writerFor(entry core.Entry) io.Writer {
	switch s.target {
	case "stderr":
		return s.stderr
	case "split":
		if entry.Kind == core.KindMessage && entry.Level <= core.VerbosityWarn {
			return s.stderr
		}
		return s.stdout
	default:
		return s.stdout
	}
}

// Close is a no-op; the process owns stdout and stderr
func (s *ConsoleSink) Close() error {
	s.logger.Info("msg", "Console sink closed",
		"component", "console_sink",
		"name", s.name,
		"total_written", s.totalWritten.Load())
	return nil
}

func (s *ConsoleSink) GetStats() SinkStats {
	lastWritten, _ := s.lastWritten.Load().(time.Time)

	return SinkStats{
		Type:          "console",
		TotalWritten:  s.totalWritten.Load(),
		TotalBatches:  s.totalBatches.Load(),
		FailedBatches: s.failedBatches.Load(),
		StartTime:     s.startTime,
		LastWritten:   lastWritten,
		Details: map[string]any{
			"target":        s.target,
			"format":        s.formatter.Name(),
			"format_errors": s.formatErrors.Load(),
		},
	}
}

// resolveConsoleFormat picks a concrete formatter for "auto" based on whether
// the sink's target is attached to a terminal
func resolveConsoleFormat(opts *config.ConsoleSinkOptions, tty func(*os.File) bool) string {
	if opts.Format != "auto" {
		return opts.Format
	}

	out := os.Stdout
	if opts.Target == "stderr" {
		out = os.Stderr
	}
	if tty(out) {
		return "text"
	}
	return "ndjson"
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
