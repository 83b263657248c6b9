// FILE: evsink/src/internal/sink/sink.go
package sink

import (
	"context"
	"fmt"
	"time"

	"evsink/src/internal/config"
	"evsink/src/internal/core"
	"evsink/src/internal/format"

	"github.com/lixenwraith/log"
)

// Sink is an output destination for drained entries. Write is called from a
// single reporter goroutine and may block for as long as ctx allows.
type Sink interface {
	// Name identifies the sink in logs and metrics
	Name() string

	// Write delivers one batch, in order
	Write(ctx context.Context, entries []core.Entry) error

	// Close flushes and releases the sink
	Close() error

	// GetStats returns sink statistics
	GetStats() SinkStats
}

// PartialWriteError reports a batch that was delivered without the entries
// that could not be formatted
type PartialWriteError struct {
	Written int
	Skipped int
	Err     error // first format error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("%d of %d entries could not be formatted: %v", e.Skipped, e.Written+e.Skipped, e.Err)
}

func (e *PartialWriteError) Unwrap() error {
	return e.Err
}

// partialResult returns a *PartialWriteError when any entry was skipped, nil otherwise
func partialResult(written, skipped int, firstErr error) error {
	if skipped == 0 {
		return nil
	}
	return &PartialWriteError{Written: written, Skipped: skipped, Err: firstErr}
}

// SinkStats contains statistics about a sink
type SinkStats struct {
	Type          string
	TotalWritten  uint64
	TotalBatches  uint64
	FailedBatches uint64
	StartTime     time.Time
	LastWritten   time.Time
	Details       map[string]any
}

// New creates the sink described by cfg. cfg must have passed config validation.
func New(index int, cfg config.SinkConfig, logger *log.Logger) (Sink, error) {
	name := fmt.Sprintf("%s_%d", cfg.Type, index)

	switch cfg.Type {
	case "console":
		formatter, err := format.NewFormatter(resolveConsoleFormat(cfg.Console, isTerminal), logger)
		if err != nil {
			return nil, fmt.Errorf("sink[%d]: %w", index, err)
		}
		return NewConsoleSink(name, cfg.Console, formatter, logger), nil

	case "file":
		formatter, err := format.NewFormatter(cfg.File.Format, logger)
		if err != nil {
			return nil, fmt.Errorf("sink[%d]: %w", index, err)
		}
		s, err := NewFileSink(name, cfg.File, formatter, logger)
		if err != nil {
			return nil, fmt.Errorf("sink[%d]: %w", index, err)
		}
		return s, nil

	case "http":
		formatter, err := format.NewFormatter(cfg.HTTP.Format, logger)
		if err != nil {
			return nil, fmt.Errorf("sink[%d]: %w", index, err)
		}
		s, err := NewHTTPSink(name, cfg.HTTP, formatter, logger)
		if err != nil {
			return nil, fmt.Errorf("sink[%d]: %w", index, err)
		}
		return s, nil

	case "kafka":
		formatter, err := format.NewFormatter(cfg.Kafka.Format, logger)
		if err != nil {
			return nil, fmt.Errorf("sink[%d]: %w", index, err)
		}
		s, err := NewKafkaSink(name, cfg.Kafka, formatter, logger)
		if err != nil {
			return nil, fmt.Errorf("sink[%d]: %w", index, err)
		}
		return s, nil

	default:
		return nil, fmt.Errorf("sink[%d]: unknown sink type '%s'", index, cfg.Type)
	}
}

// NewAll creates every configured sink, closing the ones already built on failure
func NewAll(cfgs []config.SinkConfig, logger *log.Logger) ([]Sink, error) {
	sinks := make([]Sink, 0, len(cfgs))
	for i, cfg := range cfgs {
		s, err := New(i, cfg, logger)
		if err != nil {
			for _, built := range sinks {
				_ = built.Close()
			}
			return nil, err
		}
		sinks = append(sinks, s)
	}
	return sinks, nil
}
