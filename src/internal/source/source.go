// FILE: evsink/src/internal/source/source.go
package source

import (
	"fmt"
	"time"

	"evsink/src/internal/config"
	"evsink/src/internal/telemetry"

	"github.com/lixenwraith/log"
)

// Source feeds engine events into an EventSink
type Source interface {
	// Begins reading from the source
	Start() error

	// Stops reading; safe to call more than once
	Stop()

	// Closed once the input is exhausted or the source is stopped
	Done() <-chan struct{}

	// Returns source statistics
	GetStats() SourceStats
}

// SourceStats contains statistics about a source
type SourceStats struct {
	Type          string
	TotalLines    uint64
	TotalEvents   uint64
	ParseErrors   uint64
	StartTime     time.Time
	LastEventTime time.Time
	Details       map[string]any
}

// New creates the source named by cfg. It returns nil, nil for type "none".
func New(cfg *config.SourceConfig, sink telemetry.EventSink, logger *log.Logger) (Source, error) {
	switch cfg.Type {
	case "none":
		return nil, nil
	case "nixjson":
		src, err := NewNixJSONSource(cfg, sink, logger)
		if err != nil {
			return nil, err
		}
		return src, nil
	default:
		return nil, fmt.Errorf("unknown source type '%s'", cfg.Type)
	}
}
