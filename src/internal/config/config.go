// FILE: evsink/src/internal/config/config.go
package config

// Config is the complete evsink configuration
type Config struct {
	// Suppresses all of evsink's own log output
	Quiet bool `toml:"quiet"`

	Logging  *LogConfig     `toml:"logging"`
	Source   SourceConfig   `toml:"source"`
	Queue    QueueConfig    `toml:"queue"`
	Reporter ReporterConfig `toml:"reporter"`
	Sinks    []SinkConfig   `toml:"sinks"`
	Metrics  MetricsConfig  `toml:"metrics"`
}

// SourceConfig selects where engine events are read from
type SourceConfig struct {
	// Source type: "nixjson" or "none"
	Type string `toml:"type"`

	// Path to read; "-" reads stdin
	Path string `toml:"path"`

	// Maximum accepted line length in bytes
	MaxLineBytes int64 `toml:"max_line_bytes"`
}

// QueueConfig tunes the in-process event queue. The queue is unbounded;
// WarnDepth only controls when the status reporter complains.
type QueueConfig struct {
	InitialCapacity int64 `toml:"initial_capacity"`
	WarnDepth       int64 `toml:"warn_depth"`
}

// ReporterConfig controls the consumer that drains the queue
type ReporterConfig struct {
	// Maximum entries taken from the queue per drain
	BatchSize int64 `toml:"batch_size"`

	// Drain pacing; 0 drains as fast as entries arrive
	BatchesPerSecond float64 `toml:"batches_per_second"`
	Burst            int64   `toml:"burst"`

	StatusIntervalMS  int64 `toml:"status_interval_ms"`
	ShutdownTimeoutMS int64 `toml:"shutdown_timeout_ms"`

	// Consumer-side filters, all must pass
	Filters []FilterConfig `toml:"filters"`
}

// FilterConfig describes one filter in the reporter's chain
type FilterConfig struct {
	// Drop message/start entries less severe than this level
	MinLevel string `toml:"min_level"`

	// "include" or "exclude"
	Type string `toml:"type"`

	// "or" or "and"
	Logic string `toml:"logic"`

	// Regular expressions matched against entry text
	Patterns []string `toml:"patterns"`
}

const (
	FilterTypeInclude = "include"
	FilterTypeExclude = "exclude"
	FilterLogicOr     = "or"
	FilterLogicAnd    = "and"
)

// MetricsConfig exposes Prometheus metrics over HTTP
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Host    string `toml:"host"`
	Port    int64  `toml:"port"`
	Path    string `toml:"path"`
}
