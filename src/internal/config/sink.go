// FILE: evsink/src/internal/config/sink.go
package config

// SinkConfig represents one output destination for drained entries
type SinkConfig struct {
	// Sink type: "console", "file", "http", "kafka"
	Type string `toml:"type"`

	Console *ConsoleSinkOptions `toml:"console"`
	File    *FileSinkOptions    `toml:"file"`
	HTTP    *HTTPSinkOptions    `toml:"http"`
	Kafka   *KafkaSinkOptions   `toml:"kafka"`
}

type ConsoleSinkOptions struct {
	// "stdout", "stderr" or "split" (warn and error to stderr)
	Target string `toml:"target"`

	// Any formatter name, or "auto": text on a terminal, ndjson otherwise
	Format string `toml:"format"`
}

type FileSinkOptions struct {
	Directory      string  `toml:"directory"`
	Name           string  `toml:"name"`
	Format         string  `toml:"format"`
	MaxSizeMB      int64   `toml:"max_size_mb"`
	MaxTotalSizeMB int64   `toml:"max_total_size_mb"`
	MinDiskFreeMB  int64   `toml:"min_disk_free_mb"`
	RetentionHours float64 `toml:"retention_hours"`
}

type HTTPSinkOptions struct {
	URL    string `toml:"url"`
	Format string `toml:"format"`

	// Request timeout in seconds
	Timeout      int64   `toml:"timeout"`
	MaxRetries   int64   `toml:"max_retries"`
	RetryDelayMS int64   `toml:"retry_delay_ms"`
	RetryBackoff float64 `toml:"retry_backoff"`

	// Body compression: "none", "gzip" or "zstd"
	Compression string `toml:"compression"`

	Headers            map[string]string `toml:"headers"`
	InsecureSkipVerify bool              `toml:"insecure_skip_verify"`

	TLS  *TLSClientConfig `toml:"tls"`
	Auth *HTTPAuthOptions `toml:"auth"`
}

type HTTPAuthOptions struct {
	// "none", "bearer" (static token) or "jwt" (signed per request)
	Type  string `toml:"type"`
	Token string `toml:"token"`

	// HMAC key and claims for "jwt"
	SigningKey string `toml:"signing_key"`
	Issuer     string `toml:"issuer"`
	Subject    string `toml:"subject"`
	Audience   string `toml:"audience"`
	TTLSeconds int64  `toml:"ttl_seconds"`
}

type KafkaSinkOptions struct {
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
	Format  string   `toml:"format"`

	BatchTimeoutMS int64 `toml:"batch_timeout_ms"`
	WriteTimeoutMS int64 `toml:"write_timeout_ms"`

	// "none", "one" or "all"
	RequiredAcks string `toml:"required_acks"`

	// "none", "gzip", "snappy", "lz4" or "zstd"
	Compression string `toml:"compression"`

	TLS *TLSClientConfig `toml:"tls"`
}

// TLSClientConfig configures outbound TLS for the http and kafka sinks
type TLSClientConfig struct {
	Enabled bool `toml:"enabled"`

	// PEM bundle used instead of the system roots
	CAFile string `toml:"ca_file"`

	// Client certificate and key for mTLS
	CertFile string `toml:"cert_file"`
	KeyFile  string `toml:"key_file"`

	ServerName         string `toml:"server_name"`
	MinVersion         string `toml:"min_version"`
	InsecureSkipVerify bool   `toml:"insecure_skip_verify"`
}
