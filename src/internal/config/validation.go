// FILE: evsink/src/internal/config/validation.go
package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"evsink/src/internal/core"

	lconfig "github.com/lixenwraith/config"
)

var validFormats = map[string]bool{
	"": true, "json": true, "ndjson": true, "text": true, "cbor": true,
}

// validateConfig is the centralized validator; it also fills in option defaults
func validateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if err := validateLogConfig(cfg.Logging); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	if err := validateSource(&cfg.Source); err != nil {
		return fmt.Errorf("source config: %w", err)
	}

	if cfg.Queue.InitialCapacity < 0 {
		return fmt.Errorf("queue initial capacity must not be negative: %d", cfg.Queue.InitialCapacity)
	}
	if cfg.Queue.WarnDepth < 0 {
		return fmt.Errorf("queue warn depth must not be negative: %d", cfg.Queue.WarnDepth)
	}

	if err := validateReporter(&cfg.Reporter); err != nil {
		return fmt.Errorf("reporter config: %w", err)
	}

	if len(cfg.Sinks) == 0 {
		return fmt.Errorf("no sinks configured")
	}
	for i := range cfg.Sinks {
		if err := validateSink(i, &cfg.Sinks[i]); err != nil {
			return err
		}
	}

	if cfg.Metrics.Enabled {
		if err := lconfig.Port(cfg.Metrics.Port); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		if !strings.HasPrefix(cfg.Metrics.Path, "/") {
			return fmt.Errorf("metrics path must start with /: %s", cfg.Metrics.Path)
		}
	}

	return nil
}

func validateSource(s *SourceConfig) error {
	switch s.Type {
	case "none":
		return nil
	case "nixjson":
		if err := lconfig.NonEmpty(s.Path); err != nil {
			return fmt.Errorf("nixjson source requires 'path' (use - for stdin)")
		}
		if s.MaxLineBytes <= 0 {
			s.MaxLineBytes = 1 << 20
		}
		return nil
	default:
		return fmt.Errorf("unknown source type '%s'", s.Type)
	}
}

func validateReporter(r *ReporterConfig) error {
	if r.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive: %d", r.BatchSize)
	}
	if r.BatchesPerSecond < 0 {
		return fmt.Errorf("batches per second must not be negative: %v", r.BatchesPerSecond)
	}
	if r.BatchesPerSecond > 0 && r.Burst <= 0 {
		r.Burst = 1
	}
	if r.StatusIntervalMS < 0 {
		return fmt.Errorf("status interval must not be negative: %d", r.StatusIntervalMS)
	}
	if r.ShutdownTimeoutMS <= 0 {
		r.ShutdownTimeoutMS = core.DefaultShutdownTimeout
	}

	for i := range r.Filters {
		if err := validateFilter(i, &r.Filters[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateFilter(index int, cfg *FilterConfig) error {
	switch cfg.Type {
	case FilterTypeInclude, FilterTypeExclude, "":
	default:
		return fmt.Errorf("filter[%d]: invalid type '%s' (must be 'include' or 'exclude')", index, cfg.Type)
	}

	switch cfg.Logic {
	case FilterLogicOr, FilterLogicAnd, "":
	default:
		return fmt.Errorf("filter[%d]: invalid logic '%s' (must be 'or' or 'and')", index, cfg.Logic)
	}

	if cfg.MinLevel != "" {
		if _, err := core.ParseVerbosity(cfg.MinLevel); err != nil {
			return fmt.Errorf("filter[%d]: %w", index, err)
		}
	}

	for i, pattern := range cfg.Patterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("filter[%d] pattern[%d] '%s': invalid regex: %w", index, i, pattern, err)
		}
	}
	return nil
}

func validateSink(index int, s *SinkConfig) error {
	if err := lconfig.NonEmpty(s.Type); err != nil {
		return fmt.Errorf("sink[%d]: missing type", index)
	}

	switch s.Type {
	case "console":
		if s.Console == nil {
			s.Console = &ConsoleSinkOptions{}
		}
		return validateConsoleSink(index, s.Console)
	case "file":
		if s.File == nil {
			return fmt.Errorf("sink[%d]: file sink requires a [sinks.file] section", index)
		}
		return validateFileSink(index, s.File)
	case "http":
		if s.HTTP == nil {
			return fmt.Errorf("sink[%d]: http sink requires a [sinks.http] section", index)
		}
		return validateHTTPSink(index, s.HTTP)
	case "kafka":
		if s.Kafka == nil {
			return fmt.Errorf("sink[%d]: kafka sink requires a [sinks.kafka] section", index)
		}
		return validateKafkaSink(index, s.Kafka)
	default:
		return fmt.Errorf("sink[%d]: unknown sink type '%s'", index, s.Type)
	}
}

func validateConsoleSink(index int, opts *ConsoleSinkOptions) error {
	switch opts.Target {
	case "":
		opts.Target = "stdout"
	case "stdout", "stderr", "split":
	default:
		return fmt.Errorf("sink[%d]: invalid console target '%s'", index, opts.Target)
	}
	if opts.Format == "" {
		opts.Format = "text"
	}
	if opts.Format != "auto" && !validFormats[opts.Format] {
		return fmt.Errorf("sink[%d]: unknown format '%s'", index, opts.Format)
	}
	return nil
}

func validateFileSink(index int, opts *FileSinkOptions) error {
	if err := lconfig.NonEmpty(opts.Directory); err != nil {
		return fmt.Errorf("sink[%d]: file sink requires 'directory'", index)
	}
	if err := lconfig.NonEmpty(opts.Name); err != nil {
		return fmt.Errorf("sink[%d]: file sink requires 'name'", index)
	}
	if strings.Contains(opts.Directory, "..") {
		return fmt.Errorf("sink[%d]: directory contains path traversal", index)
	}
	if opts.Format == "" {
		opts.Format = "ndjson"
	}
	if opts.Format == "cbor" || !validFormats[opts.Format] {
		return fmt.Errorf("sink[%d]: file sink cannot write format '%s'", index, opts.Format)
	}
	if opts.MaxSizeMB < 0 || opts.MaxTotalSizeMB < 0 || opts.MinDiskFreeMB < 0 {
		return fmt.Errorf("sink[%d]: size limits must not be negative", index)
	}
	return nil
}

func validateHTTPSink(index int, opts *HTTPSinkOptions) error {
	if err := lconfig.NonEmpty(opts.URL); err != nil {
		return fmt.Errorf("sink[%d]: http sink requires 'url'", index)
	}

	parsedURL, err := url.Parse(opts.URL)
	if err != nil {
		return fmt.Errorf("sink[%d]: invalid URL: %w", index, err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("sink[%d]: URL must use http or https scheme", index)
	}
	isHTTPS := parsedURL.Scheme == "https"

	if opts.Format == "" {
		opts.Format = "json"
	}
	if opts.Format == "text" || !validFormats[opts.Format] {
		return fmt.Errorf("sink[%d]: http sink cannot send format '%s'", index, opts.Format)
	}

	// Set defaults for unspecified fields
	if opts.Timeout <= 0 {
		opts.Timeout = 30
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryDelayMS <= 0 {
		opts.RetryDelayMS = 1000
	}
	if opts.RetryBackoff < 1.0 {
		opts.RetryBackoff = 2.0
	}
	if opts.Headers == nil {
		opts.Headers = make(map[string]string)
	}

	switch opts.Compression {
	case "":
		opts.Compression = "none"
	case "none", "gzip", "zstd":
	default:
		return fmt.Errorf("sink[%d]: unknown compression '%s'", index, opts.Compression)
	}

	if err := validateTLSClient(index, opts.TLS); err != nil {
		return err
	}
	if opts.TLS != nil && opts.TLS.Enabled && !isHTTPS {
		return fmt.Errorf("sink[%d]: tls section requires an https URL", index)
	}

	if opts.Auth != nil {
		switch opts.Auth.Type {
		case "", "none":
		case "bearer":
			if opts.Auth.Token == "" {
				return fmt.Errorf("sink[%d]: bearer auth requires 'token'", index)
			}
		case "jwt":
			if len(opts.Auth.SigningKey) < 32 {
				return fmt.Errorf("sink[%d]: jwt signing key must be at least 32 bytes", index)
			}
			if opts.Auth.TTLSeconds <= 0 {
				opts.Auth.TTLSeconds = 300
			}
		default:
			return fmt.Errorf("sink[%d]: unknown auth type '%s'", index, opts.Auth.Type)
		}

		if opts.Auth.Type == "bearer" || opts.Auth.Type == "jwt" {
			if !isHTTPS && !opts.InsecureSkipVerify {
				return fmt.Errorf("sink[%d]: %s auth requires HTTPS (credentials would be sent in plaintext)",
					index, opts.Auth.Type)
			}
		}
	}

	return nil
}

func validateKafkaSink(index int, opts *KafkaSinkOptions) error {
	if len(opts.Brokers) == 0 {
		return fmt.Errorf("sink[%d]: kafka sink requires at least one broker", index)
	}
	for i, b := range opts.Brokers {
		if err := lconfig.NonEmpty(b); err != nil {
			return fmt.Errorf("sink[%d]: broker[%d] is empty", index, i)
		}
	}
	if err := lconfig.NonEmpty(opts.Topic); err != nil {
		return fmt.Errorf("sink[%d]: kafka sink requires 'topic'", index)
	}

	if opts.Format == "" {
		opts.Format = "json"
	}
	if opts.Format == "text" || !validFormats[opts.Format] {
		return fmt.Errorf("sink[%d]: kafka sink cannot send format '%s'", index, opts.Format)
	}

	switch opts.RequiredAcks {
	case "":
		opts.RequiredAcks = "one"
	case "none", "one", "all":
	default:
		return fmt.Errorf("sink[%d]: invalid required_acks '%s'", index, opts.RequiredAcks)
	}

	switch opts.Compression {
	case "":
		opts.Compression = "none"
	case "none", "gzip", "snappy", "lz4", "zstd":
	default:
		return fmt.Errorf("sink[%d]: unknown compression '%s'", index, opts.Compression)
	}

	if err := validateTLSClient(index, opts.TLS); err != nil {
		return err
	}

	if opts.BatchTimeoutMS <= 0 {
		opts.BatchTimeoutMS = 100
	}
	if opts.WriteTimeoutMS <= 0 {
		opts.WriteTimeoutMS = 10000
	}
	return nil
}

func validateTLSClient(index int, t *TLSClientConfig) error {
	if t == nil || !t.Enabled {
		return nil
	}
	if (t.CertFile == "") != (t.KeyFile == "") {
		return fmt.Errorf("sink[%d]: tls requires both cert_file and key_file for mTLS", index)
	}
	switch strings.ToUpper(t.MinVersion) {
	case "", "TLS1.2", "TLS12", "TLS1.3", "TLS13":
	default:
		return fmt.Errorf("sink[%d]: unsupported tls min_version '%s'", index, t.MinVersion)
	}
	return nil
}
