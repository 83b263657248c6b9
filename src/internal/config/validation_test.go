// FILE: evsink/src/internal/config/validation_test.go
package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := defaults()
	require.NoError(t, validateConfig(cfg))
	assert.Equal(t, "stdout", cfg.Sinks[0].Console.Target)
	assert.Equal(t, int64(500), cfg.Reporter.BatchSize)
}

func TestValidateConfig(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:    "NoSinks",
			mutate:  func(c *Config) { c.Sinks = nil },
			wantErr: "no sinks configured",
		},
		{
			name:    "BadBatchSize",
			mutate:  func(c *Config) { c.Reporter.BatchSize = 0 },
			wantErr: "batch size must be positive",
		},
		{
			name:    "UnknownSource",
			mutate:  func(c *Config) { c.Source.Type = "syslog" },
			wantErr: "unknown source type",
		},
		{
			name:    "BadLogLevel",
			mutate:  func(c *Config) { c.Logging.Level = "loud" },
			wantErr: "invalid log level",
		},
		{
			name: "BadFilterRegex",
			mutate: func(c *Config) {
				c.Reporter.Filters = []FilterConfig{{Patterns: []string{"("}}}
			},
			wantErr: "invalid regex",
		},
		{
			name: "BadFilterLevel",
			mutate: func(c *Config) {
				c.Reporter.Filters = []FilterConfig{{MinLevel: "extreme"}}
			},
			wantErr: "unknown verbosity",
		},
		{
			name: "FileSinkWithoutSection",
			mutate: func(c *Config) {
				c.Sinks = []SinkConfig{{Type: "file"}}
			},
			wantErr: "requires a [sinks.file] section",
		},
		{
			name: "HTTPSinkBadScheme",
			mutate: func(c *Config) {
				c.Sinks = []SinkConfig{{Type: "http", HTTP: &HTTPSinkOptions{URL: "ftp://example.com"}}}
			},
			wantErr: "http or https",
		},
		{
			name: "JWTOverPlainHTTP",
			mutate: func(c *Config) {
				c.Sinks = []SinkConfig{{Type: "http", HTTP: &HTTPSinkOptions{
					URL:  "http://example.com/ingest",
					Auth: &HTTPAuthOptions{Type: "jwt", SigningKey: "0123456789abcdef0123456789abcdef"},
				}}}
			},
			wantErr: "requires HTTPS",
		},
		{
			name: "KafkaWithoutBrokers",
			mutate: func(c *Config) {
				c.Sinks = []SinkConfig{{Type: "kafka", Kafka: &KafkaSinkOptions{Topic: "builds"}}}
			},
			wantErr: "at least one broker",
		},
		{
			name: "KafkaTextFormat",
			mutate: func(c *Config) {
				c.Sinks = []SinkConfig{{Type: "kafka", Kafka: &KafkaSinkOptions{Brokers: []string{"k:9092"}, Topic: "t", Format: "text"}}}
			},
			wantErr: "cannot send format",
		},
		{
			name: "TLSHalfKeyPair",
			mutate: func(c *Config) {
				c.Sinks = []SinkConfig{{Type: "kafka", Kafka: &KafkaSinkOptions{
					Brokers: []string{"k:9093"}, Topic: "t",
					TLS: &TLSClientConfig{Enabled: true, CertFile: "client.pem"},
				}}}
			},
			wantErr: "both cert_file and key_file",
		},
		{
			name: "TLSOverPlainHTTP",
			mutate: func(c *Config) {
				c.Sinks = []SinkConfig{{Type: "http", HTTP: &HTTPSinkOptions{
					URL: "http://example.com/ingest",
					TLS: &TLSClientConfig{Enabled: true},
				}}}
			},
			wantErr: "requires an https URL",
		},
		{
			name: "TLSOldVersion",
			mutate: func(c *Config) {
				c.Sinks = []SinkConfig{{Type: "http", HTTP: &HTTPSinkOptions{
					URL: "https://example.com/ingest",
					TLS: &TLSClientConfig{Enabled: true, MinVersion: "TLS1.0"},
				}}}
			},
			wantErr: "unsupported tls min_version",
		},
		{
			name:    "UnknownSinkType",
			mutate:  func(c *Config) { c.Sinks = []SinkConfig{{Type: "carrier-pigeon"}} },
			wantErr: "unknown sink type",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaults()
			tc.mutate(cfg)
			err := validateConfig(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidateConfig_FillsDefaults(t *testing.T) {
	cfg := defaults()
	cfg.Reporter.BatchesPerSecond = 5
	cfg.Sinks = []SinkConfig{
		{Type: "console"},
		{Type: "http", HTTP: &HTTPSinkOptions{URL: "https://example.com/ingest", MaxRetries: -1}},
		{Type: "kafka", Kafka: &KafkaSinkOptions{Brokers: []string{"kafka:9092"}, Topic: "builds"}},
	}

	require.NoError(t, validateConfig(cfg))

	assert.Equal(t, int64(1), cfg.Reporter.Burst)
	assert.Equal(t, "stdout", cfg.Sinks[0].Console.Target)
	assert.Equal(t, "text", cfg.Sinks[0].Console.Format)

	http := cfg.Sinks[1].HTTP
	assert.Equal(t, "json", http.Format)
	assert.Equal(t, int64(30), http.Timeout)
	assert.Equal(t, int64(3), http.MaxRetries)
	assert.Equal(t, 2.0, http.RetryBackoff)
	assert.Equal(t, "none", http.Compression)
	assert.NotNil(t, http.Headers)

	kafka := cfg.Sinks[2].Kafka
	assert.Equal(t, "one", kafka.RequiredAcks)
	assert.Equal(t, "none", kafka.Compression)
	assert.Equal(t, int64(100), kafka.BatchTimeoutMS)
}

func TestCustomEnvTransform(t *testing.T) {
	assert.Equal(t, "EVSINK_REPORTER_BATCH_SIZE", customEnvTransform("reporter.batch_size"))
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("EVSINK_CONFIG_FILE", "custom.toml")
	t.Setenv("EVSINK_CONFIG_DIR", "/etc/evsink")
	assert.Equal(t, "/etc/evsink/custom.toml", GetConfigPath())

	t.Setenv("EVSINK_CONFIG_FILE", "/abs/evsink.toml")
	assert.Equal(t, "/abs/evsink.toml", GetConfigPath())
}
