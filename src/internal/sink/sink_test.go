// FILE: evsink/src/internal/sink/sink_test.go
package sink

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"evsink/src/internal/config"
	"evsink/src/internal/core"
	"evsink/src/internal/format"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *log.Logger {
	return log.NewLogger()
}

func sampleBatch() []core.Entry {
	return []core.Entry{
		{Kind: core.KindStart, Level: core.VerbosityInfo, ElapsedMs: 1, Text: "building hello", ActivityID: 7, Type: uint64(core.ActivityBuild)},
		{Kind: core.KindMessage, Level: core.VerbosityError, ElapsedMs: 2, Text: "builder failed"},
		{Kind: core.KindResult, ElapsedMs: 3, ActivityID: 7, Type: uint64(core.ResultBuildLogLine), Fields: []core.Field{core.StringField("make: ***")}},
		{Kind: core.KindMessage, Level: core.VerbosityWarn, ElapsedMs: 4, Text: "retrying"},
		{Kind: core.KindStop, ElapsedMs: 5, ActivityID: 7},
	}
}

// brokenFormatter fails to format entries with the given text
type brokenFormatter struct {
	format.Formatter
	text string
}

func (f brokenFormatter) Format(entry core.Entry) ([]byte, error) {
	if entry.Text == f.text {
		return nil, errors.New("cannot encode entry")
	}
	return f.Formatter.Format(entry)
}

func TestConsoleSink_Targets(t *testing.T) {
	testCases := []struct {
		target      string
		stdoutLines int
		stderrLines int
	}{
		{target: "stdout", stdoutLines: 5},
		{target: "stderr", stderrLines: 5},
		{target: "split", stdoutLines: 3, stderrLines: 2},
	}

	for _, tc := range testCases {
		t.Run(tc.target, func(t *testing.T) {
			logger := newTestLogger()
			formatter, err := format.NewFormatter("ndjson", logger)
			require.NoError(t, err)

			s := NewConsoleSink("console_0", &config.ConsoleSinkOptions{Target: tc.target}, formatter, logger)
			var stdout, stderr bytes.Buffer
			s.stdout, s.stderr = &stdout, &stderr

			require.NoError(t, s.Write(context.Background(), sampleBatch()))
			assert.Equal(t, tc.stdoutLines, strings.Count(stdout.String(), "\n"))
			assert.Equal(t, tc.stderrLines, strings.Count(stderr.String(), "\n"))

			if tc.target == "split" {
				assert.Contains(t, stderr.String(), "builder failed")
				assert.Contains(t, stderr.String(), "retrying")
				assert.NotContains(t, stdout.String(), "retrying")
			}

			stats := s.GetStats()
			assert.Equal(t, uint64(5), stats.TotalWritten)
			assert.Equal(t, uint64(1), stats.TotalBatches)
			require.NoError(t, s.Close())
		})
	}
}

func TestConsoleSink_PreservesOrder(t *testing.T) {
	logger := newTestLogger()
	formatter, err := format.NewFormatter("text", logger)
	require.NoError(t, err)

	s := NewConsoleSink("console_0", &config.ConsoleSinkOptions{Target: "stdout"}, formatter, logger)
	var out bytes.Buffer
	s.stdout = &out

	require.NoError(t, s.Write(context.Background(), sampleBatch()))

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "building hello")
	assert.Contains(t, lines[1], "builder failed")
	assert.Contains(t, lines[4], "stop")
}

func TestConsoleSink_FormatErrors(t *testing.T) {
	logger := newTestLogger()
	formatter, err := format.NewFormatter("ndjson", logger)
	require.NoError(t, err)

	s := NewConsoleSink("console_0", &config.ConsoleSinkOptions{Target: "stdout"},
		brokenFormatter{Formatter: formatter, text: "builder failed"}, logger)
	var out bytes.Buffer
	s.stdout = &out

	err = s.Write(context.Background(), sampleBatch())
	var partial *PartialWriteError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, 4, partial.Written)
	assert.Equal(t, 1, partial.Skipped)
	assert.Equal(t, 4, strings.Count(out.String(), "\n"))
	assert.Equal(t, uint64(1), s.GetStats().Details["format_errors"])
}

func TestResolveConsoleFormat(t *testing.T) {
	tty := func(*os.File) bool { return true }
	pipe := func(*os.File) bool { return false }

	assert.Equal(t, "text", resolveConsoleFormat(&config.ConsoleSinkOptions{Format: "auto"}, tty))
	assert.Equal(t, "ndjson", resolveConsoleFormat(&config.ConsoleSinkOptions{Format: "auto"}, pipe))
	assert.Equal(t, "cbor", resolveConsoleFormat(&config.ConsoleSinkOptions{Format: "cbor"}, tty))
}

func TestNew(t *testing.T) {
	logger := newTestLogger()

	s, err := New(0, config.SinkConfig{Type: "console", Console: &config.ConsoleSinkOptions{Target: "stdout", Format: "json"}}, logger)
	require.NoError(t, err)
	assert.Equal(t, "console_0", s.Name())

	_, err = New(1, config.SinkConfig{Type: "console", Console: &config.ConsoleSinkOptions{Format: "yaml"}}, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sink[1]")

	_, err = New(2, config.SinkConfig{Type: "pigeon"}, logger)
	assert.Error(t, err)

	k, err := New(3, config.SinkConfig{Type: "kafka", Kafka: &config.KafkaSinkOptions{
		Brokers: []string{"localhost:9092"}, Topic: "builds", Format: "json", RequiredAcks: "all", Compression: "zstd",
	}}, logger)
	require.NoError(t, err)
	assert.Equal(t, "kafka_3", k.Name())
	require.NoError(t, k.Close())
}

func TestNewAll_ClosesOnFailure(t *testing.T) {
	_, err := NewAll([]config.SinkConfig{
		{Type: "console", Console: &config.ConsoleSinkOptions{Target: "stdout", Format: "text"}},
		{Type: "unknown"},
	}, newTestLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sink[1]")
}
