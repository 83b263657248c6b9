// FILE: evsink/src/internal/sink/file_test.go
package sink

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"evsink/src/internal/config"
	"evsink/src/internal/format"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileSink(t *testing.T, dir string, wrap func(format.Formatter) format.Formatter) *FileSink {
	t.Helper()

	logger := newTestLogger()
	formatter, err := format.NewFormatter("ndjson", logger)
	require.NoError(t, err)
	if wrap != nil {
		formatter = wrap(formatter)
	}

	fs, err := NewFileSink("file_0", &config.FileSinkOptions{Directory: dir, Name: "events"}, formatter, logger)
	require.NoError(t, err)
	return fs
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestFileSink_Write(t *testing.T) {
	dir := t.TempDir()
	fs := newTestFileSink(t, dir, nil)

	require.NoError(t, fs.Write(context.Background(), sampleBatch()[:2]))
	require.NoError(t, fs.Write(context.Background(), sampleBatch()[2:]))
	require.NoError(t, fs.Close())

	lines := readLines(t, filepath.Join(dir, "events.log"))
	require.Len(t, lines, 5, "one line per entry, no blank lines from doubled newlines")

	wantKinds := []string{"start", "msg", "result", "msg", "stop"}
	for i, line := range lines {
		var obj map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &obj), "line %d: %q", i, line)
		assert.Equal(t, wantKinds[i], obj["kind"], "line %d", i)
	}
	assert.Contains(t, lines[1], "builder failed")
	assert.Contains(t, lines[3], "retrying")

	stats := fs.GetStats()
	assert.Equal(t, "file", stats.Type)
	assert.Equal(t, uint64(5), stats.TotalWritten)
	assert.Equal(t, uint64(2), stats.TotalBatches)
	assert.False(t, stats.LastWritten.IsZero())
}

func TestFileSink_FormatErrors(t *testing.T) {
	dir := t.TempDir()
	fs := newTestFileSink(t, dir, func(f format.Formatter) format.Formatter {
		return brokenFormatter{Formatter: f, text: "builder failed"}
	})

	err := fs.Write(context.Background(), sampleBatch())
	var partial *PartialWriteError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, 4, partial.Written)
	assert.Equal(t, 1, partial.Skipped)
	require.NoError(t, fs.Close())

	lines := readLines(t, filepath.Join(dir, "events.log"))
	require.Len(t, lines, 4)
	for _, line := range lines {
		assert.NotContains(t, line, "builder failed")
	}

	stats := fs.GetStats()
	assert.Equal(t, uint64(4), stats.TotalWritten)
	assert.Equal(t, uint64(1), stats.Details["format_errors"])
}

func TestNew_FileSink(t *testing.T) {
	dir := t.TempDir()
	s, err := New(2, config.SinkConfig{Type: "file", File: &config.FileSinkOptions{
		Directory: dir, Name: "build", Format: "text",
	}}, newTestLogger())
	require.NoError(t, err)
	assert.Equal(t, "file_2", s.Name())

	require.NoError(t, s.Write(context.Background(), sampleBatch()))
	require.NoError(t, s.Close())

	lines := readLines(t, filepath.Join(dir, "build.log"))
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "building hello")
}
