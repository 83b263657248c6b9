// FILE: evsink/src/internal/format/json.go
package format

import (
	"bytes"
	"encoding/json"
	"fmt"

	"evsink/src/internal/core"

	"github.com/lixenwraith/log"
)

// JSONFormatter produces one JSON object per entry. Batches are a JSON array,
// or newline-delimited objects when lines is set.
type JSONFormatter struct {
	lines  bool
	logger *log.Logger
}

// NewJSONFormatter creates a JSON formatter
func NewJSONFormatter(lines bool, logger *log.Logger) *JSONFormatter {
	return &JSONFormatter{
		lines:  lines,
		logger: logger,
	}
}

// Format transforms a single entry into a newline-terminated JSON object
func (f *JSONFormatter) Format(entry core.Entry) ([]byte, error) {
	result, err := json.Marshal(toWire(entry))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(result, '\n'), nil
}

// FormatBatch transforms entries into a JSON array, or NDJSON in line mode.
// Entries that fail to serialize are logged and skipped.
func (f *JSONFormatter) FormatBatch(entries []core.Entry) ([]byte, error) {
	if f.lines {
		var buf bytes.Buffer
		for _, entry := range entries {
			formatted, err := f.Format(entry)
			if err != nil {
				f.logger.Warn("msg", "Failed to format entry in batch",
					"component", "json_formatter",
					"error", err)
				continue
			}
			buf.Write(formatted)
		}
		return buf.Bytes(), nil
	}

	batch := make([]wireEntry, 0, len(entries))
	for _, entry := range entries {
		batch = append(batch, toWire(entry))
	}
	return json.Marshal(batch)
}

// Name returns the formatter's type name
func (f *JSONFormatter) Name() string {
	if f.lines {
		return "ndjson"
	}
	return "json"
}

func (f *JSONFormatter) ContentType() string {
	if f.lines {
		return "application/x-ndjson"
	}
	return "application/json"
}
