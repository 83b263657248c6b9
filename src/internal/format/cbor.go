// FILE: evsink/src/internal/format/cbor.go
package format

import (
	"fmt"

	"evsink/src/internal/core"

	"github.com/fxamacker/cbor/v2"
	"github.com/lixenwraith/log"
)

// CBORFormatter produces compact binary entries keyed by small integers
type CBORFormatter struct {
	mode   cbor.EncMode
	logger *log.Logger
}

// Creates a CBOR formatter using core deterministic encoding
func NewCBORFormatter(logger *log.Logger) (*CBORFormatter, error) {
	mode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("failed to create CBOR encoder: %w", err)
	}
	return &CBORFormatter{
		mode:   mode,
		logger: logger,
	}, nil
}

// Format encodes a single entry as a CBOR map
func (f *CBORFormatter) Format(entry core.Entry) ([]byte, error) {
	data, err := f.mode.Marshal(toWire(entry))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal CBOR: %w", err)
	}
	return data, nil
}

// FormatBatch encodes entries as a CBOR array of maps
func (f *CBORFormatter) FormatBatch(entries []core.Entry) ([]byte, error) {
	batch := make([]wireEntry, len(entries))
	for i, entry := range entries {
		batch[i] = toWire(entry)
	}
	data, err := f.mode.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal CBOR batch: %w", err)
	}
	return data, nil
}

func (f *CBORFormatter) Name() string {
	return "cbor"
}

func (f *CBORFormatter) ContentType() string {
	return "application/cbor"
}
