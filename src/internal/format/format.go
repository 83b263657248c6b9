// FILE: evsink/src/internal/format/format.go
package format

import (
	"fmt"

	"evsink/src/internal/core"

	"github.com/lixenwraith/log"
)

// Formatter defines the interface for serializing entries for a transport
type Formatter interface {
	// Format serializes a single entry, newline-terminated for line formats
	Format(entry core.Entry) ([]byte, error)

	// FormatBatch serializes entries as one transport payload
	FormatBatch(entries []core.Entry) ([]byte, error)

	// Name returns the formatter type name
	Name() string

	// ContentType returns the MIME type of FormatBatch output
	ContentType() string
}

// NewFormatter creates a Formatter by name, defaulting to json
func NewFormatter(name string, logger *log.Logger) (Formatter, error) {
	switch name {
	case "", "json":
		return NewJSONFormatter(false, logger), nil
	case "ndjson":
		return NewJSONFormatter(true, logger), nil
	case "text":
		return NewTextFormatter("", logger)
	case "cbor":
		return NewCBORFormatter(logger)
	default:
		return nil, fmt.Errorf("unknown formatter type: %s", name)
	}
}

// wireEntry is the self-describing shape shared by the json and cbor formats
type wireEntry struct {
	Kind     string `json:"kind" cbor:"1,keyasint"`
	Level    string `json:"level,omitempty" cbor:"2,keyasint,omitempty"`
	Ms       uint64 `json:"ms" cbor:"3,keyasint"`
	Text     string `json:"text,omitempty" cbor:"4,keyasint,omitempty"`
	ID       uint64 `json:"id,omitempty" cbor:"5,keyasint,omitempty"`
	Type     string `json:"type,omitempty" cbor:"6,keyasint,omitempty"`
	TypeCode uint64 `json:"type_code,omitempty" cbor:"7,keyasint,omitempty"`
	Parent   uint64 `json:"parent,omitempty" cbor:"8,keyasint,omitempty"`
	Fields   []any  `json:"fields,omitempty" cbor:"9,keyasint,omitempty"`
}

func toWire(e core.Entry) wireEntry {
	w := wireEntry{
		Kind:   e.Kind.String(),
		Ms:     e.ElapsedMs,
		Text:   e.Text,
		ID:     uint64(e.ActivityID),
		Parent: uint64(e.Parent),
	}

	// Level is only meaningful for messages and activity starts
	if e.Kind == core.KindMessage || e.Kind == core.KindStart {
		w.Level = e.Level.String()
	}
	if e.Kind == core.KindStart || e.Kind == core.KindResult {
		w.Type = e.TypeName()
		w.TypeCode = e.Type
	}

	if len(e.Fields) > 0 {
		w.Fields = make([]any, len(e.Fields))
		for i, f := range e.Fields {
			w.Fields[i] = f.Value()
		}
	}
	return w
}
