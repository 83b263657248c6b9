// FILE: evsink/src/internal/core/entry.go
package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind tags the event an Entry was produced from
type Kind uint8

const (
	KindMessage Kind = iota + 1
	KindStart
	KindStop
	KindResult
)

func (k Kind) String() string {
	switch k {
	case KindMessage:
		return "msg"
	case KindStart:
		return "start"
	case KindStop:
		return "stop"
	case KindResult:
		return "result"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ActivityID identifies an activity; zero means "no activity" or the root
type ActivityID uint64

// Entry is one observed producer event. Entries are built once, at push time,
// and are never modified afterwards.
type Entry struct {
	Kind       Kind       `json:"kind"`
	Level      Verbosity  `json:"level"`
	ElapsedMs  uint64     `json:"ms"`
	Text       string     `json:"text,omitempty"`
	ActivityID ActivityID `json:"id,omitempty"`
	// Activity type for start entries, result type for result entries
	Type   uint64     `json:"type,omitempty"`
	Parent ActivityID `json:"parent,omitempty"`
	Fields []Field    `json:"fields,omitempty"`
}

// TypeName resolves Type against the enum matching the entry kind
func (e Entry) TypeName() string {
	switch e.Kind {
	case KindStart:
		return ActivityType(e.Type).String()
	case KindResult:
		return ResultType(e.Type).String()
	default:
		return ""
	}
}

// FieldType distinguishes the two value shapes a Field can hold
type FieldType uint8

const (
	FieldInt FieldType = iota
	FieldString
)

// Field is a key-less structured value attached to start and result events
type Field struct {
	Type FieldType
	Int  uint64
	Str  string
}

func IntField(v uint64) Field {
	return Field{Type: FieldInt, Int: v}
}

func StringField(s string) Field {
	return Field{Type: FieldString, Str: s}
}

// Value returns the held value as uint64 or string
func (f Field) Value() any {
	if f.Type == FieldString {
		return f.Str
	}
	return f.Int
}

func (f Field) String() string {
	if f.Type == FieldString {
		return f.Str
	}
	return fmt.Sprintf("%d", f.Int)
}

// Fields serialize as bare JSON numbers and strings, matching the engine's wire shape
func (f Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Value())
}

// UnmarshalJSON accepts a JSON string or a non-negative integer up to 2^64-1
func (f *Field) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	switch val := v.(type) {
	case string:
		*f = StringField(val)
	case json.Number:
		n, err := strconv.ParseUint(val.String(), 10, 64)
		if err != nil {
			return fmt.Errorf("field value %s is not an unsigned integer: %w", val, err)
		}
		*f = IntField(n)
	default:
		return fmt.Errorf("unsupported field value type %T", v)
	}
	return nil
}

// CloneFields copies fs so the caller may reuse its slice
func CloneFields(fs []Field) []Field {
	if len(fs) == 0 {
		return nil
	}
	out := make([]Field, len(fs))
	copy(out, fs)
	return out
}
