// FILE: evsink/src/internal/source/nixjson.go
package source

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"evsink/src/internal/config"
	"evsink/src/internal/core"
	"evsink/src/internal/telemetry"

	"github.com/lixenwraith/log"
	"github.com/valyala/fastjson"
)

const nixPrefix = "@nix "

// NixJSONSource reads the engine's internal-json log stream: one event per
// line, JSON objects prefixed with "@nix ". Lines without the prefix are
// forwarded as info messages.
type NixJSONSource struct {
	path         string
	maxLineBytes int
	sink         telemetry.EventSink
	logger       *log.Logger

	reader io.Reader
	closer io.Closer

	parser fastjson.Parser

	done     chan struct{}
	stopOnce sync.Once
	stopped  atomic.Bool

	// Statistics
	totalLines     atomic.Uint64
	totalEvents    atomic.Uint64
	plainLines     atomic.Uint64
	parseErrors    atomic.Uint64
	unknownAction  atomic.Uint64
	oversizedLines atomic.Uint64
	startTime      time.Time
	lastEventTime  atomic.Value // time.Time
}

// NewNixJSONSource creates a source reading cfg.Path; "-" reads stdin
func NewNixJSONSource(cfg *config.SourceConfig, sink telemetry.EventSink, logger *log.Logger) (*NixJSONSource, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nixjson source config cannot be nil")
	}
	if sink == nil {
		return nil, fmt.Errorf("nixjson source requires an event sink")
	}

	maxLine := int(cfg.MaxLineBytes)
	if maxLine <= 0 {
		maxLine = 1 << 20
	}

	s := &NixJSONSource{
		path:         cfg.Path,
		maxLineBytes: maxLine,
		sink:         sink,
		logger:       logger,
		done:         make(chan struct{}),
		startTime:    time.Now(),
	}
	s.lastEventTime.Store(time.Time{})
	return s, nil
}

// NewNixJSONReader creates a source over an already open reader
func NewNixJSONReader(r io.Reader, sink telemetry.EventSink, logger *log.Logger) *NixJSONSource {
	s, _ := NewNixJSONSource(&config.SourceConfig{Type: "nixjson", Path: "-"}, sink, logger)
	s.reader = r
	return s
}

func (s *NixJSONSource) Start() error {
	if s.reader == nil {
		if s.path == "-" {
			s.reader = os.Stdin
		} else {
			f, err := os.Open(s.path)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", s.path, err)
			}
			s.reader = f
			s.closer = f
		}
	}

	go s.readLoop()

	s.logger.Info("msg", "Nix JSON source started",
		"component", "nixjson_source",
		"path", s.path)
	return nil
}

// Stop makes the read loop exit after the current line. A blocked read on
// stdin is only interrupted by EOF.
func (s *NixJSONSource) Stop() {
	s.stopOnce.Do(func() {
		s.stopped.Store(true)
		if s.closer != nil {
			_ = s.closer.Close()
		}
		s.logger.Info("msg", "Nix JSON source stopped",
			"component", "nixjson_source",
			"lines", s.totalLines.Load())
	})
}

func (s *NixJSONSource) Done() <-chan struct{} {
	return s.done
}

func (s *NixJSONSource) GetStats() SourceStats {
	lastEvent, _ := s.lastEventTime.Load().(time.Time)

	return SourceStats{
		Type:          "nixjson",
		TotalLines:    s.totalLines.Load(),
		TotalEvents:   s.totalEvents.Load(),
		ParseErrors:   s.parseErrors.Load(),
		StartTime:     s.startTime,
		LastEventTime: lastEvent,
		Details: map[string]any{
			"path":            s.path,
			"plain_lines":     s.plainLines.Load(),
			"unknown_action":  s.unknownAction.Load(),
			"oversized_lines": s.oversizedLines.Load(),
		},
	}
}

func (s *NixJSONSource) readLoop() {
	defer close(s.done)

	bufSize := min(64*1024, s.maxLineBytes)
	br := bufio.NewReaderSize(s.reader, bufSize)
	line := make([]byte, 0, bufSize)
	oversized := false

	for {
		chunk, err := br.ReadSlice('\n')
		if s.stopped.Load() {
			return
		}

		// Lines over the limit are dropped whole; the stream carries on at the next newline
		if !oversized {
			line = append(line, chunk...)
			if len(trimLineEnd(line)) > s.maxLineBytes {
				oversized = true
				line = line[:0]
			}
		}
		if err == bufio.ErrBufferFull {
			continue
		}

		if oversized {
			s.totalLines.Add(1)
			s.parseErrors.Add(1)
			s.oversizedLines.Add(1)
			s.logger.Warn("msg", "Dropped line exceeding max_line_bytes",
				"component", "nixjson_source",
				"path", s.path,
				"max_line_bytes", s.maxLineBytes)
		} else if content := trimLineEnd(line); len(content) > 0 {
			s.totalLines.Add(1)
			s.handleLine(content)
		}
		line = line[:0]
		oversized = false

		if err != nil {
			if err != io.EOF && !s.stopped.Load() {
				s.logger.Error("msg", "Read error on nix json stream",
					"component", "nixjson_source",
					"path", s.path,
					"error", err)
			}
			return
		}
	}
}

func trimLineEnd(line []byte) []byte {
	line = bytes.TrimSuffix(line, []byte{'\n'})
	return bytes.TrimSuffix(line, []byte{'\r'})
}

// handleLine converts one input line into exactly one sink call, or none on a parse error
func (s *NixJSONSource) handleLine(line []byte) {
	if !bytes.HasPrefix(line, []byte(nixPrefix)) {
		s.plainLines.Add(1)
		s.emit()
		s.sink.Log(core.VerbosityInfo, string(line))
		return
	}

	v, err := s.parser.ParseBytes(line[len(nixPrefix):])
	if err != nil {
		s.parseErrors.Add(1)
		s.logger.Debug("msg", "Malformed nix json line",
			"component", "nixjson_source",
			"error", err)
		return
	}

	id := core.ActivityID(v.GetUint64("id"))

	switch action := string(v.GetStringBytes("action")); action {
	case "msg":
		text := v.GetStringBytes("msg")
		if text == nil {
			text = v.GetStringBytes("text")
		}
		s.emit()
		s.sink.Log(verbosity(v), string(text))

	case "start":
		s.emit()
		s.sink.StartActivity(id,
			verbosity(v),
			core.ActivityType(v.GetUint64("type")),
			string(v.GetStringBytes("text")),
			parseFields(v.GetArray("fields")),
			core.ActivityID(v.GetUint64("parent")))

	case "stop":
		s.emit()
		s.sink.StopActivity(id)

	case "result":
		s.emit()
		s.sink.Result(id, core.ResultType(v.GetUint64("type")), parseFields(v.GetArray("fields")))

	default:
		s.unknownAction.Add(1)
		s.logger.Debug("msg", "Unknown nix json action",
			"component", "nixjson_source",
			"action", action)
	}
}

func (s *NixJSONSource) emit() {
	s.totalEvents.Add(1)
	s.lastEventTime.Store(time.Now())
}

func verbosity(v *fastjson.Value) core.Verbosity {
	lvl := v.GetInt("level")
	if lvl < 0 {
		return core.VerbosityError
	}
	if lvl > int(core.VerbosityVomit) {
		return core.VerbosityVomit
	}
	return core.Verbosity(lvl)
}

// parseFields keeps unsigned integers and strings; any other JSON value is
// carried as its JSON text so field positions are preserved
func parseFields(values []*fastjson.Value) []core.Field {
	if len(values) == 0 {
		return nil
	}
	fields := make([]core.Field, 0, len(values))
	for _, fv := range values {
		switch fv.Type() {
		case fastjson.TypeNumber:
			if n, err := fv.Uint64(); err == nil {
				fields = append(fields, core.IntField(n))
				continue
			}
			fields = append(fields, core.StringField(fv.String()))
		case fastjson.TypeString:
			b, _ := fv.StringBytes()
			fields = append(fields, core.StringField(string(b)))
		default:
			fields = append(fields, core.StringField(fv.String()))
		}
	}
	return fields
}
