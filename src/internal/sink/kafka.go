// FILE: evsink/src/internal/sink/kafka.go
package sink

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"evsink/src/internal/config"
	"evsink/src/internal/core"
	"evsink/src/internal/format"
	ltls "evsink/src/internal/tls"

	"github.com/lixenwraith/log"
	"github.com/segmentio/kafka-go"
)

// messageWriter is the part of kafka.Writer the sink uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes one message per entry. Messages are keyed by activity
// id so an activity's start, results and stop land on one partition in order.
type KafkaSink struct {
	name      string
	config    *config.KafkaSinkOptions
	writer    messageWriter
	formatter format.Formatter
	logger    *log.Logger
	startTime time.Time

	// Statistics
	totalWritten  atomic.Uint64
	totalBatches  atomic.Uint64
	failedBatches atomic.Uint64
	formatErrors  atomic.Uint64
	lastWritten   atomic.Value // time.Time
}

// NewKafkaSink creates a Kafka producer sink
func NewKafkaSink(name string, opts *config.KafkaSinkOptions, formatter format.Formatter, logger *log.Logger) (*KafkaSink, error) {
	if opts == nil {
		return nil, fmt.Errorf("kafka sink options cannot be nil")
	}

	compression, err := kafkaCompression(opts.Compression)
	if err != nil {
		return nil, err
	}

	tlsConfig, err := ltls.NewClientConfig(opts.TLS, "kafka_sink", logger)
	if err != nil {
		return nil, fmt.Errorf("failed to configure TLS: %w", err)
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(opts.Brokers...),
		Topic:        opts.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: time.Duration(opts.BatchTimeoutMS) * time.Millisecond,
		WriteTimeout: time.Duration(opts.WriteTimeoutMS) * time.Millisecond,
		RequiredAcks: kafkaAcks(opts.RequiredAcks),
		Compression:  compression,
	}
	if tlsConfig != nil {
		w.Transport = &kafka.Transport{TLS: tlsConfig}
	}

	s := newKafkaSink(name, opts, w, formatter, logger)

	logger.Info("msg", "Kafka sink created",
		"component", "kafka_sink",
		"name", name,
		"brokers", opts.Brokers,
		"topic", opts.Topic,
		"format", formatter.Name(),
		"tls", tlsConfig != nil)
	return s, nil
}

func newKafkaSink(name string, opts *config.KafkaSinkOptions, w messageWriter, formatter format.Formatter, logger *log.Logger) *KafkaSink {
	s := &KafkaSink{
		name:      name,
		config:    opts,
		writer:    w,
		formatter: formatter,
		logger:    logger,
		startTime: time.Now(),
	}
	s.lastWritten.Store(time.Time{})
	return s
}

func (s *KafkaSink) Name() string {
	return s.name
}

func (s *KafkaSink) Write(ctx context.Context, entries []core.Entry) error {
	msgs, firstErr := s.buildMessages(entries)
	skipped := len(entries) - len(msgs)
	if len(msgs) == 0 {
		return partialResult(0, skipped, firstErr)
	}
	s.totalBatches.Add(1)

	if err := s.writer.WriteMessages(ctx, msgs...); err != nil {
		s.failedBatches.Add(1)
		s.logger.Error("msg", "Failed to publish batch",
			"component", "kafka_sink",
			"name", s.name,
			"topic", s.config.Topic,
			"batch_size", len(msgs),
			"error", err)
		return fmt.Errorf("kafka write: %w", err)
	}

	s.totalWritten.Add(uint64(len(msgs)))
	s.lastWritten.Store(time.Now())
	return partialResult(len(msgs), skipped, firstErr)
}

// buildMessages formats entries into messages, skipping those that fail and
// returning the first format error
func (s *KafkaSink) buildMessages(entries []core.Entry) ([]kafka.Message, error) {
	var firstErr error
	msgs := make([]kafka.Message, 0, len(entries))
	for _, entry := range entries {
		value, err := s.formatter.Format(entry)
		if err != nil {
			s.formatErrors.Add(1)
			s.logger.Error("msg", "Failed to format entry for kafka",
				"component", "kafka_sink",
				"error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		msg := kafka.Message{
			Value: bytes.TrimSuffix(value, []byte{'\n'}),
			Headers: []kafka.Header{
				{Key: "kind", Value: []byte(entry.Kind.String())},
			},
		}
		if entry.ActivityID != 0 {
			msg.Key = strconv.AppendUint(nil, uint64(entry.ActivityID), 10)
		}
		msgs = append(msgs, msg)
	}
	return msgs, firstErr
}

func (s *KafkaSink) Close() error {
	if err := s.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer: %w", err)
	}

	s.logger.Info("msg", "Kafka sink stopped",
		"component", "kafka_sink",
		"name", s.name,
		"total_written", s.totalWritten.Load())
	return nil
}

func (s *KafkaSink) GetStats() SinkStats {
	lastWritten, _ := s.lastWritten.Load().(time.Time)

	return SinkStats{
		Type:          "kafka",
		TotalWritten:  s.totalWritten.Load(),
		TotalBatches:  s.totalBatches.Load(),
		FailedBatches: s.failedBatches.Load(),
		StartTime:     s.startTime,
		LastWritten:   lastWritten,
		Details: map[string]any{
			"brokers":       s.config.Brokers,
			"topic":         s.config.Topic,
			"format":        s.formatter.Name(),
			"format_errors": s.formatErrors.Load(),
		},
	}
}

func kafkaAcks(acks string) kafka.RequiredAcks {
	switch acks {
	case "none":
		return kafka.RequireNone
	case "all":
		return kafka.RequireAll
	default:
		return kafka.RequireOne
	}
}

func kafkaCompression(name string) (kafka.Compression, error) {
	switch name {
	case "", "none":
		return 0, nil
	case "gzip":
		return kafka.Gzip, nil
	case "snappy":
		return kafka.Snappy, nil
	case "lz4":
		return kafka.Lz4, nil
	case "zstd":
		return kafka.Zstd, nil
	default:
		return 0, fmt.Errorf("unknown kafka compression '%s'", name)
	}
}
