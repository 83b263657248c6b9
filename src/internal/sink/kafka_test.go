// FILE: evsink/src/internal/sink/kafka_test.go
package sink

import (
	"context"
	"errors"
	"testing"

	"evsink/src/internal/config"
	"evsink/src/internal/core"
	"evsink/src/internal/format"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func newTestKafkaSink(t *testing.T, w *fakeWriter) *KafkaSink {
	t.Helper()
	logger := newTestLogger()
	formatter, err := format.NewFormatter("json", logger)
	require.NoError(t, err)
	return newKafkaSink("kafka_0", &config.KafkaSinkOptions{Topic: "builds"}, w, formatter, logger)
}

func TestKafkaSink_Write(t *testing.T) {
	w := &fakeWriter{}
	s := newTestKafkaSink(t, w)

	require.NoError(t, s.Write(context.Background(), sampleBatch()))
	require.Len(t, w.msgs, 5)

	assert.Equal(t, []byte("7"), w.msgs[0].Key)
	assert.Nil(t, w.msgs[1].Key, "plain messages are unkeyed")
	assert.Equal(t, []byte("7"), w.msgs[4].Key)

	assert.Equal(t, "kind", w.msgs[2].Headers[0].Key)
	assert.Equal(t, []byte("result"), w.msgs[2].Headers[0].Value)
	assert.NotEqual(t, byte('\n'), w.msgs[0].Value[len(w.msgs[0].Value)-1])

	assert.Equal(t, uint64(5), s.GetStats().TotalWritten)

	require.NoError(t, s.Close())
	assert.True(t, w.closed)
}

func TestKafkaSink_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	s := newTestKafkaSink(t, w)

	err := s.Write(context.Background(), []core.Entry{{Kind: core.KindStop, ActivityID: 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
	assert.Equal(t, uint64(1), s.GetStats().FailedBatches)
}

func TestKafkaSink_FormatErrorsReported(t *testing.T) {
	logger := newTestLogger()
	formatter, err := format.NewFormatter("json", logger)
	require.NoError(t, err)

	w := &fakeWriter{}
	s := newKafkaSink("kafka_0", &config.KafkaSinkOptions{Topic: "builds"}, w,
		brokenFormatter{Formatter: formatter, text: "retrying"}, logger)

	err = s.Write(context.Background(), sampleBatch())
	var partial *PartialWriteError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, 4, partial.Written)
	assert.Equal(t, 1, partial.Skipped)
	assert.Len(t, w.msgs, 4)
	assert.Equal(t, uint64(4), s.GetStats().TotalWritten)

	t.Run("NothingFormatted", func(t *testing.T) {
		w := &fakeWriter{}
		s := newKafkaSink("kafka_1", &config.KafkaSinkOptions{Topic: "builds"}, w,
			brokenFormatter{Formatter: formatter, text: "retrying"}, logger)

		err := s.Write(context.Background(), []core.Entry{{Kind: core.KindMessage, Text: "retrying"}})
		require.ErrorAs(t, err, &partial)
		assert.Equal(t, 0, partial.Written)
		assert.Empty(t, w.msgs)
	})
}

func TestKafkaOptions(t *testing.T) {
	assert.Equal(t, kafka.RequireAll, kafkaAcks("all"))
	assert.Equal(t, kafka.RequireNone, kafkaAcks("none"))
	assert.Equal(t, kafka.RequireOne, kafkaAcks("one"))

	c, err := kafkaCompression("lz4")
	require.NoError(t, err)
	assert.Equal(t, kafka.Lz4, c)

	_, err = kafkaCompression("brotli")
	assert.Error(t, err)
}

func TestNewKafkaSink_TLS(t *testing.T) {
	logger := newTestLogger()
	formatter, err := format.NewFormatter("json", logger)
	require.NoError(t, err)

	opts := &config.KafkaSinkOptions{
		Brokers:        []string{"kafka:9093"},
		Topic:          "builds",
		RequiredAcks:   "one",
		Compression:    "none",
		BatchTimeoutMS: 100,
		WriteTimeoutMS: 1000,
		TLS:            &config.TLSClientConfig{Enabled: true, MinVersion: "TLS1.3"},
	}
	s, err := NewKafkaSink("kafka_0", opts, formatter, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	w, ok := s.writer.(*kafka.Writer)
	require.True(t, ok)
	transport, ok := w.Transport.(*kafka.Transport)
	require.True(t, ok)
	require.NotNil(t, transport.TLS)

	opts.TLS.CAFile = "/nonexistent/ca.pem"
	_, err = NewKafkaSink("kafka_1", opts, formatter, logger)
	assert.ErrorContains(t, err, "failed to configure TLS")
}
