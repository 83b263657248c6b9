// FILE: evsink/src/internal/telemetry/logger.go
package telemetry

import (
	"context"
	"sync/atomic"

	"evsink/src/internal/clock"
	"evsink/src/internal/core"
	"evsink/src/internal/queue"
)

// EventSink is the producer-facing surface the build engine calls in place of
// its own log output. Implementations must return quickly and never fail.
type EventSink interface {
	Log(level core.Verbosity, msg string)
	StartActivity(id core.ActivityID, level core.Verbosity, typ core.ActivityType, text string, fields []core.Field, parent core.ActivityID)
	StopActivity(id core.ActivityID)
	Result(id core.ActivityID, typ core.ResultType, fields []core.Field)
}

// Drainer is the consumer-facing surface used by a reporter
type Drainer interface {
	PopManyContext(ctx context.Context, max int) ([]core.Entry, error)
	Len() int
	Closed() bool
}

// Logger translates engine events into entries and buffers them for a
// consumer. Producer methods take only the queue lock and do no I/O.
type Logger struct {
	clock *clock.Clock
	queue *queue.Queue

	dropped atomic.Uint64
}

var (
	_ EventSink = (*Logger)(nil)
	_ Drainer   = (*Logger)(nil)
)

// New creates a logger whose clock starts now
func New() *Logger {
	return NewWithCapacity(core.DefaultQueueCapacity)
}

// NewWithCapacity creates a logger with a preallocated queue
func NewWithCapacity(capacity int) *Logger {
	clk := clock.New()
	return &Logger{
		clock: clk,
		queue: queue.NewWithCapacity(clk, capacity),
	}
}

func (l *Logger) Log(level core.Verbosity, msg string) {
	l.push(core.Entry{
		Kind:  core.KindMessage,
		Level: level,
		Text:  msg,
	})
}

// Warn logs msg at warning verbosity
func (l *Logger) Warn(msg string) {
	l.Log(core.VerbosityWarn, msg)
}

func (l *Logger) StartActivity(id core.ActivityID, level core.Verbosity, typ core.ActivityType, text string, fields []core.Field, parent core.ActivityID) {
	l.push(core.Entry{
		Kind:       core.KindStart,
		Level:      level,
		Text:       text,
		ActivityID: id,
		Type:       uint64(typ),
		Parent:     parent,
		Fields:     core.CloneFields(fields),
	})
}

func (l *Logger) StopActivity(id core.ActivityID) {
	l.push(core.Entry{
		Kind:       core.KindStop,
		ActivityID: id,
	})
}

func (l *Logger) Result(id core.ActivityID, typ core.ResultType, fields []core.Field) {
	l.push(core.Entry{
		Kind:       core.KindResult,
		ActivityID: id,
		Type:       uint64(typ),
		Fields:     core.CloneFields(fields),
	})
}

// Entries offered after Close are discarded and counted, never queued
func (l *Logger) push(e core.Entry) {
	if !l.queue.Push(e) {
		l.dropped.Add(1)
	}
}

// Pop blocks for the oldest entry; false means closed and drained
func (l *Logger) Pop() (core.Entry, bool) {
	return l.queue.Pop()
}

// PopMany blocks until at least one entry is available, then returns up to max
func (l *Logger) PopMany(max int) []core.Entry {
	return l.queue.PopMany(max)
}

func (l *Logger) AppendMany(dst []core.Entry, max int) []core.Entry {
	return l.queue.AppendMany(dst, max)
}

func (l *Logger) PopManyContext(ctx context.Context, max int) ([]core.Entry, error) {
	return l.queue.PopManyContext(ctx, max)
}

// Close stops accepting events and wakes consumers; buffered entries stay drainable
func (l *Logger) Close() {
	l.queue.Close()
}

func (l *Logger) Closed() bool {
	return l.queue.Closed()
}

func (l *Logger) Len() int {
	return l.queue.Len()
}

// Dropped counts producer calls made after Close
func (l *Logger) Dropped() uint64 {
	return l.dropped.Load()
}

// Queue exposes the underlying queue for metric collectors
func (l *Logger) Queue() *queue.Queue {
	return l.queue
}

// Returns logger statistics
func (l *Logger) Stats() map[string]any {
	stats := l.queue.GetStats()
	stats["dropped_after_close"] = l.dropped.Load()
	stats["uptime_ms"] = l.clock.ElapsedMs()
	return stats
}
