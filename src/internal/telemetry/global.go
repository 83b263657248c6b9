// FILE: evsink/src/internal/telemetry/global.go
package telemetry

import (
	"errors"
	"sync"
	"sync/atomic"

	"evsink/src/internal/core"
)

const (
	stateUninitialized int32 = iota
	stateRunning
	stateShutdown
)

var (
	ErrAlreadyInitialized = errors.New("telemetry already initialized")
	ErrNotInitialized     = errors.New("telemetry not initialized")
	ErrShutdown           = errors.New("telemetry has been shut down")
)

// Process-wide instance the engine reaches without threading a reference
// through every call site. The state flag, not pointer nil-ness, gates access.
var (
	globalMu   sync.Mutex
	global     atomic.Pointer[Logger]
	state      atomic.Int32
	strayCalls atomic.Uint64
)

// Init creates the process-wide logger. It may be called once per process.
func Init() (*Logger, error) {
	return InitWithCapacity(core.DefaultQueueCapacity)
}

// InitWithCapacity is Init with a preallocated queue
func InitWithCapacity(capacity int) (*Logger, error) {
	globalMu.Lock()
	defer globalMu.Unlock()

	switch state.Load() {
	case stateRunning:
		return nil, ErrAlreadyInitialized
	case stateShutdown:
		return nil, ErrShutdown
	}

	l := NewWithCapacity(capacity)
	global.Store(l)
	state.Store(stateRunning)
	return l, nil
}

// Default returns the process-wide logger while it is running
func Default() (*Logger, error) {
	switch state.Load() {
	case stateUninitialized:
		return nil, ErrNotInitialized
	case stateShutdown:
		return nil, ErrShutdown
	}
	return global.Load(), nil
}

// Shutdown closes the process-wide logger. Already-buffered entries remain
// drainable through the *Logger returned by Init; new producer calls become no-ops.
func Shutdown() error {
	globalMu.Lock()
	defer globalMu.Unlock()

	switch state.Load() {
	case stateUninitialized:
		return ErrNotInitialized
	case stateShutdown:
		return ErrShutdown
	}

	state.Store(stateShutdown)
	global.Load().Close()
	return nil
}

// StrayCalls counts package-level producer calls made outside the Init/Shutdown window
func StrayCalls() uint64 {
	return strayCalls.Load()
}

func running() *Logger {
	if state.Load() != stateRunning {
		strayCalls.Add(1)
		return nil
	}
	return global.Load()
}

func Log(level core.Verbosity, msg string) {
	if l := running(); l != nil {
		l.Log(level, msg)
	}
}

func Warn(msg string) {
	if l := running(); l != nil {
		l.Warn(msg)
	}
}

func StartActivity(id core.ActivityID, level core.Verbosity, typ core.ActivityType, text string, fields []core.Field, parent core.ActivityID) {
	if l := running(); l != nil {
		l.StartActivity(id, level, typ, text, fields, parent)
	}
}

func StopActivity(id core.ActivityID) {
	if l := running(); l != nil {
		l.StopActivity(id)
	}
}

func Result(id core.ActivityID, typ core.ResultType, fields []core.Field) {
	if l := running(); l != nil {
		l.Result(id, typ, fields)
	}
}

// Global returns an EventSink that forwards to the process-wide logger,
// honoring the same state checks as the package-level functions
func Global() EventSink {
	return globalSink{}
}

type globalSink struct{}

func (globalSink) Log(level core.Verbosity, msg string) { Log(level, msg) }

func (globalSink) StartActivity(id core.ActivityID, level core.Verbosity, typ core.ActivityType, text string, fields []core.Field, parent core.ActivityID) {
	StartActivity(id, level, typ, text, fields, parent)
}

func (globalSink) StopActivity(id core.ActivityID) { StopActivity(id) }

func (globalSink) Result(id core.ActivityID, typ core.ResultType, fields []core.Field) {
	Result(id, typ, fields)
}
