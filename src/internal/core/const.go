// FILE: evsink/src/internal/core/const.go
package core

const (
	DefaultBatchSize       = 500
	DefaultQueueCapacity   = 1024
	DefaultQueueWarnDepth  = 100000
	DefaultStatusInterval  = 30000 // ms
	DefaultShutdownTimeout = 10000 // ms

	// Dropped activities a filter remembers while waiting for their stop
	MaxSuppressedActivities = 65536
)
