// FILE: evsink/src/internal/queue/queue.go
package queue

import (
	"context"
	"sync"
	"sync/atomic"

	"evsink/src/internal/clock"
	"evsink/src/internal/core"
)

const minCapacity = 16

// Queue is an unbounded FIFO of entries shared by many producers and a small
// number of consumers. Producers only ever wait for the lock; consumers block
// while the queue is empty and open.
type Queue struct {
	mu     sync.Mutex
	wakeup *sync.Cond
	clock  *clock.Clock

	// Ring buffer, len(buf) is always a power of two
	buf    []core.Entry
	head   int
	count  int
	closed bool

	// Statistics
	totalPushed   atomic.Uint64
	totalPopped   atomic.Uint64
	totalRejected atomic.Uint64
	highWater     atomic.Int64
	depth         atomic.Int64
}

// New creates an open queue. When clk is non-nil, Push stamps each entry's
// ElapsedMs while holding the lock, so timestamps never decrease in queue order.
func New(clk *clock.Clock) *Queue {
	return NewWithCapacity(clk, core.DefaultQueueCapacity)
}

// NewWithCapacity creates an open queue with a preallocated ring buffer
func NewWithCapacity(clk *clock.Clock, capacity int) *Queue {
	size := minCapacity
	for size < capacity {
		size <<= 1
	}
	q := &Queue{
		clock: clk,
		buf:   make([]core.Entry, size),
	}
	q.wakeup = sync.NewCond(&q.mu)
	return q
}

// Push appends e to the tail and wakes one waiting consumer. It returns false,
// and the entry is discarded, once the queue has been closed.
func (q *Queue) Push(e core.Entry) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.totalRejected.Add(1)
		return false
	}

	if q.clock != nil {
		e.ElapsedMs = q.clock.ElapsedMs()
	}
	if q.count == len(q.buf) {
		q.grow()
	}
	q.buf[(q.head+q.count)&(len(q.buf)-1)] = e
	q.count++
	depth := int64(q.count)
	q.depth.Store(depth)
	q.mu.Unlock()

	q.totalPushed.Add(1)
	for {
		hw := q.highWater.Load()
		if depth <= hw || q.highWater.CompareAndSwap(hw, depth) {
			break
		}
	}

	q.wakeup.Signal()
	return true
}

// Pop removes and returns the oldest entry, blocking while the queue is empty
// and open. It returns false once the queue is closed and drained.
func (q *Queue) Pop() (core.Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.count == 0 && !q.closed {
		q.wakeup.Wait()
	}
	if q.count == 0 {
		return core.Entry{}, false
	}

	e := q.take()
	q.totalPopped.Add(1)
	q.depth.Store(int64(q.count))
	return e, true
}

// PopMany removes up to max entries in arrival order. It blocks only while the
// queue is empty and open, never to fill a batch. The result is empty once the
// queue is closed and drained.
func (q *Queue) PopMany(max int) []core.Entry {
	return q.AppendMany(nil, max)
}

// AppendMany is PopMany appending to dst, letting consumers reuse a buffer
func (q *Queue) AppendMany(dst []core.Entry, max int) []core.Entry {
	if max <= 0 {
		return dst
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	for q.count == 0 && !q.closed {
		q.wakeup.Wait()
	}
	return q.takeMany(dst, max)
}

// PopManyContext behaves like PopMany but also returns when ctx is done. If
// entries are available they are returned even when ctx is already cancelled.
func (q *Queue) PopManyContext(ctx context.Context, max int) ([]core.Entry, error) {
	if max <= 0 {
		return nil, nil
	}

	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.wakeup.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()

	for q.count == 0 && !q.closed {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		q.wakeup.Wait()
	}
	return q.takeMany(nil, max), nil
}

// Close marks the queue closed and wakes every blocked consumer. Buffered
// entries remain available to Pop and PopMany. Calling Close again is a no-op.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.wakeup.Broadcast()
}

// Closed reports whether Close has been called
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len returns the number of buffered entries
func (q *Queue) Len() int {
	return int(q.depth.Load())
}

// Returns queue statistics
func (q *Queue) GetStats() map[string]any {
	return map[string]any{
		"closed":         q.Closed(),
		"depth":          q.depth.Load(),
		"high_water":     q.highWater.Load(),
		"total_pushed":   q.totalPushed.Load(),
		"total_popped":   q.totalPopped.Load(),
		"total_rejected": q.totalRejected.Load(),
	}
}

// Counters exposes raw counters for metric collectors
func (q *Queue) Counters() (pushed, popped, rejected uint64) {
	return q.totalPushed.Load(), q.totalPopped.Load(), q.totalRejected.Load()
}

// take removes the head entry; caller holds mu and has checked count > 0
func (q *Queue) take() core.Entry {
	e := q.buf[q.head]
	q.buf[q.head] = core.Entry{}
	q.head = (q.head + 1) & (len(q.buf) - 1)
	q.count--
	return e
}

// takeMany moves up to max head entries onto dst; caller holds mu
func (q *Queue) takeMany(dst []core.Entry, max int) []core.Entry {
	n := min(max, q.count)
	if n == 0 {
		return dst
	}
	dst = growSlice(dst, n)
	for i := 0; i < n; i++ {
		dst = append(dst, q.take())
	}
	q.totalPopped.Add(uint64(n))
	q.depth.Store(int64(q.count))
	return dst
}

// grow doubles the ring buffer, unrolling it so head is at index zero
func (q *Queue) grow() {
	next := make([]core.Entry, len(q.buf)*2)
	tail := copy(next, q.buf[q.head:])
	copy(next[tail:], q.buf[:q.head])
	q.buf = next
	q.head = 0
}

func growSlice(s []core.Entry, n int) []core.Entry {
	if cap(s)-len(s) >= n {
		return s
	}
	out := make([]core.Entry, len(s), len(s)+n)
	copy(out, s)
	return out
}
