// FILE: evsink/src/internal/reporter/reporter.go
package reporter

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"evsink/src/internal/config"
	"evsink/src/internal/core"
	"evsink/src/internal/filter"
	"evsink/src/internal/sink"
	"evsink/src/internal/telemetry"

	"github.com/google/uuid"
	"github.com/lixenwraith/log"
	"golang.org/x/time/rate"
)

// ErrDrainTimeout is returned by Shutdown when the queue could not be drained in time
var ErrDrainTimeout = errors.New("reporter drain timed out")

// Observer receives per-batch measurements, typically a metrics collector
type Observer interface {
	ObserveBatch(drained, kept int)
	ObserveSinkWrite(sink string, entries int, elapsed time.Duration, err error)
}

// droppedCounter is implemented by drainers that count producer calls made after close
type droppedCounter interface {
	Dropped() uint64
}

// Reporter is the consumer side of the telemetry queue. It drains batches,
// runs them through the filter chain and hands them to every sink in order.
// Once the drainer is closed it keeps draining until the queue is empty,
// then closes the sinks.
type Reporter struct {
	drainer   telemetry.Drainer
	config    *config.ReporterConfig
	warnDepth int64
	chain     *filter.Chain
	sinks     []sink.Sink
	limiter   *rate.Limiter
	observer  Observer
	logger    *log.Logger
	runID     string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	done   chan struct{}

	startOnce sync.Once
	startTime time.Time

	// Statistics
	totalBatches   atomic.Uint64
	totalDrained   atomic.Uint64
	totalFiltered  atomic.Uint64
	totalDelivered atomic.Uint64
	sinkErrors     atomic.Uint64
	lastBatchTime  atomic.Value // time.Time
}

// New creates a reporter; it does not start draining until Start
func New(drainer telemetry.Drainer, cfg *config.ReporterConfig, warnDepth int64, sinks []sink.Sink, logger *log.Logger) (*Reporter, error) {
	if drainer == nil {
		return nil, fmt.Errorf("reporter requires a drainer")
	}
	if cfg == nil {
		return nil, fmt.Errorf("reporter config cannot be nil")
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive: %d", cfg.BatchSize)
	}

	chain, err := filter.NewChain(cfg.Filters, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create filter chain: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Reporter{
		drainer:   drainer,
		config:    cfg,
		warnDepth: warnDepth,
		chain:     chain,
		sinks:     sinks,
		logger:    logger,
		runID:     uuid.NewString(),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	r.lastBatchTime.Store(time.Time{})

	if cfg.BatchesPerSecond > 0 {
		burst := int(cfg.Burst)
		if burst <= 0 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(cfg.BatchesPerSecond), burst)
	}

	return r, nil
}

// SetObserver installs a batch observer; must be called before Start
func (r *Reporter) SetObserver(o Observer) {
	r.observer = o
}

// RunID identifies this reporter instance in logs and outbound payload metadata
func (r *Reporter) RunID() string {
	return r.runID
}

// Start launches the drain loop and, if configured, the status loop
func (r *Reporter) Start() {
	r.startOnce.Do(func() {
		r.startTime = time.Now()

		r.wg.Add(1)
		go r.drainLoop()

		if r.config.StatusIntervalMS > 0 {
			r.wg.Add(1)
			go r.statusLoop(time.Duration(r.config.StatusIntervalMS) * time.Millisecond)
		}

		r.logger.Info("msg", "Reporter started",
			"component", "reporter",
			"run_id", r.runID,
			"batch_size", r.config.BatchSize,
			"batches_per_second", r.config.BatchesPerSecond,
			"sinks", len(r.sinks))
	})
}

// Done is closed when the drain loop has exited and sinks are closed
func (r *Reporter) Done() <-chan struct{} {
	return r.done
}

// Shutdown waits for the drain loop to empty a closed drainer. If that takes
// longer than timeout, in-flight writes are cancelled and ErrDrainTimeout is
// returned. The caller must close the drainer first.
func (r *Reporter) Shutdown(timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-r.done:
		r.cancel()
		r.wg.Wait()
		return nil
	case <-timer.C:
	}

	remaining := r.drainer.Len()
	r.cancel()
	r.wg.Wait()

	r.logger.Warn("msg", "Reporter drain timed out, remaining entries discarded",
		"component", "reporter",
		"remaining", remaining,
		"timeout", timeout)
	return fmt.Errorf("%w: %d entries remaining", ErrDrainTimeout, remaining)
}

// Stop cancels the reporter without waiting for the queue to drain
func (r *Reporter) Stop() {
	r.cancel()
	r.wg.Wait()
}

func (r *Reporter) drainLoop() {
	defer r.wg.Done()
	defer close(r.done)
	defer r.closeSinks()

	batchSize := int(min(r.config.BatchSize, math.MaxInt32))

	for {
		if r.ctx.Err() != nil {
			return
		}

		// Pacing lets entries accumulate into larger batches; skipped while draining after close
		if r.limiter != nil && !r.drainer.Closed() {
			if err := r.limiter.Wait(r.ctx); err != nil {
				return
			}
		}

		batch, err := r.drainer.PopManyContext(r.ctx, batchSize)
		if err != nil {
			r.logger.Debug("msg", "Drain loop cancelled",
				"component", "reporter",
				"error", err)
			return
		}
		if len(batch) == 0 {
			r.logger.Debug("msg", "Queue closed and drained",
				"component", "reporter",
				"run_id", r.runID)
			return
		}

		r.process(batch)
	}
}

// process filters one batch and writes it to every sink
func (r *Reporter) process(batch []core.Entry) {
	drained := len(batch)
	r.totalBatches.Add(1)
	r.totalDrained.Add(uint64(drained))
	r.lastBatchTime.Store(time.Now())

	kept := r.chain.Keep(batch)
	r.totalFiltered.Add(uint64(drained - len(kept)))

	if r.observer != nil {
		r.observer.ObserveBatch(drained, len(kept))
	}
	if len(kept) == 0 {
		return
	}

	for _, s := range r.sinks {
		start := time.Now()
		err := s.Write(r.ctx, kept)
		if r.observer != nil {
			r.observer.ObserveSinkWrite(s.Name(), len(kept), time.Since(start), err)
		}
		var partial *sink.PartialWriteError
		if errors.As(err, &partial) {
			r.sinkErrors.Add(1)
			r.totalDelivered.Add(uint64(partial.Written))
			r.logger.Warn("msg", "Sink skipped entries it could not format",
				"component", "reporter",
				"sink", s.Name(),
				"written", partial.Written,
				"skipped", partial.Skipped,
				"error", partial.Err)
			continue
		}
		if err != nil {
			r.sinkErrors.Add(1)
			r.logger.Error("msg", "Sink write failed, batch dropped for this sink",
				"component", "reporter",
				"sink", s.Name(),
				"batch_size", len(kept),
				"error", err)
			continue
		}
		r.totalDelivered.Add(uint64(len(kept)))
	}
}

func (r *Reporter) closeSinks() {
	for _, s := range r.sinks {
		if err := s.Close(); err != nil {
			r.logger.Error("msg", "Failed to close sink",
				"component", "reporter",
				"sink", s.Name(),
				"error", err)
		}
	}

	var dropped uint64
	if dc, ok := r.drainer.(droppedCounter); ok {
		dropped = dc.Dropped()
	}

	r.logger.Info("msg", "Reporter stopped",
		"component", "reporter",
		"run_id", r.runID,
		"batches", r.totalBatches.Load(),
		"drained", r.totalDrained.Load(),
		"filtered", r.totalFiltered.Load(),
		"sink_errors", r.sinkErrors.Load(),
		"dropped_after_close", dropped)
}

// statusLoop periodically reports progress and warns on a growing backlog
func (r *Reporter) statusLoop(interval time.Duration) {
	defer r.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastDropped uint64
	aboveWarn := false

	for {
		select {
		case <-ticker.C:
			depth := int64(r.drainer.Len())

			r.logger.Debug("msg", "Reporter status",
				"component", "reporter",
				"queue_depth", depth,
				"batches", r.totalBatches.Load(),
				"drained", r.totalDrained.Load(),
				"delivered", r.totalDelivered.Load())

			if r.warnDepth > 0 {
				switch {
				case depth > r.warnDepth && !aboveWarn:
					aboveWarn = true
					r.logger.Warn("msg", "Queue depth above warning threshold, consumer is falling behind",
						"component", "reporter",
						"queue_depth", depth,
						"warn_depth", r.warnDepth)
				case depth <= r.warnDepth && aboveWarn:
					aboveWarn = false
					r.logger.Info("msg", "Queue depth back below warning threshold",
						"component", "reporter",
						"queue_depth", depth)
				}
			}

			if dc, ok := r.drainer.(droppedCounter); ok {
				if dropped := dc.Dropped(); dropped > lastDropped {
					r.logger.Warn("msg", "Events emitted after logger close were discarded",
						"component", "reporter",
						"dropped", dropped-lastDropped)
					lastDropped = dropped
				}
			}

		case <-r.ctx.Done():
			return
		case <-r.done:
			return
		}
	}
}

// GetStats returns reporter statistics including the filter chain and sinks
func (r *Reporter) GetStats() map[string]any {
	lastBatch, _ := r.lastBatchTime.Load().(time.Time)

	sinkStats := make([]sink.SinkStats, 0, len(r.sinks))
	for _, s := range r.sinks {
		sinkStats = append(sinkStats, s.GetStats())
	}

	return map[string]any{
		"run_id":          r.runID,
		"start_time":      r.startTime,
		"queue_depth":     r.drainer.Len(),
		"total_batches":   r.totalBatches.Load(),
		"total_drained":   r.totalDrained.Load(),
		"total_filtered":  r.totalFiltered.Load(),
		"total_delivered": r.totalDelivered.Load(),
		"sink_errors":     r.sinkErrors.Load(),
		"last_batch_time": lastBatch,
		"filters":         r.chain.GetStats(),
		"sinks":           sinkStats,
	}
}
