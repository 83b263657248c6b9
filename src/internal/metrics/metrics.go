// FILE: evsink/src/internal/metrics/metrics.go
package metrics

import (
	"errors"
	"time"

	"evsink/src/internal/sink"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "evsink"

// QueueSource exposes the queue counters scraped on demand
type QueueSource interface {
	Counters() (pushed, popped, rejected uint64)
	Len() int
}

// Metrics holds the Prometheus collectors for one evsink process
type Metrics struct {
	registry *prometheus.Registry

	batchesDrained prometheus.Counter
	entriesKept    prometheus.Counter
	entriesDropped prometheus.Counter
	batchSize      prometheus.Histogram
	sinkEntries    *prometheus.CounterVec
	sinkErrors     *prometheus.CounterVec
	sinkLatency    *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry. Queue gauges read q at
// scrape time; strayCalls and droppedAfterClose may be nil.
func New(q QueueSource, droppedAfterClose, strayCalls func() uint64) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		batchesDrained: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reporter_batches_total",
			Help:      "Batches drained from the event queue",
		}),
		entriesKept: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reporter_entries_kept_total",
			Help:      "Entries that passed the filter chain",
		}),
		entriesDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reporter_entries_filtered_total",
			Help:      "Entries removed by the filter chain",
		}),
		batchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reporter_batch_size",
			Help:      "Entries per drained batch",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		sinkEntries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_entries_total",
			Help:      "Entries handed to each sink",
		}, []string{"sink", "status"}),
		sinkErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      "Failed batch writes per sink",
		}, []string{"sink"}),
		sinkLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sink_write_seconds",
			Help:      "Time spent writing one batch to a sink",
			Buckets:   prometheus.DefBuckets,
		}, []string{"sink"}),
	}

	if q != nil {
		factory.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_pushed_total",
			Help:      "Entries accepted by the event queue",
		}, func() float64 {
			pushed, _, _ := q.Counters()
			return float64(pushed)
		})
		factory.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_popped_total",
			Help:      "Entries removed from the event queue",
		}, func() float64 {
			_, popped, _ := q.Counters()
			return float64(popped)
		})
		factory.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_rejected_total",
			Help:      "Entries offered after the queue was closed",
		}, func() float64 {
			_, _, rejected := q.Counters()
			return float64(rejected)
		})
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Entries currently buffered",
		}, func() float64 {
			return float64(q.Len())
		})
	}

	if droppedAfterClose != nil {
		factory.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logger_dropped_after_close_total",
			Help:      "Producer calls made after the logger was closed",
		}, func() float64 { return float64(droppedAfterClose()) })
	}
	if strayCalls != nil {
		factory.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "global_stray_calls_total",
			Help:      "Package-level producer calls outside the initialized window",
		}, func() float64 { return float64(strayCalls()) })
	}

	return m
}

// Registry returns the registry backing the metrics endpoint
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveBatch(drained, kept int) {
	m.batchesDrained.Inc()
	m.batchSize.Observe(float64(drained))
	m.entriesKept.Add(float64(kept))
	m.entriesDropped.Add(float64(drained - kept))
}

func (m *Metrics) ObserveSinkWrite(name string, entries int, elapsed time.Duration, err error) {
	m.sinkLatency.WithLabelValues(name).Observe(elapsed.Seconds())
	if err != nil {
		m.sinkErrors.WithLabelValues(name).Inc()

		var partial *sink.PartialWriteError
		if errors.As(err, &partial) {
			m.sinkEntries.WithLabelValues(name, "delivered").Add(float64(partial.Written))
			m.sinkEntries.WithLabelValues(name, "failed").Add(float64(partial.Skipped))
			return
		}
		m.sinkEntries.WithLabelValues(name, "failed").Add(float64(entries))
		return
	}
	m.sinkEntries.WithLabelValues(name, "delivered").Add(float64(entries))
}
