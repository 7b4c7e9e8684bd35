// Package observe provides application-wide observability primitives for
// audiograph: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jamesmcarthur-3999/taskerino-sub015/pkg/graph"
)

// meterName is the instrumentation scope name used for all audiograph metrics.
const meterName = "github.com/jamesmcarthur-3999/taskerino-sub015"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Scheduler histograms ---

	// TickDuration tracks the wall-clock time of one ProcessOnce tick.
	TickDuration metric.Float64Histogram

	// --- Counters ---

	// BuffersMoved counts buffers moved across edges per tick.
	BuffersMoved metric.Int64Counter

	// BuffersDropped counts buffers rejected by full downstream queues.
	// Use with attribute: attribute.String("node", ...)
	BuffersDropped metric.Int64Counter

	// InputStarvations counts processor ticks skipped for lack of input.
	// Use with attribute: attribute.String("node", ...)
	InputStarvations metric.Int64Counter

	// NodeErrors counts failed node operations during ticks. Use with
	// attribute: attribute.String("node", ...)
	NodeErrors metric.Int64Counter

	// StateTransitions counts graph lifecycle transitions. Use with
	// attributes: attribute.String("from", ...), attribute.String("to", ...)
	StateTransitions metric.Int64Counter

	// --- Gauges ---

	// ActiveGraphs tracks the number of graphs currently in the active
	// state.
	ActiveGraphs metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// tickBuckets defines histogram bucket boundaries (in seconds) optimised for
// scheduler tick durations, which sit well below typical request latencies.
var tickBuckets = []float64{
	0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.TickDuration, err = m.Float64Histogram("audiograph.tick.duration",
		metric.WithDescription("Wall-clock duration of one scheduler tick."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(tickBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.BuffersMoved, err = m.Int64Counter("audiograph.buffers.moved",
		metric.WithDescription("Total buffers moved across graph edges."),
	); err != nil {
		return nil, err
	}
	if met.BuffersDropped, err = m.Int64Counter("audiograph.buffers.dropped",
		metric.WithDescription("Total buffers dropped on full queues, by producing node."),
	); err != nil {
		return nil, err
	}
	if met.InputStarvations, err = m.Int64Counter("audiograph.input.starvations",
		metric.WithDescription("Total processor ticks skipped for lack of input, by node."),
	); err != nil {
		return nil, err
	}
	if met.NodeErrors, err = m.Int64Counter("audiograph.node.errors",
		metric.WithDescription("Total failed node operations during ticks, by node."),
	); err != nil {
		return nil, err
	}
	if met.StateTransitions, err = m.Int64Counter("audiograph.state.transitions",
		metric.WithDescription("Total graph lifecycle transitions by from and to state."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveGraphs, err = m.Int64UpDownCounter("audiograph.active_graphs",
		metric.WithDescription("Number of graphs currently active."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("audiograph.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// GraphObserver adapts [Metrics] to the [graph.Observer] interface so a
// graph can report scheduler events without importing OTel itself. The
// observer is invoked synchronously from inside graph ticks, so it only
// records instruments and never blocks.
type GraphObserver struct {
	metrics *Metrics
}

var _ graph.Observer = (*GraphObserver)(nil)

// NewGraphObserver creates an observer recording into the given metrics.
func NewGraphObserver(m *Metrics) *GraphObserver {
	return &GraphObserver{metrics: m}
}

// TickCompleted implements [graph.Observer].
func (o *GraphObserver) TickCompleted(d time.Duration, buffers, errors int) {
	ctx := context.Background()
	o.metrics.TickDuration.Record(ctx, d.Seconds())
	if buffers > 0 {
		o.metrics.BuffersMoved.Add(ctx, int64(buffers))
	}
}

// BufferDropped implements [graph.Observer].
func (o *GraphObserver) BufferDropped(node string) {
	o.metrics.BuffersDropped.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("node", node)))
}

// InputStarved implements [graph.Observer].
func (o *GraphObserver) InputStarved(node string) {
	o.metrics.InputStarvations.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("node", node)))
}

// NodeError implements [graph.Observer].
func (o *GraphObserver) NodeError(node string) {
	o.metrics.NodeErrors.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("node", node)))
}

// StateChanged implements [graph.Observer]. Transitions into and out of the
// active state also move the active-graphs gauge.
func (o *GraphObserver) StateChanged(from, to graph.State) {
	ctx := context.Background()
	o.metrics.StateTransitions.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("from", from.String()),
			attribute.String("to", to.String()),
		),
	)
	if to == graph.StateActive {
		o.metrics.ActiveGraphs.Add(ctx, 1)
	}
	if from == graph.StateActive {
		o.metrics.ActiveGraphs.Add(ctx, -1)
	}
}
