package observe

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/jamesmcarthur-3999/taskerino-sub015/pkg/graph"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestTickDurationHistogram(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.TickDuration.Record(ctx, 0.0002)
	m.TickDuration.Record(ctx, 0.0015)

	rm := collect(t, reader)
	met := findMetric(rm, "audiograph.tick.duration")
	if met == nil {
		t.Fatal("metric not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("metric is not a histogram")
	}
	if len(hist.DataPoints) == 0 {
		t.Fatal("no data points")
	}
	if got := hist.DataPoints[0].Count; got != 2 {
		t.Errorf("sample count = %d, want 2", got)
	}
}

func TestDroppedCounterByNode(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	attrs := metric.WithAttributes(attribute.String("node", "mic"))
	m.BuffersDropped.Add(ctx, 1, attrs)
	m.BuffersDropped.Add(ctx, 1, attrs)
	m.BuffersDropped.Add(ctx, 1, metric.WithAttributes(attribute.String("node", "music")))

	rm := collect(t, reader)
	met := findMetric(rm, "audiograph.buffers.dropped")
	if met == nil {
		t.Fatal("metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("metric is not a sum")
	}

	// Find the data point with node=mic.
	for _, dp := range sum.DataPoints {
		for _, kv := range dp.Attributes.ToSlice() {
			if string(kv.Key) == "node" && kv.Value.AsString() == "mic" {
				if dp.Value != 2 {
					t.Errorf("counter value = %d, want 2", dp.Value)
				}
				return
			}
		}
	}
	t.Error("data point with node=mic not found")
}

func TestGraphObserver_RecordsTicks(t *testing.T) {
	m, reader := newTestMetrics(t)
	obs := NewGraphObserver(m)

	obs.TickCompleted(150*time.Microsecond, 3, 0)
	obs.TickCompleted(200*time.Microsecond, 2, 1)

	rm := collect(t, reader)

	met := findMetric(rm, "audiograph.tick.duration")
	if met == nil {
		t.Fatal("tick duration metric not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok || len(hist.DataPoints) == 0 {
		t.Fatal("tick duration has no data points")
	}
	if got := hist.DataPoints[0].Count; got != 2 {
		t.Errorf("tick count = %d, want 2", got)
	}

	met = findMetric(rm, "audiograph.buffers.moved")
	if met == nil {
		t.Fatal("buffers moved metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok || len(sum.DataPoints) == 0 {
		t.Fatal("buffers moved has no data points")
	}
	if got := sum.DataPoints[0].Value; got != 5 {
		t.Errorf("buffers moved = %d, want 5", got)
	}
}

func TestGraphObserver_NodeEvents(t *testing.T) {
	m, reader := newTestMetrics(t)
	obs := NewGraphObserver(m)

	obs.BufferDropped("mic")
	obs.InputStarved("mixer")
	obs.InputStarved("mixer")
	obs.NodeError("wav-out")

	rm := collect(t, reader)

	checks := []struct {
		name string
		want int64
	}{
		{"audiograph.buffers.dropped", 1},
		{"audiograph.input.starvations", 2},
		{"audiograph.node.errors", 1},
	}
	for _, tc := range checks {
		t.Run(tc.name, func(t *testing.T) {
			met := findMetric(rm, tc.name)
			if met == nil {
				t.Fatalf("metric %q not found", tc.name)
			}
			sum, ok := met.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("metric %q is not a sum", tc.name)
			}
			if len(sum.DataPoints) == 0 {
				t.Fatalf("metric %q has no data points", tc.name)
			}
			if got := sum.DataPoints[0].Value; got != tc.want {
				t.Errorf("counter value = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestGraphObserver_StateTransitionsMoveGauge(t *testing.T) {
	m, reader := newTestMetrics(t)
	obs := NewGraphObserver(m)

	obs.StateChanged(graph.StateIdle, graph.StateStarting)
	obs.StateChanged(graph.StateStarting, graph.StateActive)
	obs.StateChanged(graph.StateActive, graph.StateStopping)
	obs.StateChanged(graph.StateStopping, graph.StateIdle)

	rm := collect(t, reader)

	met := findMetric(rm, "audiograph.state.transitions")
	if met == nil {
		t.Fatal("transitions metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("transitions metric is not a sum")
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	if total != 4 {
		t.Errorf("total transitions = %d, want 4", total)
	}

	// The graph went active and inactive once; the gauge is back at zero.
	met = findMetric(rm, "audiograph.active_graphs")
	if met == nil {
		t.Fatal("active graphs metric not found")
	}
	gauge, ok := met.Data.(metricdata.Sum[int64])
	if !ok || len(gauge.DataPoints) == 0 {
		t.Fatal("active graphs has no data points")
	}
	if got := gauge.DataPoints[0].Value; got != 0 {
		t.Errorf("active graphs = %d, want 0", got)
	}
}

func TestHTTPRequestDuration(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.HTTPRequestDuration.Record(ctx, 0.05,
		metric.WithAttributes(
			attribute.String("method", "GET"),
			attribute.String("path", "/healthz"),
		),
	)

	rm := collect(t, reader)
	met := findMetric(rm, "audiograph.http.request.duration")
	if met == nil {
		t.Fatal("metric not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("metric is not a histogram")
	}
	if len(hist.DataPoints) == 0 {
		t.Fatal("no data points")
	}
	if got := hist.DataPoints[0].Count; got != 1 {
		t.Errorf("sample count = %d, want 1", got)
	}
}

func TestDefaultMetrics_ReturnsSameInstance(t *testing.T) {
	// DefaultMetrics uses the global OTel provider so we just check
	// that repeated calls return the same pointer.
	a := DefaultMetrics()
	b := DefaultMetrics()
	if a != b {
		t.Error("DefaultMetrics returned different pointers")
	}
}
