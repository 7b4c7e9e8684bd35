package monitor_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/jamesmcarthur-3999/taskerino-sub015/internal/monitor"
	"github.com/jamesmcarthur-3999/taskerino-sub015/pkg/audio"
	"github.com/jamesmcarthur-3999/taskerino-sub015/pkg/audio/mock"
	"github.com/jamesmcarthur-3999/taskerino-sub015/pkg/graph"
)

// probeBody mirrors the JSON shape of the health endpoints.
type probeBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func testGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	src := g.AddSource(&mock.Source{NameResult: "mic", FormatResult: audio.Speech})
	sink := g.AddSink(&mock.Sink{NameResult: "out"})
	if err := g.Connect(src, sink); err != nil {
		t.Fatalf("connect: %v", err)
	}
	return g
}

func TestHealthz_AlwaysReturns200(t *testing.T) {
	t.Parallel()
	s := monitor.New(":0", testGraph(t))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var body probeBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q, want %q", body.Status, "ok")
	}
}

func TestReadyz_IdleGraphFails(t *testing.T) {
	t.Parallel()
	s := monitor.New(":0", testGraph(t))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	var body probeBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if body.Status != "fail" {
		t.Errorf("status = %q, want %q", body.Status, "fail")
	}
	if !strings.HasPrefix(body.Checks["graph"], "fail:") {
		t.Errorf("graph check = %q, want fail prefix", body.Checks["graph"])
	}
}

func TestReadyz_ActiveGraphPasses(t *testing.T) {
	t.Parallel()
	g := testGraph(t)
	if err := g.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer g.Stop()

	s := monitor.New(":0", g)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var body probeBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if body.Checks["graph"] != "ok" {
		t.Errorf("graph check = %q, want %q", body.Checks["graph"], "ok")
	}
}

func TestReadyz_ExtraCheckerFails(t *testing.T) {
	t.Parallel()
	g := testGraph(t)
	if err := g.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer g.Stop()

	s := monitor.New(":0", g, monitor.WithChecker(monitor.Checker{
		Name: "output_dir",
		Check: func(_ context.Context) error {
			return errors.New("disk full")
		},
	}))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	var body probeBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if body.Checks["graph"] != "ok" {
		t.Errorf("graph check = %q, want %q", body.Checks["graph"], "ok")
	}
	if body.Checks["output_dir"] != "fail: disk full" {
		t.Errorf("output_dir check = %q, want %q", body.Checks["output_dir"], "fail: disk full")
	}
}

func TestSnapshotEndpoint(t *testing.T) {
	t.Parallel()
	s := monitor.New(":0", testGraph(t))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/graph", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var snap graph.Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if len(snap.Nodes) != 2 {
		t.Errorf("nodes = %d, want 2", len(snap.Nodes))
	}
	if len(snap.Edges) != 1 {
		t.Errorf("edges = %d, want 1", len(snap.Edges))
	}
	if snap.Nodes[0].Name != "mic" {
		t.Errorf("first node = %q, want %q", snap.Nodes[0].Name, "mic")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	s := monitor.New(":0", testGraph(t))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if len(body) == 0 {
		t.Error("metrics body is empty")
	}
}

func TestStream_SendsSnapshotFrames(t *testing.T) {
	t.Parallel()
	s := monitor.New(":0", testGraph(t), monitor.WithStreamInterval(20*time.Millisecond))

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	// The initial frame plus at least one ticker frame.
	for i := 0; i < 2; i++ {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("read frame %d: %v", i, err)
		}
		if typ != websocket.MessageText {
			t.Fatalf("frame %d type = %v, want text", i, typ)
		}
		var snap graph.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			t.Fatalf("frame %d decode: %v", i, err)
		}
		if len(snap.Nodes) != 2 {
			t.Errorf("frame %d nodes = %d, want 2", i, len(snap.Nodes))
		}
	}
}
