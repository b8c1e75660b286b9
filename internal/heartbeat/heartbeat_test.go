package heartbeat

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"venueexec/internal/connector"
	"venueexec/pkg/types"
)

type fakeConnector struct {
	connector.Connector
	positions []types.PositionSnapshot
	margin    map[string]any
}

func (f *fakeConnector) GetPositions(ctx context.Context) ([]types.PositionSnapshot, error) {
	return f.positions, nil
}
func (f *fakeConnector) GetMargin(ctx context.Context) (map[string]any, error) {
	return f.margin, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewMetricsRegistersInstruments(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.OrdersByState.WithLabelValues("v1", "FILLED").Inc()
	m.OpenOrders.Set(3)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected registered metric families")
	}
}

func TestReporterPostsPayload(t *testing.T) {
	t.Parallel()
	var received int32
	var gotPayload Payload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&received, 1)
		_ = json.NewDecoder(r.Body).Decode(&gotPayload)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	fc := &fakeConnector{
		positions: []types.PositionSnapshot{{Symbol: "SOL", BaseQty: 1}},
		margin:    map[string]any{"equity": 100.0},
	}
	r := NewReporter(server.URL, "", "v1", "tracking_limit", 0.05, 1, fc, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_ = r.Run(ctx)

	if atomic.LoadInt32(&received) == 0 {
		t.Fatal("expected at least one heartbeat POST")
	}
	if gotPayload.Venue != "v1" {
		t.Errorf("Venue = %q, want v1", gotPayload.Venue)
	}
}
