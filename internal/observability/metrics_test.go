package observability

import (
	"testing"
	"time"

	"github.com/danmuck/framewire/internal/testutil/testlog"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func value(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	if err := m.Write(&out); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	switch {
	case out.Gauge != nil:
		return out.Gauge.GetValue()
	case out.Counter != nil:
		return out.Counter.GetValue()
	}
	t.Fatalf("unsupported metric type")
	return 0
}

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("framewired", "GET", "/health", 200, 12*time.Millisecond)
	RecordPacketDecoded("framewired", 64)
	RecordDecodeError("framewired")

	RecordSessionCreated(3)
	if got := value(t, sessionsActive); got != 3 {
		t.Fatalf("sessions active: got=%v want=3", got)
	}
	before := value(t, sessionsEvicted.WithLabelValues(EvictInactivity))
	RecordSessionsEvicted(EvictInactivity, 2, 1)
	if got := value(t, sessionsEvicted.WithLabelValues(EvictInactivity)) - before; got != 2 {
		t.Fatalf("evicted delta: got=%v want=2", got)
	}
	if got := value(t, sessionsActive); got != 1 {
		t.Fatalf("sessions active after eviction: got=%v want=1", got)
	}
}
