package observability

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestSimCollectorRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	col, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("NewSimCollector: %v", err)
	}

	col.RecordEvent("Progress")
	col.RecordEvent("Progress")
	col.RecordEvent("Collision")
	col.RecordCollision()
	col.RecordReroute()
	col.SetLiveEntities(3)
	col.ObserveStepDuration(500 * time.Microsecond)
	col.ObserveStepDuration(2 * time.Millisecond)

	if got := counterValue(t, reg, "metro_events_total", "Progress"); got != 2 {
		t.Fatalf("events{Progress} = %v, want 2", got)
	}
	if got := counterValue(t, reg, "metro_events_total", "Collision"); got != 1 {
		t.Fatalf("events{Collision} = %v, want 1", got)
	}
	if got := counterValue(t, reg, "metro_collisions_total", ""); got != 1 {
		t.Fatalf("collisions = %v, want 1", got)
	}
	if got := counterValue(t, reg, "metro_reroutes_total", ""); got != 1 {
		t.Fatalf("reroutes = %v, want 1", got)
	}
	if got := gaugeValue(t, reg, "metro_live_entities"); got != 3 {
		t.Fatalf("live entities = %v, want 3", got)
	}
	if got := histogramSampleCount(t, reg, "metro_step_duration_seconds"); got != 2 {
		t.Fatalf("step duration samples = %d, want 2", got)
	}
}

func TestSimCollectorDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("first registration: %v", err)
	}
	second, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("second registration: %v", err)
	}

	first.RecordCollision()
	second.RecordCollision()
	if got := counterValue(t, reg, "metro_collisions_total", ""); got != 2 {
		t.Fatalf("collisions = %v, want a shared series counting 2", got)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	col, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("NewSimCollector: %v", err)
	}
	col.RecordEvent("Init")
	col.SetLiveEntities(1)

	srv := httptest.NewServer(col.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}

	for _, name := range []string{"metro_events_total", "metro_live_entities", "metro_step_duration_seconds"} {
		if !strings.Contains(string(body), name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var col *SimCollector
	col.RecordEvent("Init")
	col.RecordCollision()
	col.RecordReroute()
	col.SetLiveEntities(1)
	col.ObserveStepDuration(time.Millisecond)
}

func counterValue(t *testing.T, reg *prometheus.Registry, name, category string) float64 {
	t.Helper()
	for _, mf := range gather(t, reg) {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if category == "" || labelValue(m, "category") == category {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func gaugeValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	for _, mf := range gather(t, reg) {
		if mf.GetName() == name && len(mf.GetMetric()) > 0 {
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	return 0
}

func histogramSampleCount(t *testing.T, reg *prometheus.Registry, name string) uint64 {
	t.Helper()
	for _, mf := range gather(t, reg) {
		if mf.GetName() == name && len(mf.GetMetric()) > 0 {
			return mf.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	return 0
}

func gather(t *testing.T, reg *prometheus.Registry) []*dto.MetricFamily {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	return mfs
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
