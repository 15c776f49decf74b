package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"kestrel-hq/secretd/pkg/config"
)

func newTestCollector(t *testing.T, enabled bool) *Collector {
	t.Helper()
	return NewCollector(&config.MetricsConfig{
		Enabled:   enabled,
		Namespace: "secretd",
		Path:      "/metrics",
	}, nil)
}

func gatherNames(t *testing.T, c *Collector) map[string]bool {
	t.Helper()
	families, err := c.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() returned error: %v", err)
	}
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	return names
}

func TestCollectorRegistersAllFamilies(t *testing.T) {
	c := newTestCollector(t, true)

	c.RecordRead("ok", time.Millisecond)
	c.RecordReload("manual", true)
	c.RecordRotation()
	c.RecordWatchEvent("secret")
	c.SetWatcherActive(true)
	c.RecordHTTPRequest("/secret", "GET", 200)

	names := gatherNames(t, c)
	for _, want := range []string{
		"secretd_secret_reads_total",
		"secretd_secret_read_duration_seconds",
		"secretd_reloads_total",
		"secretd_rotations_total",
		"secretd_watch_events_total",
		"secretd_watcher_active",
		"secretd_http_requests_total",
	} {
		if !names[want] {
			t.Errorf("metric family %s not gathered", want)
		}
	}
}

func TestCollectorDisabledRecordsNothing(t *testing.T) {
	c := newTestCollector(t, false)

	c.RecordRead("ok", time.Millisecond)
	c.RecordReload("manual", true)
	c.RecordRotation()
	c.RecordWatchEvent("secret")
	c.SetWatcherActive(true)
	c.RecordHTTPRequest("/secret", "GET", 200)

	families, err := c.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() returned error: %v", err)
	}
	for _, f := range families {
		for _, m := range f.GetMetric() {
			if m.GetCounter() != nil && m.GetCounter().GetValue() != 0 {
				t.Errorf("disabled collector recorded %s", f.GetName())
			}
		}
	}
}

func TestCollectorWatcherGauge(t *testing.T) {
	c := newTestCollector(t, true)

	c.SetWatcherActive(true)
	c.SetWatcherActive(false)

	families, err := c.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() returned error: %v", err)
	}
	for _, f := range families {
		if f.GetName() != "secretd_watcher_active" {
			continue
		}
		if got := f.GetMetric()[0].GetGauge().GetValue(); got != 0 {
			t.Errorf("watcher_active = %v, want 0", got)
		}
		return
	}
	t.Fatal("watcher_active family not gathered")
}

func TestHandlerServesPrometheusText(t *testing.T) {
	c := newTestCollector(t, true)
	c.RecordRotation()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	c.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("metrics endpoint status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "secretd_rotations_total") {
		t.Errorf("metrics output missing rotations counter:\n%s", rec.Body.String())
	}
}

func TestNewCollectorDefaultsNamespace(t *testing.T) {
	c := NewCollector(&config.MetricsConfig{Enabled: true}, nil)
	c.RecordRotation()

	if !gatherNames(t, c)["secretd_rotations_total"] {
		t.Error("empty namespace did not default to secretd")
	}
}
