package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCheckLivenessAlwaysOK(t *testing.T) {
	c := New(0)
	status := c.CheckLiveness(context.Background())
	if status.Status != "ok" {
		t.Errorf("liveness status = %q, want ok", status.Status)
	}
}

func TestCheckReadinessNoChecks(t *testing.T) {
	c := New(0)
	status := c.CheckReadiness(context.Background())
	if status.Status != "ready" {
		t.Errorf("readiness with no checks = %q, want ready", status.Status)
	}
}

func TestCheckReadinessAggregates(t *testing.T) {
	c := New(time.Second)
	c.RegisterCheck("good", func(ctx context.Context) error { return nil })
	c.RegisterCheck("bad", func(ctx context.Context) error { return errors.New("backend gone") })

	status := c.CheckReadiness(context.Background())
	if status.Status != "degraded" {
		t.Fatalf("readiness = %q, want degraded", status.Status)
	}
	if status.Checks["good"].Status != "ok" {
		t.Errorf("good check = %q, want ok", status.Checks["good"].Status)
	}
	bad := status.Checks["bad"]
	if bad.Status != "unhealthy" || bad.Message != "backend gone" {
		t.Errorf("bad check = (%q, %q), want (unhealthy, backend gone)", bad.Status, bad.Message)
	}
}

func TestCheckTimesOut(t *testing.T) {
	c := New(50 * time.Millisecond)
	c.RegisterCheck("slow", func(ctx context.Context) error {
		select {
		case <-time.After(2 * time.Second):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	status := c.CheckReadiness(context.Background())
	if status.Checks["slow"].Status != "unhealthy" {
		t.Errorf("slow check = %q, want unhealthy", status.Checks["slow"].Status)
	}
}

func TestRegisterCheckReplaces(t *testing.T) {
	c := New(0)
	c.RegisterCheck("dup", func(ctx context.Context) error { return errors.New("old") })
	c.RegisterCheck("dup", func(ctx context.Context) error { return nil })

	if len(c.ListChecks()) != 1 {
		t.Fatalf("ListChecks() length = %d, want 1", len(c.ListChecks()))
	}
	status := c.CheckReadiness(context.Background())
	if status.Checks["dup"].Status != "ok" {
		t.Errorf("replaced check = %q, want ok", status.Checks["dup"].Status)
	}
}

func TestReadinessHandlerStatusCodes(t *testing.T) {
	c := New(0)
	handler := c.ReadinessHandler()

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("ready status = %d, want 200", rec.Code)
	}

	c.RegisterCheck("failing", func(ctx context.Context) error { return errors.New("nope") })
	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("degraded status = %d, want 503", rec.Code)
	}
}

func TestVersionHandler(t *testing.T) {
	handler := VersionHandler("1.2.3", "abc123", "2026-08-01")

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("version status = %d, want 200", rec.Code)
	}

	var info VersionInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("failed to decode version: %v", err)
	}
	if info.Version != "1.2.3" || info.Commit != "abc123" {
		t.Errorf("version info = %+v", info)
	}
	if info.GoVersion == "" {
		t.Error("go version missing")
	}
}

func TestHandlersRejectNonGet(t *testing.T) {
	c := New(0)
	for name, handler := range map[string]http.HandlerFunc{
		"liveness":  c.LivenessHandler(),
		"readiness": c.ReadinessHandler(),
		"version":   VersionHandler("v", "c", "b"),
	} {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s handler POST status = %d, want 405", name, rec.Code)
		}
	}
}
