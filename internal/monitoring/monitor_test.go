package monitoring

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMonitor_Counters(t *testing.T) {
	m := NewMonitor()

	m.RecordTransition("accept", nil)
	m.RecordTransition("accept", nil)
	m.RecordTransition("ship", errors.New("wrong state"))
	m.RecordLotLookup(true)
	m.RecordLotLookup(false)
	m.RecordAuthEvent("SIGNED_IN")

	if got := testutil.ToFloat64(m.orderTransitions.WithLabelValues("accept", "ok")); got != 2 {
		t.Errorf("Expected 2 accepted transitions, got %v", got)
	}
	if got := testutil.ToFloat64(m.orderTransitions.WithLabelValues("ship", "error")); got != 1 {
		t.Errorf("Expected 1 failed ship, got %v", got)
	}
	if got := testutil.ToFloat64(m.lotLookups.WithLabelValues("not_found")); got != 1 {
		t.Errorf("Expected 1 missed lookup, got %v", got)
	}
	if got := testutil.ToFloat64(m.authEvents.WithLabelValues("SIGNED_IN")); got != 1 {
		t.Errorf("Expected 1 sign-in event, got %v", got)
	}
}

func TestMonitor_Handler(t *testing.T) {
	m := NewMonitor()
	m.ObserveUpstream("weather", time.Now().Add(-100*time.Millisecond), nil)
	m.RecordRequest("GET", "/api/v1/trace/:lotId", 404)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, want := range []string{
		`farmlink_upstream_request_seconds_count{outcome="ok",service="weather"} 1`,
		`farmlink_http_requests_total{method="GET",route="/api/v1/trace/:lotId",status="404"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("Expected scrape output to contain %q", want)
		}
	}
}

func TestMonitor_Status(t *testing.T) {
	m := NewMonitor()
	m.SetStatus("database", "sqlite3")

	status := m.Status()
	if status["database"] != "sqlite3" {
		t.Errorf("Expected database status 'sqlite3', got %v", status["database"])
	}
	if _, exists := status["uptime_seconds"]; !exists {
		t.Errorf("Expected 'uptime_seconds' to be present in status, but it was not")
	}
}

func TestMonitor_NilIsNoop(t *testing.T) {
	var m *Monitor
	m.RecordTransition("accept", nil)
	m.RecordLotLookup(true)
	m.ObserveUpstream("llm", time.Now(), nil)
	m.SetStatus("k", "v")
	if len(m.Status()) != 0 {
		t.Errorf("Expected empty status from nil monitor")
	}
}
