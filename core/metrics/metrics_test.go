package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveEvent(t *testing.T) {
	before := testutil.ToFloat64(adminNoticesTotal.WithLabelValues("failed"))
	ObserveEvent("Inbound", "partial", 2, 1, 0, 15*time.Millisecond)

	if got := testutil.ToFloat64(eventsHandledTotal.WithLabelValues("inbound", "partial")); got < 1 {
		t.Fatalf("events counter = %v", got)
	}
	if got := testutil.ToFloat64(adminNoticesTotal.WithLabelValues("failed")); got != before+1 {
		t.Fatalf("failed notices = %v, want %v", got, before+1)
	}
}

func TestAddPrunedIgnoresZero(t *testing.T) {
	before := testutil.ToFloat64(directoryPrunedTotal)
	AddPruned(0)
	AddPruned(3)
	if got := testutil.ToFloat64(directoryPrunedTotal); got != before+3 {
		t.Fatalf("pruned = %v, want %v", got, before+3)
	}
}

func TestServerRoutes(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(updatesReceivedTotal)
	IncUpdate("text")

	srv := NewServer("127.0.0.1:0", reg)
	h := srv.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("healthz before ready = %d", rec.Code)
	}

	srv.SetReady(true)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "relaybot_updates_received_total") {
		t.Fatalf("metrics = %d %s", rec.Code, rec.Body.String())
	}
}
