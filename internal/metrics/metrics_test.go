package metrics_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"fingergate/internal/metrics"
)

func TestRecordersUpdateCollectors(t *testing.T) {
	m := metrics.New()

	m.IncrementOutcome("identify", "matched")
	m.IncrementOutcome("identify", "matched")
	m.IncrementOutcome("enroll", "enrolled")
	m.ObserveCompare("scored", 10*time.Millisecond)
	m.ObserveCompare("unparsable", 5*time.Millisecond)
	m.IncrementStorageError("list_all")
	m.IncrementDuplicateProbe()

	if got := testutil.ToFloat64(m.AttemptOutcome.WithLabelValues("identify", "matched")); got != 2 {
		t.Fatalf("identify/matched = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.CompareCalls.WithLabelValues("unparsable")); got != 1 {
		t.Fatalf("unparsable compare calls = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.StorageErrors.WithLabelValues("list_all")); got != 1 {
		t.Fatalf("storage errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.DuplicateProbes); got != 1 {
		t.Fatalf("duplicate probes = %v, want 1", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *metrics.Metrics
	m.IncrementOutcome("identify", "no_match")
	m.ObserveAttemptLatency("identify", time.Second)
	m.IncrementCapture("identify", "ok")
	m.ObserveCompare("scored", time.Millisecond)
	m.ObserveCandidatesScanned(3)
	m.IncrementStorageError("insert")
	m.IncrementDuplicateProbe()
	if m.Registry() != nil {
		t.Fatal("expected nil registry")
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := metrics.New()
	m.IncrementCapture("enroll", "ok")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `fingergate_captures_total{purpose="enroll",result="ok"} 1`) {
		t.Fatalf("expected capture counter in exposition, got:\n%s", body)
	}
}

func TestInstancesDoNotShareRegistries(t *testing.T) {
	a := metrics.New()
	b := metrics.New()
	a.IncrementDuplicateProbe()
	if got := testutil.ToFloat64(b.DuplicateProbes); got != 0 {
		t.Fatalf("expected independent registries, got %v", got)
	}
}
