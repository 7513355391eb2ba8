package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNoopRecorderIsSafe(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveStepDuration("build", time.Second)
	r.ObserveRunDuration(time.Second)
	r.IncStepResult("build", ResultSuccess)
	r.IncRunOutcome(ResultFatal)
	r.IncStepRetry("test")
}

func TestPrometheusRecorderCounts(t *testing.T) {
	reg := prom.NewRegistry()
	r := NewPrometheusRecorder(reg)

	r.IncStepResult("build", ResultSuccess)
	r.IncStepResult("build", ResultSuccess)
	r.IncStepResult("test", ResultSuppressed)
	r.IncRunOutcome(ResultSuccess)
	r.IncStepRetry("build")

	if got := testutil.ToFloat64(r.stepResults.WithLabelValues("build", "success")); got != 2 {
		t.Fatalf("expected 2 build successes got %v", got)
	}
	if got := testutil.ToFloat64(r.stepResults.WithLabelValues("test", "suppressed")); got != 1 {
		t.Fatalf("expected 1 suppressed test got %v", got)
	}
	if got := testutil.ToFloat64(r.runOutcome.WithLabelValues("success")); got != 1 {
		t.Fatalf("expected 1 successful run got %v", got)
	}
	if got := testutil.ToFloat64(r.retries.WithLabelValues("build")); got != 1 {
		t.Fatalf("expected 1 retry got %v", got)
	}
}

func TestPrometheusRecorderNilSafe(t *testing.T) {
	var r *PrometheusRecorder
	r.ObserveStepDuration("build", time.Second)
	r.ObserveRunDuration(time.Second)
	r.IncStepResult("build", ResultSuccess)
	r.IncRunOutcome(ResultSuccess)
	r.IncStepRetry("build")
}

func TestHTTPHandlerServesMetrics(t *testing.T) {
	reg := prom.NewRegistry()
	r := NewPrometheusRecorder(reg)
	r.ObserveStepDuration("build", 250*time.Millisecond)

	srv := httptest.NewServer(HTTPHandler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read scrape body: %v", err)
	}
	if !strings.Contains(string(body), "buildcheck_step_duration_seconds") {
		t.Fatal("step duration metric missing from scrape output")
	}
}
