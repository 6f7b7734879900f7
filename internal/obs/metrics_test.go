package obs

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecordAndExpose(t *testing.T) {
	metrics := NewMetrics(MetricsConfig{})
	metrics.RecordRead("/api/itr-forms", "hit")
	metrics.ObserveFetch("/api/itr-forms", nil, 10*time.Millisecond)
	metrics.ObserveFetch("/api/itr-forms", errors.New("boom"), 10*time.Millisecond)
	metrics.RecordCoalesced("/api/itr-forms")
	metrics.RecordInvalidation("/api/itr-forms", true)
	metrics.RecordMutation("itr.create", "auth")
	metrics.RecordRedirect("mutation")
	metrics.SetEntries(3)

	if got := testutil.ToFloat64(metrics.fetches.WithLabelValues("/api/itr-forms", "error")); got != 1 {
		t.Fatalf("expected one failed fetch, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.refetches.WithLabelValues("/api/itr-forms")); got != 1 {
		t.Fatalf("expected one refetch, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.entries); got != 3 {
		t.Fatalf("expected entries gauge 3, got %v", got)
	}

	server := httptest.NewServer(metrics.Handler())
	defer server.Close()
	resp, err := server.Client().Get(server.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "taxclient_mutations_total") {
		t.Fatalf("expected mutation counter in scrape output")
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var metrics *Metrics
	metrics.RecordRead("k", "hit")
	metrics.ObserveFetch("k", nil, time.Millisecond)
	metrics.RecordEviction(2)
	metrics.SetEntries(1)
	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 503 {
		t.Fatalf("expected 503 from nil metrics handler, got %d", rec.Code)
	}
}

func TestTopKCanonicalizesOverflowKeys(t *testing.T) {
	topk := NewTopK(1, time.Hour)
	topk.ObserveHit("/api/itr-forms")
	topk.ObserveHit("/api/gst-returns")
	if got := topk.Canon("/api/itr-forms"); got != "/api/itr-forms" {
		t.Fatalf("expected first key to keep its label, got %q", got)
	}
	if got := topk.Canon("/api/gst-returns"); got != "other" {
		t.Fatalf("expected overflow key to collapse to other, got %q", got)
	}
	if got := topk.Canon(""); got != "none" {
		t.Fatalf("expected none for empty key, got %q", got)
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("debug", "json")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Debug("ready")
	if _, err := NewLogger("loud", "json"); err == nil {
		t.Fatalf("expected invalid level error")
	}
	if _, err := NewLogger("info", "xml"); err == nil {
		t.Fatalf("expected invalid format error")
	}
	if Logger(nil) == nil {
		t.Fatalf("expected nop logger")
	}
}

func TestRedactToken(t *testing.T) {
	if got := RedactToken("abcdefghijkl"); got != "abcd…[redacted]" {
		t.Fatalf("unexpected redaction %q", got)
	}
	if got := RedactToken("short"); got != "[redacted]" {
		t.Fatalf("unexpected redaction %q", got)
	}
}
