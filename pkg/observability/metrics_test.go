package observability

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	if metrics == nil {
		t.Fatal("NewMetrics returned nil")
	}

	// every collector must be registered; a second registration panics
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected duplicate registration to panic")
		}
	}()
	NewMetrics(registry)
}

func TestMetrics_SearchCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	metrics.SearchesTotal.WithLabelValues("ok").Inc()
	metrics.SearchesTotal.WithLabelValues("ok").Inc()
	metrics.SearchesTotal.WithLabelValues("error").Inc()

	if got := testutil.ToFloat64(metrics.SearchesTotal.WithLabelValues("ok")); got != 2 {
		t.Errorf("expected 2 ok searches, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.SearchesTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("expected 1 failed search, got %v", got)
	}
}

func TestMetrics_CacheCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	metrics.CacheHitsTotal.WithLabelValues("refdata_tags").Add(5)
	metrics.CacheMissesTotal.WithLabelValues("refdata_tags").Inc()
	metrics.CacheEntries.WithLabelValues("refdata_tags").Set(12)

	if got := testutil.ToFloat64(metrics.CacheHitsTotal.WithLabelValues("refdata_tags")); got != 5 {
		t.Errorf("expected 5 hits, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.CacheEntries.WithLabelValues("refdata_tags")); got != 12 {
		t.Errorf("expected 12 entries, got %v", got)
	}
}

func TestMetrics_UpdateDBStats(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	metrics.UpdateDBStats(sql.DBStats{
		InUse:        3,
		Idle:         7,
		WaitCount:    2,
		WaitDuration: 1500 * time.Millisecond,
	})

	if got := testutil.ToFloat64(metrics.DBConnectionsActive); got != 3 {
		t.Errorf("expected 3 active connections, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.DBConnectionsIdle); got != 7 {
		t.Errorf("expected 7 idle connections, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.DBConnectionsWaitDuration); got != 1.5 {
		t.Errorf("expected 1.5s wait duration, got %v", got)
	}
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	handler := HTTPMetricsMiddleware(metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("nope"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/photos/search", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	got := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "/photos/search", "404"))
	if got != 1 {
		t.Errorf("expected 1 request counted, got %v", got)
	}
}

func TestHTTPMetricsMiddleware_DefaultStatus(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	// handler that never calls WriteHeader counts as 200
	handler := HTTPMetricsMiddleware(metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/reference/tags", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	got := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "/reference/tags", "200"))
	if got != 1 {
		t.Errorf("expected implicit 200 counted, got %v", got)
	}
}

func TestRegisterMetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	metrics.SearchesTotal.WithLabelValues("ok").Inc()

	mux := http.NewServeMux()
	RegisterMetricsEndpoint(mux, registry)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "photark_searches_total") {
		t.Error("expected photark_searches_total in metrics output")
	}
}
