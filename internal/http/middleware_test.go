package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/gofanout/track/internal/metrics"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORS(t *testing.T) {
	t.Run("sets permissive headers", func(t *testing.T) {
		rec := httptest.NewRecorder()
		cors(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
			t.Error("missing CORS origin header")
		}
	})

	t.Run("short-circuits preflight", func(t *testing.T) {
		rec := httptest.NewRecorder()
		cors(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/", nil))
		if rec.Code != http.StatusNoContent {
			t.Errorf("preflight = %d, want 204", rec.Code)
		}
	})
}

func TestRequestLogger(t *testing.T) {
	rec := httptest.NewRecorder()
	RequestLogger(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestMetricsMiddleware(t *testing.T) {
	t.Run("nil metrics passes through", func(t *testing.T) {
		rec := httptest.NewRecorder()
		MetricsMiddleware(nil)(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("records request count and status", func(t *testing.T) {
		m := metrics.NewMetrics(prometheus.NewRegistry())
		handler := MetricsMiddleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusAccepted)
		}))

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/collect", nil))
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/collect", nil))

		got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/collect", http.MethodPost, "202"))
		if got != 2 {
			t.Errorf("request counter = %v, want 2", got)
		}
	})

	t.Run("default status is 200", func(t *testing.T) {
		m := metrics.NewMetrics(prometheus.NewRegistry())
		handler := MetricsMiddleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("implicit 200"))
		}))
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/px.gif", nil))

		got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/px.gif", http.MethodGet, "200"))
		if got != 1 {
			t.Errorf("request counter = %v, want 1", got)
		}
	})
}
