package metrics

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments for the tracking pipeline.
type Metrics struct {
	// DispatchTotal counts descriptors handed to each provider, by kind
	// (view, event, purchase, user_property).
	DispatchTotal *prometheus.CounterVec

	// ProviderErrors counts failures a provider swallowed internally.
	ProviderErrors *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// Config holds configuration for the metrics server.
type Config struct {
	Enabled    bool
	Addr       string
	TLSCert    string
	TLSKey     string
	ClientCA   string
	RequireTLS bool
}

// LoadConfig loads metrics configuration from environment variables.
func LoadConfig() Config {
	return Config{
		Enabled:    getBool("METRICS_ENABLED", false),
		Addr:       getOr("METRICS_ADDR", "127.0.0.1:9090"),
		TLSCert:    getOr("METRICS_TLS_CERT", ""),
		TLSKey:     getOr("METRICS_TLS_KEY", ""),
		ClientCA:   getOr("METRICS_CLIENT_CA", ""),
		RequireTLS: getBool("METRICS_REQUIRE_TLS", false),
	}
}

// NewMetrics creates the instruments and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DispatchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "track_dispatch_total",
				Help: "Descriptors dispatched, by provider and kind",
			},
			[]string{"provider", "kind"},
		),

		ProviderErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "track_provider_errors_total",
				Help: "Failures handled inside a provider",
			},
			[]string{"provider", "error_type"},
		),

		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "track_http_requests_total",
				Help: "HTTP requests by endpoint and status",
			},
			[]string{"endpoint", "method", "status"},
		),

		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "track_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"endpoint", "method"},
		),
	}

	reg.MustRegister(m.DispatchTotal, m.ProviderErrors, m.HTTPRequests, m.HTTPDuration)
	return m
}

var (
	initOnce sync.Once
	current  *Metrics
)

// Init registers the instruments with the default registry, once.
func Init() *Metrics {
	initOnce.Do(func() {
		current = NewMetrics(prometheus.DefaultRegisterer)
	})
	return current
}

// Get returns the initialized instruments, or nil before Init.
func Get() *Metrics { return current }

// IncDispatch records one dispatch to a provider. Safe before Init.
func IncDispatch(provider, kind string) {
	if current != nil {
		current.DispatchTotal.WithLabelValues(provider, kind).Inc()
	}
}

// IncProviderError records one swallowed provider failure. Safe before Init.
func IncProviderError(provider, errorType string) {
	if current != nil {
		current.ProviderErrors.WithLabelValues(provider, errorType).Inc()
	}
}

// Server serves /metrics on its own listener, separate from the collector.
type Server struct {
	server *http.Server
	config Config
}

// NewServer creates a new metrics server.
func NewServer(config Config) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	srv := &http.Server{
		Addr:         config.Addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if config.RequireTLS && config.TLSCert != "" && config.TLSKey != "" {
		tlsConfig := &tls.Config{
			MinVersion: tls.VersionTLS12,
		}

		if config.ClientCA != "" {
			clientCAs, err := loadCertPool(config.ClientCA)
			if err != nil {
				log.Printf("metrics: failed to load client CA: %v", err)
			} else {
				tlsConfig.ClientCAs = clientCAs
				tlsConfig.ClientAuth = tls.RequireAndVerifyClientCert
			}
		}

		srv.TLSConfig = tlsConfig
	}

	return &Server{server: srv, config: config}
}

// Start starts the metrics server in a separate goroutine. A disabled
// server starts nothing and returns nil.
func (s *Server) Start(ctx context.Context) error {
	if !s.config.Enabled {
		log.Printf("metrics: disabled (METRICS_ENABLED=false)")
		return nil
	}

	go func() {
		var err error
		if s.config.RequireTLS && s.config.TLSCert != "" && s.config.TLSKey != "" {
			log.Printf("metrics: HTTPS server listening on %s", s.config.Addr)
			err = s.server.ListenAndServeTLS(s.config.TLSCert, s.config.TLSKey)
		} else {
			log.Printf("metrics: HTTP server listening on %s", s.config.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Printf("metrics: server error: %v", err)
		}
	}()

	return nil
}

// Shutdown gracefully stops the metrics server.
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.config.Enabled {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func loadCertPool(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read CA file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in %s", path)
	}
	return pool, nil
}

func getOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getBool(k string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(k)))
	switch v {
	case "1", "t", "true", "y", "yes":
		return true
	case "0", "f", "false", "n", "no":
		return false
	}
	return def
}
