package httpx

import (
	"net/http"

	"github.com/gofanout/track/internal/metrics"
)

// NewMux wires the collector routes with logging, metrics and CORS.
func NewMux(e Env) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", e.Healthz)
	mux.HandleFunc("/readyz", e.Readyz)
	mux.HandleFunc("/px.gif", e.Pixel)
	mux.HandleFunc("/collect", e.Collect)
	mux.HandleFunc("/hmac/public-key", e.HMACPublicKey)

	return RequestLogger(MetricsMiddleware(metrics.Get())(cors(mux)))
}
