package metrics

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/korefinance/kore/internal/pkg/env"
)

// StartServer exposes the Prometheus registry at /metrics on
// METRICS_PORT in a background goroutine. The returned server lets the
// caller shut it down with the rest of the process.
func StartServer() *http.Server {
	port := env.GetEnv("METRICS_PORT", "9091")

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("metrics: serving on :%s/metrics", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics: server error: %v", err)
		}
	}()

	return srv
}
