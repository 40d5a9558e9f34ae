package main

import (
	"net/http"

	"github.com/meshfront/meshfront/internal/metrics"
	"github.com/meshfront/meshfront/internal/reconciler"
)

func setupRouter(engine *reconciler.Engine, metricsCollector *metrics.Collector, mode string) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if !engine.Bootstrapped() {
			http.Error(w, "bootstrapping", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/metrics", metricsCollector.Handler(mode))

	return mux
}
