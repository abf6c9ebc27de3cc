package server

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sjawhar/fft-analyzer/internal/plan"
)

type StatusHooks struct {
	Plan     func() (plan.Summary, bool)
	Warnings func() []string

	// Gatherer backs /metrics. Nil means the default registry.
	Gatherer prometheus.Gatherer
}

func Handler(hub *Hub, store SessionStore, hooks StatusHooks) http.Handler {
	mux := http.NewServeMux()

	registerWSRoute(mux, hub)
	registerAPIRoutes(mux, store, hooks)

	gatherer := hooks.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return mux
}

func Serve(addr string, hub *Hub, store SessionStore, hooks StatusHooks) error {
	log.Printf("api at http://%s", addr)
	return http.ListenAndServe(addr, Handler(hub, store, hooks))
}
