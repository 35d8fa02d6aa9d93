package diag

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"courier-driver-agent/internal/logx"
)

// NewRouter constructs the diagnostics http.Handler: health, status,
// metrics and loopback-guarded pprof.
func NewRouter(h *Handlers, logger logx.Logger, reg *prometheus.Registry, pprofCfg PprofConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(5 * time.Second))
		r.Use(Observability(logger, reg))

		r.Get("/healthz", h.Healthz)
		r.Get("/status", h.Status)
		r.Get("/orders/available", h.AvailableOrders)
		r.Get("/orders/history", h.OrderHistory)
		if reg != nil {
			r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		}
	})

	// CPU profiles run longer than the request timeout, so pprof stays
	// outside the timed group.
	r.Mount("/debug/pprof", pprofHandler(pprofCfg))

	r.NotFound(http.HandlerFunc(h.NotFound))

	return r
}
