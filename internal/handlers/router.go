package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"dreamlog-backend/internal/middleware"
	"dreamlog-backend/internal/observability"
	"dreamlog-backend/pkg/api"
)

// RouterConfig holds the HTTP knobs that are not handler dependencies.
type RouterConfig struct {
	ServiceName    string
	RequestTimeout time.Duration
}

// NewRouter creates the HTTP router with all routes and middleware. collector may be nil, in
// which case /metrics is not mounted.
func NewRouter(h *PatternHandler, collector *observability.Collector, cfg RouterConfig, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(observability.HTTPMiddleware(cfg.ServiceName, collector))
	r.Use(middleware.Recovery(logger))
	if cfg.RequestTimeout > 0 {
		r.Use(chimw.Timeout(cfg.RequestTimeout))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok", "service": cfg.ServiceName})
	})
	r.Get("/swagger", api.SwaggerHandler())
	if collector != nil {
		r.Handle("/metrics", collector.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Identity)

		r.Post("/dreams/{dreamID}/analyze", h.AnalyzeDream)

		r.Route("/patterns", func(r chi.Router) {
			r.Get("/nightmares", h.GetNightmares)
			r.Get("/cycles", h.GetCycles)
			r.Get("/themes", h.GetThemes)
			r.Get("/insight", h.GetInsight)
			r.Get("/settings", h.GetSettings)
			r.Put("/settings", h.PutSettings)
		})
	})

	return r
}
