package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/kasirpos/kasirpos/internal/catalog/categories"
	"github.com/kasirpos/kasirpos/internal/catalog/products"
	"github.com/kasirpos/kasirpos/internal/catalog/units"
	"github.com/kasirpos/kasirpos/internal/observability"
	"github.com/kasirpos/kasirpos/internal/stock"
	"github.com/kasirpos/kasirpos/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	ProductHandler  *products.Handler
	CategoryHandler *categories.Handler
	UnitHandler     *units.Handler
	StockHandler    *stock.Handler
	JobHandler      *jobs.Handler
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.ProductHandler != nil {
		r.Route("/products", func(r chi.Router) {
			params.ProductHandler.MountRoutes(r)
			if params.UnitHandler != nil {
				r.Route("/{productID}/units", params.UnitHandler.MountRoutes)
			}
		})
	}
	if params.CategoryHandler != nil {
		r.Route("/categories", func(r chi.Router) {
			params.CategoryHandler.MountRoutes(r)
		})
	}
	if params.StockHandler != nil {
		r.Route("/stock", func(r chi.Router) {
			params.StockHandler.MountRoutes(r)
		})
	}
	if params.JobHandler != nil {
		r.Route("/jobs", func(r chi.Router) {
			params.JobHandler.MountRoutes(r)
		})
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
