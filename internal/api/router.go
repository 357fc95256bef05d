package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/xencrm/crm-server/internal/auth"
	"github.com/xencrm/crm-server/internal/pkg/httputil"
)

// Handlers bundles the per-resource handler groups.
type Handlers struct {
	Segments  *SegmentHandlers
	Campaigns *CampaignHandlers
	Dashboard *DashboardHandlers
}

// SetupRoutes configures all API routes.
func SetupRoutes(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", auth.IdentityHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (no identity required)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httputil.OK(w, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware)

		r.Route("/segments", func(r chi.Router) {
			r.Get("/", h.Segments.List)
			r.Post("/", h.Segments.Create)
			r.Post("/preview", h.Segments.Preview)
			r.Get("/sample", h.Segments.Sample)

			r.Route("/{segmentID}", func(r chi.Router) {
				r.Get("/", h.Segments.Get)
				r.Put("/", h.Segments.Update)
				r.Delete("/", h.Segments.Delete)
			})
		})

		r.Route("/campaigns", func(r chi.Router) {
			r.Get("/", h.Campaigns.List)
			r.Post("/", h.Campaigns.Launch)
			r.Get("/{campaignID}", h.Campaigns.Get)
		})

		r.Get("/campaignstats/{campaignID}", h.Campaigns.Stats)
		r.Get("/dashboard/customers", h.Dashboard.Customers)
	})

	return r
}
