/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address from proxy headers, used by the rate limiter
  3. Logger:     Request logging
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests for the dashboard
  6. RateLimit:  Per-IP token bucket on /api (429 when exceeded)

ROUTE GROUPS:
  /api/compliance/*     Worklist and summary
  /api/equipment/*      Equipment, nested tests and schedules
  /api/tests/*          Test edits and deletion
  /api/schedules/*      Schedule updates
  /api/audit            Audit log
  /api/scenarios/*      Demo data sets
  /healthz              Liveness

SECURITY NOTE:
  No authentication middleware. The actor header is trusted as given.

SEE ALSO:
  - handlers.go: Handler implementations
  - ratelimit.go: Per-IP limiter
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// RouterOptions configures cross-cutting middleware.
type RouterOptions struct {
	CORSOrigins     []string
	RateLimitPerSec float64 // <= 0 disables rate limiting
	RateLimitBurst  int
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(corsOptions(opts.CORSOrigins)))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		if opts.RateLimitPerSec > 0 {
			burst := opts.RateLimitBurst
			if burst <= 0 {
				burst = 1
			}
			r.Use(RateLimit(NewIPRateLimiter(rate.Limit(opts.RateLimitPerSec), burst)))
		}

		r.Route("/compliance", func(r chi.Router) {
			r.Get("/worklist", h.GetWorklist)
			r.Get("/summary", h.GetSummary)
		})

		r.Route("/equipment", func(r chi.Router) {
			r.Get("/", h.ListEquipment)
			r.Post("/", h.CreateEquipment)
			r.Get("/{id}", h.GetEquipment)
			r.Delete("/{id}", h.DeleteEquipment)
			r.Post("/{id}/tests", h.RecordTest)
			r.Post("/{id}/schedules", h.CreateSchedule)
		})

		r.Route("/tests", func(r chi.Router) {
			r.Put("/{id}", h.UpdateTest)
			r.Delete("/{id}", h.DeleteTest)
		})

		r.Route("/schedules", func(r chi.Router) {
			r.Put("/{id}", h.UpdateSchedule)
			r.Delete("/{id}", h.DeleteSchedule)
		})

		r.Get("/audit", h.ListAudit)

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}

// corsOptions allows credentials only for an explicit origin list; browsers
// reject credentialed responses to a wildcard origin.
func corsOptions(origins []string) cors.Options {
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", ActorHeader},
		AllowCredentials: !slices.Contains(origins, "*"),
	}
}
