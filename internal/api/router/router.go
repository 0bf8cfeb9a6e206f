package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/grievai-platform/internal/classification"
	"github.com/wolfman30/grievai-platform/internal/geocode"
	"github.com/wolfman30/grievai-platform/internal/grievances"
	httpmiddleware "github.com/wolfman30/grievai-platform/internal/http/middleware"
	"github.com/wolfman30/grievai-platform/internal/identity"
	"github.com/wolfman30/grievai-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger            *logging.Logger
	AnalyzeHandler    *classification.Handler
	GrievancesHandler *grievances.Handler
	LocationsHandler  *geocode.Handler
	MetricsHandler    http.Handler

	CORSAllowedOrigins []string

	// AuthRequired false serves /api as an anonymous citizen.
	AuthRequired  bool
	AuthJWTSecret string

	RateLimitRPS   float64
	RateLimitBurst int
	// Done stops the rate limiter's eviction loop.
	Done <-chan struct{}
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	r.Route("/api", func(api chi.Router) {
		if cfg.RateLimitRPS > 0 {
			api.Use(httpmiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, cfg.Done))
		}
		if cfg.AuthRequired {
			api.Use(httpmiddleware.RequireAuth(cfg.AuthJWTSecret))
		} else {
			api.Use(httpmiddleware.AllowAnonymous())
		}

		api.Route("/grievances", func(g chi.Router) {
			if cfg.AnalyzeHandler != nil {
				g.Post("/analyze", cfg.AnalyzeHandler.Analyze)
			}
			if cfg.GrievancesHandler != nil {
				g.Post("/", cfg.GrievancesHandler.Create)
				g.Get("/", cfg.GrievancesHandler.List)
				g.Route("/{trackingID}", func(one chi.Router) {
					one.Get("/", cfg.GrievancesHandler.Get)
					one.Get("/timeline", cfg.GrievancesHandler.Timeline)
					one.With(httpmiddleware.RequireRole(identity.RoleOfficer, identity.RoleAdmin)).
						Patch("/status", cfg.GrievancesHandler.UpdateStatus)
				})
			}
		})

		if cfg.LocationsHandler != nil {
			api.Route("/locations", func(loc chi.Router) {
				loc.Get("/autocomplete", cfg.LocationsHandler.Autocomplete)
				loc.Get("/reverse", cfg.LocationsHandler.Reverse)
				loc.Get("/search", cfg.LocationsHandler.Search)
				loc.Get("/static-map", cfg.LocationsHandler.StaticMap)
			})
		}
	})

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
