package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "tradecohort/internal/errors"
	"tradecohort/internal/middleware"
	transport "tradecohort/internal/transport/http"
	ws "tradecohort/internal/websocket"
)

// setupRouter configures the HTTP router with all routes and middleware
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	errorHandler := apierrors.NewErrorHandler(a.Logger, a.Config.Observability.Environment == "development")
	validator := middleware.NewValidator(a.Logger)

	factsHandler := transport.NewFactsHandler(a.FactService, validator, a.Logger, errorHandler)
	viewsHandler := transport.NewViewsHandler(a.FactService, validator, a.Logger, errorHandler)
	pipelineHandler := transport.NewPipelineHandler(a.FactService, a.Manager.GetBroadcaster(), a.Manager,
		a.Manager.GetRegistry(), validator, a.Logger, errorHandler)
	healthHandler := transport.NewHealthHandler(a.HealthService, a.Logger)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.StripSlashes)
	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	// WebSocket route with minimal middleware, the upgrade needs the raw writer
	r.Handle("/ws", ws.NewHandler(a.WebSocketHub, a.Config.Server.AllowedOrigins, a.Logger))

	if a.OTelProviders != nil && a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	r.Group(func(r chi.Router) {
		if a.OTelProviders != nil {
			r.Use(middleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics, a.Logger).Handler)
		}
		r.Use(middleware.StructuredLogger(a.Logger))
		r.Use(middleware.Recoverer(a.Logger))
		r.Use(middleware.SecurityHeaders)
		if len(a.Config.Server.AllowedOrigins) > 0 {
			r.Use(middleware.CORS(middleware.CORSConfig{
				AllowedOrigins: a.Config.Server.AllowedOrigins,
				AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
				AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
				ExposedHeaders: []string{"X-Request-ID", "Content-Disposition"},
				MaxAge:         300,
				Logger:         a.Logger,
			}))
		}
		if a.Config.Server.RateLimitRPS > 0 {
			r.Use(middleware.NewRateLimiter(a.Config.Server.RateLimitRPS, a.Config.Server.RateLimitBurst, a.Logger).Handler)
		}

		r.Get("/healthz", healthHandler.HealthCheck)

		r.Route("/api/v1", func(r chi.Router) {
			r.Use(render.SetContentType(render.ContentTypeJSON))
			r.Use(middleware.Compress(5))

			r.Get("/dimensions", factsHandler.GetDimensions)
			r.Mount("/facts", factsHandler.Routes())
			r.Mount("/views", viewsHandler.Routes())
			r.Mount("/pipeline", pipelineHandler.Routes())
			r.Get("/stats", healthHandler.Stats)
			r.Get("/version", healthHandler.Version)
		})
	})

	a.Router = r
}
