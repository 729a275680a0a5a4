package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"viewtrace-backend/internal/handlers"
	"viewtrace-backend/internal/middleware"
	"viewtrace-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	ingestHandler *handlers.IngestHandler,
	analyticsHandler *handlers.AnalyticsHandler,
	wsHub *websocket.Hub,
	metricsHandler http.Handler,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Ingestion rate limiter (120 req/min per IP: enough for many embedded
	// players at the 15s flush cadence, tight enough to stop floods)
	ingestLimiter := middleware.NewRateLimiter(120, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Ingestion Routes (anonymous viewing allowed) ────
		r.Route("/analytics", func(r chi.Router) {
			r.Use(ingestLimiter.Middleware)
			r.Use(jwtAuth.OptionalAuth)
			r.Get("/config", ingestHandler.PlayerConfig)
			r.Post("/video-view", ingestHandler.VideoView)
			r.Post("/video-progress", ingestHandler.VideoProgress)
			r.Post("/video-complete", ingestHandler.VideoComplete)

			// Resume needs a known viewer
			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Get("/videos/{videoID}/resume", analyticsHandler.Resume)
			})
		})

		// ──── Admin Dashboard Routes ────
		r.Route("/admin/analytics", func(r chi.Router) {
			r.Use(jwtAuth.AdminOnly)
			r.Get("/dashboard", analyticsHandler.DashboardStats)
			r.Get("/videos/popular", analyticsHandler.PopularVideos)
			r.Get("/videos/{videoID}", analyticsHandler.VideoSummary)
			r.Get("/videos/{videoID}/heatmap", analyticsHandler.Heatmap)
			r.Post("/refresh", analyticsHandler.TriggerRefresh)
		})

		// ──── Dashboard WebSocket ────
		r.Get("/admin/ws", wsHub.HandleWebSocket)
	})

	return r
}
