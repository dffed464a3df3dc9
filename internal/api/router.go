package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/intervox-ai/intervox/internal/database"
	"github.com/intervox-ai/intervox/internal/events"
	mw "github.com/intervox-ai/intervox/internal/middleware"
)

// HandlerSet holds handler functions injected from main.go to avoid import cycles.
type HandlerSet struct {
	// Interview flow (candidate)
	StartInterview http.HandlerFunc
	NextQuestion   http.HandlerFunc
	AnswerAudio    http.HandlerFunc
	Usage          http.HandlerFunc
	ProctorLog     http.HandlerFunc

	// Admin auth
	RequestCode http.HandlerFunc
	VerifyCode  http.HandlerFunc
	VerifyKey   http.HandlerFunc

	// Admin resources
	ListQuestions   http.HandlerFunc
	CreateQuestion  http.HandlerFunc
	UpdateQuestion  http.HandlerFunc
	DeleteQuestion  http.HandlerFunc
	ListProctorLog  http.HandlerFunc
	ListAuditTrail  http.HandlerFunc
	AdminMiddleware func(http.Handler) http.Handler
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	CORSAllowedOrigins []string
	RateLimiter        func(http.Handler) http.Handler
}

func NewRouter(pool *pgxpool.Pool, eventsClient *events.Client, cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(mw.CORS(cfg.CORSAllowedOrigins)))

	// Liveness probe — always 200, no dependency checks
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	// Readiness probe — checks DB and the event broker
	readinessHandler := func(w http.ResponseWriter, r *http.Request) {
		health := map[string]string{
			"status":   "healthy",
			"database": "healthy",
			"nats":     "healthy",
		}

		status := http.StatusOK

		if err := database.HealthCheck(r.Context(), pool); err != nil {
			health["database"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}

		if eventsClient != nil && !eventsClient.Healthy() {
			health["nats"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		} else if eventsClient == nil {
			health["nats"] = "not configured"
		}

		JSON(w, status, health)
	}

	r.Get("/health/ready", readinessHandler)
	r.Get("/health", readinessHandler)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Candidate routes — rate-gated
		r.Route("/interview", func(r chi.Router) {
			if cfg.RateLimiter != nil {
				r.Use(cfg.RateLimiter)
			}
			r.Post("/start", h.StartInterview)
			r.Post("/next", h.NextQuestion)
			r.Post("/answer", h.AnswerAudio)
			r.Get("/usage", h.Usage)
			r.Post("/proctor-log", h.ProctorLog)
		})

		// Admin login (public)
		r.Route("/admin/auth", func(r chi.Router) {
			if cfg.RateLimiter != nil {
				r.Use(cfg.RateLimiter)
			}
			r.Post("/request-code", h.RequestCode)
			r.Post("/verify", h.VerifyCode)
			r.Post("/key", h.VerifyKey)
		})

		// Admin resources (token-protected)
		r.Group(func(r chi.Router) {
			r.Use(h.AdminMiddleware)

			r.Route("/admin/questions", func(r chi.Router) {
				r.Get("/", h.ListQuestions)
				r.Post("/", h.CreateQuestion)
				r.Put("/{questionID}", h.UpdateQuestion)
				r.Delete("/{questionID}", h.DeleteQuestion)
			})

			r.Get("/admin/proctor/{sessionID}", h.ListProctorLog)
			r.Get("/admin/audit/{userID}", h.ListAuditTrail)
		})
	})

	return r
}
