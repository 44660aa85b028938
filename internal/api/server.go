package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/terra-clan/contest-engine/internal/chat"
	"github.com/terra-clan/contest-engine/internal/config"
	"github.com/terra-clan/contest-engine/internal/contest"
	"github.com/terra-clan/contest-engine/internal/health"
	"github.com/terra-clan/contest-engine/internal/metrics"
	"github.com/terra-clan/contest-engine/internal/models"
)

// Server represents the HTTP API server
type Server struct {
	config         config.ServerConfig
	router         *chi.Mux
	manager        contest.Manager
	hub            *chat.Hub
	health         *health.Registry
	metrics        *metrics.Metrics
	authMiddleware *AuthMiddleware
}

// NewServer creates a new API server. m may be nil, in which case /metrics
// is not mounted.
func NewServer(
	cfg config.ServerConfig,
	manager contest.Manager,
	hub *chat.Hub,
	registry *health.Registry,
	m *metrics.Metrics,
) *Server {
	if registry == nil {
		registry = health.NewRegistry()
	}

	s := &Server{
		config:         cfg,
		manager:        manager,
		hub:            hub,
		health:         registry,
		metrics:        m,
		authMiddleware: NewAuthMiddleware(manager),
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	origins := s.config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public operational endpoints
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	auth := s.authMiddleware
	participant := auth.RequireRole(models.RoleParticipant)
	evaluator := auth.RequireRole(models.RoleEvaluator)
	admin := auth.RequireRole(models.RoleAdmin)
	staff := auth.RequireRole(models.RoleAdmin, models.RoleEvaluator)

	r.Route("/api/v1", func(r chi.Router) {
		// The websocket outlives any request timeout
		r.With(auth.Authenticate).Get("/chat/ws", s.handleChatSocket)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			// Public
			r.Post("/auth/register", s.handleRegister)
			r.Post("/auth/login", s.handleLogin)
			r.Get("/leaderboard", s.handleLeaderboard)

			// Authenticated
			r.Group(func(r chi.Router) {
				r.Use(auth.Authenticate)

				r.Get("/auth/me", s.handleMe)

				r.Route("/submissions", func(r chi.Router) {
					r.With(staff).Get("/", s.handleListSubmissions)
					r.With(participant).Post("/", s.handleSubmit)
					r.With(participant).Get("/my-team", s.handleTeamSubmission)
					r.With(evaluator).Get("/my-assignments", s.handleMyAssignments)
					r.Get("/{id}", s.handleGetSubmission)
				})

				r.Route("/evaluations", func(r chi.Router) {
					r.With(evaluator).Post("/", s.handleRecordEvaluation)
					r.Get("/submission/{id}", s.handleListEvaluations)
				})

				r.With(participant).Post("/teams/members", s.handleAddTeamMember)

				r.Route("/admin", func(r chi.Router) {
					r.Use(admin)
					r.Get("/evaluators", s.handleListEvaluators)
					r.Post("/evaluators/{id}/approve", s.handleApproveEvaluator)
					r.Get("/stats", s.handleStats)
				})

				r.Get("/chat/messages", s.handleChatHistory)
			})
		})
	})

	s.router = r
}
