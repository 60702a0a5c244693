// Package handler exposes the narration services over HTTP.
package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"match-narrator/internal/config"
	"match-narrator/internal/service"
)

// Services bundles everything the HTTP layer calls into.
type Services struct {
	Auth    *service.AuthService
	Audit   *service.AuditService
	Catalog *service.CatalogService
	Matches *service.MatchService
	Roster  *service.RosterService
	Events  *service.EventService
	Import  *service.ImportService
	Export  *service.ExportService
}

// HealthFunc reports whether the backing store is reachable.
type HealthFunc func(ctx context.Context) error

// Server routes HTTP requests to the services.
type Server struct {
	router  *chi.Mux
	svc     Services
	health  HealthFunc
	metrics *metrics
}

// NewServer creates a new HTTP server. health may be nil.
func NewServer(svc Services, cfg config.ServerConfig, health HealthFunc) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		svc:     svc,
		health:  health,
		metrics: newMetrics(),
	}
	s.setupRoutes(cfg)
	return s
}

// Register adds collectors to the registry served on /metrics.
func (s *Server) Register(cs ...prometheus.Collector) error {
	for _, c := range cs {
		if err := s.metrics.registry.Register(c); err != nil {
			return fmt.Errorf("failed to register collector: %w", err)
		}
	}
	return nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes(cfg config.ServerConfig) {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog)
	r.Use(s.metrics.middleware)
	r.Use(middleware.Recoverer)
	if cfg.RateLimitRPS > 0 {
		burst := cfg.RateLimitBurst
		if burst <= 0 {
			burst = int(cfg.RateLimitRPS) + 1
		}
		r.Use(RateLimitMiddleware(NewIPRateLimiter(rate.Limit(cfg.RateLimitRPS), burst)))
	}

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)
			admin := r.With(requireAdmin)

			r.Get("/auth/me", s.handleMe)
			r.Get("/event-types", s.handleEventTypes)

			admin.Get("/users", s.handleListUsers)
			admin.Post("/users", s.handleCreateUser)
			admin.Get("/audit", s.handleListAudit)

			r.Route("/competitions", func(r chi.Router) {
				r.Get("/", s.handleListCompetitions)
				r.With(requireAdmin).Post("/", s.handleCreateCompetition)
				r.Route("/{competitionID}", func(r chi.Router) {
					r.Get("/", s.handleGetCompetition)
					r.With(requireAdmin).Put("/", s.handleUpdateCompetition)
					r.With(requireAdmin).Delete("/", s.handleDeleteCompetition)
					r.Get("/seasons", s.handleListSeasons)
					r.With(requireAdmin).Post("/seasons", s.handleCreateSeason)
				})
			})

			r.Route("/seasons/{seasonID}", func(r chi.Router) {
				r.Get("/", s.handleGetSeason)
				r.With(requireAdmin).Put("/", s.handleUpdateSeason)
				r.With(requireAdmin).Delete("/", s.handleDeleteSeason)
				r.Get("/teams", s.handleListSeasonTeams)
				r.With(requireAdmin).Put("/teams/{teamID}", s.handleAddSeasonTeam)
				r.With(requireAdmin).Delete("/teams/{teamID}", s.handleRemoveSeasonTeam)
			})

			r.Route("/teams", func(r chi.Router) {
				r.Get("/", s.handleListTeams)
				r.With(requireAdmin).Post("/", s.handleCreateTeam)
				r.Route("/{teamID}", func(r chi.Router) {
					r.Get("/", s.handleGetTeam)
					r.With(requireAdmin).Put("/", s.handleUpdateTeam)
					r.With(requireAdmin).Delete("/", s.handleDeleteTeam)
					r.Get("/players", s.handleListPlayers)
				})
			})

			r.Route("/players", func(r chi.Router) {
				r.With(requireAdmin).Post("/", s.handleCreatePlayer)
				r.Route("/{playerID}", func(r chi.Router) {
					r.Get("/", s.handleGetPlayer)
					r.With(requireAdmin).Put("/", s.handleUpdatePlayer)
					r.With(requireAdmin).Delete("/", s.handleDeletePlayer)
				})
			})

			r.Route("/matches", func(r chi.Router) {
				r.Get("/", s.handleListMatches)
				r.With(requireAdmin).Post("/", s.handleCreateMatch)
				r.Route("/{matchID}", func(r chi.Router) {
					r.Get("/", s.handleGetMatch)
					r.With(requireAdmin).Put("/", s.handleUpdateMatch)
					r.With(requireAdmin).Delete("/", s.handleDeleteMatch)
					r.With(requireAdmin).Put("/narrator", s.handleAssignNarrator)

					r.Get("/clock", s.handleGetClock)
					r.Post("/clock/{action}", s.handleClockAction)
					r.Get("/periods", s.handleListPeriods)

					r.Get("/roster", s.handleGetRoster)
					r.Put("/roster/{teamID}", s.handleSetRoster)
					r.Patch("/roster/players/{playerID}/position", s.handleUpdatePosition)
					r.Get("/lineup", s.handleLineup)

					r.Get("/events", s.handleListEvents)
					r.Post("/events", s.handleRecordEvent)
					r.Get("/events/{eventID}", s.handleGetEvent)
					r.Patch("/events/{eventID}", s.handleUpdateEvent)
					r.Delete("/events/{eventID}", s.handleDeleteEvent)
					r.Post("/events/{eventID}/restore", s.handleRestoreEvent)

					r.Get("/report", s.handleReport)
					r.Get("/report.xlsx", s.handleReportXLSX)
				})
			})

			r.Route("/imports", func(r chi.Router) {
				r.Use(requireAdmin)
				r.Get("/", s.handleListImports)
				r.Post("/bundle", s.handleImportBundle)
				r.Post("/api", s.handleImportAPI)
				r.Get("/{importID}", s.handleGetImport)
			})
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
