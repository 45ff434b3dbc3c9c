package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"milestones-backend/application/ports"
	"milestones-backend/infrastructure/config"
	"milestones-backend/interfaces/http/rest/handlers"
	"milestones-backend/interfaces/http/rest/middleware"
	"milestones-backend/pkg/auth"
)

// NewRouter assembles the HTTP routing tree. The health endpoint is open;
// everything under /api requires a valid bearer token.
func NewRouter(
	cfg *config.Config,
	goals ports.GoalRepository,
	milestones ports.MilestoneRepository,
	validator *auth.TokenValidator,
	logger *zap.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Logger(logger))

	if cfg.EnableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	goalHandler := handlers.NewGoalHandler(goals, milestones, logger)
	milestoneHandler := handlers.NewMilestoneHandler(goals, milestones, logger)

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.Authenticate(validator, logger))

		api.Route("/goals", func(g chi.Router) {
			g.Get("/", goalHandler.ListGoals)
			g.Post("/", goalHandler.CreateGoal)

			g.Route("/{goalID}", func(gg chi.Router) {
				gg.Get("/", goalHandler.GetGoal)
				gg.Put("/", goalHandler.UpdateGoal)
				gg.Delete("/", goalHandler.DeleteGoal)

				gg.Route("/milestones", func(m chi.Router) {
					m.Get("/", milestoneHandler.ListMilestones)
					m.Post("/", milestoneHandler.CreateMilestone)
					m.Post("/reorder", milestoneHandler.ReorderMilestones)

					m.Get("/{milestoneID}", milestoneHandler.GetMilestone)
					m.Put("/{milestoneID}", milestoneHandler.UpdateMilestone)
					m.Delete("/{milestoneID}", milestoneHandler.DeleteMilestone)
				})
			})
		})
	})

	return r
}
