package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/wordmon-api/internal/api"
	apiMiddleware "github.com/phrazzld/wordmon-api/internal/api/middleware"
)

// setupRouter mounts every route behind the shared middleware stack.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.Trace(app.logger))
	r.Use(middleware.Recoverer)

	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)
	entryHandler := api.NewEntryHandler(app.dexService, app.reviewService, app.logger)
	evolutionHandler := api.NewEvolutionHandler(app.evolutionService, app.logger)
	arenaHandler := api.NewArenaHandler(app.arenaService, app.logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Post("/entries", entryHandler.Capture)
		r.Get("/entries", entryHandler.List)
		r.Route("/entries/{id}", func(r chi.Router) {
			r.Get("/", entryHandler.Get)
			r.Delete("/", entryHandler.Delete)
			r.Post("/review", entryHandler.Review)

			r.Post("/evolve", evolutionHandler.Evolve)
			r.Get("/branches", evolutionHandler.BranchOptions)
			r.Post("/branch", evolutionHandler.ChooseBranch)
			r.Get("/fusion", evolutionHandler.FusionCandidates)
			r.Post("/fuse", evolutionHandler.Fuse)
			r.Get("/hidden-move", evolutionHandler.HiddenMove)
		})
		r.Get("/quiz/due", entryHandler.DueQueue)

		r.Get("/profile", arenaHandler.Profile)
		r.Put("/profile/team", arenaHandler.SetTeam)
		r.Post("/battles", arenaHandler.Battle)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
