package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/natefry/muse-api/internal/api"
	apiMiddleware "github.com/natefry/muse-api/internal/api/middleware"
)

// setupRouter configures the application router with all routes and
// middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)
	taskHandler := api.NewTaskHandler(app.dispatcher)
	toolHandler := api.NewToolHandler(app.toolRegistry)
	quotaHandler := api.NewQuotaHandler(app.ledger)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Post("/tasks", taskHandler.CreateTask)
			r.Get("/tasks", taskHandler.ListTasks)
			r.Get("/tasks/{taskId}", taskHandler.GetTask)
			r.Post("/tasks/{taskId}/cancel", taskHandler.CancelTask)

			r.Get("/tools", toolHandler.ListTools)
			r.Get("/quota", quotaHandler.GetQuota)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
