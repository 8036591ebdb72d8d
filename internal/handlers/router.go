package handlers

import (
	"net/http"

	"github.com/felixge/httpsnoop"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// AccessLog logs every request with its status and duration.
func AccessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m := httpsnoop.CaptureMetrics(next, w, r)
			logger.Info("handled",
				zap.String("method", r.Method),
				zap.String("url", r.URL.String()),
				zap.Int("status", m.Code),
				zap.Duration("duration", m.Duration),
				zap.Int64("bytes", m.Written),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}

// NewRouter wires every route onto a chi router.
func NewRouter(h *Handlers) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(AccessLog(h.logger))
	r.Use(middleware.Recoverer)

	// Live updates stay outside the compressed group.
	r.Get("/api/todos/events", h.Events)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Compress(5))

		r.Get("/api/todos", h.ListTodos)
		r.Post("/api/todos", h.CreateTodo)
		r.Delete("/api/todos/{id}", h.DeleteTodo)
		r.Post("/api/todos/{id}/toggle", h.ToggleTodo)

		// Edit mode
		r.Get("/api/todos/editing", h.Editing)
		r.Delete("/api/todos/editing", h.CancelEdit)
		r.Post("/api/todos/{id}/edit", h.StartEdit)
		r.Put("/api/todos/{id}", h.SaveEdit)
	})

	return r
}
