package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"todolist/internal/models"
	"todolist/internal/todo"
)

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	list     todo.List
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// New creates a new Handlers instance.
func New(list todo.List, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		list:   list,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// EditState describes the item currently in edit mode.
type EditState struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// ListState is the body returned by every list endpoint.
type ListState struct {
	Items   []models.Item `json:"items"`
	Editing *EditState    `json:"editing"`
}

func (h *Handlers) state() ListState {
	state := ListState{Items: h.list.Items()}
	if id, text, ok := h.list.Editing(); ok {
		state.Editing = &EditState{ID: id, Text: text}
	}
	return state
}

// parseID extracts the item ID from URL parameters.
func parseID(r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	return id, id != ""
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, code int, message string) {
	w.WriteHeader(code)
	w.Write([]byte(message))
}

func (h *Handlers) renderJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("failed to write response", zap.Error(err))
	}
}
