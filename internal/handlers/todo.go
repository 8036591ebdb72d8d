package handlers

import (
	"net/http"

	"todolist/internal/models"
)

// ListTodos returns the current items and edit state.
func (h *Handlers) ListTodos(w http.ResponseWriter, r *http.Request) {
	h.renderJSON(w, http.StatusOK, h.state())
}

// CreateTodo adds a new item. The list may only show it once the store
// confirms the write, so the response is 202.
func (h *Handlers) CreateTodo(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	if !h.list.Add(r.FormValue("text")) {
		respondError(w, http.StatusBadRequest, models.ErrTextRequired.Error())
		return
	}

	h.renderJSON(w, http.StatusAccepted, h.state())
}

// DeleteTodo deletes an item.
func (h *Handlers) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	h.list.Delete(id)
	h.renderJSON(w, http.StatusAccepted, h.state())
}

// ToggleTodo toggles the completion status of an item.
func (h *Handlers) ToggleTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	h.list.ToggleComplete(id)
	h.renderJSON(w, http.StatusAccepted, h.state())
}

// StartEdit puts an item in edit mode with the submitted text in the buffer.
func (h *Handlers) StartEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	h.list.StartEdit(id, r.FormValue("text"))
	h.renderJSON(w, http.StatusOK, h.state())
}

// SaveEdit writes the edit buffer into the item being edited.
func (h *Handlers) SaveEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	if editing, _, active := h.list.Editing(); !active || editing != id {
		respondError(w, http.StatusConflict, "item is not being edited")
		return
	}

	if !h.list.SaveEdit(id) {
		respondError(w, http.StatusBadRequest, models.ErrTextRequired.Error())
		return
	}

	h.renderJSON(w, http.StatusAccepted, h.state())
}

// CancelEdit leaves edit mode without saving.
func (h *Handlers) CancelEdit(w http.ResponseWriter, r *http.Request) {
	h.list.CancelEdit()
	w.WriteHeader(http.StatusNoContent)
}

// Editing returns the current edit state, or 404 when nothing is being edited.
func (h *Handlers) Editing(w http.ResponseWriter, r *http.Request) {
	id, text, ok := h.list.Editing()
	if !ok {
		respondError(w, http.StatusNotFound, "no item is being edited")
		return
	}
	h.renderJSON(w, http.StatusOK, EditState{ID: id, Text: text})
}
