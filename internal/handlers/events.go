package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"todolist/internal/models"
)

const eventsWriteTimeout = 10 * time.Second

// Snapshot is the message pushed to event stream clients.
type Snapshot struct {
	Items []models.Item `json:"items"`
}

// Events upgrades to a WebSocket and pushes the item list on connect and
// after every change. Slow clients only ever receive the latest list.
func (h *Handlers) Events(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	updates := make(chan []models.Item, 1)
	cancel := h.list.Watch(func(items []models.Item) {
		select {
		case <-updates:
		default:
		}
		updates <- items
	})
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case items := <-updates:
			conn.SetWriteDeadline(time.Now().Add(eventsWriteTimeout))
			if err := conn.WriteJSON(Snapshot{Items: items}); err != nil {
				h.logger.Debug("event stream closed", zap.Error(err))
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
