package handlers

import (
	"net/http"

	"github.com/nur1kesh/ai-model-marketplace/internal/api/httpx"
	"github.com/nur1kesh/ai-model-marketplace/internal/events"
)

// EventsHandler serves the recent-events feed that dashboards poll
// instead of the ledgers pushing updates.
type EventsHandler struct {
	Feed *events.Feed
}

func NewEventsHandler(f *events.Feed) *EventsHandler {
	return &EventsHandler{Feed: f}
}

func (h *EventsHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit, _ := paging(r, 100)
	httpx.WriteJSON(w, http.StatusOK, h.Feed.Recent(limit))
}
