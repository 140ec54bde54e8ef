package handlers

import (
	"net/http"
	"strconv"
	"time"

	"zonemonitor/internal/database"
)

// EventsHandler queries the persisted transition log. Supported query
// parameters: kind, subject, since (RFC 3339), limit.
func EventsHandler(api *API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		filter := &database.EventFilter{
			Kind:    r.URL.Query().Get("kind"),
			Subject: r.URL.Query().Get("subject"),
		}

		if since := r.URL.Query().Get("since"); since != "" {
			t, err := time.Parse(time.RFC3339, since)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid since timestamp")
				return
			}
			filter.Since = t
		}

		if limit := r.URL.Query().Get("limit"); limit != "" {
			n, err := strconv.Atoi(limit)
			if err != nil || n <= 0 {
				writeError(w, http.StatusBadRequest, "invalid limit")
				return
			}
			filter.Limit = n
		}

		events, err := api.Events.Events(filter)
		if err != nil {
			api.Logger.Error("Failed to query events: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to query events")
			return
		}

		if events == nil {
			events = []database.Event{}
		}
		writeJSON(w, http.StatusOK, events)
	}
}
