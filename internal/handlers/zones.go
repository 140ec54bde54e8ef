package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"zonemonitor/internal/config"
)

// ZonesHandler serves the current zone snapshot and accepts a
// replacement zone set.
func ZonesHandler(api *API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, api.Evaluator.Snapshot())

		case http.MethodPost:
			var zones []config.ZoneConfig
			if err := json.NewDecoder(r.Body).Decode(&zones); err != nil {
				writeError(w, http.StatusBadRequest, "invalid zones: "+err.Error())
				return
			}

			for i := range zones {
				if zones[i].ID == "" {
					zones[i].ID = uuid.NewString()
				}
			}

			if err := api.Store.SetZones(zones); err != nil {
				api.Logger.Error("Failed to save zones: %v", err)
				writeError(w, http.StatusInternalServerError, "failed to save zones")
				return
			}

			api.Evaluator.Reconcile(zones, api.Registry.IDs())
			writeSuccess(w)

		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	}
}
