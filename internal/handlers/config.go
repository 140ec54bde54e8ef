package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"zonemonitor/internal/config"
)

// ConfigHandler serves the whole configuration document and accepts
// replacements, applying them live to the running components.
func ConfigHandler(api *API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, api.Store.Document())

		case http.MethodPost:
			var doc config.Document
			if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
				writeError(w, http.StatusBadRequest, "invalid configuration: "+err.Error())
				return
			}

			fillIDs(doc.Cameras, doc.Zones)

			if err := api.Store.Replace(doc); err != nil {
				api.Logger.Error("Failed to save configuration: %v", err)
				writeError(w, http.StatusInternalServerError, "failed to save configuration")
				return
			}

			api.Registry.Reconcile(doc.Cameras)
			api.Evaluator.Reconcile(doc.Zones, api.Registry.IDs())
			api.Relay.Reconfigure(doc.GPIO)

			api.Logger.Info("Configuration updated: %d cameras, %d zones", len(doc.Cameras), len(doc.Zones))
			writeSuccess(w)

		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	}
}

// fillIDs assigns ids to entries created without one.
func fillIDs(cameras []config.CameraConfig, zones []config.ZoneConfig) {
	for i := range cameras {
		if cameras[i].ID == "" {
			cameras[i].ID = uuid.NewString()
		}
	}
	for i := range zones {
		if zones[i].ID == "" {
			zones[i].ID = uuid.NewString()
		}
	}
}
