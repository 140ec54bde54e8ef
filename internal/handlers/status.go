package handlers

import (
	"net/http"

	"zonemonitor/internal/camera"
	"zonemonitor/internal/relay"
	"zonemonitor/internal/zone"
)

// StatusPayload is the snapshot pushed to websocket observers and
// served by GET /api/status.
type StatusPayload struct {
	Cameras []camera.Status `json:"cameras"`
	Zones   []zone.Status   `json:"zones"`
	Relay   relay.State     `json:"gpio"`
}

// BuildStatus assembles a status snapshot from the live components.
func BuildStatus(registry *camera.Registry, evaluator *zone.Evaluator, relayCtl *relay.Controller) StatusPayload {
	return StatusPayload{
		Cameras: registry.Status(),
		Zones:   evaluator.Snapshot(),
		Relay:   relayCtl.State(),
	}
}

// StatusHandler serves a one-shot status snapshot.
func StatusHandler(api *API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		writeJSON(w, http.StatusOK, BuildStatus(api.Registry, api.Evaluator, api.Relay))
	}
}
