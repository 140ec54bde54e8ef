package handlers

import (
	"encoding/json"
	"net/http"

	"zonemonitor/internal/camera"
	"zonemonitor/internal/config"
	"zonemonitor/internal/database"
	"zonemonitor/internal/logger"
	"zonemonitor/internal/relay"
	"zonemonitor/internal/services/websocket"
	"zonemonitor/internal/zone"
)

// API bundles the components the HTTP handlers operate on.
type API struct {
	Store     *config.Store
	Registry  *camera.Registry
	Evaluator *zone.Evaluator
	Relay     *relay.Controller
	Events    *database.Database
	Hub       *websocket.HubService
	Logger    *logger.Logger
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already out; an encode failure has nowhere to go.
	_ = json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"status": "error", "message": message})
}
