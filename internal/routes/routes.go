package routes

import (
	"net/http"

	"zonemonitor/internal/handlers"
	"zonemonitor/internal/metrics"
)

// SetupRoutes registers the API endpoints, the status websocket, the
// Prometheus endpoint, and the log endpoints.
func SetupRoutes(api *handlers.API, m *metrics.Metrics, logDir string) http.Handler {
	mux := http.NewServeMux()

	// API endpoints
	mux.HandleFunc("/api/config", handlers.ConfigHandler(api))
	mux.HandleFunc("/api/cameras", handlers.CamerasHandler(api))
	mux.HandleFunc("/api/zones", handlers.ZonesHandler(api))
	mux.HandleFunc("/api/gpio", handlers.GPIOHandler(api))
	mux.HandleFunc("/api/status", handlers.StatusHandler(api))
	mux.HandleFunc("/api/events", handlers.EventsHandler(api))
	mux.HandleFunc("/api/view", handlers.ViewWebsocketHandler(api))

	// Metrics
	mux.Handle("/metrics", m.Handler())

	// Log endpoints
	mux.HandleFunc("/logs/info", handlers.ShowInfoLogsHandler(logDir))
	mux.HandleFunc("/logs/warning", handlers.ShowWarningLogsHandler(logDir))
	mux.HandleFunc("/logs/error", handlers.ShowErrorLogsHandler(logDir))

	mux.HandleFunc("/logs/info/clear", handlers.ClearInfoLogsHandler(api.Logger))
	mux.HandleFunc("/logs/warning/clear", handlers.ClearWarningLogsHandler(api.Logger))
	mux.HandleFunc("/logs/error/clear", handlers.ClearErrorLogsHandler(api.Logger))

	return mux
}
