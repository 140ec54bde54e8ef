package handlers

import (
	"encoding/json"
	"net/http"

	"zonemonitor/internal/config"
)

// GPIOHandler serves the relay state and accepts relay reconfiguration.
func GPIOHandler(api *API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, api.Relay.State())

		case http.MethodPost:
			var gpio config.GPIOConfig
			if err := json.NewDecoder(r.Body).Decode(&gpio); err != nil {
				writeError(w, http.StatusBadRequest, "invalid gpio settings: "+err.Error())
				return
			}

			if err := api.Store.SetGPIO(gpio); err != nil {
				api.Logger.Error("Failed to save gpio settings: %v", err)
				writeError(w, http.StatusInternalServerError, "failed to save gpio settings")
				return
			}

			api.Relay.Reconfigure(gpio)
			writeSuccess(w)

		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	}
}
