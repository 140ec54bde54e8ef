package handlers

import "net/http"

// CamerasHandler serves connection state and counters for all cameras.
func CamerasHandler(api *API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		writeJSON(w, http.StatusOK, api.Registry.Status())
	}
}
