// Package handler contains the HTTP handlers for the scheduler service's
// three endpoints: synchronous schedule, enqueue, and task status.
package handler

import (
	"encoding/json"
	"net/http"
)

// writeJSON is a helper that writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
