// Package response writes the flat JSON bodies the AlarmSense API uses.
// Every body carries a success boolean; failures carry a detail string.
package response

import (
	"encoding/json"
	"net/http"
)

type errorBody struct {
	Success bool   `json:"success"`
	Detail  string `json:"detail"`
}

// JSON writes v with status 200. Handlers include their own success field.
func JSON(w http.ResponseWriter, v any) {
	writeJSON(w, http.StatusOK, v)
}

// Error writes a failure body with the given status and detail.
func Error(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorBody{Success: false, Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
