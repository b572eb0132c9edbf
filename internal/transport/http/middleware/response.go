package middleware

import (
	"encoding/json"
	"net/http"
)

// writeJSONError writes an error in the same envelope shape the handlers use.
func writeJSONError(w http.ResponseWriter, status int, kind, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  status,
		"message": msg,
		"error":   kind,
	})
}
