package httpx

import (
	"encoding/json"
	"net/http"
)

// WriteJSON writes v as the response body with status code. Nothing the
// campus services answer is cacheable: session bodies carry tokens and user
// bodies carry identity.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// NoCache forbids any intermediary from storing the response.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}
