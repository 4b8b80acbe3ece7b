package httpx

import (
	"net/http"
	"strings"
)

// BearerPrefix is matched literally, case and the single space included.
const BearerPrefix = "Bearer "

// BearerCredential extracts the raw token from the Authorization header. It
// reports false when the header is absent or does not start with
// BearerPrefix; that is not an error, the request is simply anonymous.
func BearerCredential(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, BearerPrefix) {
		return "", false
	}
	return strings.TrimSpace(authz[len(BearerPrefix):]), true
}

// WriteBearerError writes an RFC 6750 challenge. The description is fixed
// text chosen by the caller and must never carry a validation reason.
func WriteBearerError(w http.ResponseWriter, status int, code, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="`+code+`", error_description="`+desc+`"`)
	WriteJSON(w, status, map[string]string{
		"error":             code,
		"error_description": desc,
	})
}
