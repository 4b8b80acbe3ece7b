package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/campus/internal/identity/service"
	"github.com/aussiebroadwan/campus/pkg/authsdk"
	"github.com/aussiebroadwan/campus/pkg/httpx"
	"github.com/aussiebroadwan/campus/pkg/slogx"
)

// VerifyHandler serves POST /verify for the auth service. A good
// username/password answers 200 with the identity; anything else that is not
// an internal failure answers 204.
type VerifyHandler struct {
	UserService *service.UserService
}

func (h *VerifyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req authsdk.VerifyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	u, err := h.UserService.Verify(r.Context(), req.Username, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrInvalidCredentials):
		w.WriteHeader(http.StatusNoContent)
		return
	default:
		slogx.FromContext(r.Context()).Error("verify failed", "error", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.VerifyResponse{
		ID:       u.ID,
		Username: u.Username,
		Roles:    u.Roles,
	})
}
