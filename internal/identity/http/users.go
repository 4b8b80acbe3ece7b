package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/campus/internal/identity/domain"
	"github.com/aussiebroadwan/campus/internal/identity/service"
	"github.com/aussiebroadwan/campus/pkg/authsdk"
	"github.com/aussiebroadwan/campus/pkg/httpx"
	"github.com/aussiebroadwan/campus/pkg/principal"
	"github.com/aussiebroadwan/campus/pkg/slogx"
)

// UsersHandler serves the user endpoints. Callers are identified by the
// relayed principal only.
type UsersHandler struct {
	UserService *service.UserService
}

// HandleCreate serves POST /api/admin/users.
func (h *UsersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req authsdk.CreateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	u, err := h.UserService.Create(r.Context(), req.Username, req.Password, req.Roles)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrUserExists):
		authsdk.ErrUserExists.WriteError(w)
		return
	case errors.Is(err, service.ErrInvalidRole):
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	default:
		slogx.FromContext(r.Context()).Error("create user failed", "error", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	p, _ := principal.FromContext(r.Context())
	slogx.FromContext(r.Context()).Info("user created", "user_id", u.ID, "username", u.Username, "created_by", p.Identity)
	httpx.WriteJSON(w, http.StatusCreated, userResponse(u))
}

// HandleMe serves GET /api/user/me.
func (h *UsersHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	p, ok := principal.FromContext(r.Context())
	if !ok {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	u, err := h.UserService.Get(r.Context(), p.Identity)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrUserNotFound):
		authsdk.NewAPIError(http.StatusNotFound, authsdk.ErrorCodeNotFound, "user not found").WriteError(w)
		return
	default:
		slogx.FromContext(r.Context()).Error("lookup user failed", "error", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, userResponse(u))
}

// HandleWhoAmI serves GET /api/whoami: the relayed principal as the backend
// sees it, for any role.
func (h *UsersHandler) HandleWhoAmI(w http.ResponseWriter, r *http.Request) {
	p, _ := principal.FromContext(r.Context())
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.WhoAmIResponse{Username: p.Identity, Roles: p.Roles})
}

func userResponse(u domain.User) authsdk.UserResponse {
	return authsdk.UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Roles:     u.Roles,
		CreatedAt: u.CreatedAt,
	}
}
