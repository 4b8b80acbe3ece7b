package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/campus/internal/auth/domain"
	"github.com/aussiebroadwan/campus/internal/auth/service"
	"github.com/aussiebroadwan/campus/pkg/authsdk"
	"github.com/aussiebroadwan/campus/pkg/httpx"
	"github.com/aussiebroadwan/campus/pkg/slogx"
)

// SessionHandler serves login, refresh and logout.
type SessionHandler struct {
	LoginService *service.LoginService
}

// HandleLogin godoc
//
//	@Summary		Log in
//	@Description	Verifies username and password with the credential verifier and checks that the requested role is granted.
//	@Description	The access token carries every granted role, not only the requested one.
//	@Description	Wrong password, unknown user, role not granted and verifier outages all answer the same 401.
//	@Tags			Session
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"credentials and requested role"
//	@Success		200		{object}	authsdk.SessionResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"malformed body"
//	@Failure		401		{object}	authsdk.ErrorResponse	"invalid credentials"
//	@Failure		429		{object}	authsdk.ErrorResponse	"rate limited"
//	@Header			200		{string}	Cache-Control	"no-store"
//	@Router			/auth/login [post].
func (h *SessionHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	sess, err := h.LoginService.Login(r.Context(), req.Username, req.Password, req.Role)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrRoleMismatch),
		errors.Is(err, service.ErrAuthenticationFailed):
		authsdk.ErrInvalidCredentials.WriteError(w)
		return
	default:
		slogx.FromContext(r.Context()).Error("login failed", "error", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	writeSession(w, sess)
}

// HandleRefresh godoc
//
//	@Summary		Refresh a session
//	@Description	Rotates the refresh token. The presented token stops working once this succeeds.
//	@Tags			Session
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RefreshRequest	true	"refresh token"
//	@Success		200		{object}	authsdk.SessionResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"malformed body"
//	@Failure		401		{object}	authsdk.ErrorResponse	"invalid refresh token"
//	@Header			200		{string}	Cache-Control	"no-store"
//	@Router			/auth/refresh [post].
func (h *SessionHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	sess, err := h.LoginService.Refresh(r.Context(), req.RefreshToken)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrInvalidRefresh):
		authsdk.ErrInvalidRefresh.WriteError(w)
		return
	default:
		slogx.FromContext(r.Context()).Error("refresh failed", "error", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	writeSession(w, sess)
}

// HandleLogout godoc
//
//	@Summary		Log out
//	@Description	Deletes the refresh token, or every refresh token of its owner with allDevices.
//	@Description	Unknown and already revoked tokens also answer 204.
//	@Tags			Session
//	@Accept			json
//	@Param			request	body	authsdk.LogoutRequest	true	"refresh token"
//	@Success		204		"logged out"
//	@Failure		400		{object}	authsdk.ErrorResponse	"malformed body"
//	@Router			/auth/logout [post].
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LogoutRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.LoginService.Logout(r.Context(), req.RefreshToken, req.AllDevices); err != nil {
		slogx.FromContext(r.Context()).Error("logout failed", "error", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeSession(w http.ResponseWriter, sess *domain.Session) {
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.SessionResponse{
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		Username:     sess.Username,
		Roles:        sess.Roles,
	})
}
