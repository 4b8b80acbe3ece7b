package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/campus/internal/auth/credentials"
	"github.com/aussiebroadwan/campus/internal/auth/domain"
	authhttp "github.com/aussiebroadwan/campus/internal/auth/http"
	"github.com/aussiebroadwan/campus/internal/auth/service"
	"github.com/aussiebroadwan/campus/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/campus/pkg/authsdk"
	"github.com/aussiebroadwan/campus/pkg/httpx"
	"github.com/aussiebroadwan/campus/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

type stubVerifier struct {
	down atomic.Bool
}

func (s *stubVerifier) Verify(_ context.Context, username, password string) (domain.Identity, error) {
	if s.down.Load() {
		return domain.Identity{}, credentials.ErrUnavailable
	}
	if username == "alice" && password == "correct horse" {
		return domain.Identity{ID: 1, Username: "alice", Roles: []string{"TEACHER", "USER"}}, nil
	}
	return domain.Identity{}, credentials.ErrNotFound
}

func (s *stubVerifier) Ping(context.Context) error {
	if s.down.Load() {
		return errors.New("connection refused")
	}
	return nil
}

type harness struct {
	srv      *httptest.Server
	verifier *stubVerifier
	codec    *jwtx.Codec
}

func newHarness(t *testing.T, limit httpx.RateLimitConfig) *harness {
	t.Helper()

	codec, err := jwtx.NewCodec(jwtx.CodecOptions{Key: jwtx.StaticKey(bytes.Repeat([]byte("x"), jwtx.MinKeySize))})
	require.NoError(t, err)

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	ver := &stubVerifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := authhttp.NewRouter("test", st, logger)
	r.LoginService = &service.LoginService{Verifier: ver, Codec: codec, Store: st}
	r.Verifier = ver
	r.LoginLimit = limit
	r.ApplyRoutes()

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &harness{srv: srv, verifier: ver, codec: codec}
}

var relaxed = httpx.RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000}

func (h *harness) post(t *testing.T, path, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(h.srv.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func TestLoginEndpoint(t *testing.T) {
	h := newHarness(t, relaxed)

	resp, raw := h.post(t, "/auth/login", `{"username":"alice","password":"correct horse","role":"teacher"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	var sess authsdk.SessionResponse
	require.NoError(t, json.Unmarshal(raw, &sess))
	require.Equal(t, "alice", sess.Username)
	require.Equal(t, []string{"TEACHER", "USER"}, sess.Roles)
	require.NotEmpty(t, sess.RefreshToken)

	claims, err := h.codec.ValidateAccess(sess.AccessToken)
	require.NoError(t, err)
	require.Equal(t, []string{"TEACHER", "USER"}, claims.Roles)
}

func TestLoginFailuresLookTheSame(t *testing.T) {
	h := newHarness(t, relaxed)

	_, wrongPassword := h.post(t, "/auth/login", `{"username":"alice","password":"nope","role":"TEACHER"}`)
	_, unknownUser := h.post(t, "/auth/login", `{"username":"mallory","password":"x","role":"TEACHER"}`)
	resp, wrongRole := h.post(t, "/auth/login", `{"username":"alice","password":"correct horse","role":"ADMIN"}`)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	h.verifier.down.Store(true)
	resp, verifierDown := h.post(t, "/auth/login", `{"username":"alice","password":"correct horse","role":"TEACHER"}`)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	require.Equal(t, wrongPassword, unknownUser)
	require.Equal(t, wrongPassword, wrongRole)
	require.Equal(t, wrongPassword, verifierDown)
	require.JSONEq(t, `{"error":"invalid_grant","error_description":"invalid credentials"}`, string(wrongPassword))
}

func TestLoginMalformedBody(t *testing.T) {
	h := newHarness(t, relaxed)

	for _, body := range []string{``, `{`, `{"username":"alice","password":"x"}`, `[]`} {
		resp, raw := h.post(t, "/auth/login", body)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
		require.Contains(t, string(raw), "invalid_request")
	}
}

func TestLoginRateLimited(t *testing.T) {
	h := newHarness(t, httpx.RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute, Burst: 2})

	for range 2 {
		resp, _ := h.post(t, "/auth/login", `{"username":"alice","password":"nope","role":"TEACHER"}`)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
	resp, _ := h.post(t, "/auth/login", `{"username":"alice","password":"nope","role":"TEACHER"}`)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	// a different username has its own budget
	resp, _ = h.post(t, "/auth/login", `{"username":"bob","password":"nope","role":"TEACHER"}`)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRefreshAndLogoutEndpoints(t *testing.T) {
	h := newHarness(t, relaxed)

	_, raw := h.post(t, "/auth/login", `{"username":"alice","password":"correct horse","role":"USER"}`)
	var first authsdk.SessionResponse
	require.NoError(t, json.Unmarshal(raw, &first))

	resp, raw := h.post(t, "/auth/refresh", `{"refreshToken":"`+first.RefreshToken+`"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var second authsdk.SessionResponse
	require.NoError(t, json.Unmarshal(raw, &second))
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)

	resp, raw = h.post(t, "/auth/refresh", `{"refreshToken":"`+first.RefreshToken+`"}`)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Contains(t, string(raw), "invalid_grant")

	resp, _ = h.post(t, "/auth/refresh", `{}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, raw = h.post(t, "/auth/logout", `{"refreshToken":"`+second.RefreshToken+`"}`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Empty(t, raw)

	resp, _ = h.post(t, "/auth/logout", `{"refreshToken":"`+second.RefreshToken+`","allDevices":true}`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = h.post(t, "/auth/refresh", `{"refreshToken":"`+second.RefreshToken+`"}`)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHealthEndpoints(t *testing.T) {
	h := newHarness(t, relaxed)

	resp, err := http.Get(h.srv.URL + "/livez")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(h.srv.URL + "/readyz")
	require.NoError(t, err)
	var health authsdk.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", health.Checks["database"])
	require.Equal(t, "ok", health.Checks["credential_verifier"])

	h.verifier.down.Store(true)
	resp, err = http.Get(h.srv.URL + "/readyz")
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.Equal(t, "degraded", health.Status)
}

func TestSwaggerServed(t *testing.T) {
	h := newHarness(t, relaxed)

	resp, err := http.Get(h.srv.URL + "/swagger/doc.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(raw), "/auth/login")
}
