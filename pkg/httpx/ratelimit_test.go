package httpx_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/campus/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func TestRemoteIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	req.Header.Set("X-Forwarded-For", "203.0.113.1")

	require.Equal(t, "192.168.1.1", httpx.RemoteIP(req), "client supplied headers are ignored at the edge")

	req.RemoteAddr = "pipe"
	require.Equal(t, "pipe", httpx.RemoteIP(req))
}

func TestForwardedIP(t *testing.T) {
	cases := []struct {
		name   string
		xff    []string
		remote string
		want   string
	}{
		{"no header", nil, "10.0.0.5:4000", "10.0.0.5"},
		{"single hop", []string{"203.0.113.1"}, "10.0.0.5:4000", "203.0.113.1"},
		{"spoofed prefix", []string{"1.2.3.4, 203.0.113.1"}, "10.0.0.5:4000", "203.0.113.1"},
		{"repeated headers", []string{"1.2.3.4", "203.0.113.9"}, "10.0.0.5:4000", "203.0.113.9"},
		{"trailing comma", []string{"203.0.113.1,"}, "10.0.0.5:4000", "10.0.0.5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			for _, v := range tc.xff {
				req.Header.Add("X-Forwarded-For", v)
			}
			require.Equal(t, tc.want, httpx.ForwardedIP(req))
		})
	}
}

func TestJSONField(t *testing.T) {
	t.Run("extracts and restores body", func(t *testing.T) {
		body := `{"username":" Alice ","password":"pw"}`
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

		require.Equal(t, "alice", httpx.JSONField("username")(req))

		rest, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		require.Equal(t, body, string(rest))
	})

	t.Run("missing field", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"password":"pw"}`))
		require.Empty(t, httpx.JSONField("username")(req))
	})

	t.Run("non-string field", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":42}`))
		require.Empty(t, httpx.JSONField("username")(req))
	})

	t.Run("form body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("username=bob"))
		require.Empty(t, httpx.JSONField("username")(req))
	})
}

func TestJoinKeys(t *testing.T) {
	key := httpx.JoinKeys(httpx.RemoteIP, httpx.JSONField("username"))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":"alice"}`))
	req.RemoteAddr = "192.168.1.1:12345"
	require.Equal(t, "192.168.1.1:alice", key(req))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	req.RemoteAddr = "192.168.1.1:12345"
	require.Equal(t, "192.168.1.1", key(req))
}

func limited(config httpx.RateLimitConfig, key httpx.KeyExtractor) http.Handler {
	return httpx.RateLimit(config, key)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func hit(h http.Handler, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = remote
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimit(t *testing.T) {
	config := httpx.RateLimitConfig{RequestsPerWindow: 3, Window: time.Minute, Burst: 3}

	t.Run("burst then 429", func(t *testing.T) {
		h := limited(config, httpx.RemoteIP)
		for i := range 3 {
			require.Equal(t, http.StatusOK, hit(h, "10.0.0.1:1").Code, "request %d", i+1)
		}

		rec := hit(h, "10.0.0.1:1")
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.NotEmpty(t, rec.Header().Get("Retry-After"))
		require.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
		require.Equal(t, "1m0s", rec.Header().Get("X-RateLimit-Window"))
		require.Contains(t, rec.Body.String(), httpx.ErrorCodeRateLimitExceeded)
		require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	})

	t.Run("keys have separate budgets", func(t *testing.T) {
		h := limited(config, httpx.RemoteIP)
		for range 3 {
			hit(h, "10.0.0.1:1")
		}
		require.Equal(t, http.StatusTooManyRequests, hit(h, "10.0.0.1:2").Code)
		require.Equal(t, http.StatusOK, hit(h, "10.0.0.2:1").Code)
	})

	t.Run("unattributable requests pass", func(t *testing.T) {
		h := limited(httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1},
			func(*http.Request) string { return "" })
		for range 5 {
			require.Equal(t, http.StatusOK, hit(h, "10.0.0.1:1").Code)
		}
	})

	t.Run("tokens refill", func(t *testing.T) {
		h := limited(httpx.RateLimitConfig{RequestsPerWindow: 20, Window: time.Second, Burst: 1}, httpx.RemoteIP)
		require.Equal(t, http.StatusOK, hit(h, "10.0.0.1:1").Code)
		require.Equal(t, http.StatusTooManyRequests, hit(h, "10.0.0.1:1").Code)

		require.Eventually(t, func() bool {
			return hit(h, "10.0.0.1:1").Code == http.StatusOK
		}, time.Second, 10*time.Millisecond)
	})
}

func TestLimitFromEnv(t *testing.T) {
	def := httpx.RateLimitConfig{RequestsPerWindow: 5, Window: time.Minute, Burst: 5}

	t.Setenv("RATELIMIT_TEST_REQUESTS", "50")
	t.Setenv("RATELIMIT_TEST_WINDOW_SEC", "10")
	t.Setenv("RATELIMIT_TEST_BURST", "-1")

	got := httpx.LimitFromEnv("TEST", def)
	require.Equal(t, 50, got.RequestsPerWindow)
	require.Equal(t, 10*time.Second, got.Window)
	require.Equal(t, 5, got.Burst)

	require.Equal(t, def, httpx.LimitFromEnv("UNSET", def))
}

func TestBudgetsAreOrdered(t *testing.T) {
	require.Less(t, httpx.StrictLimit.RequestsPerWindow, httpx.ModerateLimit.RequestsPerWindow)
	require.Less(t, httpx.ModerateLimit.RequestsPerWindow, httpx.LenientLimit.RequestsPerWindow)
}
