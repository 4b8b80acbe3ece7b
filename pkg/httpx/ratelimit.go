package httpx

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/campus/pkg/envx"
	"github.com/aussiebroadwan/campus/pkg/slogx"
)

// RateLimitConfig is a budget of RequestsPerWindow per Window. Burst is how
// many of them may arrive back to back.
type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
	Burst             int
}

// Budgets used across the services. Each one can be overridden with
// RATELIMIT_<NAME>_REQUESTS, RATELIMIT_<NAME>_WINDOW_SEC and
// RATELIMIT_<NAME>_BURST, e.g. RATELIMIT_STRICT_REQUESTS=50 for load tests.
var (
	// StrictLimit guards password checks.
	StrictLimit = LimitFromEnv("STRICT", RateLimitConfig{RequestsPerWindow: 5, Window: time.Minute, Burst: 5})

	// ModerateLimit guards token refresh and logout.
	ModerateLimit = LimitFromEnv("MODERATE", RateLimitConfig{RequestsPerWindow: 20, Window: time.Minute, Burst: 20})

	// LenientLimit guards health probes.
	LenientLimit = LimitFromEnv("LENIENT", RateLimitConfig{RequestsPerWindow: 100, Window: time.Minute, Burst: 100})
)

// LimitFromEnv returns def with any positive RATELIMIT_<name>_* override
// applied. Unparseable values are ignored.
func LimitFromEnv(name string, def RateLimitConfig) RateLimitConfig {
	env := func(field string) (int, bool) {
		n := envx.Int("RATELIMIT_"+name+"_"+field, 0)
		return n, n > 0
	}

	if n, ok := env("REQUESTS"); ok {
		def.RequestsPerWindow = n
	}
	if n, ok := env("WINDOW_SEC"); ok {
		def.Window = time.Duration(n) * time.Second
	}
	if n, ok := env("BURST"); ok {
		def.Burst = n
	}
	return def
}

// ErrorCodeRateLimitExceeded is the "error" field of a 429 body.
const ErrorCodeRateLimitExceeded = "rate_limit_exceeded"

// KeyExtractor groups requests into one budget. An empty key means the
// request cannot be attributed and is let through.
type KeyExtractor func(*http.Request) string

// RemoteIP keys on the TCP peer. This is the only trustworthy address at the
// edge, where X-Forwarded-For is whatever the client sent.
func RemoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ForwardedIP keys on the client address appended by the gateway, the last
// X-Forwarded-For entry. Use it only on services that are reached through
// the gateway; the entries before the last one are client supplied.
func ForwardedIP(r *http.Request) string {
	xff := r.Header.Values("X-Forwarded-For")
	if len(xff) > 0 {
		last := xff[len(xff)-1]
		if i := strings.LastIndexByte(last, ','); i >= 0 {
			last = last[i+1:]
		}
		if ip := strings.TrimSpace(last); ip != "" {
			return ip
		}
	}
	return RemoteIP(r)
}

// JSONField keys on a top-level string field of a JSON body, lower-cased,
// such as the username of a login attempt. The body is restored for the
// handler.
func JSONField(name string) KeyExtractor {
	return func(r *http.Request) string {
		if r.Body == nil {
			return ""
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, MaxJSONBody))
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))
		if err != nil {
			return ""
		}

		var fields map[string]any
		if json.Unmarshal(body, &fields) != nil {
			return ""
		}
		v, _ := fields[name].(string)
		return strings.ToLower(strings.TrimSpace(v))
	}
}

// JoinKeys concatenates the non-empty keys of every extractor with ":".
func JoinKeys(extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(extractors))
		for _, extract := range extractors {
			if k := extract(r); k != "" {
				parts = append(parts, k)
			}
		}
		return strings.Join(parts, ":")
	}
}

// RateLimit limits with an in-process MemoryLimiter.
func RateLimit(config RateLimitConfig, key KeyExtractor) Middleware {
	return LimitMiddleware(NewMemoryLimiter(config), config, key)
}

// LimitMiddleware answers 429 once l reports the key exhausted. Limiter
// errors fail open: losing the redis behind a shared limiter must not stop
// logins.
func LimitMiddleware(l Limiter, config RateLimitConfig, key KeyExtractor) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			k := key(r)
			if k == "" {
				log.Warn("rate limit key missing, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			allowed, retry, err := l.Allow(ctx, k)
			if err != nil {
				log.Error("rate limiter failed, allowing request", "err", err)
				next.ServeHTTP(w, r)
				return
			}
			if allowed {
				next.ServeHTTP(w, r)
				return
			}

			retryAfter := max(int(retry.Seconds()), 1)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(config.RequestsPerWindow))
			w.Header().Set("X-RateLimit-Window", config.Window.String())

			log.Warn("rate limit exceeded", "key", k, "retry_after", retryAfter)
			WriteJSON(w, http.StatusTooManyRequests, map[string]string{
				"error":             ErrorCodeRateLimitExceeded,
				"error_description": "too many requests, try again later",
			})
		})
	}
}
