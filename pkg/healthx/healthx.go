// Package healthx serves the /livez and /readyz probes every campus service
// exposes.
package healthx

import (
	"context"
	"net/http"
	"time"

	"github.com/aussiebroadwan/campus/pkg/authsdk"
	"github.com/aussiebroadwan/campus/pkg/httpx"
)

// CheckTimeout bounds a single readiness check.
const CheckTimeout = 2 * time.Second

// Check reports one dependency. A nil error means ready.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// Pinger is a dependency with a Ping method: database handles, the
// credential verifier client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping wraps p as a Check.
func Ping(name string, p Pinger) Check {
	return Check{Name: name, Probe: p.Ping}
}

// Livez answers 200 while the process runs.
func Livez(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, authsdk.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}

// Readyz runs every check and answers 503 with status "degraded" if any
// fails.
func Readyz(startTime time.Time, version string, checks ...Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results := make(map[string]string, len(checks))
		status, code := "ok", http.StatusOK

		for _, c := range checks {
			if err := run(r.Context(), c); err != nil {
				results[c.Name] = "error: " + err.Error()
				status, code = "degraded", http.StatusServiceUnavailable
				continue
			}
			results[c.Name] = "ok"
		}

		httpx.WriteJSON(w, code, authsdk.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  results,
		})
	}
}

func run(ctx context.Context, c Check) error {
	ctx, cancel := context.WithTimeout(ctx, CheckTimeout)
	defer cancel()
	return c.Probe(ctx)
}
