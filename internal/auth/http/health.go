package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/campus/pkg/healthx"
)

// LivezHandler godoc
//
//	@Summary		Liveness probe
//	@Description	Always 200 while the process runs
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version"
//	@Router			/livez [get].
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return healthx.Livez(startTime, version)
}

// ReadyzHandler godoc
//
//	@Summary		Readiness probe
//	@Description	Checks the refresh token database and the credential verifier
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	authsdk.HealthResponse	"service not ready"
//	@Router			/readyz [get].
func ReadyzHandler(startTime time.Time, version string, checks ...healthx.Check) http.HandlerFunc {
	return healthx.Readyz(startTime, version, checks...)
}
