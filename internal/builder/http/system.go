package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aussiebroadwan/folio/pkg/httpx"
)

// Pinger is anything /readyz can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KeyStatus reports whether token verification keys are loaded.
type KeyStatus interface {
	IsReady() bool
}

// LivezHandler godoc
//
//	@Summary		Health Check Endpoint
//	@Description	Liveness check returning status, uptime and version. Always 200 while the process runs.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	HealthResponse	"status, uptime, version"
//	@Router			/livez [get].
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}

// ReadyzHandler godoc
//
//	@Summary		Readiness Check Endpoint
//	@Description	Readiness check covering the media database, the draft cache and the token keys
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	HealthResponse	"status, uptime, version, checks - service not ready"
//	@Router			/readyz [get].
func ReadyzHandler(startTime time.Time, version string, db, cache Pinger, keys KeyStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &HealthChecks{
			Database:   "ok",
			DraftCache: "ok",
			Keys:       "ok",
		}
		overallStatus := "ok"
		statusCode := http.StatusOK

		fail := func(field *string, msg string) {
			*field = "error: " + msg
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		if err := db.Ping(r.Context()); err != nil {
			fail(&checks.Database, err.Error())
		}
		if err := cache.Ping(r.Context()); err != nil {
			fail(&checks.DraftCache, err.Error())
		}
		if !keys.IsReady() {
			fail(&checks.Keys, "no keys loaded")
		}

		httpx.WriteJSON(w, statusCode, HealthResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
