// health_handler.go -- Health check handler for GET /health.
package auth

import (
	"errors"
	"net/http"

	"github.com/MGallo-Code/ferry/internal/store"
)

// CheckHealth handles GET /health. Pings Postgres and Redis when configured,
// returns per-dependency status. 200 unless a configured dependency is down.
func (h *LoginHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	redisStatus := "disabled"
	postgresStatus := "disabled"

	if h.Redis != nil {
		redisStatus = "ok"
		if err := h.Redis.CheckHealth(r.Context()); err != nil {
			logError(r, "redis health check failed", "error", err)
			redisStatus = "error"
		}
	}
	if h.Postgres != nil {
		postgresStatus = "ok"
		if err := h.Postgres.CheckHealth(r.Context()); err != nil {
			if errors.Is(err, store.ErrAuditDisabled) {
				postgresStatus = "disabled"
			} else {
				logError(r, "postgres health check failed", "error", err)
				postgresStatus = "error"
			}
		}
	}

	status := http.StatusOK
	if redisStatus == "error" || postgresStatus == "error" {
		status = http.StatusServiceUnavailable
	}
	JSON(w, status, struct {
		Postgres string `json:"postgres"`
		Redis    string `json:"redis"`
	}{postgresStatus, redisStatus})
}
