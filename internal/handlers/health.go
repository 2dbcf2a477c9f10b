package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"app-groups-sync/internal/common/logging"
	"app-groups-sync/internal/models"
)

const healthCheckTimeout = 5 * time.Second

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	health := models.HealthResponse{
		Status:    statusHealthy,
		Sink:      h.sinkName,
		Checks:    make(map[string]string, len(h.checks)),
		Timestamp: time.Now().UTC(),
	}

	for _, check := range h.checks {
		if err := check.Fn(ctx); err != nil {
			health.Checks[check.Name] = "error: " + err.Error()
			h.logger.Warn("Health check failed",
				logging.Field{Key: "check", Value: check.Name},
				logging.Field{Key: "critical", Value: check.Critical},
				logging.Field{Key: "error", Value: err.Error()},
			)
			if check.Critical {
				health.Status = statusUnhealthy
			} else if health.Status == statusHealthy {
				health.Status = statusDegraded
			}
			continue
		}
		health.Checks[check.Name] = "ok"
	}

	status := http.StatusOK
	if health.Status == statusUnhealthy {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(health)
}
