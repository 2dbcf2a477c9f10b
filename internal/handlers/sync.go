package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"app-groups-sync/internal/common/errors"
	"app-groups-sync/internal/common/logging"
	"app-groups-sync/internal/models"
)

const (
	maxSyncBodyBytes = 1 << 20

	msgMissingAppID = "Missing app_id in the request body"
	msgInternal     = "Internal server error"
)

// HandleSync receives {"app_id": "..."} and copies that application's groups into the warehouse.
func (h *Handlers) HandleSync(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.WithContext(r.Context())

	appID, ok := decodeAppID(w, r)
	if !ok {
		writeText(w, http.StatusBadRequest, msgMissingAppID)
		return
	}

	result, err := h.runner.Run(r.Context(), appID)
	if err != nil {
		switch errors.GetType(err) {
		case errors.ErrTypeValidation:
			writeText(w, http.StatusBadRequest, msgMissingAppID)
		case errors.ErrTypeNotFound:
			writeText(w, http.StatusNotFound, fmt.Sprintf("No app found with id: %s", appID))
		default:
			logger.Error("Sync failed", err,
				logging.Field{Key: "app_id", Value: appID},
				logging.Field{Key: "error_type", Value: string(errors.GetType(err))},
			)
			writeText(w, http.StatusInternalServerError, msgInternal)
		}
		return
	}

	writeText(w, http.StatusOK, result.Message())
}

// decodeAppID accepts only a JSON object whose app_id is a non-blank string.
func decodeAppID(w http.ResponseWriter, r *http.Request) (string, bool) {
	if r.Body == nil {
		return "", false
	}
	var req models.SyncRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSyncBodyBytes)).Decode(&req); err != nil {
		return "", false
	}
	appID, ok := req.AppID.(string)
	if !ok || strings.TrimSpace(appID) == "" {
		return "", false
	}
	return appID, true
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
