package models

import "time"

// SyncRequest is the inbound webhook body.
// AppID is decoded loosely so a non-string value can be rejected as a bad request.
type SyncRequest struct {
	AppID interface{} `json:"app_id"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status    string            `json:"status"`
	Sink      string            `json:"sink"`
	Checks    map[string]string `json:"checks"`
	Timestamp time.Time         `json:"timestamp"`
}

// SyncEvent is published after an application's groups were written to the warehouse.
type SyncEvent struct {
	EventID   string    `json:"event_id"`
	AppID     string    `json:"app_id"`
	AppName   string    `json:"app_name"`
	AppLabel  string    `json:"app_label"`
	Rows      int       `json:"rows"`
	Skipped   []string  `json:"skipped_groups,omitempty"`
	Degraded  bool      `json:"memberships_degraded"`
	Sink      string    `json:"sink"`
	Table     string    `json:"table"`
	SyncedAt  time.Time `json:"synced_at"`
	RequestID string    `json:"request_id,omitempty"`
}
