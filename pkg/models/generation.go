package models

import "time"

// GenerationRecord is one provider attempt, persisted for diagnostics.
type GenerationRecord struct {
	ID         int64     `json:"id"`
	Operation  string    `json:"operation"`
	Model      string    `json:"model"`
	KeyHint    string    `json:"key_hint"` // last 4 chars of the credential, never the full key
	Outcome    string    `json:"outcome"`
	DurationMs int64     `json:"duration_ms"`
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// AuditEntry records one API request.
type AuditEntry struct {
	ID             int64          `json:"id"`
	RequestID      string         `json:"request_id"`
	Timestamp      time.Time      `json:"timestamp"`
	Operation      string         `json:"operation"`
	Path           string         `json:"path"`
	Status         string         `json:"status"`
	ResponseCode   int            `json:"response_code"`
	ResponseTimeMs int64          `json:"response_time_ms"`
	ClientIP       string         `json:"client_ip"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}
