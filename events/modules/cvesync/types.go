// Package cvesync defines the Kafka events exchanged about NVD CVE sync runs.
package cvesync

import (
	"time"

	"github.com/ortelius/pdvd-cvesync/model"
)

// Topics and event types
const (
	EventsTopic       = "cve-sync-events"
	RequestsTopic     = "cve-sync-requests"
	EventTypeComplete = "cve.sync.completed"
	EventTypeRequest  = "cve.sync.requested"
)

// SyncCompletedEvent is published after every sync run, successful or not.
type SyncCompletedEvent struct {
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EventTime     time.Time `json:"event_time"`
	SchemaVersion string    `json:"schema_version"`
	Success       bool      `json:"success"`

	Summary model.SyncSummary `json:"summary"`
}

// SyncRequestedEvent asks the service to run a sync. An empty or unknown Mode
// means incremental.
type SyncRequestedEvent struct {
	EventType string `json:"event_type"`
	EventID   string `json:"event_id,omitempty"`
	Mode      string `json:"mode"`
	Requester string `json:"requester,omitempty"`
}

// SyncMode maps the requested mode onto a model.SyncMode
func (e SyncRequestedEvent) SyncMode() model.SyncMode {
	if model.SyncMode(e.Mode) == model.SyncModeFull {
		return model.SyncModeFull
	}
	return model.SyncModeIncremental
}
