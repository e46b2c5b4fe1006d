// Package model - SyncSummary reports the outcome of one NVD sync run
package model

import "time"

// SyncMode selects the refresh policy of a run
type SyncMode string

// Sync modes
const (
	SyncModeIncremental SyncMode = "incremental"
	SyncModeFull        SyncMode = "full"
)

// SyncSummary is returned by every sync run, successful or not
type SyncSummary struct {
	Mode         SyncMode  `json:"mode"`
	Trigger      string    `json:"trigger"`       // "schedule", "api", "kafka", "startup"
	Cutoff       string    `json:"cutoff"`        // modifiedSince sent upstream, empty for full runs
	Processed    int       `json:"processed"`     // records upserted
	Duplicates   int       `json:"duplicates"`    // later occurrences of an id already seen in this run
	Skipped      int       `json:"skipped"`       // items without an id
	Pages        int       `json:"pages"`         // successful page fetches
	TotalResults int       `json:"total_results"` // -1 until the first page arrives
	LastOffset   int       `json:"last_offset"`   // offset of the last page attempted
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	Error        string    `json:"error,omitempty"`
}

// Succeeded reports whether the run completed without error
func (s SyncSummary) Succeeded() bool {
	return s.Error == ""
}

// SyncStatus is the snapshot served by the status endpoint and GraphQL
type SyncStatus struct {
	Running     bool                `json:"running"`
	CurrentMode SyncMode            `json:"current_mode,omitempty"`
	LastRun     *SyncSummary        `json:"last_run,omitempty"`
	LastSuccess map[SyncMode]string `json:"last_success,omitempty"` // RFC3339 per mode
}
