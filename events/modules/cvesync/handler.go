// Package cvesync handles Kafka event processing for CVE sync requests.
package cvesync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ortelius/pdvd-cvesync/model"
)

// ErrInvalidEvent is returned for messages that are not sync requests
var ErrInvalidEvent = errors.New("invalid sync request event")

// SyncTrigger defines the service operation a sync request invokes
type SyncTrigger interface {
	Run(ctx context.Context, mode model.SyncMode, trigger string) (model.SyncSummary, error)
}

// HandleSyncRequested decodes a sync request and runs it through trigger.
// Errors from the run itself, including a busy service, are returned unchanged.
func HandleSyncRequested(ctx context.Context, msg []byte, trigger SyncTrigger) (model.SyncSummary, error) {
	var event SyncRequestedEvent
	if err := json.Unmarshal(msg, &event); err != nil {
		return model.SyncSummary{}, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}

	if event.EventType != "" && event.EventType != EventTypeRequest {
		return model.SyncSummary{}, fmt.Errorf("%w: unexpected event_type %q", ErrInvalidEvent, event.EventType)
	}

	return trigger.Run(ctx, event.SyncMode(), "kafka")
}
