package ingest

import (
	"context"
	"fmt"

	"github.com/ortelius/pdvd-cvesync/model"
)

// WatermarkReader finds the most recent last_modified date in storage.
// Implementations must skip the Unknown sentinel.
type WatermarkReader interface {
	LatestLastModified(ctx context.Context) (string, bool, error)
}

// Tracker looks up the watermark that bounds incremental runs. Nothing is cached.
type Tracker struct {
	store WatermarkReader
}

// NewTracker creates a tracker over store
func NewTracker(store WatermarkReader) *Tracker {
	return &Tracker{store: store}
}

// Current returns the latest stored last_modified date, or false when storage is
// empty or holds only Unknown dates
func (t *Tracker) Current(ctx context.Context) (string, bool, error) {
	latest, ok, err := t.store.LatestLastModified(ctx)
	if err != nil {
		return "", false, fmt.Errorf("read watermark: %w", err)
	}
	if !ok || latest == "" || latest == model.Unknown {
		return "", false, nil
	}
	return latest, true, nil
}
