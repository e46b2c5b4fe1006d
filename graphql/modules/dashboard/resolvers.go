package dashboard

import (
	"context"

	"github.com/ortelius/pdvd-cvesync/database"
	"github.com/ortelius/pdvd-cvesync/model"
)

// StatusProvider reports the state of the sync service
type StatusProvider interface {
	Status(ctx context.Context) model.SyncStatus
}

// WatermarkReader returns the most recent last_modified date in storage
type WatermarkReader interface {
	Current(ctx context.Context) (string, bool, error)
}

// ResolveOverview summarizes the collection and the sync service
func ResolveOverview(ctx context.Context, reader database.CVEReader, status StatusProvider, watermark WatermarkReader) (map[string]interface{}, error) {
	total, err := reader.CountCVEs(ctx)
	if err != nil {
		return nil, err
	}

	overview := map[string]interface{}{
		"total_cves":       total,
		"latest_modified":  nil,
		"sync_running":     false,
		"last_sync_failed": false,
	}

	if watermark != nil {
		latest, ok, err := watermark.Current(ctx)
		if err != nil {
			return nil, err
		}
		if ok {
			overview["latest_modified"] = latest
		}
	}

	if status != nil {
		s := status.Status(ctx)
		overview["sync_running"] = s.Running
		overview["last_sync_failed"] = s.LastRun != nil && !s.LastRun.Succeeded()
	}

	return overview, nil
}

// ResolveSeverityDistribution counts stored records per severity rating
func ResolveSeverityDistribution(ctx context.Context, reader database.CVEReader) (map[string]interface{}, error) {
	counts, err := reader.SeverityCounts(ctx)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"critical": counts["CRITICAL"],
		"high":     counts["HIGH"],
		"medium":   counts["MEDIUM"],
		"low":      counts["LOW"],
		"none":     counts["NONE"],
	}, nil
}
