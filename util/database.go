// Package util provides utility functions for the backend.
//
//revive:disable-next-line:var-naming
package util

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/ortelius/pdvd-cvesync/database"
)

// SanitizeKey ensures the database key is valid for ArangoDB
// ArangoDB keys cannot contain spaces, slashes, or brackets
func SanitizeKey(key string) string {
	key = strings.TrimSpace(key)

	replacer := strings.NewReplacer(
		" ", "-",
		"/", "-",
		"[", "",
		"]", "",
		"(", "",
		")", "",
	)

	return replacer.Replace(key)
}

// SyncMetadata stores the high-water mark of the last successful run of a sync mode
type SyncMetadata struct {
	Key          string `json:"_key"`          // e.g., "nvd_full", "nvd_incremental"
	LastModified string `json:"last_modified"` // RFC3339 Timestamp
	Type         string `json:"type"`          // "sync_metadata"
}

// MetadataKey returns the metadata document key for a sync mode
func MetadataKey(mode string) string {
	return SanitizeKey("nvd_" + mode)
}

// GetLastRun retrieves the timestamp of the last successful run of a sync mode.
// A missing document yields the zero time and no error.
func GetLastRun(ctx context.Context, db database.DBConnection, mode string) (time.Time, error) {
	key := MetadataKey(mode)
	query := `RETURN DOCUMENT("metadata", @key)`
	bindVars := map[string]interface{}{"key": key}

	cursor, err := db.Database.Query(ctx, query, &arangodb.QueryOptions{BindVars: bindVars})
	if err != nil {
		return time.Time{}, err
	}
	defer cursor.Close()

	var meta *SyncMetadata
	if _, err := cursor.ReadDocument(ctx, &meta); err != nil || meta == nil || meta.LastModified == "" {
		return time.Time{}, nil
	}

	return time.Parse(time.RFC3339, meta.LastModified)
}

// SaveLastRun updates the timestamp after a successful run
func SaveLastRun(ctx context.Context, db database.DBConnection, mode string, finishedAt time.Time) error {
	key := MetadataKey(mode)

	if key == "nvd_" {
		return fmt.Errorf("cannot save last run for empty sync mode")
	}

	query := `
		UPSERT { _key: @key }
		INSERT { _key: @key, last_modified: @time, type: "sync_metadata" }
		UPDATE { last_modified: @time }
		IN metadata
	`

	bindVars := map[string]interface{}{
		"key":  key,
		"time": finishedAt.UTC().Format(time.RFC3339),
	}

	cursor, err := db.Database.Query(ctx, query, &arangodb.QueryOptions{BindVars: bindVars})
	if err != nil {
		return err
	}
	return cursor.Close()
}

// MetadataRecorder exposes GetLastRun and SaveLastRun over an ArangoDB connection
type MetadataRecorder struct {
	DB database.DBConnection
}

// GetLastRun implements ingest.RunRecorder
func (r MetadataRecorder) GetLastRun(ctx context.Context, mode string) (time.Time, error) {
	return GetLastRun(ctx, r.DB, mode)
}

// SaveLastRun implements ingest.RunRecorder
func (r MetadataRecorder) SaveLastRun(ctx context.Context, mode string, finishedAt time.Time) error {
	return SaveLastRun(ctx, r.DB, mode, finishedAt)
}
