package ingest

import (
	"context"
	"fmt"

	"github.com/ortelius/pdvd-cvesync/model"
)

// Upserter replaces or inserts one record by cve_id
type Upserter interface {
	UpsertCVE(ctx context.Context, record model.CVERecord) error
}

// BulkUpserter applies a whole batch in one storage operation
type BulkUpserter interface {
	UpsertCVEs(ctx context.Context, records []model.CVERecord) error
}

// Writer applies batches of normalized records to storage. Batches go out as one
// bulk call when the store supports it, otherwise record by record in order; a
// failure part way leaves the earlier records of the batch written.
type Writer struct {
	store Upserter
}

// NewWriter creates a writer over store
func NewWriter(store Upserter) *Writer {
	return &Writer{store: store}
}

// Write upserts batch. Errors carry the store's cause unclassified; the
// orchestrator reports them as a RunError of kind ErrWriteFailed.
func (w *Writer) Write(ctx context.Context, batch []model.CVERecord) error {
	if len(batch) == 0 {
		return nil
	}

	if bulk, ok := w.store.(BulkUpserter); ok {
		if err := bulk.UpsertCVEs(ctx, batch); err != nil {
			return fmt.Errorf("bulk upsert of %d records: %w", len(batch), err)
		}
		return nil
	}

	for i, record := range batch {
		if err := w.store.UpsertCVE(ctx, record); err != nil {
			return fmt.Errorf("record %d of %d (%s): %w", i+1, len(batch), record.CveID, err)
		}
	}
	return nil
}
