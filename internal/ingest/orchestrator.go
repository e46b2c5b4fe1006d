// Package ingest walks the paginated NVD feed and keeps the local cve collection in sync.
//
// A run fetches pages strictly in order, drops repeated ids within the run (first
// occurrence wins), normalizes every remaining item and flushes each page's batch
// to storage before the next page is requested. A failed fetch or write aborts the
// run at that offset; records flushed before the failure stay written.
package ingest

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ortelius/pdvd-cvesync/model"
)

// PageFetcher retrieves one page of the upstream feed
type PageFetcher interface {
	FetchPage(ctx context.Context, startIndex int, modifiedSince string) (*model.NVDPage, error)
	PageSize() int
}

// Orchestrator drives a single sync run. It holds no state between runs and is
// not safe for concurrent use; Service serializes calls to Run.
type Orchestrator struct {
	fetcher    PageFetcher
	writer     *Writer
	normalizer *Normalizer
	metrics    *Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewOrchestrator wires a fetcher and writer together
func NewOrchestrator(fetcher PageFetcher, writer *Writer, metrics *Metrics, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		fetcher:    fetcher,
		writer:     writer,
		normalizer: NewNormalizer(logger, metrics),
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// run is the ephemeral state of one execution
type run struct {
	offset int
	total  int // -1 until the first page is received
	seen   map[string]struct{}
	batch  []model.CVERecord
}

// Run syncs every page of the feed. An empty cutoff means a full sync; otherwise
// only records modified since cutoff are requested. The summary is filled in
// whether the run succeeds or aborts.
func (o *Orchestrator) Run(ctx context.Context, cutoff string) (model.SyncSummary, error) {
	pageSize := o.fetcher.PageSize()

	summary := model.SyncSummary{
		Mode:         model.SyncModeFull,
		Cutoff:       cutoff,
		TotalResults: -1,
		StartedAt:    o.now(),
	}
	if cutoff != "" {
		summary.Mode = model.SyncModeIncremental
	}

	r := &run{
		total: -1,
		seen:  make(map[string]struct{}),
		batch: make([]model.CVERecord, 0, pageSize),
	}

	logger := o.logger.With(zap.String("mode", string(summary.Mode)), zap.String("cutoff", cutoff))
	logger.Info("Starting CVE sync")

	for r.total < 0 || r.offset < r.total {
		summary.LastOffset = r.offset

		page, err := o.fetcher.FetchPage(ctx, r.offset, cutoff)
		if err != nil {
			return o.abort(logger, summary, &RunError{Offset: r.offset, Kind: ErrFetchFailed, Err: err})
		}
		summary.Pages++
		o.metrics.page(ctx)

		if r.total < 0 {
			r.total = page.TotalResults
			summary.TotalResults = page.TotalResults
		}

		duplicates := 0
		for _, item := range page.Items {
			cveID := CVEID(item)
			if cveID == "" {
				summary.Skipped++
				continue
			}
			if _, dup := r.seen[cveID]; dup {
				duplicates++
				continue
			}
			r.seen[cveID] = struct{}{}
			r.batch = append(r.batch, o.normalizer.Normalize(ctx, cveID, item))
		}
		summary.Duplicates += duplicates

		if len(r.batch) > 0 {
			if err := o.writer.Write(ctx, r.batch); err != nil {
				return o.abort(logger, summary, &RunError{Offset: r.offset, Kind: ErrWriteFailed, Err: err})
			}
			summary.Processed += len(r.batch)
			logger.Info("Upserted CVE page",
				zap.Int("count", len(r.batch)),
				zap.Int("start_index", r.offset),
				zap.Int("total_results", r.total))
		}
		o.metrics.batch(ctx, len(r.batch), duplicates)
		r.batch = r.batch[:0]

		if len(page.Items) == 0 && r.offset < r.total {
			logger.Warn("Upstream returned an empty page before totalResults was reached, continuing",
				zap.Int("start_index", r.offset),
				zap.Int("total_results", r.total))
		}

		r.offset += pageSize
	}

	summary.FinishedAt = o.now()
	logger.Info("CVE sync complete",
		zap.Int("processed", summary.Processed),
		zap.Int("duplicates", summary.Duplicates),
		zap.Int("pages", summary.Pages),
		zap.Duration("duration", summary.FinishedAt.Sub(summary.StartedAt)))

	return summary, nil
}

func (o *Orchestrator) abort(logger *zap.Logger, summary model.SyncSummary, err *RunError) (model.SyncSummary, error) {
	summary.FinishedAt = o.now()
	summary.Error = err.Error()
	logger.Error("CVE sync aborted",
		zap.Int("offset", err.Offset),
		zap.Int("processed", summary.Processed),
		zap.Error(err))
	return summary, err
}
