package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ortelius/pdvd-cvesync/database"
	"github.com/ortelius/pdvd-cvesync/model"
)

var errUpstream = errors.New("upstream unavailable")

// fakeFeed serves items in pages of pageSize, the way the NVD API slices its result set
type fakeFeed struct {
	pageSize int
	total    int // reported totalResults; len(items) when negative
	items    []map[string]interface{}
	failAt   map[int]error
	emptyAt  map[int]bool // offsets answered with no items but the usual total

	mu      sync.Mutex
	calls   []int
	cutoffs []string
}

func newFakeFeed(pageSize int, items []map[string]interface{}) *fakeFeed {
	return &fakeFeed{pageSize: pageSize, total: -1, items: items, failAt: map[int]error{}, emptyAt: map[int]bool{}}
}

func (f *fakeFeed) PageSize() int { return f.pageSize }

func (f *fakeFeed) FetchPage(_ context.Context, startIndex int, modifiedSince string) (*model.NVDPage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, startIndex)
	f.cutoffs = append(f.cutoffs, modifiedSince)
	f.mu.Unlock()

	if err, ok := f.failAt[startIndex]; ok {
		return nil, err
	}

	total := f.total
	if total < 0 {
		total = len(f.items)
	}

	page := &model.NVDPage{StartIndex: startIndex, TotalResults: total}
	if startIndex < len(f.items) && !f.emptyAt[startIndex] {
		end := startIndex + f.pageSize
		if end > len(f.items) {
			end = len(f.items)
		}
		page.Items = f.items[startIndex:end]
	}
	return page, nil
}

func (f *fakeFeed) Calls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.calls...)
}

func item(id, lastModified string) map[string]interface{} {
	return map[string]interface{}{
		"id":               id,
		"sourceIdentifier": "nvd@nist.gov",
		"published":        "2020-01-01T00:00:00.000",
		"lastModified":     lastModified,
		"vulnStatus":       "Analyzed",
	}
}

func numberedItems(n int) []map[string]interface{} {
	items := make([]map[string]interface{}, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, item(fmt.Sprintf("CVE-2024-%05d", i), "2024-01-02T03:04:05.000"))
	}
	return items
}

// failingStore accepts failAfter upserts and rejects the rest
type failingStore struct {
	*database.MemoryStore
	failAfter int
}

func (s *failingStore) UpsertCVE(ctx context.Context, record model.CVERecord) error {
	if s.Writes() >= s.failAfter {
		return errors.New("disk full")
	}
	return s.MemoryStore.UpsertCVE(ctx, record)
}

// bulkStore records the size of every bulk call
type bulkStore struct {
	*database.MemoryStore
	batches []int
	err     error
}

func (s *bulkStore) UpsertCVEs(ctx context.Context, records []model.CVERecord) error {
	if s.err != nil {
		return s.err
	}
	s.batches = append(s.batches, len(records))
	for _, record := range records {
		if err := s.MemoryStore.UpsertCVE(ctx, record); err != nil {
			return err
		}
	}
	return nil
}
