package database

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ortelius/pdvd-cvesync/model"
)

// MemoryStore keeps CVE records in process memory. It backs tests and CVE_STORE=memory
// local runs. It supports single-record upserts only, so batches are applied one by one.
type MemoryStore struct {
	mu       sync.RWMutex
	records  map[string]model.CVERecord
	lastRuns map[string]time.Time
	writes   int
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:  make(map[string]model.CVERecord),
		lastRuns: make(map[string]time.Time),
	}
}

// UpsertCVE replaces or inserts a record by cve_id
func (m *MemoryStore) UpsertCVE(_ context.Context, record model.CVERecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record.Key = record.CveID
	m.records[record.CveID] = record
	m.writes++
	return nil
}

// Writes returns the number of upserts applied so far
func (m *MemoryStore) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

// LatestLastModified returns the greatest last_modified date, ignoring the Unknown sentinel
func (m *MemoryStore) LatestLastModified(_ context.Context) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	latest := ""
	for _, record := range m.records {
		if record.LastModified == model.Unknown || record.LastModified == "" {
			continue
		}
		if record.LastModified > latest {
			latest = record.LastModified
		}
	}
	return latest, latest != "", nil
}

// CountCVEs returns the number of stored records
func (m *MemoryStore) CountCVEs(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.records)), nil
}

// ListCVEs returns one page of records ordered by opts.SortField, without raw payloads
func (m *MemoryStore) ListCVEs(_ context.Context, opts ListOptions) ([]model.CVERecord, error) {
	opts = opts.Normalize()

	m.mu.RLock()
	all := make([]model.CVERecord, 0, len(m.records))
	for _, record := range m.records {
		record.Raw = nil
		all = append(all, record)
	}
	m.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		cmp := compareField(all[i], all[j], opts.SortField)
		if cmp == 0 {
			return all[i].CveID < all[j].CveID
		}
		if opts.Descending {
			return cmp > 0
		}
		return cmp < 0
	})

	if opts.Offset >= len(all) {
		return []model.CVERecord{}, nil
	}
	end := opts.Offset + opts.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[opts.Offset:end], nil
}

// GetCVE returns the record for cveID, or nil when it is not stored
func (m *MemoryStore) GetCVE(_ context.Context, cveID string) (*model.CVERecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.records[cveID]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

// GetLastRun returns the recorded finish time of the last successful run of mode
func (m *MemoryStore) GetLastRun(_ context.Context, mode string) (time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRuns[mode], nil
}

// SaveLastRun records the finish time of a successful run of mode
func (m *MemoryStore) SaveLastRun(_ context.Context, mode string, finishedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastRuns[mode] = finishedAt
	return nil
}

func compareField(a, b model.CVERecord, field string) int {
	switch field {
	case "published":
		return strings.Compare(a.Published, b.Published)
	case "last_modified":
		return strings.Compare(a.LastModified, b.LastModified)
	case "status":
		return strings.Compare(a.Status, b.Status)
	case "severity_score":
		switch {
		case a.SeverityScore < b.SeverityScore:
			return -1
		case a.SeverityScore > b.SeverityScore:
			return 1
		}
		return 0
	default:
		return strings.Compare(a.CveID, b.CveID)
	}
}

// SeverityCounts returns the number of stored records per severity_rating
func (m *MemoryStore) SeverityCounts(_ context.Context) (map[string]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[string]int64)
	for _, record := range m.records {
		counts[record.SeverityRating]++
	}
	return counts, nil
}
