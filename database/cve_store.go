package database

import (
	"context"
	"fmt"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/ortelius/pdvd-cvesync/model"
)

// SortableFields lists the cve attributes a listing may be ordered by
var SortableFields = map[string]bool{
	"cve_id":         true,
	"published":      true,
	"last_modified":  true,
	"status":         true,
	"severity_score": true,
}

// ListOptions controls pagination and ordering of CVE listings
type ListOptions struct {
	Offset     int
	Limit      int
	SortField  string
	Descending bool
}

// Normalize clamps the options to valid values
func (o ListOptions) Normalize() ListOptions {
	if o.Offset < 0 {
		o.Offset = 0
	}
	if o.Limit <= 0 || o.Limit > 1000 {
		o.Limit = 100
	}
	if !SortableFields[o.SortField] {
		o.SortField = "cve_id"
	}
	return o
}

// CVEReader is the read side used by the REST and GraphQL layers
type CVEReader interface {
	CountCVEs(ctx context.Context) (int64, error)
	ListCVEs(ctx context.Context, opts ListOptions) ([]model.CVERecord, error)
	GetCVE(ctx context.Context, cveID string) (*model.CVERecord, error)
	SeverityCounts(ctx context.Context) (map[string]int64, error)
}

// CVEStore persists CVE records in the ArangoDB cve collection
type CVEStore struct {
	DB DBConnection
}

// NewCVEStore wraps an initialized connection
func NewCVEStore(db DBConnection) *CVEStore {
	return &CVEStore{DB: db}
}

// UpsertCVEs replaces or inserts every record of the batch by cve_id in a single query
func (s *CVEStore) UpsertCVEs(ctx context.Context, records []model.CVERecord) error {
	if len(records) == 0 {
		return nil
	}

	query := `
		FOR doc IN @docs
			UPSERT { cve_id: doc.cve_id }
			INSERT doc
			REPLACE doc
			IN @@collection
	`

	bindVars := map[string]interface{}{
		"@collection": CVECollection,
		"docs":        records,
	}

	cursor, err := s.DB.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: bindVars,
	})
	if err != nil {
		return fmt.Errorf("bulk upsert of %d cves: %w", len(records), err)
	}
	return cursor.Close()
}

// UpsertCVE replaces or inserts a single record by cve_id
func (s *CVEStore) UpsertCVE(ctx context.Context, record model.CVERecord) error {
	return s.UpsertCVEs(ctx, []model.CVERecord{record})
}

// LatestLastModified returns the greatest last_modified date, ignoring the Unknown sentinel
func (s *CVEStore) LatestLastModified(ctx context.Context) (string, bool, error) {
	query := `
		FOR c IN cve
			FILTER c.last_modified != @unknown AND c.last_modified != null
			SORT c.last_modified DESC
			LIMIT 1
			RETURN c.last_modified
	`

	cursor, err := s.DB.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{"unknown": model.Unknown},
	})
	if err != nil {
		return "", false, err
	}
	defer cursor.Close()

	if !cursor.HasMore() {
		return "", false, nil
	}

	var lastModified string
	if _, err := cursor.ReadDocument(ctx, &lastModified); err != nil {
		return "", false, err
	}
	return lastModified, lastModified != "", nil
}

// CountCVEs returns the number of stored records
func (s *CVEStore) CountCVEs(ctx context.Context) (int64, error) {
	col, ok := s.DB.Collections[CVECollection]
	if !ok {
		return 0, fmt.Errorf("collection %s not initialized", CVECollection)
	}
	return col.Count(ctx)
}

// ListCVEs returns one page of records ordered by opts.SortField
func (s *CVEStore) ListCVEs(ctx context.Context, opts ListOptions) ([]model.CVERecord, error) {
	opts = opts.Normalize()

	direction := "ASC"
	if opts.Descending {
		direction = "DESC"
	}

	// raw is left out of listings; the detail lookup returns it
	query := fmt.Sprintf(`
		FOR c IN cve
			SORT c.@sortField %s, c.cve_id ASC
			LIMIT @offset, @limit
			RETURN UNSET(c, "raw")
	`, direction)

	cursor, err := s.DB.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{
			"sortField": opts.SortField,
			"offset":    opts.Offset,
			"limit":     opts.Limit,
		},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	records := []model.CVERecord{}
	for cursor.HasMore() {
		var record model.CVERecord
		if _, err := cursor.ReadDocument(ctx, &record); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// GetCVE returns the record for cveID, or nil when it is not stored
func (s *CVEStore) GetCVE(ctx context.Context, cveID string) (*model.CVERecord, error) {
	query := `
		FOR c IN cve
			FILTER c.cve_id == @cveId
			LIMIT 1
			RETURN c
	`

	cursor, err := s.DB.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{"cveId": cveID},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	if !cursor.HasMore() {
		return nil, nil
	}

	var record model.CVERecord
	if _, err := cursor.ReadDocument(ctx, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// SeverityCounts returns the number of stored records per severity_rating
func (s *CVEStore) SeverityCounts(ctx context.Context) (map[string]int64, error) {
	query := `
		FOR c IN cve
			COLLECT rating = c.severity_rating WITH COUNT INTO n
			RETURN { rating: rating, count: n }
	`

	cursor, err := s.DB.Database.Query(ctx, query, &arangodb.QueryOptions{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	counts := make(map[string]int64)
	for cursor.HasMore() {
		var row struct {
			Rating string `json:"rating"`
			Count  int64  `json:"count"`
		}
		if _, err := cursor.ReadDocument(ctx, &row); err != nil {
			return nil, err
		}
		counts[row.Rating] = row.Count
	}
	return counts, nil
}
