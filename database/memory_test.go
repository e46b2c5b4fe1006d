package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ortelius/pdvd-cvesync/model"
)

func seed(t *testing.T, store *MemoryStore, ids ...string) {
	t.Helper()
	for i, id := range ids {
		record := model.NewCVERecord(id)
		record.SeverityScore = float64(i)
		record.SeverityRating = "LOW"
		record.LastModified = "2024-01-0" + string(rune('1'+i))
		record.Raw = map[string]interface{}{"id": id}
		require.NoError(t, store.UpsertCVE(context.Background(), *record))
	}
}

func TestMemoryStoreUpsertReplaces(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	record := model.NewCVERecord("CVE-2024-0001")
	record.Status = "Received"
	require.NoError(t, store.UpsertCVE(ctx, *record))

	record.Status = "Analyzed"
	require.NoError(t, store.UpsertCVE(ctx, *record))

	count, err := store.CountCVEs(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	got, err := store.GetCVE(ctx, "CVE-2024-0001")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Analyzed", got.Status)
	assert.Equal(t, "CVE-2024-0001", got.Key)
}

func TestMemoryStoreGetMissing(t *testing.T) {
	got, err := NewMemoryStore().GetCVE(context.Background(), "CVE-0000-0000")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStoreListSortsAndPages(t *testing.T) {
	store := NewMemoryStore()
	seed(t, store, "CVE-C", "CVE-A", "CVE-B")
	ctx := context.Background()

	all, err := store.ListCVEs(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "CVE-A", all[0].CveID)
	assert.Nil(t, all[0].Raw)

	page, err := store.ListCVEs(ctx, ListOptions{Offset: 1, Limit: 1, SortField: "severity_score", Descending: true})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "CVE-A", page[0].CveID)

	beyond, err := store.ListCVEs(ctx, ListOptions{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, beyond)

	// listing must not strip the stored payload
	got, err := store.GetCVE(ctx, "CVE-A")
	require.NoError(t, err)
	assert.NotNil(t, got.Raw)
}

func TestMemoryStoreLatestLastModifiedSkipsUnknown(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	unknown := model.NewCVERecord("CVE-U")
	require.NoError(t, store.UpsertCVE(ctx, *unknown))

	_, ok, err := store.LatestLastModified(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	seed(t, store, "CVE-1", "CVE-2")
	latest, ok, err := store.LatestLastModified(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2024-01-02", latest)
}

func TestMemoryStoreSeverityCounts(t *testing.T) {
	store := NewMemoryStore()
	seed(t, store, "CVE-1", "CVE-2")
	require.NoError(t, store.UpsertCVE(context.Background(), *model.NewCVERecord("CVE-3")))

	counts, err := store.SeverityCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"LOW": 2, "NONE": 1}, counts)
}

func TestMemoryStoreLastRun(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	last, err := store.GetLastRun(ctx, "full")
	require.NoError(t, err)
	assert.True(t, last.IsZero())

	finished := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveLastRun(ctx, "full", finished))

	last, err = store.GetLastRun(ctx, "full")
	require.NoError(t, err)
	assert.Equal(t, finished, last)
}

func TestListOptionsNormalize(t *testing.T) {
	opts := ListOptions{Offset: -5, Limit: 5000, SortField: "raw"}.Normalize()
	assert.Equal(t, 0, opts.Offset)
	assert.Equal(t, 100, opts.Limit)
	assert.Equal(t, "cve_id", opts.SortField)

	opts = ListOptions{Limit: 20, SortField: "published"}.Normalize()
	assert.Equal(t, 20, opts.Limit)
	assert.Equal(t, "published", opts.SortField)
}
