package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ortelius/pdvd-cvesync/database"
	"github.com/ortelius/pdvd-cvesync/model"
)

// stubRunner records the cutoffs it is called with. When block is set, Run signals
// started and waits for release.
type stubRunner struct {
	mu      sync.Mutex
	cutoffs []string
	err     error

	block   bool
	started chan struct{}
	release chan struct{}
}

func (r *stubRunner) Run(_ context.Context, cutoff string) (model.SyncSummary, error) {
	r.mu.Lock()
	r.cutoffs = append(r.cutoffs, cutoff)
	r.mu.Unlock()

	if r.block {
		r.started <- struct{}{}
		<-r.release
	}

	mode := model.SyncModeFull
	if cutoff != "" {
		mode = model.SyncModeIncremental
	}
	now := time.Now()
	summary := model.SyncSummary{Mode: mode, Cutoff: cutoff, StartedAt: now, FinishedAt: now}
	if r.err != nil {
		summary.Error = r.err.Error()
	}
	return summary, r.err
}

func (r *stubRunner) Cutoffs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.cutoffs...)
}

type stubPublisher struct {
	mu        sync.Mutex
	summaries []model.SyncSummary
}

func (p *stubPublisher) PublishSyncCompleted(_ context.Context, summary model.SyncSummary) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.summaries = append(p.summaries, summary)
	return nil
}

func TestServiceSkipsTriggerWhileRunActive(t *testing.T) {
	runner := &stubRunner{block: true, started: make(chan struct{}), release: make(chan struct{})}
	svc := NewService(runner, NewTracker(database.NewMemoryStore()), zap.NewNop())

	done := make(chan error, 1)
	go func() {
		_, err := svc.RunFull(context.Background(), "schedule")
		done <- err
	}()
	<-runner.started

	status := svc.Status(context.Background())
	assert.True(t, status.Running)
	assert.Equal(t, model.SyncModeFull, status.CurrentMode)

	summary, err := svc.RunIncremental(context.Background(), "api")
	assert.ErrorIs(t, err, ErrSyncInProgress)
	assert.Equal(t, "api", summary.Trigger)

	require.NoError(t, svc.Task(model.SyncModeFull, "schedule")(context.Background()))

	close(runner.release)
	require.NoError(t, <-done)

	assert.Len(t, runner.Cutoffs(), 1)
	status = svc.Status(context.Background())
	assert.False(t, status.Running)
	require.NotNil(t, status.LastRun)
	assert.Equal(t, "schedule", status.LastRun.Trigger)
}

func TestServiceRunsAgainAfterCompletion(t *testing.T) {
	runner := &stubRunner{}
	svc := NewService(runner, NewTracker(database.NewMemoryStore()), zap.NewNop())

	_, err := svc.RunFull(context.Background(), "api")
	require.NoError(t, err)
	_, err = svc.RunFull(context.Background(), "api")
	require.NoError(t, err)

	assert.Len(t, runner.Cutoffs(), 2)
}

func TestServiceIncrementalUsesWatermark(t *testing.T) {
	store := storeWithDates(t, "2023-01-01", "2023-06-15", model.Unknown)
	runner := &stubRunner{}
	svc := NewService(runner, NewTracker(store), zap.NewNop())

	summary, err := svc.RunIncremental(context.Background(), "schedule")
	require.NoError(t, err)

	assert.Equal(t, []string{"2023-06-15T00:00:00.000"}, runner.Cutoffs())
	assert.Equal(t, model.SyncModeIncremental, summary.Mode)
}

func TestServiceIncrementalWithoutWatermarkRunsFull(t *testing.T) {
	runner := &stubRunner{}
	svc := NewService(runner, NewTracker(storeWithDates(t, model.Unknown)), zap.NewNop())

	summary, err := svc.RunIncremental(context.Background(), "schedule")
	require.NoError(t, err)

	assert.Equal(t, []string{""}, runner.Cutoffs())
	assert.Equal(t, model.SyncModeFull, summary.Mode)
}

func TestServiceFullIgnoresWatermark(t *testing.T) {
	runner := &stubRunner{}
	svc := NewService(runner, NewTracker(storeWithDates(t, "2023-06-15")), zap.NewNop())

	_, err := svc.RunFull(context.Background(), "api")
	require.NoError(t, err)
	assert.Equal(t, []string{""}, runner.Cutoffs())
}

func TestServiceRecordsAndPublishes(t *testing.T) {
	store := database.NewMemoryStore()
	publisher := &stubPublisher{}
	runner := &stubRunner{}
	svc := NewService(runner, NewTracker(store), zap.NewNop(),
		WithRecorder(store), WithPublisher(publisher))

	_, err := svc.RunFull(context.Background(), "api")
	require.NoError(t, err)

	lastFull, err := store.GetLastRun(context.Background(), string(model.SyncModeFull))
	require.NoError(t, err)
	assert.False(t, lastFull.IsZero())

	runner.err = &RunError{Offset: 200, Kind: ErrFetchFailed, Err: errUpstream}
	_, err = svc.RunFull(context.Background(), "api")
	require.Error(t, err)

	again, err := store.GetLastRun(context.Background(), string(model.SyncModeFull))
	require.NoError(t, err)
	assert.Equal(t, lastFull, again)

	require.Len(t, publisher.summaries, 2)
	assert.True(t, publisher.summaries[0].Succeeded())
	assert.False(t, publisher.summaries[1].Succeeded())

	status := svc.Status(context.Background())
	require.NotNil(t, status.LastRun)
	assert.False(t, status.LastRun.Succeeded())
	assert.Contains(t, status.LastSuccess, model.SyncModeFull)
	assert.NotContains(t, status.LastSuccess, model.SyncModeIncremental)
}

func TestServiceTaskReportsFailures(t *testing.T) {
	runner := &stubRunner{err: errors.New("boom")}
	svc := NewService(runner, NewTracker(database.NewMemoryStore()), zap.NewNop())

	err := svc.Task(model.SyncModeFull, "schedule")(context.Background())
	assert.EqualError(t, err, "boom")
}
