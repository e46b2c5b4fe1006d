package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ortelius/pdvd-cvesync/model"
	"github.com/ortelius/pdvd-cvesync/util"
)

// Runner executes one sync run; *Orchestrator is the production implementation
type Runner interface {
	Run(ctx context.Context, cutoff string) (model.SyncSummary, error)
}

// RunRecorder persists when each sync mode last finished successfully
type RunRecorder interface {
	GetLastRun(ctx context.Context, mode string) (time.Time, error)
	SaveLastRun(ctx context.Context, mode string, finishedAt time.Time) error
}

// Publisher announces finished runs to other services
type Publisher interface {
	PublishSyncCompleted(ctx context.Context, summary model.SyncSummary) error
}

// Service is the single entry point for every trigger: scheduler ticks, the REST
// API and the Kafka consumer. At most one run executes at a time; a trigger that
// arrives while a run is active is dropped with ErrSyncInProgress.
type Service struct {
	runner    Runner
	tracker   *Tracker
	recorder  RunRecorder
	publisher Publisher
	metrics   *Metrics
	logger    *zap.Logger

	runMu sync.Mutex

	statusMu    sync.RWMutex
	running     bool
	currentMode model.SyncMode
	lastRun     *model.SyncSummary
}

// ServiceOption customizes a Service
type ServiceOption func(*Service)

// WithRecorder persists the finish time of successful runs
func WithRecorder(recorder RunRecorder) ServiceOption {
	return func(s *Service) { s.recorder = recorder }
}

// WithPublisher publishes a completion event after every run
func WithPublisher(publisher Publisher) ServiceOption {
	return func(s *Service) { s.publisher = publisher }
}

// WithMetrics records run outcomes and durations
func WithMetrics(metrics *Metrics) ServiceOption {
	return func(s *Service) { s.metrics = metrics }
}

// NewService creates the guarded sync entry point
func NewService(runner Runner, tracker *Tracker, logger *zap.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		runner:  runner,
		tracker: tracker,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunIncremental syncs records modified since the current watermark, or everything
// when storage holds no watermark yet
func (s *Service) RunIncremental(ctx context.Context, trigger string) (model.SyncSummary, error) {
	return s.Run(ctx, model.SyncModeIncremental, trigger)
}

// RunFull syncs the entire feed
func (s *Service) RunFull(ctx context.Context, trigger string) (model.SyncSummary, error) {
	return s.Run(ctx, model.SyncModeFull, trigger)
}

// Run executes one sync of the requested mode unless another run is active
func (s *Service) Run(ctx context.Context, mode model.SyncMode, trigger string) (model.SyncSummary, error) {
	if !s.runMu.TryLock() {
		s.logger.Warn("Skipping sync trigger, a run is already in progress",
			zap.String("mode", string(mode)),
			zap.String("trigger", trigger),
			zap.String("active_mode", string(s.activeMode())))
		return model.SyncSummary{Mode: mode, Trigger: trigger, Error: ErrSyncInProgress.Error()}, ErrSyncInProgress
	}
	defer s.runMu.Unlock()

	s.setRunning(mode)

	summary, err := s.execute(ctx, mode)
	summary.Trigger = trigger

	s.finish(ctx, summary, err)
	return summary, err
}

func (s *Service) execute(ctx context.Context, mode model.SyncMode) (model.SyncSummary, error) {
	cutoff := ""
	if mode == model.SyncModeIncremental {
		watermark, ok, err := s.tracker.Current(ctx)
		if err != nil {
			now := time.Now()
			return model.SyncSummary{Mode: mode, StartedAt: now, FinishedAt: now, TotalResults: -1, Error: err.Error()}, err
		}
		if ok {
			if cutoff, ok = util.DateToTimestamp(watermark); !ok {
				err := fmt.Errorf("stored watermark %q is not a date", watermark)
				now := time.Now()
				return model.SyncSummary{Mode: mode, StartedAt: now, FinishedAt: now, TotalResults: -1, Error: err.Error()}, err
			}
		} else {
			s.logger.Info("No watermark in storage, incremental sync falls back to a full sync")
		}
	}

	return s.runner.Run(ctx, cutoff)
}

func (s *Service) finish(ctx context.Context, summary model.SyncSummary, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	s.metrics.run(ctx, string(summary.Mode), outcome, summary.FinishedAt.Sub(summary.StartedAt).Seconds())

	if err == nil && s.recorder != nil {
		if rerr := s.recorder.SaveLastRun(ctx, string(summary.Mode), summary.FinishedAt); rerr != nil {
			s.logger.Warn("Failed to record last sync run", zap.String("mode", string(summary.Mode)), zap.Error(rerr))
		}
	}

	if s.publisher != nil {
		if perr := s.publisher.PublishSyncCompleted(ctx, summary); perr != nil {
			s.logger.Warn("Failed to publish sync completion event", zap.Error(perr))
		}
	}

	s.statusMu.Lock()
	s.running = false
	s.currentMode = ""
	s.lastRun = &summary
	s.statusMu.Unlock()
}

func (s *Service) setRunning(mode model.SyncMode) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.running = true
	s.currentMode = mode
}

func (s *Service) activeMode() model.SyncMode {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.currentMode
}

// Status reports whether a run is active, the last run's summary and, when a
// recorder is configured, the last successful finish time per mode
func (s *Service) Status(ctx context.Context) model.SyncStatus {
	s.statusMu.RLock()
	status := model.SyncStatus{
		Running:     s.running,
		CurrentMode: s.currentMode,
	}
	if s.lastRun != nil {
		last := *s.lastRun
		status.LastRun = &last
	}
	s.statusMu.RUnlock()

	if s.recorder == nil {
		return status
	}

	status.LastSuccess = make(map[model.SyncMode]string)
	for _, mode := range []model.SyncMode{model.SyncModeIncremental, model.SyncModeFull} {
		lastRun, err := s.recorder.GetLastRun(ctx, string(mode))
		if err != nil {
			s.logger.Warn("Failed to read last sync run", zap.String("mode", string(mode)), zap.Error(err))
			continue
		}
		if !lastRun.IsZero() {
			status.LastSuccess[mode] = lastRun.UTC().Format(time.RFC3339)
		}
	}
	return status
}

// Task adapts Run for the scheduler. A tick skipped because another run is active
// is not an error; Run has already logged it.
func (s *Service) Task(mode model.SyncMode, trigger string) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := s.Run(ctx, mode, trigger)
		if errors.Is(err, ErrSyncInProgress) {
			return nil
		}
		return err
	}
}
