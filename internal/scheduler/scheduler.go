// Package scheduler runs named tasks on fixed intervals and on demand.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is the work executed on every tick of a registered job
type Task func(ctx context.Context) error

// ErrUnknownJob is returned by TriggerNow for names that were never registered
var ErrUnknownJob = errors.New("unknown job")

type job struct {
	name     string
	interval time.Duration
	task     Task
}

// Scheduler fires each registered job on its own ticker. A failing tick is logged
// and does not stop later ticks. Overlap between jobs is not prevented here; the
// tasks themselves are expected to guard shared resources.
type Scheduler struct {
	logger *zap.Logger

	mu      sync.Mutex
	jobs    map[string]*job
	order   []string
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// New creates an empty scheduler
func New(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		logger: logger,
		jobs:   make(map[string]*job),
	}
}

// Every registers task to run every interval once the scheduler is started
func (s *Scheduler) Every(name string, interval time.Duration, task Task) error {
	if interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive, got %s", name, interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("job %s: scheduler already started", name)
	}
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s: already registered", name)
	}

	s.jobs[name] = &job{name: name, interval: interval, task: task}
	s.order = append(s.order, name)
	return nil
}

// Start launches one ticker goroutine per job. The first tick fires one interval after Start.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	for _, name := range s.order {
		j := s.jobs[name]
		s.wg.Add(1)
		go s.loop(ctx, j)
		s.logger.Info("Scheduled job", zap.String("job", j.name), zap.Duration("interval", j.interval))
	}
}

// Stop halts the tickers and waits for in-flight ticks to return
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// TriggerNow runs the named job synchronously on the caller's goroutine
func (s *Scheduler) TriggerNow(ctx context.Context, name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return j.task(ctx)
}

func (s *Scheduler) loop(ctx context.Context, j *job) {
	defer s.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, j)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, j *job) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Scheduled job panicked", zap.String("job", j.name), zap.Any("panic", r))
		}
	}()

	if err := j.task(ctx); err != nil {
		s.logger.Error("Scheduled job failed", zap.String("job", j.name), zap.Error(err))
	}
}
