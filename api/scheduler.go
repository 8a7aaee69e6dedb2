/*
scheduler.go - Named recurring background jobs

PURPOSE:
  Runs the periodic maintenance work of the profit engine: refreshing
  in-progress years, executing due auto rollovers, and sweeping stale
  exports and expired notifications. Each job is owned by name and can
  be started, stopped, or triggered on demand independently.

DESIGN:
  - One goroutine per started job, with its own cancellable context
  - A job runs once when started, then on every tick of its interval
  - A run that would overlap a run still in progress is skipped
  - Jobs act through the same service entry points as the HTTP API;
    identity is the system actor, chosen by the job itself
  - Status (last run, last error, run count) is kept for /api/admin/jobs

USAGE:
  s := NewScheduler(logger)
  s.Register(Job{Name: "auto-rollover", Interval: 24 * time.Hour, Run: fn})
  s.StartAll()
  // ... later
  s.StopAll(ctx)

SEE ALSO:
  - jobs.go: the default job set
  - handlers.go: admin job endpoints
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Abd-elrahmann/inestors-backend/generic"
)

// ErrJobBusy is returned by RunNow while the job is already running.
var ErrJobBusy = generic.NewInvalidState("run job", "", "job is already running")

// JobFunc does one unit of work. It should return promptly once ctx is done.
type JobFunc func(ctx context.Context) error

type Job struct {
	Name     string
	Interval time.Duration
	Run      JobFunc
}

// JobStatus is a point-in-time view of a registered job.
type JobStatus struct {
	Name         string
	Interval     time.Duration
	Started      bool
	Running      bool
	Runs         int
	Skipped      int
	LastRun      *time.Time
	LastDuration time.Duration
	LastError    string
}

type job struct {
	Job

	cancel context.CancelFunc
	done   chan struct{}
	busy   atomic.Bool

	runs     int
	skipped  int
	lastRun  *time.Time
	lastTook time.Duration
	lastErr  error
}

// Scheduler owns a set of named jobs.
type Scheduler struct {
	mu   sync.Mutex
	jobs map[string]*job
	log  *slog.Logger
}

func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		jobs: make(map[string]*job),
		log:  logger.With(slog.String("component", "scheduler")),
	}
}

// Register adds a job. Names are unique and intervals must be positive.
func (s *Scheduler) Register(j Job) error {
	if j.Name == "" {
		return generic.NewValidationError("name", "is required")
	}
	if j.Interval <= 0 {
		return generic.NewValidationError("interval", "must be positive")
	}
	if j.Run == nil {
		return generic.NewValidationError("run", "is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[j.Name]; ok {
		return &generic.DuplicateError{Kind: "job", Key: j.Name}
	}
	s.jobs[j.Name] = &job{Job: j}
	return nil
}

func (s *Scheduler) get(name string) (*job, error) {
	j, ok := s.jobs[name]
	if !ok {
		return nil, generic.NewNotFound("job", name)
	}
	return j, nil
}

// Start launches the named job. Starting a started job is a no-op.
func (s *Scheduler) Start(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, err := s.get(name)
	if err != nil {
		return err
	}
	if j.cancel != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	j.cancel = cancel
	j.done = make(chan struct{})
	go s.loop(ctx, j, j.done)

	s.log.Info("job started", slog.String("job", name), slog.Duration("interval", j.Interval))
	return nil
}

// Stop cancels the named job and waits for its goroutine to exit.
func (s *Scheduler) Stop(name string) error {
	s.mu.Lock()
	j, err := s.get(name)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	cancel, done := j.cancel, j.done
	j.cancel, j.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	s.log.Info("job stopped", slog.String("job", name))
	return nil
}

func (s *Scheduler) StartAll() {
	for _, name := range s.names() {
		_ = s.Start(name)
	}
}

// StopAll stops every job, giving up when ctx ends.
func (s *Scheduler) StopAll(ctx context.Context) error {
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for _, name := range s.names() {
			_ = s.Stop(name)
		}
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunNow runs the named job synchronously on ctx.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	j, err := s.get(name)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	ran, err := s.execute(ctx, j)
	if !ran {
		return ErrJobBusy
	}
	return err
}

// Jobs reports every registered job, sorted by name.
func (s *Scheduler) Jobs() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobStatus, 0, len(s.jobs))
	for _, j := range s.jobs {
		st := JobStatus{
			Name:         j.Name,
			Interval:     j.Interval,
			Started:      j.cancel != nil,
			Running:      j.busy.Load(),
			Runs:         j.runs,
			Skipped:      j.skipped,
			LastRun:      j.lastRun,
			LastDuration: j.lastTook,
		}
		if j.lastErr != nil {
			st.LastError = j.lastErr.Error()
		}
		out = append(out, st)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}

func (s *Scheduler) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// =============================================================================
// RUN LOOP
// =============================================================================

func (s *Scheduler) loop(ctx context.Context, j *job, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	s.execute(ctx, j)
	for {
		select {
		case <-ticker.C:
			s.execute(ctx, j)
		case <-ctx.Done():
			return
		}
	}
}

// execute runs j once unless a run is already in flight, and reports
// whether it ran along with the run's error.
func (s *Scheduler) execute(ctx context.Context, j *job) (bool, error) {
	if !j.busy.CompareAndSwap(false, true) {
		s.mu.Lock()
		j.skipped++
		s.mu.Unlock()
		s.log.Warn("job still running, skipping", slog.String("job", j.Name))
		return false, nil
	}
	defer j.busy.Store(false)

	start := time.Now()
	err := s.safeRun(ctx, j)
	took := time.Since(start)

	s.mu.Lock()
	j.runs++
	j.lastRun = &start
	j.lastTook = took
	j.lastErr = err
	s.mu.Unlock()

	log := s.log.With(slog.String("job", j.Name), slog.Duration("took", took))
	switch {
	case err == nil:
		log.Info("job finished")
	case errors.Is(err, context.Canceled):
		log.Info("job cancelled")
	default:
		log.Error("job failed", slog.Any("error", err))
	}
	return true, err
}

func (s *Scheduler) safeRun(ctx context.Context, j *job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &jobPanic{job: j.Name, value: r}
		}
	}()
	return j.Run(ctx)
}

type jobPanic struct {
	job   string
	value any
}

func (p *jobPanic) Error() string {
	return fmt.Sprintf("job %s panicked: %v", p.job, p.value)
}
