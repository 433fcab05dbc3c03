// Package scheduler runs the engine's periodic scans.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/grcwatch/notify-engine/internal/errors"
	"github.com/grcwatch/notify-engine/internal/logger"
	"github.com/grcwatch/notify-engine/internal/notify"
)

// Scan names accepted by Run and the scan endpoints.
const (
	ScanAlerts      = "alerts"
	ScanExpirations = "expirations"
	ScanOverdue     = "overdue"
	ScanPurge       = "purge"
)

// ErrUnknownScan is returned for a scan name no job is registered under.
var ErrUnknownScan = errors.NewStd("unknown scan")

// ErrScanBusy is returned by Run when another run of the same scan holds the lock.
var ErrScanBusy = errors.NewStd("scan already running")

// Engine is the subset of *notify.Engine the scheduler drives.
type Engine interface {
	EvaluateAlerts(ctx context.Context) (notify.AlertsResult, error)
	EvaluateExpirations(ctx context.Context) (notify.ExpirationResult, error)
	EvaluateOverdue(ctx context.Context) (notify.OverdueResult, error)
	PurgeOldNotifications(ctx context.Context, olderThanDays int) (notify.PurgeResult, error)
}

// Job is a named periodic task. A non-positive Interval registers the job
// for on-demand runs only.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) (any, error)
}

// Intervals configures how often each scan runs.
type Intervals struct {
	Alerts      time.Duration
	Expirations time.Duration
	Overdue     time.Duration
	Purge       time.Duration
}

// EngineJobs builds the standard scan jobs.
func EngineJobs(e Engine, iv Intervals, retentionDays int) []Job {
	return []Job{
		{Name: ScanAlerts, Interval: iv.Alerts, Run: func(ctx context.Context) (any, error) {
			return e.EvaluateAlerts(ctx)
		}},
		{Name: ScanExpirations, Interval: iv.Expirations, Run: func(ctx context.Context) (any, error) {
			return e.EvaluateExpirations(ctx)
		}},
		{Name: ScanOverdue, Interval: iv.Overdue, Run: func(ctx context.Context) (any, error) {
			return e.EvaluateOverdue(ctx)
		}},
		{Name: ScanPurge, Interval: iv.Purge, Run: func(ctx context.Context) (any, error) {
			return e.PurgeOldNotifications(ctx, retentionDays)
		}},
	}
}

// Options tune a Scheduler.
type Options struct {
	// RunTimeout bounds a single run. Zero means no timeout.
	RunTimeout time.Duration
	// LockTTL is how long a run may hold its lock before it expires.
	LockTTL time.Duration
}

// Scheduler runs jobs on their intervals, one run per job at a time across
// every instance sharing the Locker.
type Scheduler struct {
	jobs   map[string]Job
	order  []string
	locker Locker
	opts   Options
	log    logger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// New creates a scheduler. A nil locker uses a LocalLocker.
func New(jobs []Job, locker Locker, opts Options, log logger.Logger) *Scheduler {
	if locker == nil {
		locker = NewLocalLocker()
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 10 * time.Minute
	}
	s := &Scheduler{
		jobs:   make(map[string]Job, len(jobs)),
		locker: locker,
		opts:   opts,
		log:    log.Module("scheduler"),
	}
	for _, j := range jobs {
		s.jobs[j.Name] = j
		s.order = append(s.order, j.Name)
	}
	return s
}

// Start launches one goroutine per periodic job. It is a no-op when already running.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	for _, name := range s.order {
		job := s.jobs[name]
		if job.Interval <= 0 {
			s.log.Info("scan not scheduled", logger.String("scan", job.Name))
			continue
		}
		s.wg.Add(1)
		go s.loop(ctx, job)
	}
}

// Stop cancels the loops and waits for in-flight runs to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.running = false
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	defer s.wg.Done()
	s.log.Info("scan scheduled",
		logger.String("scan", job.Name),
		logger.Duration("interval", job.Interval))

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.run(ctx, job); err != nil && !errors.Is(err, ErrScanBusy) {
				s.log.Error("scheduled scan failed",
					logger.String("scan", job.Name),
					logger.Error(err))
			}
		}
	}
}

// Run executes the named job once, returning its result.
func (s *Scheduler) Run(ctx context.Context, name string) (any, error) {
	job, ok := s.jobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScan, name)
	}
	return s.run(ctx, job)
}

// Names lists registered jobs in registration order.
func (s *Scheduler) Names() []string {
	return append([]string(nil), s.order...)
}

func (s *Scheduler) run(ctx context.Context, job Job) (any, error) {
	release, ok, err := s.locker.TryLock(ctx, job.Name, s.opts.LockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.log.Debug("scan skipped, lock held elsewhere", logger.String("scan", job.Name))
		return nil, ErrScanBusy
	}
	defer release()

	if s.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RunTimeout)
		defer cancel()
	}

	start := time.Now()
	res, err := job.Run(ctx)
	if err != nil {
		return res, err
	}
	s.log.Info("scan completed",
		logger.String("scan", job.Name),
		logger.Duration("elapsed", time.Since(start)),
		logger.Any("result", res))
	return res, nil
}
