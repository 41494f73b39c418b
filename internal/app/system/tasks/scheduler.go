// internal/app/system/tasks/scheduler.go
package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/melange/internal/app/system/metrics"
	"go.uber.org/zap"
)

// Job is a periodic maintenance function run by the Scheduler.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler runs each Job on its own ticker until Stop is called.
type Scheduler struct {
	jobs    []Job
	log     *zap.Logger
	metrics *metrics.Metrics
	timeout time.Duration
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler. timeout bounds a single run of a job.
func NewScheduler(logger *zap.Logger, m *metrics.Metrics, timeout time.Duration, jobs ...Job) *Scheduler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Scheduler{
		jobs:    jobs,
		log:     logger,
		metrics: m,
		timeout: timeout,
		stopCh:  make(chan struct{}),
	}
}

// Start launches one goroutine per job.
func (s *Scheduler) Start() {
	for _, j := range s.jobs {
		if j.Interval <= 0 || j.Run == nil {
			s.log.Warn("skipping invalid job", zap.String("job", j.Name))
			continue
		}
		s.wg.Add(1)
		go s.loop(j)
	}
	s.log.Info("job scheduler started", zap.Int("jobs", len(s.jobs)))
}

// Stop signals every job loop to exit and waits for them.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	s.log.Info("job scheduler stopped")
}

func (s *Scheduler) loop(j Job) {
	defer s.wg.Done()

	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.RunJob(j)
		}
	}
}

// RunJob executes j once with the scheduler's timeout.
func (s *Scheduler) RunJob(j Job) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	err := j.Run(ctx)
	outcome := "done"
	if err != nil {
		outcome = "failed"
		s.log.Error("job failed", zap.String("job", j.Name), zap.Error(err))
	}
	s.metrics.TaskRun(j.Name, outcome, time.Since(start))
}
