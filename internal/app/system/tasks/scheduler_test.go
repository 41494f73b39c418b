package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dalemusser/melange/internal/app/system/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestScheduler_RunsJobsUntilStopped(t *testing.T) {
	defer goleak.VerifyNone(t)

	var runs atomic.Int32
	s := NewScheduler(zap.NewNop(), nil, time.Second, Job{
		Name:     "counter",
		Interval: 5 * time.Millisecond,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})
	s.Start()
	require.Eventually(t, func() bool { return runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	s.Stop()

	after := runs.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, runs.Load(), "no runs after Stop")
}

func TestScheduler_SkipsInvalidJobs(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewScheduler(zap.NewNop(), nil, 0, Job{Name: "no-interval", Run: func(context.Context) error { return nil }}, Job{Name: "no-run", Interval: time.Second})
	s.Start()
	s.Stop()
}

func TestScheduler_RunJobRecordsOutcome(t *testing.T) {
	m := metrics.New()
	s := NewScheduler(zap.NewNop(), m, time.Second)

	s.RunJob(Job{Name: "ok", Run: func(context.Context) error { return nil }})
	s.RunJob(Job{Name: "bad", Run: func(context.Context) error { return errors.New("boom") }})

	n, err := testutil.GatherAndCount(m.Registry(), "melange_task_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
