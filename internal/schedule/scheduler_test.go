package schedule

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type blockingJob struct {
	runs    atomic.Int32
	release chan struct{}
}

func (j *blockingJob) Name() string {
	return "blocking"
}

func (j *blockingJob) Run(context.Context) error {
	j.runs.Add(1)
	<-j.release
	return nil
}

func TestCronScheduler_AddJob(t *testing.T) {
	s := NewCronScheduler()
	job := &blockingJob{release: make(chan struct{})}
	require.Error(t, s.AddJob(job, "not a cron spec"))
	require.NoError(t, s.AddJob(job, "30 3 * * *"))
	require.Error(t, s.AddJob(job, "0 * * * *"))
	require.Contains(t, s.Jobs(), "blocking")
}

func TestCronScheduler_GuardSkipsOverlappingRuns(t *testing.T) {
	s := NewCronScheduler()
	job := &blockingJob{release: make(chan struct{})}
	run := s.guard(job, "* * * * *")

	done := make(chan struct{})
	go func() {
		run()
		close(done)
	}()
	require.Eventually(t, func() bool { return job.runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	run()
	require.Equal(t, int32(1), job.runs.Load())

	close(job.release)
	<-done
	run()
	require.Equal(t, int32(2), job.runs.Load())
}
