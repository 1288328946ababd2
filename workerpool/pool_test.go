package workerpool

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/graehl/subword-nmt/errors"
)

func Test_RunJobs(t *testing.T) {
	pool := New(5)
	defer pool.Stop()

	var jobs []Job
	var completed int32
	for i := 0; i < 15; i++ {
		jobs = append(jobs, func() error {
			time.Sleep(100 * time.Millisecond)
			atomic.AddInt32(&completed, 1)
			return nil
		})
	}

	pool.Add(jobs)
	require.NoError(t, pool.Wait())
	require.EqualValues(t, len(jobs), completed, "expected all jobs to be completed")
}

func Test_StopWait(t *testing.T) {
	pool := New(5)

	var jobs []Job
	for i := 0; i < 15; i++ {
		jobs = append(jobs, func() error {
			time.Sleep(100 * time.Millisecond)
			return nil
		})
	}

	pool.Add(jobs)
	<-time.After(50 * time.Millisecond)
	pool.Stop()
	pool.Wait()
}

func Test_FirstError(t *testing.T) {
	pool := New(2)
	defer pool.Stop()

	boom := errors.New("boom")
	pool.AddBlocking([]Job{
		func() error { return nil },
		func() error { return boom },
	})
	require.Equal(t, boom, pool.Wait())
}

func Test_Reuse(t *testing.T) {
	pool := New(3)
	defer pool.Stop()

	var completed int32
	batch := []Job{
		func() error { atomic.AddInt32(&completed, 1); return nil },
		func() error { atomic.AddInt32(&completed, 1); return nil },
	}

	pool.AddBlocking(batch)
	require.NoError(t, pool.Wait())
	pool.AddBlocking(batch)
	require.NoError(t, pool.Wait())
	require.EqualValues(t, 4, completed)
}
