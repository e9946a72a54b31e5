package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu   sync.Mutex
	runs map[string][]error
}

func (o *recordingObserver) ObserveJob(name string, _ time.Time, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.runs == nil {
		o.runs = make(map[string][]error)
	}
	o.runs[name] = append(o.runs[name], err)
}

func TestWorker_RunNowRecordsOutcome(t *testing.T) {
	obs := &recordingObserver{}
	w := NewWorker(1, obs)
	defer w.Shutdown()

	boom := errors.New("boom")
	require.NoError(t, w.RunNow(context.Background(), "ok", func(ctx context.Context) error { return nil }))
	require.ErrorIs(t, w.RunNow(context.Background(), "fail", func(ctx context.Context) error { return boom }), boom)

	stats := w.GetStats()
	assert.Equal(t, int64(2), stats.CompletedJobs)
	assert.Equal(t, int64(1), stats.FailedJobs)
	assert.Equal(t, 0, stats.ActiveJobs)
	assert.Equal(t, "boom", stats.LastRuns["fail"].Error)
	assert.Empty(t, stats.LastRuns["ok"].Error)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Len(t, obs.runs["ok"], 1)
	assert.Len(t, obs.runs["fail"], 1)
}

func TestWorker_PanicIsRecovered(t *testing.T) {
	w := NewWorker(1, nil)
	defer w.Shutdown()

	err := w.RunNow(context.Background(), "panics", func(ctx context.Context) error { panic("kaboom") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
	assert.Equal(t, int64(1), w.GetStats().FailedJobs)
}

func TestWorker_EnqueueProcessesJobs(t *testing.T) {
	w := NewWorker(2, nil)

	var count int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		w.Enqueue("count", func(ctx context.Context) error {
			defer wg.Done()
			atomic.AddInt32(&count, 1)
			return nil
		})
	}
	wg.Wait()
	w.Shutdown()

	assert.Equal(t, int32(5), atomic.LoadInt32(&count))
}

func TestWorker_EnqueueAsyncWaitsOnShutdown(t *testing.T) {
	w := NewWorker(1, nil)

	var done int32
	w.EnqueueAsync("slow", func(ctx context.Context) error {
		time.Sleep(20 * time.Millisecond)
		atomic.StoreInt32(&done, 1)
		return nil
	})
	w.Shutdown()

	assert.Equal(t, int32(1), atomic.LoadInt32(&done))
}

func TestWorker_ScheduleEveryImmediateRunsAtStart(t *testing.T) {
	w := NewWorker(1, nil)

	ran := make(chan struct{}, 1)
	w.ScheduleEveryImmediate("tick", time.Hour, func(ctx context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	})

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("scheduled job did not run at start")
	}
	w.Shutdown()
}

func TestWorker_ShutdownIsIdempotentAndDropsLateJobs(t *testing.T) {
	w := NewWorker(1, nil)
	w.Shutdown()
	w.Shutdown()

	called := false
	w.Enqueue("late", func(ctx context.Context) error { called = true; return nil })
	w.EnqueueAsync("late", func(ctx context.Context) error { called = true; return nil })
	assert.False(t, called)
}
