package workerpool_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensvc/httpd/daemon/routinehelper"
	"github.com/opensvc/httpd/daemon/workerpool"
)

func TestNewRejectsInvalidSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		p, err := workerpool.New(size)
		require.Error(t, err)
		require.Nil(t, p)
	}
}

func TestExecuteAllJobsThenStop(t *testing.T) {
	for _, size := range []int{1, 2, 4, 16} {
		for _, k := range []int{0, 1, 10, 500} {
			tracer := routinehelper.NewTracer()
			p, err := workerpool.New(size,
				workerpool.WithName("test"),
				workerpool.WithRoutineTracer(tracer))
			require.NoError(t, err)
			require.Equal(t, size, p.Size())
			require.Equalf(t, size, tracer.TraceRDump().Count, "found %#v", tracer.TraceRDump())

			var counter atomic.Int64
			for i := 0; i < k; i++ {
				require.NoError(t, p.Execute(func() { counter.Add(1) }))
			}
			p.Stop()
			assert.Equalf(t, int64(k), counter.Load(), "size %d k %d", size, k)
			assert.Equalf(t, 0, tracer.TraceRDump().Count, "workers still running: %#v", tracer.TraceRDump())
			assert.Equal(t, 0, p.Len())
		}
	}
}

func TestSingleWorkerKeepsFIFOOrder(t *testing.T) {
	p, err := workerpool.New(1)
	require.NoError(t, err)
	var (
		mu    sync.Mutex
		order []int
	)
	for i := 0; i < 50; i++ {
		i := i
		require.NoError(t, p.Execute(func() {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, i)
		}))
	}
	p.Stop()
	require.Len(t, order, 50)
	for i, v := range order {
		require.Equal(t, i, v)
	}
}

func TestExecuteDoesNotBlockWhenWorkersAreBusy(t *testing.T) {
	p, err := workerpool.New(1)
	require.NoError(t, err)
	release := make(chan bool)
	require.NoError(t, p.Execute(func() { <-release }))

	done := make(chan bool)
	go func() {
		for i := 0; i < 1000; i++ {
			_ = p.Execute(func() {})
		}
		done <- true
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Execute blocked")
	}
	close(release)
	p.Stop()
}

func TestExecuteAfterStop(t *testing.T) {
	p, err := workerpool.New(2)
	require.NoError(t, err)
	p.Stop()
	require.ErrorIs(t, p.Execute(func() {}), workerpool.ErrStopped)
	require.Error(t, p.Execute(nil))

	t.Run("Stop again", func(t *testing.T) {
		p.Stop()
	})
}

func TestPanicDoesNotKillWorker(t *testing.T) {
	tracer := routinehelper.NewTracer()
	p, err := workerpool.New(1, workerpool.WithRoutineTracer(tracer))
	require.NoError(t, err)
	var counter atomic.Int64
	require.NoError(t, p.Execute(func() { panic("job failure") }))
	require.NoError(t, p.Execute(func() { counter.Add(1) }))
	require.NoError(t, p.Execute(func() { panic("another one") }))
	require.NoError(t, p.Execute(func() { counter.Add(1) }))
	p.Stop()
	require.Equal(t, int64(2), counter.Load())
	require.Equal(t, 0, tracer.TraceRDump().Count)
}

func TestConcurrentProducers(t *testing.T) {
	p, err := workerpool.New(4)
	require.NoError(t, err)
	var (
		counter atomic.Int64
		wg      sync.WaitGroup
	)
	producers, k := 8, 100
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < k; j++ {
				assert.NoError(t, p.Execute(func() { counter.Add(1) }))
			}
		}()
	}
	wg.Wait()
	p.Stop()
	require.Equal(t, int64(producers*k), counter.Load())
}
