/*
Package workerpool provides a fixed size pool of long-lived workers
consuming a shared unbounded job queue.

Stop queues one terminate sentinel per worker behind the pending jobs,
so every job submitted before Stop is executed before the workers exit.

A panicking job is recovered, logged and counted; the worker survives.
*/
package workerpool

import (
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/opensvc/httpd/daemon/lsnrmetric"
	"github.com/opensvc/httpd/daemon/routinehelper"
	"github.com/opensvc/httpd/util/funcopt"
)

type (
	// Job is a single-shot unit of work
	Job func()

	T struct {
		routinehelper.TT
		name string
		size int
		log  zerolog.Logger
		q    *queue
		wg   sync.WaitGroup

		queued prometheus.Gauge
		busy   prometheus.Gauge
		ok     prometheus.Counter
		panics prometheus.Counter
	}
)

var (
	// ErrStopped is returned by Execute after Stop
	ErrStopped = errors.New("worker pool stopped")
)

// New starts size workers sharing one job queue.
func New(size int, opts ...funcopt.O) (*T, error) {
	if size < 1 {
		return nil, fmt.Errorf("invalid worker pool size %d", size)
	}
	t := &T{
		name: "pool",
		size: size,
		q:    newQueue(),
	}
	t.SetTracer(routinehelper.NewTracerNoop())
	t.log = log.Logger
	if err := funcopt.Apply(t, opts...); err != nil {
		return nil, errors.Wrap(err, "worker pool funcopt.Apply")
	}
	t.log = t.log.With().Str("pool", t.name).Logger()
	t.queued = lsnrmetric.PoolQueued.WithLabelValues(t.name)
	t.busy = lsnrmetric.PoolBusy.WithLabelValues(t.name)
	t.ok = lsnrmetric.PoolJobs.WithLabelValues(t.name, lsnrmetric.ResultOK)
	t.panics = lsnrmetric.PoolJobs.WithLabelValues(t.name, lsnrmetric.ResultPanic)

	for i := 0; i < size; i++ {
		t.wg.Add(1)
		done := t.Trace(t.name + "-worker")
		go func(id int) {
			defer t.wg.Done()
			defer done()
			t.worker(id)
		}(i)
	}
	t.log.Debug().Msgf("%d workers started", size)
	return t, nil
}

// Name returns the pool name, used as the metrics label
func (t *T) Name() string {
	return t.name
}

// Size returns the number of workers
func (t *T) Size() int {
	return t.size
}

// Len returns the number of queued messages
func (t *T) Len() int {
	return t.q.len()
}

// Execute queues job. It never blocks.
func (t *T) Execute(job Job) error {
	if job == nil {
		return errors.New("nil job")
	}
	t.queued.Inc()
	if !t.q.push(job) {
		t.queued.Dec()
		return ErrStopped
	}
	return nil
}

// Stop sends one terminate sentinel per worker and waits for all the
// workers to return. Jobs queued before Stop are executed first.
// Subsequent calls only wait.
func (t *T) Stop() {
	if t.q.close(t.size) {
		t.log.Debug().Msgf("sent %d terminate messages", t.size)
	}
	t.wg.Wait()
	t.log.Debug().Msg("all workers stopped")
}

func (t *T) worker(id int) {
	for {
		m := t.q.pop()
		if m.terminate {
			return
		}
		t.queued.Dec()
		t.run(id, m.job)
	}
}

func (t *T) run(id int, job Job) {
	t.busy.Inc()
	defer t.busy.Dec()
	defer func() {
		if r := recover(); r != nil {
			t.panics.Inc()
			t.log.Error().
				Int("worker", id).
				Str("stack", string(debug.Stack())).
				Msgf("job panic recovered: %v", r)
			return
		}
		t.ok.Inc()
	}()
	job()
}
