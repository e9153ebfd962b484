package workerpool

import (
	"sync"
)

type (
	// message is a job or a terminate sentinel
	message struct {
		job       Job
		terminate bool
	}

	// queue is an unbounded multi-producer multi-consumer FIFO of
	// messages. pop blocks until a message is available.
	queue struct {
		mu     sync.Mutex
		cond   *sync.Cond
		items  []message
		closed bool
	}
)

func newQueue() *queue {
	q := &queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push appends a job message. It returns false if the queue no longer
// accepts jobs.
func (q *queue) push(job Job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.items = append(q.items, message{job: job})
	q.cond.Signal()
	return true
}

// close appends n terminate sentinels after the pending jobs and
// refuses further pushes. Only the first call has effect.
func (q *queue) close(n int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.closed = true
	for i := 0; i < n; i++ {
		q.items = append(q.items, message{terminate: true})
	}
	q.cond.Broadcast()
	return true
}

func (q *queue) pop() message {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 {
		q.cond.Wait()
	}
	m := q.items[0]
	q.items[0] = message{}
	q.items = q.items[1:]
	return m
}

// len returns the number of pending messages, sentinels included
func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
