// Package pipeline implements the staged message-passing runtime the
// basecalling nodes run on: a bounded multi-producer/multi-consumer queue
// with terminate semantics, the MessageSink node abstraction, and the
// supporting nodes of the duplex topology (filter, scaler, stereo encoder,
// writer).
package pipeline

import (
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/strandbio/duplex/read"
)

// ErrTerminated is returned by Queue.Push after the queue has been
// terminated. The caller's message was not enqueued; the downstream stage
// is gone and the message should be dropped.
var ErrTerminated = errors.New("pipeline: queue terminated")

// Queue is a bounded FIFO message queue shared between a node's producers
// and its worker goroutines. Push blocks while the queue is full
// (backpressure) and fails once the queue is terminated. Pop blocks while
// the queue is empty and reports exhaustion only when the queue is both
// empty and terminated, so a terminated queue still drains.
//
// Ordering is FIFO per producer; interleaving between producers is
// unspecified.
type Queue struct {
	mu       sync.Mutex
	notFull  sync.Cond
	notEmpty sync.Cond

	items      []read.Message
	head       int
	max        int
	terminated bool
}

// NewQueue returns a queue holding at most max messages.
func NewQueue(max int) *Queue {
	q := &Queue{max: max}
	q.notFull.L = &q.mu
	q.notEmpty.L = &q.mu
	return q
}

// Push enqueues a message, blocking while the queue is at capacity.
// It returns ErrTerminated, without enqueuing, if the queue has been
// terminated.
func (q *Queue) Push(m read.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items)-q.head >= q.max && !q.terminated {
		q.notFull.Wait()
	}
	if q.terminated {
		return ErrTerminated
	}
	q.items = append(q.items, m)
	q.notEmpty.Signal()
	return nil
}

// Pop dequeues the next message, blocking while the queue is empty and
// not yet terminated. The second result is false only when the queue is
// empty and terminated.
func (q *Queue) Pop() (read.Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == q.head && !q.terminated {
		q.notEmpty.Wait()
	}
	if len(q.items) == q.head {
		return nil, false
	}
	m := q.items[q.head]
	q.items[q.head] = nil
	q.head++
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	}
	q.notFull.Signal()
	return m, true
}

// Terminate closes the queue. Blocked producers fail with ErrTerminated;
// consumers drain the remaining messages and then see exhaustion.
// Terminate is idempotent.
func (q *Queue) Terminate() {
	q.mu.Lock()
	q.terminated = true
	q.mu.Unlock()
	q.notFull.Broadcast()
	q.notEmpty.Broadcast()
}

// Len returns the number of queued messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}
