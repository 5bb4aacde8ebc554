package pipeline

import (
	"sync"

	"github.com/strandbio/duplex/read"
)

// MessageSink is the uniform node abstraction: anything that accepts
// messages. Every pipeline node is a MessageSink; nodes hold a reference
// to exactly one downstream sink.
//
// The pipeline is built bottom-up (terminal sink first) and torn down
// top-down: when a node is closed it terminates its own queue, joins its
// workers, and then terminates its downstream sink, so shutdown
// propagates leaf-ward once the source closes.
type MessageSink interface {
	// Push enqueues a message, blocking while the sink's queue is full.
	// It fails only if the sink has been terminated, in which case the
	// message is dropped.
	Push(m read.Message) error
	// Terminate closes the sink's inbound queue. Workers drain the
	// remaining messages before exiting.
	Terminate()
}

// Node provides the shared mechanics of a pipeline stage: the bounded
// inbound queue and the worker pool consuming it. Concrete nodes embed
// Node and supply a worker function.
type Node struct {
	queue *Queue
	wg    sync.WaitGroup
}

// Init sets up the node's inbound queue to hold at most maxMessages.
// It must be called before StartWorkers.
func (n *Node) Init(maxMessages int) {
	n.queue = NewQueue(maxMessages)
}

// Push submits a message to the node's inbound queue.
func (n *Node) Push(m read.Message) error { return n.queue.Push(m) }

// Terminate closes the node's inbound queue.
func (n *Node) Terminate() { n.queue.Terminate() }

// Pop dequeues the next inbound message for a worker. It returns false
// once the queue is empty and terminated.
func (n *Node) Pop() (read.Message, bool) { return n.queue.Pop() }

// StartWorkers launches count copies of worker. Each worker normally
// loops over Pop until it reports exhaustion.
func (n *Node) StartWorkers(count int, worker func()) {
	for i := 0; i < count; i++ {
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			worker()
		}()
	}
}

// StopWorkers terminates the inbound queue and waits for all workers to
// drain it and exit. It does not touch the downstream sink; callers
// terminate it after StopWorkers returns.
func (n *Node) StopWorkers() {
	n.queue.Terminate()
	n.wg.Wait()
}
