package pipeline

import (
	"sync/atomic"

	"github.com/grailbio/base/log"
	"github.com/strandbio/duplex/read"
)

// ReadFilterNode drops reads whose mean basecall quality is below a
// threshold. Non-read messages pass through unchanged.
type ReadFilterNode struct {
	Node
	sink      MessageSink
	minQScore float64
	dropped   atomic.Uint64
}

// NewReadFilterNode builds a filter in front of sink. Reads with mean
// qscore below minQScore are discarded.
func NewReadFilterNode(sink MessageSink, minQScore float64, workers, maxReads int) *ReadFilterNode {
	n := &ReadFilterNode{
		sink:      sink,
		minQScore: minQScore,
	}
	n.Init(maxReads)
	n.StartWorkers(workers, n.worker)
	return n
}

func (n *ReadFilterNode) worker() {
	for {
		m, ok := n.Pop()
		if !ok {
			return
		}
		if r, isRead := m.(*read.Read); isRead {
			if read.MeanQScore(r.Qstring) < n.minQScore {
				n.dropped.Add(1)
				continue
			}
		}
		if err := n.sink.Push(m); err != nil {
			return
		}
	}
}

// Close terminates the node, joins its workers and terminates the
// downstream sink.
func (n *ReadFilterNode) Close() {
	n.StopWorkers()
	if d := n.dropped.Load(); d > 0 {
		log.Printf("read filter: dropped %d reads below mean qscore %.1f", d, n.minQScore)
	}
	n.sink.Terminate()
}

// Dropped returns the number of reads discarded so far.
func (n *ReadFilterNode) Dropped() uint64 { return n.dropped.Load() }
