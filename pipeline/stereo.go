package pipeline

import (
	"sync"

	"github.com/grailbio/base/log"
	"github.com/strandbio/duplex/read"
)

// StereoDuplexEncoderNode pairs simplex reads using a known
// template→complement map and emits a ReadPair once both halves have
// arrived. Reads that belong to no pair, and reads whose partner never
// arrives, are forwarded unchanged.
type StereoDuplexEncoderNode struct {
	Node
	sink MessageSink

	// templateFor maps a complement read ID back to its template's ID;
	// complementFor is the forward direction.
	complementFor map[string]string
	templateFor   map[string]string

	mu      sync.Mutex
	pending map[string]*read.Read // keyed by template read ID
}

// NewStereoDuplexEncoderNode builds an encoder in front of sink from a
// template→complement read ID map.
func NewStereoDuplexEncoderNode(sink MessageSink, templateComplementMap map[string]string, workers, maxReads int) *StereoDuplexEncoderNode {
	n := &StereoDuplexEncoderNode{
		sink:          sink,
		complementFor: templateComplementMap,
		templateFor:   make(map[string]string, len(templateComplementMap)),
		pending:       make(map[string]*read.Read),
	}
	n.Init(maxReads)
	for templ, compl := range templateComplementMap {
		n.templateFor[compl] = templ
	}
	n.StartWorkers(workers, n.worker)
	return n
}

func (n *StereoDuplexEncoderNode) worker() {
	for {
		m, ok := n.Pop()
		if !ok {
			return
		}
		r, isRead := m.(*read.Read)
		if !isRead {
			if err := n.sink.Push(m); err != nil {
				return
			}
			continue
		}

		var out read.Message = r
		if pair := n.tryPair(r); pair != nil {
			out = pair
		} else if n.partOfPair(r.ID) {
			// First half of a pair; parked until the partner arrives.
			continue
		}
		if err := n.sink.Push(out); err != nil {
			return
		}
	}
}

func (n *StereoDuplexEncoderNode) partOfPair(id string) bool {
	if _, ok := n.complementFor[id]; ok {
		return true
	}
	_, ok := n.templateFor[id]
	return ok
}

// tryPair returns a completed pair if r's partner is already parked,
// parking r otherwise. Returns nil when r is unpaired or its partner has
// not arrived yet.
func (n *StereoDuplexEncoderNode) tryPair(r *read.Read) *read.ReadPair {
	templID, isCompl := n.templateFor[r.ID]
	if !isCompl {
		if _, isTempl := n.complementFor[r.ID]; !isTempl {
			return nil
		}
		templID = r.ID
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	partner, ok := n.pending[templID]
	if !ok {
		n.pending[templID] = r
		return nil
	}
	delete(n.pending, templID)
	if isCompl {
		return &read.ReadPair{Template: partner, Complement: r}
	}
	return &read.ReadPair{Template: r, Complement: partner}
}

// Close terminates the node, joins its workers, flushes reads whose
// partner never arrived, and terminates the downstream sink.
func (n *StereoDuplexEncoderNode) Close() {
	n.StopWorkers()
	n.mu.Lock()
	orphans := make([]*read.Read, 0, len(n.pending))
	for _, r := range n.pending {
		orphans = append(orphans, r)
	}
	n.pending = nil
	n.mu.Unlock()
	if len(orphans) > 0 {
		log.Printf("stereo encoder: %d reads never met their pair partner", len(orphans))
	}
	for _, r := range orphans {
		if err := n.sink.Push(r); err != nil {
			break
		}
	}
	n.sink.Terminate()
}
