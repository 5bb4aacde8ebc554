package pipeline

import (
	"sort"

	"github.com/grailbio/base/log"
	"github.com/strandbio/duplex/read"
)

// ScalerNode normalizes raw signal ahead of basecalling. For each read it
// converts raw ADC samples to picoamps, estimates shift and scale as the
// median and 1.4826*MAD of the picoamp signal, records them on the read,
// and replaces the raw samples with (pA - shift)/scale.
type ScalerNode struct {
	Node
	sink MessageSink
}

// NewScalerNode builds a scaler in front of sink.
func NewScalerNode(sink MessageSink, workers, maxReads int) *ScalerNode {
	n := &ScalerNode{sink: sink}
	n.Init(maxReads)
	n.StartWorkers(workers, n.worker)
	return n
}

func (n *ScalerNode) worker() {
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
		scaleRead(r)
		if err := n.sink.Push(r); err != nil {
			return
		}
	}
}

func scaleRead(r *read.Read) {
	if r.Digitisation != 0 {
		r.Scaling = r.Range / r.Digitisation
	}
	if len(r.Raw) == 0 {
		return
	}
	pa := make([]float32, len(r.Raw))
	for i, v := range r.Raw {
		pa[i] = r.Scaling * (v + r.Offset)
	}
	shift, scale := medMAD(pa)
	if scale == 0 {
		// Flat signal; leave it centered but unscaled.
		scale = 1
	}
	r.Shift = shift
	r.Scale = scale
	for i, v := range pa {
		r.Raw[i] = (v - shift) / scale
	}
	log.Debug.Printf("scaler: read %s shift=%.2f scale=%.2f", r.ID, shift, scale)
}

// medMAD returns the median of xs and 1.4826 times the median absolute
// deviation, the usual robust stand-ins for mean and standard deviation
// on spiky pore signal.
func medMAD(xs []float32) (med, mad float32) {
	tmp := make([]float32, len(xs))
	copy(tmp, xs)
	med = median(tmp)
	for i, v := range tmp {
		if v > med {
			tmp[i] = v - med
		} else {
			tmp[i] = med - v
		}
	}
	mad = 1.4826 * median(tmp)
	return med, mad
}

func median(xs []float32) float32 {
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	n := len(xs)
	if n%2 == 1 {
		return xs[n/2]
	}
	return (xs[n/2-1] + xs[n/2]) / 2
}

// Close terminates the node, joins its workers and terminates the
// downstream sink.
func (n *ScalerNode) Close() {
	n.StopWorkers()
	n.sink.Terminate()
}
