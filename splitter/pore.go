package splitter

import (
	"github.com/grailbio/base/log"
	"github.com/strandbio/duplex/read"
)

// ExtRead wraps a read with the cached state the split strategies share:
// the float signal view and the inclusive move-table prefix sums.
type ExtRead struct {
	Read     *read.Read
	moveSums []uint64
}

// NewExtRead caches the derived views for r.
func NewExtRead(r *read.Read) *ExtRead {
	sums := read.MoveCumSums(r.Moves)
	if len(sums) > 0 && sums[len(sums)-1] != uint64(len(r.Seq)) {
		log.Panicf("read %s: move sums end at %d, sequence length %d",
			r.ID, sums[len(sums)-1], len(r.Seq))
	}
	return &ExtRead{Read: r, moveSums: sums}
}

// detectPoreSignal scans signal from ignorePrefix onward and returns the
// maximal runs of samples above threshold, merging runs separated by at
// most clusterDist samples. Ranges are half-open signal-sample intervals
// sorted by start.
func detectPoreSignal(signal []float32, threshold float32, clusterDist, ignorePrefix int) []PosRange {
	var runs []PosRange
	start, end := 0, 0
	for i := ignorePrefix; i < len(signal); i++ {
		if signal[i] > threshold {
			if end == 0 || i > end+clusterDist {
				if end > 0 {
					runs = append(runs, PosRange{start, end})
				}
				start = i
			}
			end = i + 1
		}
	}
	if end > 0 {
		runs = append(runs, PosRange{start, end})
	}
	return runs
}

// possiblePoreRegions projects the pore signal regions of ext into
// sequence coordinates. poreThrPA is in picoamps; it is converted into
// the read's normalized signal space via the scaler's shift/scale.
func (n *Node) possiblePoreRegions(ext *ExtRead, poreThrPA float32) []PosRange {
	r := ext.Read
	rawThr := poreThrPA
	if r.Scale != 0 {
		rawThr = (poreThrPA - r.Shift) / r.Scale
	}

	var regions []PosRange
	for _, sig := range detectPoreSignal(r.Raw, rawThr, n.settings.PoreClDist, n.settings.ExpectPorePrefix) {
		moveStart := sig.Start / r.ModelStride
		moveEnd := sig.End / r.ModelStride
		if moveStart >= len(ext.moveSums) || moveEnd >= len(ext.moveSums) || ext.moveSums[moveStart] == 0 {
			// Either at the very end of the signal or basecalls have
			// not started yet.
			continue
		}
		startPos := int(ext.moveSums[moveStart]) - 1
		endPos := int(ext.moveSums[moveEnd])
		regions = append(regions, PosRange{startPos, endPos})
	}
	log.Debug.Printf("split: read %s has %d candidate pore regions", r.ID, len(regions))
	return regions
}
