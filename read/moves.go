package read

import "github.com/grailbio/base/log"

// MoveCumSums returns the inclusive prefix sums of a move table:
// out[i] = sum(moves[0..=i]). The final entry equals the basecalled
// sequence length.
func MoveCumSums(moves []uint8) []uint64 {
	sums := make([]uint64, len(moves))
	var acc uint64
	for i, m := range moves {
		acc += uint64(m)
		sums[i] = acc
	}
	return sums
}

// MovesToMap converts a move table into a sequence→signal coordinate map.
// The result has resultLen entries (normally len(seq)+1): entry i is the
// signal sample at which base i starts, and the final entry is rawLen, so
// that base i spans samples [map[i], map[i+1]).
func MovesToMap(moves []uint8, stride, rawLen, resultLen int) []uint64 {
	m := make([]uint64, 0, resultLen)
	for i, mv := range moves {
		if mv == 1 {
			m = append(m, uint64(i*stride))
		}
	}
	m = append(m, uint64(rawLen))
	if len(m) != resultLen {
		log.Panicf("move table maps %d bases, want %d", len(m)-1, resultLen-1)
	}
	return m
}

// CheckMoveInvariants panics if the read's move table disagrees with its
// sequence or signal dimensions. Violations indicate an upstream bug, not
// a recoverable per-read condition.
func (r *Read) CheckMoveInvariants() {
	if len(r.Moves)*r.ModelStride != len(r.Raw) {
		log.Panicf("read %s: %d moves * stride %d != %d signal samples",
			r.ID, len(r.Moves), r.ModelStride, len(r.Raw))
	}
	var set uint64
	for _, m := range r.Moves {
		set += uint64(m)
	}
	if set != uint64(len(r.Seq)) {
		log.Panicf("read %s: move table emits %d bases, sequence has %d",
			r.ID, set, len(r.Seq))
	}
}
