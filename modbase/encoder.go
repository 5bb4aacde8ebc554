package modbase

// ContextSlice locates one chunk's signal window and carries the one-hot
// kmer encoding for each of its samples. The window is clamped to the
// signal; LeadSamplesNeeded/TailSamplesNeeded are the zero-pad counts
// that restore it to the fixed chunk length.
type ContextSlice struct {
	FirstSample       int
	NumSamples        int
	LeadSamplesNeeded int
	TailSamplesNeeded int
	// Kmers is the one-hot encoding, 4*(BasesBefore+BasesAfter+1) values
	// per signal sample of the (unclamped) window; samples outside the
	// signal and bases outside the sequence encode as all-zero.
	Kmers []int8
}

// contextEncoder cuts fixed-length signal windows centered on a base and
// one-hot encodes the kmer under each signal sample.
type contextEncoder struct {
	contextBefore int
	contextAfter  int
	basesBefore   int
	basesAfter    int
	seqInts       []int
	seqToSig      []uint64
}

func newContextEncoder(p CallerParams, seqInts []int, seqToSig []uint64) *contextEncoder {
	return &contextEncoder{
		contextBefore: p.ContextBefore,
		contextAfter:  p.ContextAfter,
		basesBefore:   p.BasesBefore,
		basesAfter:    p.BasesAfter,
		seqInts:       seqInts,
		seqToSig:      seqToSig,
	}
}

func (e *contextEncoder) contextSamples() int { return e.contextBefore + e.contextAfter }

// Context returns the slice for the motif hit at sequence position hit.
// The window is centered on the hit base's signal span.
func (e *contextEncoder) Context(hit int) ContextSlice {
	sigLen := int(e.seqToSig[len(e.seqToSig)-1])
	center := int(e.seqToSig[hit]+e.seqToSig[hit+1]) / 2
	winStart := center - e.contextBefore
	winEnd := center + e.contextAfter

	s := ContextSlice{}
	first := winStart
	if first < 0 {
		s.LeadSamplesNeeded = -first
		first = 0
	}
	last := winEnd
	if last > sigLen {
		s.TailSamplesNeeded = last - sigLen
		last = sigLen
	}
	s.FirstSample = first
	if last > first {
		s.NumSamples = last - first
	}
	s.Kmers = e.encodeKmers(winStart)
	return s
}

// encodeKmers one-hot encodes the kmer under each sample of the window
// starting at winStart (which may be negative).
func (e *contextEncoder) encodeKmers(winStart int) []int8 {
	kmerLen := e.basesBefore + e.basesAfter + 1
	out := make([]int8, e.contextSamples()*kmerLen*4)

	// base index whose signal span contains the current sample; -1
	// until the first base starts.
	base := -1
	nBases := len(e.seqToSig) - 1
	for i := 0; i < e.contextSamples(); i++ {
		sample := winStart + i
		if sample < 0 || sample >= int(e.seqToSig[nBases]) {
			continue
		}
		for base+1 < nBases && int(e.seqToSig[base+1]) <= sample {
			base++
		}
		if base < 0 {
			continue
		}
		row := out[i*kmerLen*4 : (i+1)*kmerLen*4]
		for k := 0; k < kmerLen; k++ {
			pos := base - e.basesBefore + k
			if pos < 0 || pos >= nBases {
				continue
			}
			row[k*4+e.seqInts[pos]] = 1
		}
	}
	return out
}
