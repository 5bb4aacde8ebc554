// Package modbase implements the modified-base caller node: it finds
// motif hits in basecalled reads, cuts fixed-length signal chunks around
// each hit, batches chunks across reads through neural-network runners,
// and scatters the resulting probability rows back into the originating
// reads.
package modbase

// CallerParams describes one caller of a modbase model runner: the signal
// and sequence context it expects around a motif hit, the motif it
// targets, and the modifications it predicts.
type CallerParams struct {
	// ContextBefore/ContextAfter are signal samples taken before and
	// after the center of the motif base. Their sum is the fixed chunk
	// length.
	ContextBefore int
	ContextAfter  int
	// BasesBefore/BasesAfter define the kmer window one-hot encoded at
	// each signal step.
	BasesBefore int
	BasesAfter  int
	// Motif is the sequence pattern this caller scores; MotifOffset is
	// the index of the canonical base within it.
	Motif       string
	MotifOffset int
	// ModBases lists the modified-base code letters, e.g. "m" for 5mC.
	ModBases string
	// ModLongNames are the display names, one per modified base.
	ModLongNames []string
}

// Runner is the opaque scoring capability owned by one runner worker. A
// runner exposes several callers (one per targeted canonical base /
// motif). A single caller is not safe for concurrent use, so the node
// pins one worker goroutine per (runner, caller) pair; distinct callers
// of one runner are therefore driven concurrently.
type Runner interface {
	// NumCallers returns the caller count; all runners of one node have
	// identical caller sets.
	NumCallers() int
	// CallerParams describes caller c.
	CallerParams(c int) CallerParams
	// ScaleSignal rescales a read's signal into the model's input space.
	ScaleSignal(c int, raw []float32, seqInts []int, seqToSig []uint64) []float32
	// GetMotifHits returns the sequence positions matching caller c's
	// motif.
	GetMotifHits(c int, seq string) []int
	// AcceptChunk stages chunk idx of the next batch. The runner must
	// copy the slices; they are reused after the batch is called.
	AcceptChunk(c, idx int, signal []float32, encodedKmers []int8)
	// CallChunks scores the n staged chunks and returns one score row
	// per chunk. Row width is uniform per caller.
	CallChunks(c, n int) ([][]float32, error)
}
