package modbase

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
	"github.com/strandbio/duplex/read"
)

// captureSink records pushed messages.
type captureSink struct {
	mu         sync.Mutex
	reads      []*read.Read
	terminated bool
}

func (s *captureSink) Push(m read.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := m.(*read.Read); ok {
		s.reads = append(s.reads, r)
	}
	return nil
}

func (s *captureSink) Terminate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terminated = true
}

func (s *captureSink) snapshot() []*read.Read {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*read.Read, len(s.reads))
	copy(out, s.reads)
	return out
}

func (s *captureSink) waitReads(t *testing.T, want int, timeout time.Duration) []*read.Read {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		got := s.snapshot()
		if len(got) >= want {
			return got
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d reads, have %d", want, len(got))
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// fakeRunner scores every chunk with a fixed probability row per caller.
// Caller state is kept separate so caller workers of one runner can run
// concurrently, as the node requires.
type fakeRunner struct {
	params []CallerParams
	scores [][]float32 // per caller: the row returned for every chunk
	staged []int       // per caller: chunks staged since the last call
	mu     []sync.Mutex
}

func newFakeRunner(params []CallerParams, scores [][]float32) *fakeRunner {
	return &fakeRunner{
		params: params,
		scores: scores,
		staged: make([]int, len(params)),
		mu:     make([]sync.Mutex, len(params)),
	}
}

func (f *fakeRunner) NumCallers() int                 { return len(f.params) }
func (f *fakeRunner) CallerParams(c int) CallerParams { return f.params[c] }

func (f *fakeRunner) ScaleSignal(c int, raw []float32, seqInts []int, seqToSig []uint64) []float32 {
	return raw
}

func (f *fakeRunner) GetMotifHits(c int, seq string) []int {
	p := f.params[c]
	var hits []int
	for i := 0; i+len(p.Motif) <= len(seq); i++ {
		if seq[i:i+len(p.Motif)] == p.Motif {
			hits = append(hits, i+p.MotifOffset)
		}
	}
	return hits
}

func (f *fakeRunner) AcceptChunk(c, idx int, signal []float32, encodedKmers []int8) {
	f.mu[c].Lock()
	defer f.mu[c].Unlock()
	if idx != f.staged[c] {
		panic("chunks staged out of order")
	}
	f.staged[c]++
}

func (f *fakeRunner) CallChunks(c, n int) ([][]float32, error) {
	f.mu[c].Lock()
	defer f.mu[c].Unlock()
	if n != f.staged[c] {
		panic("batch size disagrees with staged chunk count")
	}
	f.staged[c] = 0
	rows := make([][]float32, n)
	for i := range rows {
		row := make([]float32, len(f.scores[c]))
		copy(row, f.scores[c])
		rows[i] = row
	}
	return rows, nil
}

// cgParams is a single 5mC caller targeting the C of CG sites.
func cgParams() []CallerParams {
	return []CallerParams{{
		ContextBefore: 8,
		ContextAfter:  8,
		BasesBefore:   1,
		BasesAfter:    1,
		Motif:         "CG",
		MotifOffset:   0,
		ModBases:      "m",
		ModLongNames:  []string{"5mC"},
	}}
}

func testRead(id, seq string, stride int) *read.Read {
	moves := make([]uint8, len(seq))
	for i := range moves {
		moves[i] = 1
	}
	return &read.Read{
		ID:          id,
		Seq:         seq,
		Qstring:     strings.Repeat("#", len(seq)),
		Moves:       moves,
		ModelStride: stride,
		Raw:         make([]float32, len(seq)*stride),
	}
}

func TestCanonicalInitNoHits(t *testing.T) {
	sink := &captureSink{}
	runner := newFakeRunner(cgParams(), [][]float32{{0.25, 0.75}})
	n, err := New(sink, []Runner{runner}, 1, 2, 4, 100)
	require.NoError(t, err)

	// No CG site: zero chunks, the read forwards straight through.
	r := testRead("r1", "ACTA", 2)
	require.NoError(t, n.Push(r))
	n.Close()

	out := sink.snapshot()
	require.Len(t, out, 1)
	got := out[0]
	// numStates = 4 canonical + 1 mod.
	expect.EQ(t, n.NumStates(), 5)
	require.Len(t, got.BaseModProbs, 4*5)
	offsets := [4]int{0, 1, 3, 4}
	for i := 0; i < len(got.Seq); i++ {
		for s := 0; s < 5; s++ {
			want := uint8(0)
			if s == offsets[BaseID(got.Seq[i])] {
				want = 255
			}
			expect.EQ(t, got.BaseModProbs[i*5+s], want)
		}
	}
	expect.EQ(t, got.BaseModInfo.Alphabet, "ACmGT")
	expect.True(t, sink.terminated)
}

func TestChunkScoringScatter(t *testing.T) {
	sink := &captureSink{}
	runner := newFakeRunner(cgParams(), [][]float32{{0.25, 0.75}})
	n, err := New(sink, []Runner{runner}, 1, 2, 4, 100)
	require.NoError(t, err)

	// CG sites at positions 1 and 5.
	r := testRead("r1", "ACGTACGT", 2)
	require.NoError(t, n.Push(r))
	n.Close()

	out := sink.snapshot()
	require.Len(t, out, 1)
	got := out[0]
	expect.EQ(t, got.NumModbaseChunks, 2)
	expect.EQ(t, got.NumModbaseChunksCalled.Load(), uint64(2))

	// The C of each CG holds the scored row: canonical 0.25 -> 64,
	// 5mC 0.75 -> 192. C's probability columns start at offset 1.
	for _, hit := range []int{1, 5} {
		expect.EQ(t, got.BaseModProbs[hit*5+1], uint8(64))
		expect.EQ(t, got.BaseModProbs[hit*5+2], uint8(192))
	}
	// Untouched positions keep their canonical initialization.
	expect.EQ(t, got.BaseModProbs[0*5+0], uint8(255))
}

func TestBatchFlushOnTimeout(t *testing.T) {
	sink := &captureSink{}
	runner := newFakeRunner(cgParams(), [][]float32{{0.5, 0.5}})
	// Batch size far larger than the single chunk we enqueue.
	n, err := New(sink, []Runner{runner}, 1, 2, 64, 100)
	require.NoError(t, err)
	defer n.Close()

	r := testRead("r1", "ACGT", 2)
	require.NoError(t, n.Push(r))

	// No more input arrives; the deadline flush must still score the
	// chunk and release the read well before Close.
	out := sink.waitReads(t, 1, 2*time.Second)
	expect.EQ(t, out[0].ID, "r1")
	expect.EQ(t, out[0].NumModbaseChunksCalled.Load(), uint64(1))
}

func TestMalformedReadDropped(t *testing.T) {
	sink := &captureSink{}
	runner := newFakeRunner(cgParams(), [][]float32{{0.5, 0.5}})
	n, err := New(sink, []Runner{runner}, 1, 2, 4, 100)
	require.NoError(t, err)

	bad := testRead("bad", "ACGN", 2)
	good := testRead("good", "ACTA", 2)
	require.NoError(t, n.Push(bad))
	require.NoError(t, n.Push(good))
	n.Close()

	out := sink.snapshot()
	require.Len(t, out, 1)
	expect.EQ(t, out[0].ID, "good")
}

func TestGracefulShutdownManyReads(t *testing.T) {
	sink := &captureSink{}
	runners := []Runner{
		newFakeRunner(cgParams(), [][]float32{{0.25, 0.75}}),
		newFakeRunner(cgParams(), [][]float32{{0.25, 0.75}}),
	}
	n, err := New(sink, runners, 2, 2, 4, 100)
	require.NoError(t, err)

	const numReads = 1000
	for i := 0; i < numReads; i++ {
		require.NoError(t, n.Push(testRead("r", "ACGTACGTCG", 2)))
	}
	n.Close()

	out := sink.snapshot()
	require.Len(t, out, numReads)
	for _, r := range out {
		expect.EQ(t, r.NumModbaseChunksCalled.Load(), uint64(r.NumModbaseChunks))
	}
	expect.True(t, sink.terminated)
}
