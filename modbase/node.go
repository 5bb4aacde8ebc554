package modbase

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/grailbio/base/log"
	"github.com/grailbio/base/syncqueue"
	"github.com/strandbio/duplex/pipeline"
	"github.com/strandbio/duplex/read"
)

// forceTimeout bounds how long a runner worker sits on a partial batch
// before scoring it anyway.
const forceTimeout = 100 * time.Millisecond

// chunk is one signal window around a motif hit, the unit of batching.
// It references its source read for result scatter; the read is kept
// alive by the node's working list until every chunk has scored.
type chunk struct {
	source *read.Read
	signal []float32
	kmers  []int8
	// hit is the motif hit position the scores belong to.
	hit    int
	scores []float32
}

// Node is the modified-base caller node. Input workers turn reads into
// per-caller chunk streams; one worker per (runner, caller) pair batches
// chunks into the runner with a deadline-driven flush; a single output
// worker scatters score rows back into reads and forwards each read once
// all of its chunks have been scored.
type Node struct {
	pipeline.Node
	sink pipeline.MessageSink

	runners     []Runner
	batchSize   int
	blockStride int

	info      *read.BaseModInfo
	offsets   [4]int
	numStates int

	// One bounded queue per caller; the bound is the input-side
	// backpressure.
	chunkQueues []chan *chunk
	// processed is sized so a flush can never block forever: at most
	// bufPool-many chunks exist at any moment.
	processed chan *chunk
	// bufPool recycles chunk signal buffers; its fixed size doubles as
	// the global in-flight chunk throttle.
	bufPool *syncqueue.LIFO

	inputWG       sync.WaitGroup
	runnerWG      sync.WaitGroup
	outputDone    chan struct{}
	activeRunners atomic.Int32

	workingMu sync.Mutex
	working   []*read.Read
}

// New builds a modbase node in front of sink. Each runner contributes
// one scoring worker per caller; inputWorkers goroutines prepare reads.
// All runners must expose identical caller sets.
func New(sink pipeline.MessageSink, runners []Runner, inputWorkers, blockStride, batchSize, maxReads int) (*Node, error) {
	n := &Node{
		sink:        sink,
		runners:     runners,
		batchSize:   batchSize,
		blockStride: blockStride,
		outputDone:  make(chan struct{}),
	}
	n.Init(maxReads)

	r0 := runners[0]
	params := make([]CallerParams, r0.NumCallers())
	for c := range params {
		params[c] = r0.CallerParams(c)
	}
	var err error
	n.info, n.offsets, n.numStates, err = buildInfo(params)
	if err != nil {
		return nil, err
	}

	numCallers := r0.NumCallers()
	n.chunkQueues = make([]chan *chunk, numCallers)
	for c := range n.chunkQueues {
		n.chunkQueues[c] = make(chan *chunk, 5*batchSize)
	}
	poolSize := numCallers*batchSize*(5+len(runners)) + inputWorkers
	n.bufPool = syncqueue.NewLIFO()
	for i := 0; i < poolSize; i++ {
		n.bufPool.Put(make([]float32, 0))
	}
	n.processed = make(chan *chunk, poolSize)

	go n.outputWorker()

	for w := range runners {
		for c := 0; c < numCallers; c++ {
			n.activeRunners.Add(1)
			n.runnerWG.Add(1)
			go n.runnerWorker(w, c)
		}
	}

	n.inputWG.Add(inputWorkers)
	n.StartWorkers(inputWorkers, n.inputWorker)
	go func() {
		// Once every input worker has drained the inbound queue, the
		// chunk streams are complete.
		n.inputWG.Wait()
		for _, q := range n.chunkQueues {
			close(q)
		}
	}()
	return n, nil
}

// NumStates returns the width of the per-position probability vector.
func (n *Node) NumStates() int { return n.numStates }

func (n *Node) inputWorker() {
	defer n.inputWG.Done()
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
		if err := n.prepareRead(r); err != nil {
			log.Error.Printf("modbase: dropping read %s: %v", r.ID, err)
		}
	}
}

// prepareRead initializes the read's probability table, cuts its chunks
// and enqueues them on the caller queues. Reads with no motif hits are
// forwarded immediately.
func (n *Node) prepareRead(r *read.Read) error {
	seqInts, err := SequenceToInts(r.Seq)
	if err != nil {
		return err
	}

	// Initialize base_mod_probs before handing out any chunk: every
	// position starts as 100% canonical.
	r.BaseModProbs = make([]uint8, len(r.Seq)*n.numStates)
	for i, base := range seqInts {
		r.BaseModProbs[i*n.numStates+n.offsets[base]] = 255
	}
	r.BaseModInfo = n.info

	seqToSig := read.MovesToMap(r.Moves, n.blockStride, len(r.Raw), len(r.Seq)+1)
	r.NumModbaseChunks = 0
	r.NumModbaseChunksCalled.Store(0)

	// All runners share one caller set; interrogate the first. The hit
	// count is fixed up front so the read can be registered before any
	// chunk is handed out: the output worker's completion scan must
	// never observe a read whose chunk total is still growing.
	r0 := n.runners[0]
	hits := make([][]int, r0.NumCallers())
	for c := range hits {
		hits[c] = r0.GetMotifHits(c, r.Seq)
		r.NumModbaseChunks += len(hits[c])
	}

	if r.NumModbaseChunks == 0 {
		return n.sink.Push(r)
	}
	n.workingMu.Lock()
	n.working = append(n.working, r)
	n.workingMu.Unlock()

	for c := range hits {
		if len(hits[c]) == 0 {
			continue
		}
		scaled := r0.ScaleSignal(c, r.Raw, seqInts, seqToSig)
		enc := newContextEncoder(r0.CallerParams(c), seqInts, seqToSig)
		for _, hit := range hits[c] {
			slice := enc.Context(hit)
			sig := n.getSignalBuf(enc.contextSamples())
			// Zero-pad before and after the in-signal samples.
			copy(sig[slice.LeadSamplesNeeded:],
				scaled[slice.FirstSample:slice.FirstSample+slice.NumSamples])
			n.chunkQueues[c] <- &chunk{
				source: r,
				signal: sig,
				kmers:  slice.Kmers,
				hit:    hit,
			}
		}
	}
	return nil
}

// getSignalBuf takes a zeroed buffer of the given length from the pool,
// blocking while too many chunks are in flight.
func (n *Node) getSignalBuf(size int) []float32 {
	v, ok := n.bufPool.Get()
	if !ok {
		log.Panicf("modbase: signal buffer pool closed")
	}
	buf := v.([]float32)
	if cap(buf) < size {
		buf = make([]float32, size)
	}
	buf = buf[:size]
	for i := range buf {
		buf[i] = 0
	}
	return buf
}

func (n *Node) runnerWorker(workerID, callerID int) {
	defer n.runnerWG.Done()
	runner := n.runners[workerID]
	queue := n.chunkQueues[callerID]

	var batched []*chunk
	timer := time.NewTimer(forceTimeout)
	defer timer.Stop()

	flush := func() {
		if len(batched) > 0 {
			n.callBatch(runner, callerID, batched)
			batched = batched[:0]
		}
	}
	resetTimer := func() {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(forceTimeout)
	}

	for {
		select {
		case c, ok := <-queue:
			if !ok {
				// Input is finished: score the remainder. The last
				// runner worker to retire ends the processed stream.
				flush()
				if n.activeRunners.Add(-1) == 0 {
					close(n.processed)
				}
				return
			}
			runner.AcceptChunk(callerID, len(batched), c.signal, c.kmers)
			batched = append(batched, c)
			// Drain whatever else is already queued, up to a batch.
			for len(batched) < n.batchSize {
				select {
				case c, ok := <-queue:
					if !ok {
						flush()
						if n.activeRunners.Add(-1) == 0 {
							close(n.processed)
						}
						return
					}
					runner.AcceptChunk(callerID, len(batched), c.signal, c.kmers)
					batched = append(batched, c)
					continue
				default:
				}
				break
			}
			resetTimer()
			if len(batched) == n.batchSize {
				flush()
			}
		case <-timer.C:
			// Deadline passed with no new chunks: score the partial
			// batch rather than holding completed reads hostage.
			flush()
			timer.Reset(forceTimeout)
		}
	}
}

// callBatch scores the staged batch and moves its chunks onto the
// processed stream. Runner failure is fatal for the pipeline.
func (n *Node) callBatch(runner Runner, callerID int, batched []*chunk) {
	results, err := runner.CallChunks(callerID, len(batched))
	if err != nil {
		log.Panicf("modbase: runner failed calling %d chunks: %v", len(batched), err)
	}
	for i, c := range batched {
		c.scores = results[i]
		n.processed <- c
	}
}

func (n *Node) outputWorker() {
	defer close(n.outputDone)
	for c := range n.processed {
		n.scatterChunk(c)
		n.forwardCompleted()
	}
	// Processed stream ended: every chunk has been scattered.
	n.forwardCompleted()
	n.workingMu.Lock()
	stuck := len(n.working)
	n.workingMu.Unlock()
	if stuck > 0 {
		log.Error.Printf("modbase: %d reads still incomplete at shutdown", stuck)
	}
	n.sink.Terminate()
}

// scatterChunk writes one score row into the source read's probability
// table. Rows of distinct chunks touch disjoint position ranges, so no
// lock is needed beyond the atomic completion counter.
func (n *Node) scatterChunk(c *chunk) {
	r := c.source
	offset := n.offsets[BaseID(r.Seq[c.hit])]
	for i, score := range c.scores {
		q := math.Floor(float64(score) * 256)
		if q > 255 {
			q = 255
		}
		if q < 0 {
			q = 0
		}
		r.BaseModProbs[n.numStates*c.hit+offset+i] = uint8(q)
	}
	r.NumModbaseChunksCalled.Add(1)
	n.bufPool.Put(c.signal[:0])
	c.signal = nil
}

// forwardCompleted pushes every working read whose chunks have all been
// scored to the downstream sink.
func (n *Node) forwardCompleted() {
	n.workingMu.Lock()
	var done []*read.Read
	kept := n.working[:0]
	for _, r := range n.working {
		if r.NumModbaseChunksCalled.Load() == uint64(r.NumModbaseChunks) {
			done = append(done, r)
		} else {
			kept = append(kept, r)
		}
	}
	n.working = kept
	n.workingMu.Unlock()

	for _, r := range done {
		if err := n.sink.Push(r); err != nil {
			return
		}
	}
}

// Close drains the node: input workers finish, runner workers flush
// their final batches, the output worker forwards the remaining reads
// and terminates the downstream sink.
func (n *Node) Close() {
	n.StopWorkers()
	n.runnerWG.Wait()
	<-n.outputDone
}
