package pipeline

import (
	"bufio"
	"io"
	"sync"
	"sync/atomic"

	"github.com/grailbio/base/log"
	"github.com/grailbio/bio/encoding/fastq"
	"github.com/grailbio/hts/sam"
	"github.com/klauspost/compress/gzip"
	"github.com/strandbio/duplex/read"
)

// WriterNode is the terminal sink: it serializes finished reads as FASTQ
// records and raw alignment records as SAM text lines. A single worker
// consumes the queue so output records are never interleaved.
type WriterNode struct {
	Node

	mu     sync.Mutex
	buf    *bufio.Writer
	gz     *gzip.Writer
	fq     *fastq.Writer
	err    error
	closed chan struct{}

	reads atomic.Uint64
}

// WriterOpts configures a WriterNode.
type WriterOpts struct {
	// Gzip compresses the FASTQ stream.
	Gzip bool
	// MaxReads bounds the inbound queue; 0 means the default of 1000.
	MaxReads int
}

// NewWriterNode builds a writer emitting to w.
func NewWriterNode(w io.Writer, opts WriterOpts) *WriterNode {
	maxReads := opts.MaxReads
	if maxReads == 0 {
		maxReads = 1000
	}
	n := &WriterNode{
		closed: make(chan struct{}),
	}
	n.Init(maxReads)
	if opts.Gzip {
		n.gz = gzip.NewWriter(w)
		w = n.gz
	}
	n.buf = bufio.NewWriter(w)
	n.fq = fastq.NewWriter(n.buf)
	n.StartWorkers(1, n.worker)
	return n
}

func (n *WriterNode) worker() {
	defer close(n.closed)
	for {
		m, ok := n.Pop()
		if !ok {
			return
		}
		switch v := m.(type) {
		case *read.Read:
			n.writeRead(v)
		case *read.ReadPair:
			// A pair that reached the terminal sink was never stereo
			// called; emit both halves.
			n.writeRead(v.Template)
			n.writeRead(v.Complement)
		case *sam.Record:
			n.writeRecord(v)
		default:
			log.Error.Printf("writer: unexpected message type %T dropped", m)
		}
	}
}

func (n *WriterNode) writeRead(r *read.Read) {
	if len(r.Seq) == 0 {
		log.Debug.Printf("writer: read %s has no basecall, skipped", r.ID)
		return
	}
	rec := fastq.Read{
		ID:   "@" + r.ID,
		Seq:  r.Seq,
		Unk:  "+",
		Qual: r.Qstring,
	}
	n.mu.Lock()
	if n.err == nil {
		n.err = n.fq.Write(&rec)
	}
	n.mu.Unlock()
	n.reads.Add(1)
}

func (n *WriterNode) writeRecord(rec *sam.Record) {
	text, err := rec.MarshalText()
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return
	}
	if err != nil {
		n.err = err
		return
	}
	if _, err := n.buf.Write(text); err != nil {
		n.err = err
		return
	}
	n.err = n.buf.WriteByte('\n')
}

// Close terminates the writer, waits for the queue to drain and flushes
// buffered output. It returns the first write error encountered.
func (n *WriterNode) Close() error {
	n.StopWorkers()
	<-n.closed
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.buf.Flush(); err != nil && n.err == nil {
		n.err = err
	}
	if n.gz != nil {
		if err := n.gz.Close(); err != nil && n.err == nil {
			n.err = err
		}
	}
	log.Printf("writer: %d reads written", n.reads.Load())
	return n.err
}

// Reads returns the number of FASTQ records written so far.
func (n *WriterNode) Reads() uint64 { return n.reads.Load() }
