// Package read defines the data model that flows through the basecalling
// pipeline: raw nanopore captures, basecalled reads, read pairs for duplex
// decoding, and the message union carried by pipeline queues.
package read

import (
	"sync/atomic"

	"github.com/grailbio/hts/sam"
)

// Attributes holds acquisition-time metadata copied from the signal file.
type Attributes struct {
	// Mux is the channel mux setting at capture time.
	Mux uint32
	// ReadNumber is the per-channel acquisition counter. UnknownReadNumber
	// means the value does not apply, e.g. for subreads produced by
	// splitting.
	ReadNumber uint32
	// ChannelNumber is the pore channel ID, or -1 if unknown.
	ChannelNumber int32
	// StartTime is the capture start timestamp, formatted as by
	// FormatTimestampMS.
	StartTime string
	// Filename names the signal file this read was loaded from.
	Filename string
	// NumSamples is the total sample count at acquisition time.
	NumSamples uint64
	// EndReason records why the sequencer ended the read, when known.
	EndReason string
}

// UnknownReadNumber marks a read number that does not correspond to an
// acquisition event.
const UnknownReadNumber = ^uint32(0)

// Read is one nanopore capture. The data loader populates the raw signal
// and acquisition metadata; the scaler sets Shift/Scale and normalizes Raw;
// the basecaller fills Seq, Qstring and Moves; downstream nodes may attach
// modified-base probabilities.
type Read struct {
	// ID is the unique read identifier (UUID string).
	ID string
	// ParentID is the ID of the read the split node received: it is set
	// on every read the split node emits, so an unsplit read carries its
	// own ID. It is empty on reads that have not passed a split node.
	ParentID string

	// Raw holds the signal samples. Before scaling these are raw ADC
	// values widened to float32; after scaling they are normalized
	// picoamp-derived values.
	Raw []float32

	// Acquisition calibration, loaded from the signal file.
	Digitisation float32
	Range        float32
	Offset       float32
	SampleRate   uint64

	// Shift and Scale are set by the scaler node; after scaling,
	// pA = Scale*raw + Shift.
	Shift float32
	Scale float32
	// Scaling converts raw ADC integers into picoamps: pA = Scaling*(raw+Offset).
	Scaling float32

	// ModelStride is the signal down-sampling factor of the basecall
	// model: samples per move-table entry.
	ModelStride int

	Seq     string
	Qstring string
	// Moves is a binary vector over downsampled signal blocks; a 1 marks
	// the emission of a new base. sum(Moves) == len(Seq) and
	// len(Moves)*ModelStride == len(Raw).
	Moves []uint8

	// Simplex basecall chunking bookkeeping.
	NumChunks       int
	NumChunksCalled atomic.Uint64

	// Modbase chunking bookkeeping. NumModbaseChunks is fixed by the
	// modbase input worker before any chunk is handed out;
	// NumModbaseChunksCalled is incremented by the output worker.
	NumModbaseChunks       int
	NumModbaseChunksCalled atomic.Uint64

	// BaseModProbs is the dense per-position probability table, length
	// len(Seq)*numStates, quantized to 1/256 units.
	BaseModProbs []uint8
	// BaseModInfo describes the modbase alphabet shared by all reads
	// scored by one model set.
	BaseModInfo *BaseModInfo

	// NumTrimmedSamples counts samples removed from the front of Raw.
	NumTrimmedSamples uint64

	RunID     string
	ModelName string

	Attributes Attributes
}

// BaseModInfo describes the modified-base alphabet of the models that ran
// on a read: the full alphabet (canonical plus modified letters in base
// order), the space-separated long names of the modifications, and the
// encoded motif contexts.
type BaseModInfo struct {
	Alphabet  string
	LongNames string
	Context   string
}

// ReadPair is a template/complement pair destined for joint duplex
// decoding.
type ReadPair struct {
	Template   *Read
	Complement *Read
}

// Message is the unit carried by pipeline queues. It is a tagged union
// holding one of:
//   - *Read, a single read
//   - *ReadPair, a pair of reads for duplex calling
//   - *sam.Record, a raw alignment record
//
// Nodes type-switch on the variants they understand and forward the rest.
type Message interface{}

var (
	_ Message = (*Read)(nil)
	_ Message = (*ReadPair)(nil)
	_ Message = (*sam.Record)(nil)
)

// MeanQScore returns the arithmetic mean Phred quality of a quality
// string (ASCII-33 encoding). Returns 0 for an empty string.
func MeanQScore(qstring string) float64 {
	if len(qstring) == 0 {
		return 0
	}
	sum := 0
	for i := 0; i < len(qstring); i++ {
		sum += int(qstring[i]) - 33
	}
	return float64(sum) / float64(len(qstring))
}
