package splitter

import (
	"strconv"

	"github.com/grailbio/base/log"
	"github.com/strandbio/duplex/read"
)

// copyRead duplicates the pipeline-visible fields of a read. Slices are
// shared with the source; subread construction re-slices them without
// mutating the parent's view.
func copyRead(r *read.Read) *read.Read {
	c := &read.Read{
		ID:                r.ID,
		Raw:               r.Raw,
		Digitisation:      r.Digitisation,
		Range:             r.Range,
		Offset:            r.Offset,
		SampleRate:        r.SampleRate,
		Shift:             r.Shift,
		Scale:             r.Scale,
		Scaling:           r.Scaling,
		ModelStride:       r.ModelStride,
		Seq:               r.Seq,
		Qstring:           r.Qstring,
		Moves:             r.Moves,
		BaseModProbs:      r.BaseModProbs,
		BaseModInfo:       r.BaseModInfo,
		NumChunks:         r.NumChunks,
		NumModbaseChunks:  r.NumModbaseChunks,
		NumTrimmedSamples: r.NumTrimmedSamples,
		RunID:             r.RunID,
		ModelName:         r.ModelName,
		Attributes:        r.Attributes,
	}
	return c
}

// subread cuts one subread out of r covering seqRange bases and
// sigRange signal samples. sigRange must already be stride-aligned
// (normally obtained through the moves-to-signal map); the end may
// instead coincide with the end of the signal. The subread gets a
// deterministic derived ID, a start time shifted by the cut-away signal,
// and a cleared read number.
func subread(r *read.Read, seqRange, sigRange PosRange) *read.Read {
	stride := r.ModelStride
	if sigRange.Start%stride != 0 {
		log.Panicf("read %s: subread signal start %d not stride-aligned", r.ID, sigRange.Start)
	}
	if sigRange.End%stride != 0 && !(sigRange.End == len(r.Raw) && seqRange.End == len(r.Seq)) {
		log.Panicf("read %s: subread signal end %d not stride-aligned", r.ID, sigRange.End)
	}

	sub := copyRead(r)
	desc := strconv.Itoa(seqRange.Start) + "-" + strconv.Itoa(seqRange.End)
	sub.ID = read.DeriveUUID(r.ID, desc)
	sub.Raw = r.Raw[sigRange.Start:sigRange.End]
	sub.Seq = r.Seq[seqRange.Start:seqRange.End]
	sub.Qstring = r.Qstring[seqRange.Start:seqRange.End]
	sub.Moves = r.Moves[sigRange.Start/stride : sigRange.End/stride]
	sub.Attributes.ReadNumber = read.UnknownReadNumber

	offsetMS := (sub.NumTrimmedSamples + uint64(sigRange.Start)) * 1000 / sub.SampleRate
	if ts, err := read.AdjustTimestampMS(sub.Attributes.StartTime, offsetMS); err == nil {
		sub.Attributes.StartTime = ts
	} else {
		log.Error.Printf("read %s: unparseable start time %q: %v", r.ID, sub.Attributes.StartTime, err)
	}
	// The shift above absorbs the trimmed prefix.
	sub.NumTrimmedSamples = 0
	return sub
}

// split cuts r around the given spacer ranges (sorted by start,
// sequence coordinates) and returns the subreads covering the sequence
// between them. With no spacers the read itself is returned.
func split(r *read.Read, spacers []PosRange) []*read.Read {
	if len(spacers) == 0 {
		return []*read.Read{r}
	}

	seqToSig := read.MovesToMap(r.Moves, r.ModelStride, len(r.Raw), len(r.Seq)+1)
	subreads := make([]*read.Read, 0, len(spacers)+1)

	startPos := 0
	signalStart := int(seqToSig[0])
	for _, sp := range spacers {
		subreads = append(subreads, subread(r,
			PosRange{startPos, sp.Start},
			PosRange{signalStart, int(seqToSig[sp.Start])}))
		startPos = sp.End
		signalStart = int(seqToSig[sp.End])
	}
	subreads = append(subreads, subread(r,
		PosRange{startPos, len(r.Seq)},
		PosRange{signalStart, len(r.Raw)}))
	return subreads
}
