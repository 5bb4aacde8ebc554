package modbase

import (
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/strandbio/duplex/read"
)

const canonicalBases = "ACGT"

var baseIDs [256]int8

func init() {
	for i := range baseIDs {
		baseIDs[i] = -1
	}
	for i := 0; i < len(canonicalBases); i++ {
		baseIDs[canonicalBases[i]] = int8(i)
	}
}

// BaseID maps a canonical base letter to its index in "ACGT", or -1 for
// anything else.
func BaseID(b byte) int { return int(baseIDs[b]) }

// SequenceToInts converts a sequence to base indices. A non-ACGT
// character is a malformed-read error.
func SequenceToInts(seq string) ([]int, error) {
	ints := make([]int, len(seq))
	for i := 0; i < len(seq); i++ {
		id := BaseID(seq[i])
		if id < 0 {
			return nil, errors.New("invalid character " + strconv.QuoteRune(rune(seq[i])) +
				" in sequence at position " + strconv.Itoa(i))
		}
		ints[i] = id
	}
	return ints, nil
}

// modelInfo aggregates, per canonical base, what the callers targeting
// that base predict.
type modelInfo struct {
	longNames   []string
	alphabet    string
	motif       string
	motifOffset int
	baseCounts  int
}

// buildInfo aggregates caller parameters into the shared read-visible
// modbase descriptor, the per-base probability column offsets and the
// total state count. Each caller targets the canonical base at its
// motif offset; a caller with a base outside ACGT is rejected.
func buildInfo(params []CallerParams) (*read.BaseModInfo, [4]int, int, error) {
	var info [4]modelInfo
	for b := range info {
		info[b].alphabet = string(canonicalBases[b])
		info[b].baseCounts = 1
	}

	numStates := 4
	for _, p := range params {
		if p.MotifOffset >= len(p.Motif) {
			return nil, [4]int{}, 0, errors.New("motif offset out of range for motif " + p.Motif)
		}
		base := p.Motif[p.MotifOffset]
		id := BaseID(base)
		if id < 0 {
			return nil, [4]int{}, 0, errors.New("invalid base in modbase model metadata: " + string(base))
		}
		info[id].longNames = p.ModLongNames
		info[id].alphabet += p.ModBases
		info[id].motif = p.Motif
		info[id].motifOffset = p.MotifOffset
		info[id].baseCounts = 1 + len(p.ModBases)
		numStates += len(p.ModBases)
	}

	var alphabet, longNames strings.Builder
	var contexts [4]string
	for b, mi := range info {
		for _, name := range mi.longNames {
			if longNames.Len() > 0 {
				longNames.WriteByte(' ')
			}
			longNames.WriteString(name)
		}
		alphabet.WriteString(mi.alphabet)
		if mi.motif != "" {
			contexts[b] = mi.motif + ":" + strconv.Itoa(mi.motifOffset)
		} else {
			contexts[b] = "-"
		}
	}

	var offsets [4]int
	offsets[1] = info[0].baseCounts
	offsets[2] = offsets[1] + info[1].baseCounts
	offsets[3] = offsets[2] + info[2].baseCounts

	bmi := &read.BaseModInfo{
		Alphabet:  alphabet.String(),
		LongNames: longNames.String(),
		Context:   strings.Join(contexts[:], ":"),
	}
	return bmi, offsets, numStates, nil
}
