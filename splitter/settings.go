// Package splitter implements duplex read splitting: detecting that a
// single pore event carried more than one strand (open-pore gap, adapter
// recurrence, reverse-complement flanks) and cutting the basecalled read
// into subreads along those boundaries.
package splitter

import "fmt"

// PosRange is a half-open [Start, End) interval, in sequence or signal
// coordinates depending on context.
type PosRange struct {
	Start int
	End   int
}

func (r PosRange) String() string { return fmt.Sprintf("[%d, %d)", r.Start, r.End) }

// Settings control split evidence collection. Distances and window sizes
// are sequence-coordinate base counts unless noted.
type Settings struct {
	// Enabled turns the node off entirely when false; reads pass through
	// untouched.
	Enabled bool
	// SimplexMode restricts splitting to the highest-confidence strategy
	// (pore signal confirmed by a nearby adapter).
	SimplexMode bool

	// PoreThr and RelaxedPoreThr are open-pore current thresholds in
	// picoamps. Raw signal is compared after converting the threshold
	// into the read's normalized signal space.
	PoreThr        float32
	RelaxedPoreThr float32
	// PoreClDist merges above-threshold samples separated by at most
	// this many signal samples into one pore region.
	PoreClDist int
	// ExpectPorePrefix ignores this many leading signal samples when
	// scanning for pore regions.
	ExpectPorePrefix int

	// Adapter is the ligated adapter sequence whose recurrence inside a
	// read indicates strand concatenation.
	Adapter             string
	AdapterEdist        int
	RelaxedAdapterEdist int
	// PoreAdapterRange extends the adapter search this many bases past a
	// pore region.
	PoreAdapterRange int
	// ExpectAdapterPrefix skips the leading bases where an adapter is
	// expected anyway during the standalone adapter scan.
	ExpectAdapterPrefix int
	// MiddleAdapterSearchSpan is the window around the read midpoint
	// searched by the middle-adapter strategy.
	MiddleAdapterSearchSpan int

	// EndFlank/EndTrim bound the template-end window used for
	// reverse-complement matching; StartFlank is the complement-start
	// window length.
	EndFlank   int
	StartFlank int
	EndTrim    int

	FlankEdist        int
	RelaxedFlankEdist int
}

// DefaultSettings returns the tuned defaults for duplex splitting.
func DefaultSettings() Settings {
	return Settings{
		Enabled:                 true,
		PoreThr:                 2.2,
		RelaxedPoreThr:          1.8,
		PoreClDist:              4000,
		ExpectPorePrefix:        5000,
		Adapter:                 "AATGTACTTCGTTCAGTTACGTATTGCT",
		AdapterEdist:            4,
		RelaxedAdapterEdist:     8,
		PoreAdapterRange:        100,
		ExpectAdapterPrefix:     200,
		MiddleAdapterSearchSpan: 1000,
		EndFlank:                1200,
		StartFlank:              200,
		EndTrim:                 200,
		FlankEdist:              150,
		RelaxedFlankEdist:       250,
	}
}
