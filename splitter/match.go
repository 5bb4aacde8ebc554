package splitter

import (
	"github.com/grailbio/bio/biosimd"
	"github.com/strandbio/duplex/align"
)

// findBestAdapterMatch searches for adapter within seq[sub.Start:sub.End]
// at edit distance at most distThr, returning the best match range in
// whole-sequence coordinates. A zero-length window never matches.
func findBestAdapterMatch(adapter, seq string, distThr int, sub PosRange) (PosRange, bool) {
	if sub.Start >= sub.End {
		return PosRange{}, false
	}
	window := seq[sub.Start:sub.End]
	start, end, _, ok := align.Infix(adapter, window, distThr)
	if !ok {
		return PosRange{}, false
	}
	return PosRange{sub.Start + start, sub.Start + end}, true
}

// findAdapterMatches returns the adapter matches found within sub.
// Currently the single best match.
func findAdapterMatches(adapter, seq string, distThr int, sub PosRange) []PosRange {
	if m, ok := findBestAdapterMatch(adapter, seq, distThr, sub); ok {
		return []PosRange{m}
	}
	return nil
}

// checkRCMatch semi-globally aligns the template window of seq against
// the reverse complement of the complement window and reports whether the
// edit distance is within distThr.
func checkRCMatch(seq string, templ, compl PosRange, distThr int) bool {
	if templ.Start >= templ.End || compl.Start >= compl.End {
		return false
	}
	rc := make([]byte, compl.End-compl.Start)
	biosimd.ReverseComp8NoValidate(rc, []byte(seq[compl.Start:compl.End]))
	_, _, _, ok := align.Infix(seq[templ.Start:templ.End], string(rc), distThr)
	return ok
}

// mergeRanges coalesces ranges whose gap is at most mergeDist. Input must
// be sorted by start; overlapping or nearby ranges collapse to the
// smallest start and largest end.
func mergeRanges(ranges []PosRange, mergeDist int) []PosRange {
	var merged []PosRange
	for _, r := range ranges {
		if n := len(merged); n > 0 && r.Start <= merged[n-1].End+mergeDist {
			if r.End > merged[n-1].End {
				merged[n-1].End = r.End
			}
		} else {
			merged = append(merged, r)
		}
	}
	return merged
}

// filterRanges keeps the ranges accepted by keep.
func filterRanges(ranges []PosRange, keep func(PosRange) bool) []PosRange {
	var out []PosRange
	for _, r := range ranges {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
