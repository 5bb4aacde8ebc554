package splitter

import (
	"github.com/grailbio/base/log"
	"github.com/strandbio/duplex/pipeline"
	"github.com/strandbio/duplex/read"
)

// splitFinder is one split strategy: given a wrapped read it returns the
// candidate spacer ranges (sequence coordinates, sorted by start) found
// by its kind of evidence.
type splitFinder struct {
	name string
	find func(*ExtRead) []PosRange
}

// Node is the duplex split node. Each inbound basecalled read runs
// through an ordered list of split strategies, highest confidence first;
// after every strategy the current subreads are cut at that strategy's
// spacers before the next strategy sees them. Subreads reach the
// downstream sink in left-to-right order per input read.
type Node struct {
	pipeline.Node
	sink     pipeline.MessageSink
	settings Settings
	finders  []splitFinder
}

// New builds a split node in front of sink.
func New(sink pipeline.MessageSink, settings Settings, workers, maxReads int) *Node {
	n := &Node{
		sink:     sink,
		settings: settings,
	}
	n.Init(maxReads)
	n.finders = n.buildSplitFinders()
	n.StartWorkers(workers, n.worker)
	return n
}

// checkNearbyAdapter reports whether an adapter occurs in or shortly
// after the candidate spacer region r.
func (n *Node) checkNearbyAdapter(r *read.Read, sp PosRange, adapterEdist int) bool {
	end := sp.End + n.settings.PoreAdapterRange
	if end > len(r.Seq) {
		end = len(r.Seq)
	}
	_, ok := findBestAdapterMatch(n.settings.Adapter, r.Seq, adapterEdist, PosRange{sp.Start, end})
	return ok
}

// checkFlankMatch reports whether the template end just before the
// candidate spacer sp reverse-complement-matches the complement start
// just after it.
func (n *Node) checkFlankMatch(r *read.Read, sp PosRange, distThr int) bool {
	s := n.settings
	return sp.Start >= s.EndFlank &&
		sp.End+s.StartFlank <= len(r.Seq) &&
		checkRCMatch(r.Seq,
			PosRange{sp.Start - s.EndFlank, sp.Start - s.EndTrim},
			// The spacer region itself is included in the search.
			PosRange{sp.Start, sp.End + s.StartFlank},
			distThr)
}

// identifyExtraMiddleSplit looks for a relaxed adapter hit near the read
// midpoint whose surroundings look like a template/complement junction:
// an RC flank match at the putative split point and between the two read
// ends.
func (n *Node) identifyExtraMiddleSplit(r *read.Read) (PosRange, bool) {
	s := n.settings
	rl := len(r.Seq)
	if rl < s.EndFlank+s.StartFlank || rl < s.MiddleAdapterSearchSpan {
		return PosRange{}, false
	}

	m, ok := findBestAdapterMatch(s.Adapter, r.Seq, s.RelaxedAdapterEdist,
		PosRange{rl/2 - s.MiddleAdapterSearchSpan/2, rl/2 + s.MiddleAdapterSearchSpan/2})
	if !ok {
		return PosRange{}, false
	}
	adapterStart := m.Start
	if n.checkFlankMatch(r, PosRange{adapterStart, adapterStart}, s.RelaxedFlankEdist) &&
		checkRCMatch(r.Seq,
			PosRange{rl - s.EndFlank, rl - s.EndTrim},
			PosRange{0, s.StartFlank},
			s.RelaxedFlankEdist) {
		return PosRange{adapterStart - 1, adapterStart}, true
	}
	return PosRange{}, false
}

func (n *Node) buildSplitFinders() []splitFinder {
	s := &n.settings
	finders := []splitFinder{
		{"PORE_ADAPTER", func(ext *ExtRead) []PosRange {
			return filterRanges(n.possiblePoreRegions(ext, s.PoreThr), func(r PosRange) bool {
				return n.checkNearbyAdapter(ext.Read, r, s.AdapterEdist)
			})
		}},
	}
	if s.SimplexMode {
		return finders
	}
	finders = append(finders,
		splitFinder{"PORE_FLANK", func(ext *ExtRead) []PosRange {
			return mergeRanges(
				filterRanges(n.possiblePoreRegions(ext, s.PoreThr), func(r PosRange) bool {
					return n.checkFlankMatch(ext.Read, r, s.FlankEdist)
				}), s.EndFlank+s.StartFlank)
		}},
		splitFinder{"PORE_ALL", func(ext *ExtRead) []PosRange {
			return mergeRanges(
				filterRanges(n.possiblePoreRegions(ext, s.RelaxedPoreThr), func(r PosRange) bool {
					return n.checkNearbyAdapter(ext.Read, r, s.RelaxedAdapterEdist) &&
						n.checkFlankMatch(ext.Read, r, s.RelaxedFlankEdist)
				}), s.EndFlank+s.StartFlank)
		}},
		splitFinder{"ADAPTER_FLANK", func(ext *ExtRead) []PosRange {
			return filterRanges(
				findAdapterMatches(s.Adapter, ext.Read.Seq, s.AdapterEdist,
					PosRange{s.ExpectAdapterPrefix, len(ext.Read.Seq)}),
				func(r PosRange) bool {
					return n.checkFlankMatch(ext.Read, PosRange{r.Start, r.Start}, s.FlankEdist)
				})
		}},
		splitFinder{"ADAPTER_MIDDLE", func(ext *ExtRead) []PosRange {
			if sp, ok := n.identifyExtraMiddleSplit(ext.Read); ok {
				return []PosRange{sp}
			}
			return nil
		}},
	)
	return finders
}

// SplitRead runs the full strategy pipeline on one read and returns its
// subreads in left-to-right order. An unsplit read comes back as the
// single element.
func (n *Node) SplitRead(r *read.Read) []*read.Read {
	toSplit := []*ExtRead{NewExtRead(r)}
	for _, finder := range n.finders {
		var round []*ExtRead
		for _, ext := range toSplit {
			spacers := finder.find(ext)
			log.Debug.Printf("split: %s found %d spacers in read %s",
				finder.name, len(spacers), r.ID)
			if len(spacers) == 0 {
				round = append(round, ext)
				continue
			}
			for _, sr := range split(ext.Read, spacers) {
				round = append(round, NewExtRead(sr))
			}
		}
		toSplit = round
	}

	out := make([]*read.Read, len(toSplit))
	for i, ext := range toSplit {
		out[i] = ext.Read
	}
	return out
}

func (n *Node) worker() {
	for {
		m, ok := n.Pop()
		if !ok {
			return
		}
		if !n.settings.Enabled {
			if err := n.sink.Push(m); err != nil {
				return
			}
			continue
		}
		r, isRead := m.(*read.Read)
		if !isRead {
			if err := n.sink.Push(m); err != nil {
				return
			}
			continue
		}

		subreads := n.SplitRead(r)
		if len(subreads) > 1 {
			log.Debug.Printf("split: read %s split into %d subreads", r.ID, len(subreads))
		}
		for _, sr := range subreads {
			sr.ParentID = r.ID
			if err := n.sink.Push(sr); err != nil {
				return
			}
		}
	}
}

// Close terminates the node, joins its workers and terminates the
// downstream sink.
func (n *Node) Close() {
	n.StopWorkers()
	n.sink.Terminate()
}
