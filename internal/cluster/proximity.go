package cluster

import (
	"sort"

	"github.com/inodb/vibe-sv/internal/sv"
)

// proximityMerges scans each chromosome once, left to right, joining each
// breakend with its nearest lower neighbour when they are closer than the
// proximity distance.
func (e *Engine) proximityMerges(ix *sv.Index) []Merge {
	var merges []Merge
	for _, chrom := range ix.Chromosomes() {
		list := ix.Breakends(chrom)
		for i := 1; i < len(list); i++ {
			prev, cur := list[i-1], list[i]
			if prev.SV == cur.SV {
				continue
			}
			if cur.Position-prev.Position < e.params.ProximityDistance {
				merges = append(merges, Merge{SvA: prev.SV.ID, SvB: cur.SV.ID, Reason: ReasonProximity})
			}
		}
	}
	return merges
}

// assemblyMerges joins SVs whose breakends share an assembly tag.
func assemblyMerges(ix *sv.Index) []Merge {
	byTag := make(map[string][]*sv.Breakend)
	for _, chrom := range ix.Chromosomes() {
		for _, b := range ix.Breakends(chrom) {
			for _, tag := range b.AssemblyLinks {
				byTag[tag] = append(byTag[tag], b)
			}
		}
	}

	tags := make([]string, 0, len(byTag))
	for tag := range byTag {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	var merges []Merge
	for _, tag := range tags {
		list := byTag[tag]
		for i := 1; i < len(list); i++ {
			if list[0].SV != list[i].SV {
				merges = append(merges, Merge{SvA: list[0].SV.ID, SvB: list[i].SV.ID, Reason: ReasonAssembly})
			}
		}
	}
	return merges
}
