package cluster

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/inodb/vibe-sv/internal/config"
	"github.com/inodb/vibe-sv/internal/sv"
)

// soloSingleMerges pairs clusters that each hold one unresolved single breakend
// when the two singles are mutual nearest neighbours with opposing orientation
// and matching copy number change. The merged cluster is resolved as an
// inferred DEL, DUP or INS.
func (e *Engine) soloSingleMerges(mc *mergeContext, p *Partition) []Merge {
	byChrom := make(map[string][]*sv.Breakend)
	for _, cid := range p.ClusterIDs() {
		members := p.Members(cid)
		if len(members) != 1 || p.Resolution(cid) != "" {
			continue
		}
		v, ok := mc.variants[members[0]]
		if !ok || !v.IsSingle() {
			continue
		}
		byChrom[v.Start.Chromosome] = append(byChrom[v.Start.Chromosome], v.Start)
	}

	chroms := make([]string, 0, len(byChrom))
	for c := range byChrom {
		chroms = append(chroms, c)
	}
	sort.Strings(chroms)

	var merges []Merge
	for _, chrom := range chroms {
		list := byChrom[chrom]
		mc.index.Sort(list)
		for i, b := range list {
			j := nearestSingle(list, i)
			if j < 0 || j < i || nearestSingle(list, j) != i {
				continue
			}
			o := list[j]
			if b.Orientation == o.Orientation {
				continue
			}
			if !copyNumberChangesMatch(b, o, e.params.SoloSingleCNTolerance) {
				e.logger.Debug("solo singles differ in copy number change",
					zap.Int("svA", b.SV.ID),
					zap.Int("svB", o.SV.ID))
				continue
			}
			merges = append(merges, Merge{
				SvA:     b.SV.ID,
				SvB:     o.SV.ID,
				Reason:  ReasonSglPair,
				Resolve: ClassifySinglePair(b, o, e.params),
			})
		}
	}
	return merges
}

// nearestSingle returns the index of the closest other breakend in a sorted
// list, preferring the lower one on ties.
func nearestSingle(list []*sv.Breakend, i int) int {
	best := -1
	var bestDist int64
	if i > 0 {
		best = i - 1
		bestDist = list[i].Position - list[i-1].Position
	}
	if i+1 < len(list) {
		d := list[i+1].Position - list[i].Position
		if best < 0 || d < bestDist {
			best = i + 1
		}
	}
	return best
}

func copyNumberChangesMatch(a, b *sv.Breakend, tolerance float64) bool {
	return math.Abs(a.CopyNumberChange()-b.CopyNumberChange()) <= tolerance
}

// ClassifySinglePair infers the simple event formed by two opposing single
// breakends on one chromosome. Facing breakends form a DUP, or an INS when
// closer than the shortest templated insertion. Outward-facing breakends form
// a DEL, or an INS when closer than the shortest deletion.
func ClassifySinglePair(a, b *sv.Breakend, p config.Params) ResolvedType {
	lower, upper := a, b
	if b.Position < a.Position {
		lower, upper = b, a
	}
	length := upper.Position - lower.Position

	switch {
	case lower.Orientation == sv.OrientUpper && upper.Orientation == sv.OrientLower:
		if length >= p.MinTemplatedInsertionLength {
			return ResolvedPairDup
		}
		return ResolvedPairIns
	case lower.Orientation == sv.OrientLower && upper.Orientation == sv.OrientUpper:
		if length >= p.MinDeletionLength {
			return ResolvedPairDel
		}
		return ResolvedPairIns
	}
	return ""
}
