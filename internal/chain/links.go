package chain

import (
	"sort"

	"github.com/inodb/vibe-sv/internal/cluster"
	"github.com/inodb/vibe-sv/internal/config"
	"github.com/inodb/vibe-sv/internal/sv"
)

// PairID addresses a possible link in a cluster's pair arena.
type PairID int

// NoPair marks a link that was not drawn from the arena, such as a loop closure.
const NoPair PairID = -1

// Pair is a geometrically legal templated insertion between two breakends.
// Lower has orientation -1 and Upper +1, with Upper above Lower. A pair of the
// two breakends of one replicated SV joins consecutive copies of it.
type Pair struct {
	ID        PairID
	Lower     *sv.Breakend
	Upper     *sv.Breakend
	Length    int64
	Assembled bool

	// RepeatCount is the most times the pair may be committed.
	RepeatCount int
}

// Tandem returns true if the pair joins two copies of the same SV.
func (p *Pair) Tandem() bool {
	return p.Lower.SV == p.Upper.SV
}

// Partner returns the breakend at the other end of the pair.
func (p *Pair) Partner(b *sv.Breakend) *sv.Breakend {
	if p.Lower == b {
		return p.Upper
	}
	return p.Lower
}

// Has returns true if the pair links breakend b.
func (p *Pair) Has(b *sv.Breakend) bool {
	return p.Lower == b || p.Upper == b
}

// ComplexDup is an SV duplicated by a second rearrangement: both of its
// breakends face breakends of SVs carrying a multiple of its ploidy.
type ComplexDup struct {
	SV     *sv.Variant
	Flanks [2]*sv.Variant
}

// Enumerator finds the legal pairs of a cluster.
type Enumerator struct {
	params config.Params
	index  *sv.Index
}

// NewEnumerator creates an enumerator checking copy number against the
// sample-wide breakend index.
func NewEnumerator(p config.Params, ix *sv.Index) *Enumerator {
	return &Enumerator{params: p, index: ix}
}

// Legal reports whether lower and upper can be joined by a templated insertion.
// The two breakends may belong to the same SV.
func (e *Enumerator) Legal(lower, upper *sv.Breakend) bool {
	if lower.Chromosome != upper.Chromosome || lower.Arm != upper.Arm {
		return false
	}
	// a templated insertion runs up from a -1 breakend to a +1 breakend
	if lower.Orientation != sv.OrientUpper || upper.Orientation != sv.OrientLower {
		return false
	}
	minLength := e.params.MinTemplatedInsertionLength + lower.Homology + upper.Homology
	if upper.Position-lower.Position < minLength {
		return false
	}
	return e.copyNumberSupports(lower, upper)
}

// copyNumberSupports checks that copy number across the inserted segment does
// not drop below the ploidy the link would carry.
func (e *Enumerator) copyNumberSupports(lower, upper *sv.Breakend) bool {
	floor := min(lower.SV.PloidyMin, upper.SV.PloidyMin) - e.params.CopyNumberTolerance
	if lower.CN != nil && lower.CN.High < floor {
		return false
	}
	if upper.CN != nil && upper.CN.Low < floor {
		return false
	}
	if e.index == nil {
		return true
	}
	if m, ok := e.index.MinCopyNumberBetween(lower, upper); ok && m < floor {
		return false
	}
	return true
}

// Enumerate returns the pair arena of a cluster and each breakend's pairs,
// nearest first. Pairs are numbered in breakend order.
func (e *Enumerator) Enumerate(c *cluster.Cluster, alloc *Allocator) ([]Pair, map[*sv.Breakend][]PairID) {
	var pairs []Pair
	byBreakend := make(map[*sv.Breakend][]PairID)

	for _, list := range byChromosome(c.Breakends) {
		for i, l := range list {
			if l.Orientation != sv.OrientUpper {
				continue
			}
			for _, u := range list[i+1:] {
				if u.Orientation != sv.OrientLower {
					continue
				}
				repeats := min(alloc.Replication(l.SV.ID), alloc.Replication(u.SV.ID))
				if u.SV == l.SV {
					// r copies in tandem are joined by r-1 links; a single
					// copy can only be closed on itself
					repeats--
				}
				if repeats < 1 || !e.Legal(l, u) {
					continue
				}
				id := PairID(len(pairs))
				pairs = append(pairs, Pair{
					ID:          id,
					Lower:       l,
					Upper:       u,
					Length:      u.Position - l.Position,
					Assembled:   l.SharesAssembly(u),
					RepeatCount: repeats,
				})
				byBreakend[l] = append(byBreakend[l], id)
				byBreakend[u] = append(byBreakend[u], id)
			}
		}
	}

	for _, ids := range byBreakend {
		sort.SliceStable(ids, func(i, j int) bool {
			return pairs[ids[i]].Length < pairs[ids[j]].Length
		})
	}
	return pairs, byBreakend
}

// byChromosome splits breakends sorted by chromosome into per-chromosome runs.
func byChromosome(breakends []*sv.Breakend) [][]*sv.Breakend {
	if len(breakends) == 0 {
		return nil
	}
	var out [][]*sv.Breakend
	start := 0
	for i := 1; i <= len(breakends); i++ {
		if i == len(breakends) || breakends[i].Chromosome != breakends[start].Chromosome {
			out = append(out, breakends[start:i])
			start = i
		}
	}
	return out
}

// FindComplexDups looks for SVs whose nearest partner at one breakend, and the
// first opposing breakend beyond the other, both belong to SVs with a ploidy
// ratio inside the configured range.
func (e *Enumerator) FindComplexDups(c *cluster.Cluster, pairs []Pair, byBreakend map[*sv.Breakend][]PairID) []ComplexDup {
	order := make(map[*sv.Breakend]int, len(c.Breakends))
	for i, b := range c.Breakends {
		order[b] = i
	}

	var dups []ComplexDup
	for _, v := range c.SVs {
		if v.IsSingle() || v.Excluded != "" || v.Ploidy <= 0 {
			continue
		}
		for _, first := range v.Breakends() {
			ids := byBreakend[first]
			if len(ids) == 0 {
				continue
			}
			x1 := pairs[ids[0]].Partner(first).SV
			if !e.ratioInRange(v, x1) {
				continue
			}
			x2 := e.facingBeyond(c.Breakends, order, first.Other())
			if x2 == nil || x2 == v || !e.ratioInRange(v, x2) {
				continue
			}
			dups = append(dups, ComplexDup{SV: v, Flanks: [2]*sv.Variant{x1, x2}})
			break
		}
	}
	return dups
}

func (e *Enumerator) ratioInRange(d, x *sv.Variant) bool {
	r := x.Ploidy / d.Ploidy
	return r >= e.params.ComplexDupMinRatio && r <= e.params.ComplexDupMaxRatio
}

// facingBeyond walks from b in the direction its segment extends, past
// breakends of the same orientation, and returns the SV of the first opposing one.
func (e *Enumerator) facingBeyond(breakends []*sv.Breakend, order map[*sv.Breakend]int, b *sv.Breakend) *sv.Variant {
	i, ok := order[b]
	if !ok {
		return nil
	}
	step := 1
	if b.Orientation == sv.OrientLower {
		step = -1
	}
	for j := i + step; j >= 0 && j < len(breakends); j += step {
		o := breakends[j]
		if o.Chromosome != b.Chromosome {
			return nil
		}
		if o.SV == b.SV {
			continue
		}
		if o.Orientation != b.Orientation {
			return o.SV
		}
	}
	return nil
}
