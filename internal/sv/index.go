package sv

import (
	"math"
	"sort"
)

// Index holds per-chromosome breakend lists ordered by position.
// An Index is never modified after it is built; Without returns a new one.
type Index struct {
	chromosomes map[string][]*Breakend
	positions   map[*Breakend]int
	minCN       map[string]*rangeMin
}

// BuildIndex creates an index over all breakends of the given variants,
// skipping variants that have been excluded.
func BuildIndex(variants []*Variant) *Index {
	byChrom := make(map[string][]*Breakend)
	for _, v := range variants {
		if v.Excluded != "" {
			continue
		}
		for _, b := range v.Breakends() {
			byChrom[b.Chromosome] = append(byChrom[b.Chromosome], b)
		}
	}

	ix := &Index{
		chromosomes: make(map[string][]*Breakend, len(byChrom)),
		positions:   make(map[*Breakend]int),
		minCN:       make(map[string]*rangeMin, len(byChrom)),
	}
	for chrom, list := range byChrom {
		sortBreakends(list)
		ix.setChromosome(chrom, list)
	}
	return ix
}

func sortBreakends(list []*Breakend) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		if a.Orientation != b.Orientation {
			return a.Orientation > b.Orientation
		}
		if a.SV.ID != b.SV.ID {
			return a.SV.ID < b.SV.ID
		}
		return a.Start && !b.Start
	})
}

func (ix *Index) setChromosome(chrom string, list []*Breakend) {
	ix.chromosomes[chrom] = list
	ix.minCN[chrom] = minCopyNumbers(list)
	for i, b := range list {
		ix.positions[b] = i
	}
}

// Without returns a fresh index with the breakends of the given SV ids removed.
// Chromosomes with no removed breakends share their list with the receiver.
func (ix *Index) Without(ids map[int]bool) *Index {
	out := &Index{
		chromosomes: make(map[string][]*Breakend, len(ix.chromosomes)),
		positions:   make(map[*Breakend]int, len(ix.positions)),
		minCN:       make(map[string]*rangeMin, len(ix.chromosomes)),
	}
	for chrom, list := range ix.chromosomes {
		touched := false
		for _, b := range list {
			if ids[b.SV.ID] {
				touched = true
				break
			}
		}
		if !touched {
			out.chromosomes[chrom] = list
			out.minCN[chrom] = ix.minCN[chrom]
			for i, b := range list {
				out.positions[b] = i
			}
			continue
		}
		kept := make([]*Breakend, 0, len(list))
		for _, b := range list {
			if !ids[b.SV.ID] {
				kept = append(kept, b)
			}
		}
		if len(kept) > 0 {
			out.setChromosome(chrom, kept)
		}
	}
	return out
}

// Breakends returns the ordered breakends on a chromosome.
// The returned slice must not be modified.
func (ix *Index) Breakends(chrom string) []*Breakend {
	return ix.chromosomes[chrom]
}

// IndexOf returns the position of a breakend in its chromosome list.
func (ix *Index) IndexOf(b *Breakend) (int, bool) {
	i, ok := ix.positions[b]
	return i, ok
}

// Chromosomes returns the indexed chromosomes in sorted order.
func (ix *Index) Chromosomes() []string {
	chroms := make([]string, 0, len(ix.chromosomes))
	for c := range ix.chromosomes {
		chroms = append(chroms, c)
	}
	sort.Strings(chroms)
	return chroms
}

// Count returns the number of indexed breakends.
func (ix *Index) Count() int {
	return len(ix.positions)
}

// Between returns the breakends strictly between lower and upper on their chromosome.
func (ix *Index) Between(lower, upper *Breakend) []*Breakend {
	if lower.Chromosome != upper.Chromosome {
		return nil
	}
	lo, ok1 := ix.positions[lower]
	hi, ok2 := ix.positions[upper]
	if !ok1 || !ok2 {
		return nil
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	return ix.chromosomes[lower.Chromosome][lo+1 : hi]
}

// MinCopyNumberBetween returns the lowest flanking copy number of the
// breakends strictly between lower and upper, and false when none of them
// carries copy number.
func (ix *Index) MinCopyNumberBetween(lower, upper *Breakend) (float64, bool) {
	if lower.Chromosome != upper.Chromosome {
		return 0, false
	}
	lo, ok1 := ix.positions[lower]
	hi, ok2 := ix.positions[upper]
	if !ok1 || !ok2 {
		return 0, false
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	m := ix.minCN[lower.Chromosome].min(lo+1, hi)
	return m, !math.IsInf(m, 1)
}

// Neighbour returns the breakend at offset steps from b on its chromosome, or nil.
func (ix *Index) Neighbour(b *Breakend, offset int) *Breakend {
	i, ok := ix.positions[b]
	if !ok {
		return nil
	}
	list := ix.chromosomes[b.Chromosome]
	j := i + offset
	if j < 0 || j >= len(list) {
		return nil
	}
	return list[j]
}

// Sort orders a breakend slice by chromosome and position using the index ordering.
func (ix *Index) Sort(list []*Breakend) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Chromosome != b.Chromosome {
			return a.Chromosome < b.Chromosome
		}
		return ix.positions[a] < ix.positions[b]
	})
}
