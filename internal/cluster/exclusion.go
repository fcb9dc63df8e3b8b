package cluster

import (
	"go.uber.org/zap"

	"github.com/inodb/vibe-sv/internal/sv"
)

// findDuplicates returns the ids of SVs that duplicate another call and should not
// take part in clustering. The index must cover all SVs.
func (e *Engine) findDuplicates(ix *sv.Index) map[int]bool {
	excluded := make(map[int]bool)

	for _, chrom := range ix.Chromosomes() {
		list := ix.Breakends(chrom)
		for i, b := range list {
			if excluded[b.SV.ID] {
				continue
			}
			for j := i + 1; j < len(list); j++ {
				o := list[j]
				if o.Position-b.Position > e.params.SingleDuplicateDistance &&
					o.Position-b.Position > e.params.DuplicateBreakendDistance {
					break
				}
				if excluded[o.SV.ID] || o.SV == b.SV || o.Orientation != b.Orientation {
					continue
				}
				if dup := e.duplicateOf(b, o); dup != nil {
					excluded[dup.ID] = true
					e.logger.Debug("excluding duplicate breakend",
						zap.Int("sv", dup.ID),
						zap.String("chrom", chrom),
						zap.Int64("pos", b.Position))
					if dup == b.SV {
						break
					}
				}
			}
		}
	}
	return excluded
}

// duplicateOf decides whether one of two same-orientation breakends is a
// duplicate call and returns its SV.
func (e *Engine) duplicateOf(a, b *sv.Breakend) *sv.Variant {
	dist := b.Position - a.Position
	if dist < 0 {
		dist = -dist
	}

	aSingle := a.SV.IsSingle()
	bSingle := b.SV.IsSingle()

	if a.SV.Type == b.SV.Type && dist <= e.params.DuplicateBreakendDistance {
		if aSingle && bSingle {
			return laterSV(a.SV, b.SV)
		}
		if !aSingle && !bSingle && otherEndsMatch(a, b, e.params.DuplicateBreakendDistance) {
			return laterSV(a.SV, b.SV)
		}
	}

	if aSingle != bSingle && dist <= e.params.SingleDuplicateDistance {
		single, paired := a.SV, b.SV
		if bSingle {
			single, paired = b.SV, a.SV
		}
		if single.Ploidy <= paired.Ploidy+e.params.PloidyTolerance {
			return single
		}
	}
	return nil
}

func otherEndsMatch(a, b *sv.Breakend, maxDist int64) bool {
	oa, ob := a.Other(), b.Other()
	if oa.Chromosome != ob.Chromosome || oa.Orientation != ob.Orientation {
		return false
	}
	d := oa.Position - ob.Position
	if d < 0 {
		d = -d
	}
	return d <= maxDist
}

func laterSV(a, b *sv.Variant) *sv.Variant {
	if a.ID > b.ID {
		return a
	}
	return b
}
