package cluster

import (
	"math"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/inodb/vibe-sv/internal/config"
	"github.com/inodb/vibe-sv/internal/sv"
)

// LongDDICutoff calibrates the length above which a DEL or DUP counts as long for
// this sample: the empirical quantile of simple DEL/DUP lengths after trimming
// the longest fraction, clamped to the configured bounds.
func LongDDICutoff(variants []*sv.Variant, p config.Params) int64 {
	var lengths []float64
	for _, v := range variants {
		if v.Excluded != "" || (v.Type != sv.Del && v.Type != sv.Dup) {
			continue
		}
		if l := v.Length(); l > 0 {
			lengths = append(lengths, float64(l))
		}
	}
	if len(lengths) < p.LongDDIMinSamples {
		return p.LongDDIMinLength
	}

	sort.Float64s(lengths)
	q := stat.Quantile(1-p.LongDDITrimFraction, stat.Empirical, lengths, nil)

	cutoff := int64(math.Round(q))
	if cutoff < p.LongDDIMinLength {
		cutoff = p.LongDDIMinLength
	}
	if cutoff > p.LongDDIMaxLength {
		cutoff = p.LongDDIMaxLength
	}
	return cutoff
}

type longEvent struct {
	sv         *sv.Variant
	start, end int64
}

func (mc *mergeContext) isLong(v *sv.Variant) bool {
	if v.Type != sv.Del && v.Type != sv.Dup && v.Type != sv.Inv {
		return false
	}
	return v.Length() >= mc.cutoff
}

// longDDIMerges joins clusters whose long DEL, DUP or INV events overlap on the
// same chromosome arm, unless copy number loss in the shared span is explained
// by a third cluster.
func (e *Engine) longDDIMerges(mc *mergeContext, p *Partition) []Merge {
	longByCluster := make(map[int][]longEvent)
	for _, cid := range p.ClusterIDs() {
		if p.Resolution(cid) == ResolvedDupBE {
			continue
		}
		for _, id := range p.Members(cid) {
			v, ok := mc.variants[id]
			if !ok || !mc.isLong(v) {
				continue
			}
			longByCluster[cid] = append(longByCluster[cid], longEvent{
				sv:    v,
				start: min(v.Start.Position, v.End.Position),
				end:   max(v.Start.Position, v.End.Position),
			})
		}
	}

	ids := make([]int, 0, len(longByCluster))
	for cid := range longByCluster {
		ids = append(ids, cid)
	}
	sort.Ints(ids)

	var merges []Merge
	for i, c1 := range ids {
		for _, c2 := range ids[i+1:] {
			if m, ok := e.longOverlap(mc, p, c1, c2, longByCluster[c1], longByCluster[c2]); ok {
				merges = append(merges, m)
			}
		}
	}
	return merges
}

func (e *Engine) longOverlap(mc *mergeContext, p *Partition, c1, c2 int, l1, l2 []longEvent) (Merge, bool) {
	for _, a := range l1 {
		for _, b := range l2 {
			if a.sv.Start.Chromosome != b.sv.Start.Chromosome || a.sv.Start.Arm != b.sv.Start.Arm {
				continue
			}
			lo := max(a.start, b.start)
			hi := min(a.end, b.end)
			if lo > hi {
				continue
			}
			if other, conflict := mc.lossExplainedElsewhere(p, a.sv.Start.Chromosome, lo, hi, c1, c2); conflict {
				e.logger.Info("skipping long DEL/DUP merge with conflicting LOH",
					zap.Int("svA", a.sv.ID),
					zap.Int("svB", b.sv.ID),
					zap.Int("conflictCluster", other))
				continue
			}
			return Merge{SvA: a.sv.ID, SvB: b.sv.ID, Reason: ReasonLongDDI}, true
		}
	}
	return Merge{}, false
}

// lossExplainedElsewhere looks for an LOH or hom-loss event overlapping the span
// whose bounding SVs both belong to one cluster other than c1 and c2.
func (mc *mergeContext) lossExplainedElsewhere(p *Partition, chrom string, lo, hi int64, c1, c2 int) (int, bool) {
	check := func(svStart, svEnd int) (int, bool) {
		if svStart == sv.NoSV || svEnd == sv.NoSV || !p.SameCluster(svStart, svEnd) {
			return 0, false
		}
		c := p.ClusterOf(svStart)
		return c, c != c1 && c != c2
	}
	for _, loh := range mc.loh {
		if !loh.Overlaps(chrom, lo, hi) {
			continue
		}
		if c, ok := check(loh.SvStart, loh.SvEnd); ok {
			return c, true
		}
		for _, h := range loh.HomLoss {
			if h.Chromosome != chrom || h.PosStart > hi || h.PosEnd < lo {
				continue
			}
			if c, ok := check(h.SvStart, h.SvEnd); ok {
				return c, true
			}
		}
	}
	return 0, false
}
