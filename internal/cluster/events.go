package cluster

import (
	"go.uber.org/zap"

	"github.com/inodb/vibe-sv/internal/sv"
)

// mergeContext is the read-only sample state the evidence rules consult.
type mergeContext struct {
	variants map[int]*sv.Variant // non-excluded SVs by id
	index    *sv.Index
	loh      []*sv.LohEvent
	cutoff   int64
}

func (mc *mergeContext) known(id int) bool {
	_, ok := mc.variants[id]
	return ok
}

// homLossResolved reports whether a nested hom-loss event is explained within
// a single cluster.
func (mc *mergeContext) homLossResolved(p *Partition, h *sv.HomLossEvent) bool {
	return h.Valid && h.BothBounded() &&
		mc.known(h.SvStart) && mc.known(h.SvEnd) &&
		p.SameCluster(h.SvStart, h.SvEnd)
}

// homLossMerges joins the clusters bounding each valid hom-loss event nested in
// an LOH event.
func (e *Engine) homLossMerges(mc *mergeContext, p *Partition) []Merge {
	var merges []Merge
	for _, loh := range mc.loh {
		for _, h := range loh.HomLoss {
			if !h.Valid || !h.BothBounded() {
				continue
			}
			if !mc.known(h.SvStart) || !mc.known(h.SvEnd) {
				e.logger.Debug("hom-loss bounded by unknown or excluded SV",
					zap.String("chrom", h.Chromosome),
					zap.Int64("start", h.PosStart),
					zap.Int64("end", h.PosEnd))
				continue
			}
			if p.SameCluster(h.SvStart, h.SvEnd) {
				continue
			}
			merges = append(merges, Merge{SvA: h.SvStart, SvB: h.SvEnd, Reason: ReasonHomLoss})
		}
	}
	return merges
}

// lohMerges joins the clusters bounding each valid LOH event, provided every
// hom-loss event nested inside it is already explained.
func (e *Engine) lohMerges(mc *mergeContext, p *Partition) []Merge {
	var merges []Merge
	for _, loh := range mc.loh {
		if !loh.Valid || !loh.BothBounded() {
			continue
		}
		if !mc.known(loh.SvStart) || !mc.known(loh.SvEnd) {
			e.logger.Debug("LOH bounded by unknown or excluded SV",
				zap.String("chrom", loh.Chromosome),
				zap.Int64("start", loh.PosStart),
				zap.Int64("end", loh.PosEnd),
				zap.Int("svStart", loh.SvStart),
				zap.Int("svEnd", loh.SvEnd))
			continue
		}
		if p.SameCluster(loh.SvStart, loh.SvEnd) {
			continue
		}

		conflict := false
		for _, h := range loh.HomLoss {
			if !mc.homLossResolved(p, h) {
				conflict = true
				break
			}
		}
		if conflict {
			e.logger.Info("skipping LOH merge with unresolved hom-loss",
				zap.String("chrom", loh.Chromosome),
				zap.Int64("start", loh.PosStart),
				zap.Int64("end", loh.PosEnd),
				zap.Int("svStart", loh.SvStart),
				zap.Int("svEnd", loh.SvEnd))
			continue
		}
		merges = append(merges, Merge{SvA: loh.SvStart, SvB: loh.SvEnd, Reason: ReasonLOH})
	}
	return merges
}

// eventsForCluster returns the LOH and hom-loss events bounded by SVs of a cluster.
func eventsForCluster(loh []*sv.LohEvent, members map[int]bool) ([]*sv.LohEvent, []*sv.HomLossEvent) {
	var lohs []*sv.LohEvent
	var homs []*sv.HomLossEvent
	for _, l := range loh {
		if members[l.SvStart] || members[l.SvEnd] {
			lohs = append(lohs, l)
		}
		for _, h := range l.HomLoss {
			if members[h.SvStart] || members[h.SvEnd] {
				homs = append(homs, h)
			}
		}
	}
	return lohs, homs
}
