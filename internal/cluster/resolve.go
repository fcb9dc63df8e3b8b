package cluster

import (
	"github.com/inodb/vibe-sv/internal/sv"
)

// resolve classifies a cluster once membership is final.
func (e *Engine) resolve(c *Cluster, assigned ResolvedType) {
	if assigned != "" {
		c.ResolvedType = assigned
		c.Resolved = true
		return
	}

	if len(c.SVs) == 1 {
		v := c.SVs[0]
		switch v.Type {
		case sv.Del:
			c.ResolvedType, c.Resolved = ResolvedDel, true
		case sv.Ins:
			c.ResolvedType, c.Resolved = ResolvedIns, true
		case sv.Dup:
			// an amplified DUP is left open for chaining into a loop
			c.ResolvedType = ResolvedDup
			c.Resolved = v.AmplificationRatio() < e.params.DoubleMinuteRatio
		case sv.Inv:
			c.ResolvedType = ResolvedInv
		case sv.Bnd:
			c.ResolvedType = ResolvedUnbalTrans
		case sv.Sgl:
			c.ResolvedType = ResolvedSgl
		case sv.Inf:
			c.ResolvedType = ResolvedInf
		default:
			c.ResolvedType = ResolvedNone
		}
		return
	}

	if len(c.SVs) == 2 && c.SVs[0].IsSingle() && c.SVs[1].IsSingle() {
		a, b := c.SVs[0].Start, c.SVs[1].Start
		if a.Chromosome == b.Chromosome && a.Orientation != b.Orientation &&
			copyNumberChangesMatch(a, b, e.params.SoloSingleCNTolerance) {
			if rt := ClassifySinglePair(a, b, e.params); rt != "" {
				c.ResolvedType = rt
				c.Resolved = true
				return
			}
		}
	}

	c.ResolvedType = ResolvedComplex
}

// NeedsChaining reports whether a cluster should be passed to the chain builder.
func (c *Cluster) NeedsChaining() bool {
	return !c.Resolved && len(c.SVs) > 0
}
