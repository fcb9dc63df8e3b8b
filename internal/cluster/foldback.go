package cluster

import (
	"github.com/inodb/vibe-sv/internal/sv"
)

// annotateFoldbacks marks foldbacks in an unresolved cluster. An inversion whose
// breakends are close with no other cluster breakend between them folds back on
// itself; otherwise two adjacent same-orientation breakends of different SVs with
// compatible ploidy form a chained foldback.
func (e *Engine) annotateFoldbacks(c *Cluster, ix *sv.Index) {
	inCluster := make(map[*sv.Breakend]bool, len(c.Breakends))
	for _, b := range c.Breakends {
		inCluster[b] = true
	}

	for _, v := range c.SVs {
		if v.Type != sv.Inv || v.Length() > e.params.FoldbackMaxLength {
			continue
		}
		blocked := false
		for _, b := range ix.Between(v.Start, v.End) {
			if inCluster[b] {
				blocked = true
				break
			}
		}
		if !blocked {
			e.addFoldback(c, v.Start, v.End)
		}
	}

	for i := 1; i < len(c.Breakends); i++ {
		a, b := c.Breakends[i-1], c.Breakends[i]
		if a.Chromosome != b.Chromosome || a.SV == b.SV || a.Orientation != b.Orientation {
			continue
		}
		if a.IsFoldback() || b.IsFoldback() {
			continue
		}
		if b.Position-a.Position > e.params.FoldbackMaxLength {
			continue
		}
		if a.SV.PloidyMin > b.SV.PloidyMax+e.params.PloidyTolerance ||
			b.SV.PloidyMin > a.SV.PloidyMax+e.params.PloidyTolerance {
			continue
		}
		e.addFoldback(c, a, b)
	}
}

func (e *Engine) addFoldback(c *Cluster, a, b *sv.Breakend) {
	a.FoldbackPartner = b
	b.FoldbackPartner = a
	a.SV.Foldback = true
	b.SV.Foldback = true
	length := b.Position - a.Position
	if length < 0 {
		length = -length
	}
	c.Foldbacks = append(c.Foldbacks, Foldback{A: a, B: b, Length: length})
}
