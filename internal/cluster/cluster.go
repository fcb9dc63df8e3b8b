// Package cluster groups structural variants into clusters that plausibly arose
// from a single mutational event.
package cluster

import (
	"github.com/inodb/vibe-sv/internal/sv"
)

// ResolvedType tags the classification of a cluster.
type ResolvedType string

// Resolved types.
const (
	ResolvedNone       ResolvedType = "NONE"
	ResolvedComplex    ResolvedType = "COMPLEX"
	ResolvedDel        ResolvedType = "DEL"
	ResolvedDup        ResolvedType = "DUP"
	ResolvedIns        ResolvedType = "INS"
	ResolvedInv        ResolvedType = "INV"
	ResolvedUnbalTrans ResolvedType = "UNBAL_TRANS"
	ResolvedSgl        ResolvedType = "SGL"
	ResolvedInf        ResolvedType = "INF"
	ResolvedDupBE      ResolvedType = "DUP_BE"
	ResolvedPairDel    ResolvedType = "SGL_PAIR_DEL"
	ResolvedPairDup    ResolvedType = "SGL_PAIR_DUP"
	ResolvedPairIns    ResolvedType = "SGL_PAIR_INS"
)

// Clustering reasons recorded in the audit trail.
const (
	ReasonProximity = "PROXIMITY"
	ReasonAssembly  = "ASSEMBLY"
	ReasonLOH       = "LOH"
	ReasonHomLoss   = "HOM_LOSS"
	ReasonLongDDI   = "LONG_DDI"
	ReasonSglPair   = "SGL_PAIR"
)

// ExcludedDuplicate is the exclusion reason for duplicate breakend calls.
const ExcludedDuplicate = string(ResolvedDupBE)

// Foldback is a pair of same-orientation breakends that fold a chromosome back on itself.
// A and B are the same breakend pair for a single-SV inversion foldback.
type Foldback struct {
	A, B   *sv.Breakend
	Length int64
}

// Cluster is a set of SVs hypothesised to share one mutational origin.
type Cluster struct {
	ID           int
	SVs          []*sv.Variant  // ascending SV id
	Breakends    []*sv.Breakend // ordered by chromosome then position
	Reasons      []string
	ResolvedType ResolvedType
	Resolved     bool

	LohEvents     []*sv.LohEvent
	HomLossEvents []*sv.HomLossEvent
	Foldbacks     []Foldback
}

// SVCount returns the number of SVs in the cluster.
func (c *Cluster) SVCount() int {
	return len(c.SVs)
}

// ArmBreakends groups the cluster's breakends by chromosome arm, keyed "chrom_arm".
func (c *Cluster) ArmBreakends() map[string][]*sv.Breakend {
	out := make(map[string][]*sv.Breakend)
	for _, b := range c.Breakends {
		key := b.Chromosome + "_" + string(b.Arm)
		out[key] = append(out[key], b)
	}
	return out
}

// MinPloidy returns the lowest SV ploidy in the cluster.
func (c *Cluster) MinPloidy() float64 {
	min := 0.0
	for i, v := range c.SVs {
		if i == 0 || v.Ploidy < min {
			min = v.Ploidy
		}
	}
	return min
}

// HasSV returns true if the SV id belongs to the cluster.
func (c *Cluster) HasSV(id int) bool {
	for _, v := range c.SVs {
		if v.ID == id {
			return true
		}
	}
	return false
}
