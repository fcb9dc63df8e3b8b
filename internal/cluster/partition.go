package cluster

import (
	"sort"

	"github.com/inodb/vibe-sv/internal/sv"
)

// Merge proposes joining the clusters owning two SVs.
type Merge struct {
	SvA     int
	SvB     int
	Reason  string
	Resolve ResolvedType // optional resolution of the merged cluster
}

type group struct {
	members  []int // sorted SV ids
	reasons  []string
	resolved ResolvedType
}

// Partition is the ownership table mapping each SV to exactly one cluster.
// A Partition is not modified once built; Apply returns a new one.
type Partition struct {
	owner     map[int]int
	groups    map[int]*group
	svReasons map[int][]string
}

// NewPartition places every SV in its own cluster, keyed by the SV id.
// Excluded SVs are resolved with their exclusion reason.
func NewPartition(variants []*sv.Variant) *Partition {
	p := &Partition{
		owner:     make(map[int]int, len(variants)),
		groups:    make(map[int]*group, len(variants)),
		svReasons: make(map[int][]string),
	}
	for _, v := range variants {
		g := &group{members: []int{v.ID}}
		if v.Excluded != "" {
			g.resolved = ResolvedType(v.Excluded)
		}
		p.owner[v.ID] = v.ID
		p.groups[v.ID] = g
	}
	return p
}

// ClusterOf returns the cluster id owning an SV, or -1 if unknown.
func (p *Partition) ClusterOf(svID int) int {
	if c, ok := p.owner[svID]; ok {
		return c
	}
	return -1
}

// SameCluster returns true if both SVs are known and share a cluster.
func (p *Partition) SameCluster(a, b int) bool {
	ca, okA := p.owner[a]
	cb, okB := p.owner[b]
	return okA && okB && ca == cb
}

// Members returns the SV ids of a cluster in ascending order.
func (p *Partition) Members(clusterID int) []int {
	if g, ok := p.groups[clusterID]; ok {
		return g.members
	}
	return nil
}

// Reasons returns the clustering reasons recorded for a cluster.
func (p *Partition) Reasons(clusterID int) []string {
	if g, ok := p.groups[clusterID]; ok {
		return g.reasons
	}
	return nil
}

// Resolution returns the resolved type assigned by a merge or exclusion, if any.
func (p *Partition) Resolution(clusterID int) ResolvedType {
	if g, ok := p.groups[clusterID]; ok {
		return g.resolved
	}
	return ""
}

// SVReasons returns the clustering reasons recorded against an SV.
func (p *Partition) SVReasons(svID int) []string {
	return p.svReasons[svID]
}

// ClusterIDs returns all cluster ids in ascending order.
func (p *Partition) ClusterIDs() []int {
	ids := make([]int, 0, len(p.groups))
	for id := range p.groups {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Len returns the number of clusters.
func (p *Partition) Len() int {
	return len(p.groups)
}

// Apply returns a new partition with the merges applied. Merges between SVs
// already sharing a cluster, or naming unknown SVs, are ignored. The merged
// cluster keeps the lowest cluster id and the union of all reasons.
func (p *Partition) Apply(merges []Merge) *Partition {
	parent := make(map[int]int)
	var find func(int) int
	find = func(x int) int {
		px, ok := parent[x]
		if !ok || px == x {
			return x
		}
		root := find(px)
		parent[x] = root
		return root
	}

	var applied []Merge
	for _, m := range merges {
		ca, okA := p.owner[m.SvA]
		cb, okB := p.owner[m.SvB]
		if !okA || !okB || ca == cb {
			continue
		}
		applied = append(applied, m)
		ra, rb := find(ca), find(cb)
		if ra == rb {
			continue
		}
		if rb < ra {
			ra, rb = rb, ra
		}
		parent[ra] = ra
		parent[rb] = ra
	}
	if len(applied) == 0 {
		return p
	}

	out := &Partition{
		owner:     make(map[int]int, len(p.owner)),
		groups:    make(map[int]*group, len(p.groups)),
		svReasons: make(map[int][]string, len(p.svReasons)),
	}
	for id, r := range p.svReasons {
		out.svReasons[id] = r
	}

	merged := make(map[int]*group)
	for id, g := range p.groups {
		if _, touched := parent[id]; !touched {
			out.groups[id] = g
			continue
		}
		root := find(id)
		ng, ok := merged[root]
		if !ok {
			ng = &group{}
			merged[root] = ng
		}
		ng.members = append(ng.members, g.members...)
		ng.reasons = unionStrings(ng.reasons, g.reasons)
	}

	for _, m := range applied {
		root := find(p.owner[m.SvA])
		ng := merged[root]
		ng.reasons = unionStrings(ng.reasons, []string{m.Reason})
		if m.Resolve != "" {
			ng.resolved = m.Resolve
		}
		out.svReasons[m.SvA] = unionStrings(out.svReasons[m.SvA], []string{m.Reason})
		out.svReasons[m.SvB] = unionStrings(out.svReasons[m.SvB], []string{m.Reason})
	}

	for root, ng := range merged {
		sort.Ints(ng.members)
		out.groups[root] = ng
	}
	for cid, g := range out.groups {
		for _, id := range g.members {
			out.owner[id] = cid
		}
	}
	return out
}

// WithResolution returns a copy of the partition with a cluster's resolved type set.
func (p *Partition) WithResolution(clusterID int, rt ResolvedType) *Partition {
	g, ok := p.groups[clusterID]
	if !ok {
		return p
	}
	out := &Partition{
		owner:     p.owner,
		groups:    make(map[int]*group, len(p.groups)),
		svReasons: p.svReasons,
	}
	for id, og := range p.groups {
		out.groups[id] = og
	}
	out.groups[clusterID] = &group{members: g.members, reasons: g.reasons, resolved: rt}
	return out
}

// unionStrings returns the sorted union of two string sets without modifying either.
func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range a {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range b {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
