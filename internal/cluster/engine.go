package cluster

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/inodb/vibe-sv/internal/config"
	"github.com/inodb/vibe-sv/internal/sv"
)

// Engine partitions a sample's SVs into clusters.
type Engine struct {
	params config.Params
	logger *zap.Logger
}

// NewEngine creates a clustering engine with the given parameters.
func NewEngine(p config.Params) *Engine {
	return &Engine{
		params: p,
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for merge decisions and conflicts.
func (e *Engine) SetLogger(l *zap.Logger) {
	e.logger = l
}

// Result is the outcome of clustering one sample.
type Result struct {
	Index     *sv.Index // breakends of non-excluded SVs
	Partition *Partition
	Clusters  []*Cluster // ascending cluster id

	LongDDICutoff   int64
	MergeIterations int
	Excluded        int
}

// Run clusters the variants of one sample. LOH events reference SVs by id.
// Annotations from a previous run on the same variants are reset first.
func (e *Engine) Run(variants []*sv.Variant, loh []*sv.LohEvent) (*Result, error) {
	sorted := make([]*sv.Variant, len(variants))
	copy(sorted, variants)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for i, v := range sorted {
		if v.Start == nil {
			return nil, fmt.Errorf("sv %d has no start breakend", v.ID)
		}
		if i > 0 && sorted[i-1].ID == v.ID {
			return nil, fmt.Errorf("duplicate sv id %d", v.ID)
		}
		v.Excluded = ""
		v.Foldback = false
		for _, b := range v.Breakends() {
			b.FoldbackPartner = nil
		}
	}

	full := sv.BuildIndex(sorted)
	excluded := e.findDuplicates(full)
	for _, v := range sorted {
		if excluded[v.ID] {
			v.Excluded = ExcludedDuplicate
		}
	}
	ix := full.Without(excluded)

	mc := &mergeContext{
		variants: make(map[int]*sv.Variant, len(sorted)),
		index:    ix,
		loh:      loh,
	}
	for _, v := range sorted {
		if v.Excluded == "" {
			mc.variants[v.ID] = v
		}
	}
	mc.cutoff = LongDDICutoff(sorted, e.params)

	part := NewPartition(sorted)
	part = part.Apply(e.proximityMerges(ix))
	part = part.Apply(assemblyMerges(ix))

	iterations := 0
	for iterations < e.params.MaxMergeIterations {
		iterations++
		next, merged := e.evidencePass(mc, part)
		part = next
		if merged == 0 {
			break
		}
		if iterations == e.params.MaxMergeIterations {
			e.logger.Warn("evidence merges did not converge",
				zap.Int("iterations", iterations))
		}
	}

	res := &Result{
		Index:           ix,
		Partition:       part,
		LongDDICutoff:   mc.cutoff,
		MergeIterations: iterations,
		Excluded:        len(excluded),
	}
	res.Clusters = e.buildClusters(mc, part, sorted, ix)

	e.logger.Info("clustering complete",
		zap.Int("svs", len(sorted)),
		zap.Int("excluded", len(excluded)),
		zap.Int("clusters", len(res.Clusters)),
		zap.Int64("longDDICutoff", mc.cutoff),
		zap.Int("mergeIterations", iterations))

	return res, nil
}

// evidencePass applies each evidence rule in turn and returns the new partition
// with the number of merges that changed it.
func (e *Engine) evidencePass(mc *mergeContext, p *Partition) (*Partition, int) {
	rules := []func(*mergeContext, *Partition) []Merge{
		e.homLossMerges,
		e.lohMerges,
		e.longDDIMerges,
		e.soloSingleMerges,
	}
	total := 0
	for _, rule := range rules {
		merges := rule(mc, p)
		next := p.Apply(merges)
		total += p.Len() - next.Len()
		p = next
	}
	return p, total
}

func (e *Engine) buildClusters(mc *mergeContext, p *Partition, variants []*sv.Variant, ix *sv.Index) []*Cluster {
	byID := make(map[int]*sv.Variant, len(variants))
	for _, v := range variants {
		byID[v.ID] = v
	}

	clusters := make([]*Cluster, 0, p.Len())
	for _, cid := range p.ClusterIDs() {
		c := &Cluster{ID: cid, Reasons: p.Reasons(cid)}
		members := make(map[int]bool)
		for _, id := range p.Members(cid) {
			v := byID[id]
			c.SVs = append(c.SVs, v)
			members[id] = true
			if v.Excluded == "" {
				c.Breakends = append(c.Breakends, v.Breakends()...)
			}
		}
		ix.Sort(c.Breakends)
		c.LohEvents, c.HomLossEvents = eventsForCluster(mc.loh, members)

		e.resolve(c, p.Resolution(cid))
		if !c.Resolved {
			e.annotateFoldbacks(c, ix)
		}
		clusters = append(clusters, c)
	}
	return clusters
}
