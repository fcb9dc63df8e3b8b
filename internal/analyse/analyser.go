// Package analyse runs clustering, chaining and validation for one sample.
package analyse

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inodb/vibe-sv/internal/chain"
	"github.com/inodb/vibe-sv/internal/cluster"
	"github.com/inodb/vibe-sv/internal/config"
	"github.com/inodb/vibe-sv/internal/sv"
	"github.com/inodb/vibe-sv/internal/validate"
)

// StatusResolved marks a cluster explained without chaining.
const StatusResolved = "RESOLVED"

// ClusterResult is the final state of one cluster.
type ClusterResult struct {
	Cluster *cluster.Cluster
	Status  string
	Chains  []*chain.Chain

	// Unchained lists SVs of a chained cluster left out of every chain, and
	// Partial those with only some of their copies chained.
	Unchained   []int
	Partial     []int
	ComplexDups []chain.ComplexDup

	// DoubleMinute is set when a closed chain holds an SV amplified well
	// above its flanking major allele.
	DoubleMinute bool
}

// Result is the outcome of analysing one sample.
type Result struct {
	RunID      string
	Variants   []*sv.Variant
	LohEvents  []*sv.LohEvent
	Clustering *cluster.Result
	Clusters   []*ClusterResult
	Invalid    int
}

// Analyser clusters and chains the SVs of a sample.
type Analyser struct {
	params config.Params
	logger *zap.Logger
}

// New creates an analyser with the given parameters.
func New(p config.Params) *Analyser {
	return &Analyser{
		params: p,
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger passed to the clustering engine and chain builder.
func (a *Analyser) SetLogger(l *zap.Logger) {
	a.logger = l
}

// Run clusters the variants, chains every unresolved cluster on a worker pool
// and validates the result. A validation failure is returned as an error
// together with the result for inspection.
func (a *Analyser) Run(variants []*sv.Variant, loh []*sv.LohEvent) (*Result, error) {
	engine := cluster.NewEngine(a.params)
	engine.SetLogger(a.logger)

	clustering, err := engine.Run(variants, loh)
	if err != nil {
		return nil, fmt.Errorf("clustering: %w", err)
	}

	res := &Result{
		RunID:      uuid.NewString(),
		Variants:   variants,
		LohEvents:  loh,
		Clustering: clustering,
		Clusters:   make([]*ClusterResult, len(clustering.Clusters)),
	}

	// slots maps a work item sequence number back to its cluster position
	var slots []int
	for i, c := range clustering.Clusters {
		if c.NeedsChaining() {
			slots = append(slots, i)
			continue
		}
		res.Clusters[i] = &ClusterResult{Cluster: c, Status: StatusResolved}
	}
	items := make(chan WorkItem, len(slots))
	for seq, i := range slots {
		items <- WorkItem{Seq: seq, Cluster: clustering.Clusters[i]}
	}
	close(items)

	builder := chain.NewBuilder(a.params, clustering.Index)
	builder.SetLogger(a.logger)

	var chained []*chain.Result
	err = OrderedCollect(ParallelChain(builder, items, a.params.Workers), func(r WorkResult) error {
		cr := a.clusterResult(r.Cluster, r.Result)
		if cr.Status == chain.StatusInvalid.String() {
			res.Invalid++
		}
		res.Clusters[slots[r.Seq]] = cr
		chained = append(chained, r.Result)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("chaining clusters: %w", err)
	}

	a.logger.Info("sample analysed",
		zap.String("runID", res.RunID),
		zap.Int("clusters", len(res.Clusters)),
		zap.Int("chained", len(chained)),
		zap.Int("invalid", res.Invalid))

	if err := validate.Sample(variants, clustering.Clusters, chained, a.params.PloidyTolerance); err != nil {
		return res, fmt.Errorf("validating sample: %w", err)
	}
	return res, nil
}

func (a *Analyser) clusterResult(c *cluster.Cluster, r *chain.Result) *ClusterResult {
	cr := &ClusterResult{
		Cluster:     c,
		Status:      r.Status.String(),
		Chains:      r.Chains,
		Unchained:   r.Unchained,
		Partial:     r.Partial,
		ComplexDups: r.ComplexDups,
	}
	if r.Status == chain.StatusInvalid {
		return cr
	}
	for _, ch := range r.Chains {
		if !ch.Closed {
			continue
		}
		for _, it := range ch.Items {
			if it.SV.AmplificationRatio() >= a.params.DoubleMinuteRatio {
				cr.DoubleMinute = true
			}
		}
	}
	return cr
}
