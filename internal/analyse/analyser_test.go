package analyse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-sv/internal/chain"
	"github.com/inodb/vibe-sv/internal/cluster"
	"github.com/inodb/vibe-sv/internal/config"
	"github.com/inodb/vibe-sv/internal/sv"
)

func be(chrom string, pos int64, orient int8) *sv.Breakend {
	return &sv.Breakend{Chromosome: chrom, Position: pos, Orientation: orient, Arm: sv.ArmP}
}

func sample() []*sv.Variant {
	amplified := sv.New(1, sv.Dup, be("8", 1_000_000, sv.OrientUpper), be("8", 1_500_000, sv.OrientLower), 10)
	amplified.Start.CN = &sv.CopyNumber{Low: 2, High: 12, MajorLow: 2, MajorHigh: 7}
	amplified.End.CN = &sv.CopyNumber{Low: 12, High: 2, MajorLow: 7, MajorHigh: 2}

	return []*sv.Variant{
		amplified,
		sv.New(2, sv.Del, be("1", 10_000, sv.OrientLower), be("1", 20_000, sv.OrientUpper), 1),
		sv.New(3, sv.Dup, be("2", 1000, sv.OrientUpper), be("2", 3000, sv.OrientLower), 1),
		sv.New(4, sv.Dup, be("2", 2000, sv.OrientUpper), be("2", 4000, sv.OrientLower), 1),
	}
}

func TestAnalyser_Run(t *testing.T) {
	vs := sample()
	p := config.Default()
	p.Workers = 4

	res, err := New(p).Run(vs, nil)
	require.NoError(t, err)

	assert.Len(t, res.RunID, 36)
	require.Len(t, res.Clusters, 3)

	dm := res.Clusters[0]
	assert.Equal(t, 1, dm.Cluster.ID)
	assert.Equal(t, chain.StatusClosed.String(), dm.Status)
	assert.True(t, dm.DoubleMinute)
	require.Len(t, dm.Chains, 1)
	assert.True(t, dm.Chains[0].Closed)

	del := res.Clusters[1]
	assert.Equal(t, 2, del.Cluster.ID)
	assert.Equal(t, StatusResolved, del.Status)
	assert.Equal(t, cluster.ResolvedDel, del.Cluster.ResolvedType)
	assert.Empty(t, del.Chains)

	complex := res.Clusters[2]
	assert.Equal(t, 3, complex.Cluster.ID)
	assert.Equal(t, chain.StatusClosed.String(), complex.Status)
	assert.False(t, complex.DoubleMinute)
	assert.Zero(t, res.Invalid)
}

func TestAnalyser_WorkerCountDoesNotChangeResult(t *testing.T) {
	p := config.Default()

	p.Workers = 1
	single, err := New(p).Run(sample(), nil)
	require.NoError(t, err)

	p.Workers = 8
	many, err := New(p).Run(sample(), nil)
	require.NoError(t, err)

	require.Len(t, many.Clusters, len(single.Clusters))
	for i := range single.Clusters {
		assert.Equal(t, single.Clusters[i].Cluster.ID, many.Clusters[i].Cluster.ID)
		assert.Equal(t, single.Clusters[i].Status, many.Clusters[i].Status)
		require.Len(t, many.Clusters[i].Chains, len(single.Clusters[i].Chains))
		for j := range single.Clusters[i].Chains {
			assert.Equal(t, single.Clusters[i].Chains[j].Sequence(), many.Clusters[i].Chains[j].Sequence())
		}
	}
}

func TestAnalyser_RejectsDuplicateIDs(t *testing.T) {
	vs := sample()
	vs[1].ID = 1

	_, err := New(config.Default()).Run(vs, nil)
	assert.ErrorContains(t, err, "clustering")
}

func TestParallelChain_OrderPreservation(t *testing.T) {
	var clusters []*cluster.Cluster
	for i := 0; i < 50; i++ {
		v := sv.New(i, sv.Del, be("1", int64(i)*100_000, sv.OrientLower), be("1", int64(i)*100_000+500, sv.OrientUpper), 1)
		clusters = append(clusters, &cluster.Cluster{ID: i, SVs: []*sv.Variant{v}, Breakends: v.Breakends()})
	}
	items := make(chan WorkItem, len(clusters))
	for i, c := range clusters {
		items <- WorkItem{Seq: i, Cluster: c}
	}
	close(items)

	b := chain.NewBuilder(config.Default(), nil)
	var collected []int
	err := OrderedCollect(ParallelChain(b, items, 8), func(r WorkResult) error {
		collected = append(collected, r.Seq)
		assert.Equal(t, r.Cluster.ID, r.Result.ClusterID)
		return nil
	})
	require.NoError(t, err)

	assert.Len(t, collected, 50)
	for i, seq := range collected {
		assert.Equal(t, i, seq, "result %d out of order", i)
	}
}
