package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-sv/internal/chain"
	"github.com/inodb/vibe-sv/internal/cluster"
	"github.com/inodb/vibe-sv/internal/sv"
)

func variant(id int, ploidy float64) *sv.Variant {
	return sv.New(id, sv.Bnd,
		&sv.Breakend{Chromosome: "1", Position: int64(id) * 1000, Orientation: sv.OrientLower},
		&sv.Breakend{Chromosome: "2", Position: int64(id) * 1000, Orientation: sv.OrientUpper},
		ploidy)
}

func linkedChain(a, b *sv.Variant, ploidy float64) *chain.Chain {
	return &chain.Chain{
		ID:     0,
		Ploidy: ploidy,
		Items: []chain.Item{
			{SV: a, Entry: a.End, Exit: a.Start},
			{SV: b, Entry: b.Start, Exit: b.End},
		},
		Links: []chain.Link{{ID: 0, First: a.Start, Second: b.Start, Ploidy: ploidy}},
	}
}

func TestSample_Valid(t *testing.T) {
	a, b := variant(1, 1), variant(2, 1)
	clusters := []*cluster.Cluster{{ID: 1, SVs: []*sv.Variant{a, b}}}
	results := []*chain.Result{{
		ClusterID: 1,
		Status:    chain.StatusComplete,
		Chains:    []*chain.Chain{linkedChain(a, b, 1)},
		Links:     1,
	}}

	assert.NoError(t, Sample([]*sv.Variant{a, b}, clusters, results, 0.1))
}

func TestSample_Membership(t *testing.T) {
	a, b, c := variant(1, 1), variant(2, 1), variant(3, 1)
	clusters := []*cluster.Cluster{
		{ID: 1, SVs: []*sv.Variant{a, b}},
		{ID: 2, SVs: []*sv.Variant{b}},
	}

	err := Sample([]*sv.Variant{a, b, c}, clusters, nil, 0.1)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "sv 2 already clustered")
	assert.Contains(t, err.Error(), "sv 3 is in no cluster")
}

func TestSample_LinkUsedTwice(t *testing.T) {
	a, b := variant(1, 2), variant(2, 2)
	first := linkedChain(a, b, 1)
	second := linkedChain(a, b, 1)
	second.ID = 1

	err := Sample([]*sv.Variant{a, b},
		[]*cluster.Cluster{{ID: 1, SVs: []*sv.Variant{a, b}}},
		[]*chain.Result{{ClusterID: 1, Chains: []*chain.Chain{first, second}, Links: 1}},
		0.1)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "link 0 used twice")
}

func TestSample_NotContiguous(t *testing.T) {
	a, b := variant(1, 1), variant(2, 1)
	ch := linkedChain(a, b, 1)
	ch.Links[0].Second = b.End

	err := Sample([]*sv.Variant{a, b},
		[]*cluster.Cluster{{ID: 1, SVs: []*sv.Variant{a, b}}},
		[]*chain.Result{{ClusterID: 1, Chains: []*chain.Chain{ch}, Links: 1}},
		0.1)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not contiguous")
}

func TestSample_PloidyExceeded(t *testing.T) {
	a, b := variant(1, 1), variant(2, 1)

	err := Sample([]*sv.Variant{a, b},
		[]*cluster.Cluster{{ID: 1, SVs: []*sv.Variant{a, b}}},
		[]*chain.Result{{ClusterID: 1, Chains: []*chain.Chain{linkedChain(a, b, 1.5)}, Links: 1}},
		0.1)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "consumes ploidy 1.50 above 1.00")
}

func TestSample_InvalidClusterWithChains(t *testing.T) {
	a, b := variant(1, 1), variant(2, 1)

	err := Sample([]*sv.Variant{a, b},
		[]*cluster.Cluster{{ID: 1, SVs: []*sv.Variant{a, b}}},
		[]*chain.Result{{ClusterID: 1, Status: chain.StatusInvalid, Chains: []*chain.Chain{linkedChain(a, b, 1)}, Links: 1}},
		0.1)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cluster has 1 chains")
}
