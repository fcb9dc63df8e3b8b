package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-sv/internal/sv"
)

// twoItemChain joins the upper breakend of a to the lower breakend of b.
func twoItemChain(id, replica int, a, b *sv.Variant, ploidy float64) *Chain {
	return &Chain{
		ID:     id,
		Ploidy: ploidy,
		Items: []Item{
			{SV: a, Copy: replica, Entry: a.Start, Exit: a.End},
			{SV: b, Copy: replica, Entry: b.Start, Exit: b.End},
		},
		Links: []Link{{ID: LinkID(id), First: a.End, Second: b.Start, Ploidy: ploidy}},
	}
}

func TestChain_ReverseKeepsContiguity(t *testing.T) {
	a := bnd(1, "1", 100, sv.OrientLower, "2")
	b := bnd(2, "2", 500, sv.OrientUpper, "3")
	c := twoItemChain(0, 0, a, b, 1)
	require.NoError(t, c.Contiguous())

	c.Reverse()

	assert.NoError(t, c.Contiguous())
	assert.Same(t, b.End, c.Head())
	assert.Same(t, a.Start, c.Tail())
	assert.Same(t, b.Start, c.Links[0].First)
}

func TestChain_ContiguousDetectsGap(t *testing.T) {
	a := bnd(1, "1", 100, sv.OrientLower, "2")
	b := bnd(2, "2", 500, sv.OrientUpper, "3")
	c := twoItemChain(0, 0, a, b, 1)
	c.Links[0].Second = b.End

	assert.Error(t, c.Contiguous())

	c.Links = nil
	assert.Error(t, c.Contiguous())
}

func TestChain_Sequence(t *testing.T) {
	a := bnd(3, "1", 100, sv.OrientLower, "2")
	b := bnd(5, "2", 500, sv.OrientUpper, "3")
	c := twoItemChain(0, 0, a, b, 1)

	assert.Equal(t, "3e-5s", c.Sequence())
	assert.Equal(t, []int{3, 5}, c.SVIDs())
}

func TestDedup_MergesReplicatedChains(t *testing.T) {
	a := bnd(1, "1", 100, sv.OrientLower, "2")
	b := bnd(2, "2", 500, sv.OrientUpper, "3")
	other := bnd(3, "4", 500, sv.OrientUpper, "5")

	first := twoItemChain(0, 0, a, b, 1)
	replica := twoItemChain(1, 1, a, b, 1)
	replica.Reverse()
	distinct := twoItemChain(2, 0, a, other, 1)

	out := Dedup([]*Chain{first, replica, distinct})

	require.Len(t, out, 2)
	assert.Equal(t, 0, out[0].ID)
	assert.InDelta(t, 2.0, out[0].Ploidy, 1e-9)
	assert.Equal(t, 2, out[1].ID)
	assert.InDelta(t, 1.0, out[1].Ploidy, 1e-9)
}

func TestRuleString(t *testing.T) {
	assert.Equal(t, "ONLY", RuleForced.String())
	assert.Equal(t, "CLOSING", RuleClosing.String())
	assert.Equal(t, "UNKNOWN", Rule(99).String())
	assert.Equal(t, "INVALID", StatusInvalid.String())
}
