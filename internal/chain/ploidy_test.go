package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-sv/internal/sv"
)

func withPloidy(v *sv.Variant, p float64) *sv.Variant {
	v.Ploidy, v.PloidyMin, v.PloidyMax = p, p, p
	return v
}

func TestReplication(t *testing.T) {
	vs := []*sv.Variant{
		withPloidy(bnd(1, "1", 100, sv.OrientUpper, "2"), 1),
		withPloidy(bnd(2, "1", 200, sv.OrientUpper, "3"), 2),
		withPloidy(bnd(3, "1", 300, sv.OrientUpper, "4"), 3.1),
		withPloidy(bnd(4, "1", 400, sv.OrientUpper, "5"), 0),
	}
	assert.Equal(t, map[int]int{1: 1, 2: 2, 3: 3, 4: 1}, Replication(vs, 500))
}

func TestReplication_Capped(t *testing.T) {
	vs := []*sv.Variant{
		withPloidy(bnd(1, "1", 100, sv.OrientUpper, "2"), 1),
		withPloidy(bnd(2, "1", 200, sv.OrientUpper, "3"), 10),
	}
	assert.Equal(t, map[int]int{1: 1, 2: 3}, Replication(vs, 3))
}

func TestAllocator_UnitPloidy(t *testing.T) {
	a := withPloidy(bnd(1, "1", 100, sv.OrientUpper, "2"), 1.5)
	b := withPloidy(bnd(2, "1", 200, sv.OrientLower, "3"), 3)
	alloc := NewAllocator([]*sv.Variant{a, b}, 500)

	assert.Equal(t, 1, alloc.Replication(1))
	assert.Equal(t, 2, alloc.Replication(2))
	assert.InDelta(t, 1.5, alloc.UnitPloidy(2), 1e-9)
	assert.Equal(t, 2, alloc.Copies(b.Start))
	assert.InDelta(t, 3.0, alloc.Remaining(b.End), 1e-9)
}

func TestAllocator_Transactional(t *testing.T) {
	a := bnd(1, "1", 100, sv.OrientUpper, "2")
	b := bnd(2, "1", 200, sv.OrientLower, "3")
	c := bnd(3, "1", 300, sv.OrientLower, "4")
	alloc := NewAllocator([]*sv.Variant{a, b, c}, 500)

	require.NoError(t, alloc.Allocate(a.Start, b.Start))
	assert.Zero(t, alloc.Copies(a.Start))
	assert.Zero(t, alloc.Copies(b.Start))

	err := alloc.Allocate(c.Start, a.Start)
	assert.ErrorIs(t, err, ErrInsufficientPloidy)
	assert.Equal(t, 1, alloc.Copies(c.Start), "failed allocation leaves both ends untouched")
	assert.InDelta(t, 1.0, alloc.Remaining(c.Start), 1e-9)
	assert.InDelta(t, 0.0, alloc.Remaining(a.Start), 1e-9)
}

func TestAllocator_SameBreakendNeedsTwoCopies(t *testing.T) {
	a := withPloidy(bnd(1, "1", 100, sv.OrientUpper, "2"), 1)
	alloc := NewAllocator([]*sv.Variant{a}, 500)
	assert.False(t, alloc.CanAllocate(a.Start, a.Start))
}
