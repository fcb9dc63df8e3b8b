package chain

import (
	"errors"
	"math"

	"github.com/inodb/vibe-sv/internal/sv"
)

// ErrInsufficientPloidy is returned when a link would consume more ploidy than
// remains at one of its breakends.
var ErrInsufficientPloidy = errors.New("insufficient ploidy")

const ploidyEpsilon = 1e-9

// Allocator tracks the ploidy still available for linking at each breakend of
// a cluster. SVs are replicated relative to the cluster's lowest ploidy and
// each link consumes one copy's unit ploidy at both of its breakends.
type Allocator struct {
	replication map[int]int
	unit        map[int]float64
	ploidy      map[int]float64
	remaining   map[*sv.Breakend]float64
}

// NewAllocator seeds the remaining ploidy of every breakend of the variants.
// A non-positive ploidy estimate is treated as the cluster minimum.
func NewAllocator(variants []*sv.Variant, maxReplication int) *Allocator {
	a := &Allocator{
		replication: Replication(variants, maxReplication),
		unit:        make(map[int]float64, len(variants)),
		ploidy:      make(map[int]float64, len(variants)),
		remaining:   make(map[*sv.Breakend]float64, 2*len(variants)),
	}
	floor := minPloidy(variants)
	for _, v := range variants {
		p := v.Ploidy
		if p <= 0 {
			p = floor
		}
		a.ploidy[v.ID] = p
		a.unit[v.ID] = p / float64(a.replication[v.ID])
		for _, b := range v.Breakends() {
			a.remaining[b] = p
		}
	}
	return a
}

// minPloidy returns the lowest positive ploidy, or 1 when none is positive.
func minPloidy(variants []*sv.Variant) float64 {
	m := 0.0
	for _, v := range variants {
		if v.Ploidy > 0 && (m == 0 || v.Ploidy < m) {
			m = v.Ploidy
		}
	}
	if m == 0 {
		return 1
	}
	return m
}

// Replication returns the number of logical copies of each SV: its ploidy
// relative to the lowest ploidy in the set, rounded and at least one. When the
// total exceeds maxReplication every count is scaled down proportionally.
func Replication(variants []*sv.Variant, maxReplication int) map[int]int {
	floor := minPloidy(variants)
	reps := make(map[int]int, len(variants))
	total := 0
	for _, v := range variants {
		r := 1
		if v.Ploidy > 0 {
			r = max(1, int(math.Round(v.Ploidy/floor)))
		}
		reps[v.ID] = r
		total += r
	}
	if maxReplication > 0 && total > maxReplication {
		scale := float64(maxReplication) / float64(total)
		for id, r := range reps {
			reps[id] = max(1, int(math.Round(float64(r)*scale)))
		}
	}
	return reps
}

// Replication returns the copy count of an SV.
func (a *Allocator) Replication(svID int) int {
	return a.replication[svID]
}

// UnitPloidy returns the ploidy carried by one copy of an SV.
func (a *Allocator) UnitPloidy(svID int) float64 {
	return a.unit[svID]
}

// Ploidy returns the ploidy the allocator was seeded with for an SV.
func (a *Allocator) Ploidy(svID int) float64 {
	return a.ploidy[svID]
}

// Remaining returns the unallocated ploidy at a breakend.
func (a *Allocator) Remaining(b *sv.Breakend) float64 {
	return a.remaining[b]
}

// Copies returns how many more links a breakend can take.
func (a *Allocator) Copies(b *sv.Breakend) int {
	u := a.unit[b.SV.ID]
	if u <= 0 {
		return 0
	}
	return int(math.Floor(a.remaining[b]/u + ploidyEpsilon))
}

// CanAllocate reports whether a link between x and y would succeed.
func (a *Allocator) CanAllocate(x, y *sv.Breakend) bool {
	if x == y {
		return a.Copies(x) >= 2
	}
	return a.Copies(x) >= 1 && a.Copies(y) >= 1
}

// Allocate consumes one copy at both breakends. Neither breakend is changed
// unless both have a copy left.
func (a *Allocator) Allocate(x, y *sv.Breakend) error {
	if !a.CanAllocate(x, y) {
		return ErrInsufficientPloidy
	}
	a.remaining[x] = math.Max(0, a.remaining[x]-a.unit[x.SV.ID])
	a.remaining[y] = math.Max(0, a.remaining[y]-a.unit[y.SV.ID])
	return nil
}
