package chain

import (
	"errors"
	"fmt"
	"sort"

	"github.com/inodb/vibe-sv/internal/cluster"
	"github.com/inodb/vibe-sv/internal/config"
	"github.com/inodb/vibe-sv/internal/sv"
)

var (
	// ErrDuplicateLink is returned when a pair is requested more often than
	// its breakends have copies.
	ErrDuplicateLink = errors.New("duplicate link")

	// ErrWouldCloseLoop is returned when the only way to commit a pair would
	// join the two ends of one chain.
	ErrWouldCloseLoop = errors.New("link would close a chain")
)

// NoProgressError reports that chain building stopped committing links.
type NoProgressError struct {
	Iterations int
	Last       error
}

func (e *NoProgressError) Error() string {
	return fmt.Sprintf("no link committed in %d iterations: %v", e.Iterations, e.Last)
}

func (e *NoProgressError) Unwrap() error {
	return e.Last
}

// Status is the chain building state of a cluster.
type Status int

const (
	StatusSeeding Status = iota
	StatusAssembling
	StatusExtending
	StatusClosed
	StatusComplete
	StatusInvalid
)

func (s Status) String() string {
	switch s {
	case StatusSeeding:
		return "SEEDING"
	case StatusAssembling:
		return "ASSEMBLING"
	case StatusExtending:
		return "EXTENDING"
	case StatusClosed:
		return "CLOSED"
	case StatusComplete:
		return "COMPLETE"
	case StatusInvalid:
		return "INVALID"
	}
	return "UNKNOWN"
}

// Candidate is a pair proposed for commit together with the rule choosing it.
type Candidate struct {
	Pair PairID
	Rule Rule
}

type copyKey struct {
	sv   int
	copy int
}

// State holds everything chain building knows about one cluster.
type State struct {
	Cluster     *cluster.Cluster
	Params      config.Params
	Pairs       []Pair
	Allocator   *Allocator
	Chains      []*Chain
	ComplexDups []ComplexDup
	Status      Status

	byBreakend map[*sv.Breakend][]PairID
	order      map[*sv.Breakend]int
	placed     map[copyKey]*Chain
	pairUse    map[PairID]int
	rejected   map[PairID]bool
	cached     map[PairID]bool // committability, dropped when a pair's breakends change
	enumerator *Enumerator
	nextLink   LinkID
	nextChain  int
}

// NewState enumerates the pairs of a cluster and seeds the allocator.
func NewState(c *cluster.Cluster, p config.Params, ix *sv.Index) *State {
	var variants []*sv.Variant
	for _, v := range c.SVs {
		if v.Excluded == "" {
			variants = append(variants, v)
		}
	}

	st := &State{
		Cluster:    c,
		Params:     p,
		Allocator:  NewAllocator(variants, p.MaxReplication),
		Status:     StatusSeeding,
		order:      make(map[*sv.Breakend]int, len(c.Breakends)),
		placed:     make(map[copyKey]*Chain),
		pairUse:    make(map[PairID]int),
		rejected:   make(map[PairID]bool),
		cached:     make(map[PairID]bool),
		enumerator: NewEnumerator(p, ix),
	}
	for i, b := range c.Breakends {
		st.order[b] = i
	}
	st.Pairs, st.byBreakend = st.enumerator.Enumerate(c, st.Allocator)
	st.ComplexDups = st.enumerator.FindComplexDups(c, st.Pairs, st.byBreakend)
	return st
}

// PairsOf returns the pairs of a breakend, nearest first.
func (st *State) PairsOf(b *sv.Breakend) []PairID {
	return st.byBreakend[b]
}

// Pair returns a pair from the arena.
func (st *State) Pair(id PairID) *Pair {
	return &st.Pairs[id]
}

// Uses returns how many times a pair has been committed.
func (st *State) Uses(id PairID) int {
	return st.pairUse[id]
}

// Rejected reports whether a pair failed to commit earlier.
func (st *State) Rejected(id PairID) bool {
	return st.rejected[id]
}

// Reject stops a pair from being proposed again.
func (st *State) Reject(id PairID) {
	st.rejected[id] = true
	st.cached[id] = false
}

// Placed returns the number of copies of an SV sitting in chains.
func (st *State) Placed(svID int) int {
	n := 0
	for k := range st.placed {
		if k.sv == svID {
			n++
		}
	}
	return n
}

// Unplaced returns the number of SV copies not yet in any chain.
func (st *State) Unplaced() int {
	n := 0
	for _, v := range st.Cluster.SVs {
		if v.Excluded == "" {
			n += st.Allocator.Replication(v.ID)
		}
	}
	return n - len(st.placed)
}

// endOption is one way to attach a link at a breakend: an open chain end, or a
// fresh copy of its SV when chain is nil.
type endOption struct {
	chain *Chain
	head  bool
	copy  int
}

// options lists the ways to attach at b, chain ends first in chain id order.
func (st *State) options(b *sv.Breakend) []endOption {
	var opts []endOption
	for _, c := range st.Chains {
		if c.Head() == b {
			opts = append(opts, endOption{chain: c, head: true, copy: c.Items[0].Copy})
		}
		if c.Tail() == b {
			opts = append(opts, endOption{chain: c, head: false, copy: c.Items[len(c.Items)-1].Copy})
		}
	}
	if i, ok := st.freshCopy(b.SV.ID, 0); ok {
		opts = append(opts, endOption{copy: i})
	}
	return opts
}

// freshCopy returns the first copy of an SV, from index from on, not yet in
// any chain.
func (st *State) freshCopy(svID, from int) (int, bool) {
	for i := from; i < st.Allocator.Replication(svID); i++ {
		if _, ok := st.placed[copyKey{svID, i}]; !ok {
			return i, true
		}
	}
	return 0, false
}

// choose picks how both ends of a pair attach. It never joins the two ends of
// one chain, and a tandem pair always joins two different copies.
func (st *State) choose(p *Pair) (endOption, endOption, error) {
	lo, uo := st.options(p.Lower), st.options(p.Upper)
	if len(lo) == 0 || len(uo) == 0 {
		return endOption{}, endOption{}, ErrInsufficientPloidy
	}
	err := ErrWouldCloseLoop
	for _, a := range lo {
		for _, b := range uo {
			if a.chain != nil && a.chain == b.chain {
				continue
			}
			if p.Tandem() && a.chain == nil && b.chain == nil {
				next, ok := st.freshCopy(p.Upper.SV.ID, a.copy+1)
				if !ok {
					err = ErrInsufficientPloidy
					continue
				}
				b.copy = next
			}
			return a, b, nil
		}
	}
	return endOption{}, endOption{}, err
}

// Committable reports whether ApplyLink would succeed for a pair.
func (st *State) Committable(id PairID) bool {
	if ok, hit := st.cached[id]; hit {
		return ok
	}
	ok := st.checkCommittable(id)
	st.cached[id] = ok
	return ok
}

func (st *State) checkCommittable(id PairID) bool {
	p := st.Pair(id)
	if st.rejected[id] || st.pairUse[id] >= p.RepeatCount {
		return false
	}
	if !st.Allocator.CanAllocate(p.Lower, p.Upper) {
		return false
	}
	_, _, err := st.choose(p)
	return err == nil
}

// ApplyLink commits a candidate: it picks the SV copies to join, allocates
// ploidy at both breakends and then extends, merges or starts a chain. On
// error the state is unchanged.
func ApplyLink(st *State, cand Candidate) (Link, error) {
	if cand.Pair < 0 || int(cand.Pair) >= len(st.Pairs) {
		return Link{}, fmt.Errorf("unknown pair %d", cand.Pair)
	}
	p := st.Pair(cand.Pair)
	if st.pairUse[cand.Pair] >= p.RepeatCount {
		return Link{}, fmt.Errorf("pair %d (%s, %s): %w", p.ID, p.Lower, p.Upper, ErrDuplicateLink)
	}
	lo, uo, err := st.choose(p)
	if err != nil {
		return Link{}, fmt.Errorf("pair %d (%s, %s): %w", p.ID, p.Lower, p.Upper, err)
	}
	if err := st.Allocator.Allocate(p.Lower, p.Upper); err != nil {
		return Link{}, fmt.Errorf("pair %d (%s, %s): %w", p.ID, p.Lower, p.Upper, err)
	}

	st.invalidate(p, lo, uo)

	link := Link{
		ID:        st.nextLink,
		Pair:      p.ID,
		Ploidy:    min(st.Allocator.UnitPloidy(p.Lower.SV.ID), st.Allocator.UnitPloidy(p.Upper.SV.ID)),
		Assembled: p.Assembled,
		Rule:      cand.Rule,
	}
	st.nextLink++
	st.pairUse[p.ID]++

	switch {
	case lo.chain != nil && uo.chain != nil:
		st.join(lo, p.Lower, uo, p.Upper, link)
	case lo.chain != nil:
		st.extend(lo, p.Lower, p.Upper, uo.copy, link)
	case uo.chain != nil:
		st.extend(uo, p.Upper, p.Lower, lo.copy, link)
	default:
		st.start(p.Lower, lo.copy, p.Upper, uo.copy, link)
	}
	return link, nil
}

// invalidate drops the cached committability of every pair touching the SVs
// of p or the open ends of the chains p is about to attach to.
func (st *State) invalidate(p *Pair, ends ...endOption) {
	svs := []*sv.Variant{p.Lower.SV, p.Upper.SV}
	for _, e := range ends {
		if e.chain == nil {
			continue
		}
		for _, b := range []*sv.Breakend{e.chain.Head(), e.chain.Tail()} {
			if b != nil {
				svs = append(svs, b.SV)
			}
		}
	}
	for _, v := range svs {
		for _, b := range v.Breakends() {
			for _, id := range st.byBreakend[b] {
				delete(st.cached, id)
			}
		}
	}
}

func (st *State) place(it Item, c *Chain) {
	st.placed[copyKey{it.SV.ID, it.Copy}] = c
}

// start opens a new chain of two fresh copies.
func (st *State) start(a *sv.Breakend, aCopy int, b *sv.Breakend, bCopy int, link Link) {
	c := &Chain{
		ID:     st.nextChain,
		Ploidy: link.Ploidy,
		Items: []Item{
			{SV: a.SV, Copy: aCopy, Entry: a.Other(), Exit: a},
			{SV: b.SV, Copy: bCopy, Entry: b, Exit: b.Other()},
		},
	}
	st.nextChain++
	link.First, link.Second = a, b
	c.Links = []Link{link}
	st.Chains = append(st.Chains, c)
	for _, it := range c.Items {
		st.place(it, c)
	}
}

// extend attaches a fresh copy entered at b to the chain end at open.
func (st *State) extend(at endOption, open, b *sv.Breakend, bCopy int, link Link) {
	c := at.chain
	c.Ploidy = min(c.Ploidy, st.Allocator.UnitPloidy(b.SV.ID))
	if at.head {
		it := Item{SV: b.SV, Copy: bCopy, Entry: b.Other(), Exit: b}
		link.First, link.Second = b, open
		c.Items = append([]Item{it}, c.Items...)
		c.Links = append([]Link{link}, c.Links...)
		st.place(it, c)
		return
	}
	it := Item{SV: b.SV, Copy: bCopy, Entry: b, Exit: b.Other()}
	link.First, link.Second = open, b
	c.Items = append(c.Items, it)
	c.Links = append(c.Links, link)
	st.place(it, c)
}

// join merges the chains at two open ends into the one with the lower id.
func (st *State) join(ao endOption, a *sv.Breakend, bo endOption, b *sv.Breakend, link Link) {
	first, second := ao.chain, bo.chain
	// orient so that first ends at a and second begins at b
	if ao.head {
		first.Reverse()
	}
	if !bo.head {
		second.Reverse()
	}
	link.First, link.Second = a, b

	merged := &Chain{
		ID:     min(first.ID, second.ID),
		Ploidy: min(first.Ploidy, second.Ploidy),
		Items:  append(append([]Item{}, first.Items...), second.Items...),
	}
	merged.Links = append(append(append([]Link{}, first.Links...), link), second.Links...)

	chains := st.Chains[:0]
	for _, c := range st.Chains {
		switch c {
		case first, second:
			if c.ID == merged.ID {
				chains = append(chains, merged)
			}
		default:
			chains = append(chains, c)
		}
	}
	st.Chains = chains
	for _, it := range merged.Items {
		st.place(it, merged)
	}
}

// close joins the open ends of a chain with a closing link.
func (st *State) close(c *Chain) bool {
	head, tail := c.Head(), c.Tail()
	if head == nil || tail == nil {
		return false
	}
	lower, upper := head, tail
	if lower.Orientation != sv.OrientUpper {
		lower, upper = tail, head
	}
	if !st.enumerator.Legal(lower, upper) {
		return false
	}
	if err := st.Allocator.Allocate(tail, head); err != nil {
		return false
	}
	clear(st.cached)
	c.Links = append(c.Links, Link{
		ID:     st.nextLink,
		Pair:   NoPair,
		First:  tail,
		Second: head,
		Ploidy: c.Ploidy,
		Rule:   RuleClosing,
	})
	st.nextLink++
	c.Closed = true
	return true
}

// Unchained returns the ids of SVs with no copy in any chain, ascending.
func (st *State) Unchained() []int {
	var ids []int
	for _, v := range st.Cluster.SVs {
		if v.Excluded == "" && st.Placed(v.ID) == 0 {
			ids = append(ids, v.ID)
		}
	}
	sort.Ints(ids)
	return ids
}

// Partial returns the ids of SVs with some but not all of their copies in
// chains, ascending.
func (st *State) Partial() []int {
	var ids []int
	for _, v := range st.Cluster.SVs {
		if v.Excluded != "" {
			continue
		}
		if n := st.Placed(v.ID); n > 0 && n < st.Allocator.Replication(v.ID) {
			ids = append(ids, v.ID)
		}
	}
	sort.Ints(ids)
	return ids
}
