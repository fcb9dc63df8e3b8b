package chain

import (
	"math"

	"github.com/inodb/vibe-sv/internal/sv"
)

// Selector proposes the next link to commit, or false when none remains.
type Selector func(st *State) (Candidate, bool)

// SelectNextLink applies the priority rules in order: a breakend with a single
// option, a breakend able to close both sides of a foldback, foldback to
// foldback pairs, ploidy-matched pairs and finally the shortest pair. It does
// not modify the state.
func SelectNextLink(st *State) (Candidate, bool) {
	avail := st.available()
	if len(avail) == 0 {
		return Candidate{}, false
	}
	if id, ok := forcedLink(st, avail); ok {
		return Candidate{Pair: id, Rule: RuleForced}, true
	}
	if id, ok := foldbackCloseLink(st, avail); ok {
		return Candidate{Pair: id, Rule: RuleFoldbackClose}, true
	}
	if id, ok := foldbackPairLink(st, avail); ok {
		return Candidate{Pair: id, Rule: RuleFoldbackPair}, true
	}
	nearest := nearestPairs(st, avail)
	if id, ok := ploidyMatchedLink(st, nearest); ok {
		return Candidate{Pair: id, Rule: RulePloidyMatch}, true
	}
	id, ok := st.best(nearest)
	return Candidate{Pair: id, Rule: RuleShortest}, ok
}

// available returns each breakend's committable pairs, nearest first, in
// cluster breakend order.
func (st *State) available() map[*sv.Breakend][]PairID {
	ok := make(map[PairID]bool)
	avail := make(map[*sv.Breakend][]PairID)
	for _, b := range st.Cluster.Breakends {
		for _, id := range st.byBreakend[b] {
			c, seen := ok[id]
			if !seen {
				c = st.Committable(id)
				ok[id] = c
			}
			if c {
				avail[b] = append(avail[b], id)
			}
		}
	}
	return avail
}

func forcedLink(st *State, avail map[*sv.Breakend][]PairID) (PairID, bool) {
	var forced []PairID
	for _, b := range st.Cluster.Breakends {
		if ids := avail[b]; len(ids) == 1 {
			forced = append(forced, ids[0])
		}
	}
	return st.best(forced)
}

// foldbackCloseLink finds a breakend with at least two copies that can pair
// with both breakends of a foldback, and proposes the shorter of the two.
func foldbackCloseLink(st *State, avail map[*sv.Breakend][]PairID) (PairID, bool) {
	var found []PairID
	for _, fb := range st.Cluster.Foldbacks {
		for _, x := range st.Cluster.Breakends {
			if x == fb.A || x == fb.B || st.Allocator.Copies(x) < 2 {
				continue
			}
			toA, toB := NoPair, NoPair
			for _, id := range avail[x] {
				switch st.Pair(id).Partner(x) {
				case fb.A:
					toA = id
				case fb.B:
					toB = id
				}
			}
			if toA == NoPair || toB == NoPair {
				continue
			}
			if id, ok := st.best([]PairID{toA, toB}); ok {
				found = append(found, id)
			}
		}
	}
	return st.best(found)
}

func foldbackPairLink(st *State, avail map[*sv.Breakend][]PairID) (PairID, bool) {
	var found []PairID
	for _, b := range st.Cluster.Breakends {
		for _, id := range avail[b] {
			p := st.Pair(id)
			if p.Lower != b {
				continue
			}
			if p.Lower.IsFoldback() && p.Upper.IsFoldback() && p.Lower.FoldbackPartner != p.Upper {
				found = append(found, id)
			}
		}
	}
	return st.best(found)
}

// nearestPairs returns the nearest committable pair of every breakend.
func nearestPairs(st *State, avail map[*sv.Breakend][]PairID) []PairID {
	seen := make(map[PairID]bool)
	var out []PairID
	for _, b := range st.Cluster.Breakends {
		ids := avail[b]
		if len(ids) == 0 || seen[ids[0]] {
			continue
		}
		seen[ids[0]] = true
		out = append(out, ids[0])
	}
	return out
}

func ploidyMatchedLink(st *State, nearest []PairID) (PairID, bool) {
	var found []PairID
	for _, id := range nearest {
		p := st.Pair(id)
		diff := math.Abs(st.Allocator.Remaining(p.Lower) - st.Allocator.Remaining(p.Upper))
		if diff <= st.Params.PloidyTolerance || st.isComplexDupPair(p) {
			found = append(found, id)
		}
	}
	return st.best(found)
}

func (st *State) isComplexDupPair(p *Pair) bool {
	for _, cd := range st.ComplexDups {
		for _, pair := range [][2]*sv.Breakend{{p.Lower, p.Upper}, {p.Upper, p.Lower}} {
			if pair[0].SV == cd.SV && (pair[1].SV == cd.Flanks[0] || pair[1].SV == cd.Flanks[1]) {
				return true
			}
		}
	}
	return false
}

// best picks the shortest pair, then the one whose breakends come first, then
// the lowest id.
func (st *State) best(ids []PairID) (PairID, bool) {
	if len(ids) == 0 {
		return NoPair, false
	}
	bestID := ids[0]
	for _, id := range ids[1:] {
		if st.less(id, bestID) {
			bestID = id
		}
	}
	return bestID, true
}

func (st *State) less(a, b PairID) bool {
	pa, pb := st.Pair(a), st.Pair(b)
	if pa.Length != pb.Length {
		return pa.Length < pb.Length
	}
	if oa, ob := st.order[pa.Lower], st.order[pb.Lower]; oa != ob {
		return oa < ob
	}
	if oa, ob := st.order[pa.Upper], st.order[pb.Upper]; oa != ob {
		return oa < ob
	}
	return a < b
}
