package chain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/inodb/vibe-sv/internal/sv"
)

// LinkID identifies a committed link. IDs are never reused within a cluster.
type LinkID int

// Rule names the priority rule that selected a link.
type Rule int

const (
	RuleAssembly Rule = iota
	RuleTandem
	RuleForced
	RuleFoldbackClose
	RuleFoldbackPair
	RulePloidyMatch
	RuleShortest
	RuleClosing
)

func (r Rule) String() string {
	switch r {
	case RuleAssembly:
		return "ASSEMBLY"
	case RuleTandem:
		return "TANDEM"
	case RuleForced:
		return "ONLY"
	case RuleFoldbackClose:
		return "FOLDBACK_SPLIT"
	case RuleFoldbackPair:
		return "FOLDBACK"
	case RulePloidyMatch:
		return "PLOIDY_MATCH"
	case RuleShortest:
		return "NEAREST"
	case RuleClosing:
		return "CLOSING"
	}
	return "UNKNOWN"
}

// Link is a committed junction between two consecutive SV copies of a chain.
// First is the exit breakend of the preceding copy and Second the entry
// breakend of the following one.
type Link struct {
	ID        LinkID
	Pair      PairID
	First     *sv.Breakend
	Second    *sv.Breakend
	Ploidy    float64
	Assembled bool
	Rule      Rule
}

// Closing returns true for the link joining a chain's last copy to its first.
func (l Link) Closing() bool {
	return l.Rule == RuleClosing
}

func (l Link) reversed() Link {
	l.First, l.Second = l.Second, l.First
	return l
}

// Item is one copy of an SV traversed by a chain, entered at Entry and left
// at Exit. A single breakend SV has a nil Entry or Exit and can only sit at
// the end of a chain.
type Item struct {
	SV    *sv.Variant
	Copy  int
	Entry *sv.Breakend
	Exit  *sv.Breakend
}

func (it Item) reversed() Item {
	it.Entry, it.Exit = it.Exit, it.Entry
	return it
}

// Chain is an ordered path of SV copies joined by links. Links[i] joins
// Items[i] to Items[i+1]; a closed chain has one more link returning from the
// last item to the first.
type Chain struct {
	ID     int
	Ploidy float64
	Closed bool
	Items  []Item
	Links  []Link
}

// Head returns the open breakend at the start of the chain, or nil.
func (c *Chain) Head() *sv.Breakend {
	if c.Closed || len(c.Items) == 0 {
		return nil
	}
	return c.Items[0].Entry
}

// Tail returns the open breakend at the end of the chain, or nil.
func (c *Chain) Tail() *sv.Breakend {
	if c.Closed || len(c.Items) == 0 {
		return nil
	}
	return c.Items[len(c.Items)-1].Exit
}

// Reverse flips the direction of an open chain in place.
func (c *Chain) Reverse() {
	n := len(c.Items)
	for i := 0; i < n/2; i++ {
		c.Items[i], c.Items[n-1-i] = c.Items[n-1-i], c.Items[i]
	}
	for i := range c.Items {
		c.Items[i] = c.Items[i].reversed()
	}
	m := len(c.Links)
	for i := 0; i < m/2; i++ {
		c.Links[i], c.Links[m-1-i] = c.Links[m-1-i], c.Links[i]
	}
	for i := range c.Links {
		c.Links[i] = c.Links[i].reversed()
	}
}

// Contiguous checks that every link joins the exit of one item to the entry of
// the next.
func (c *Chain) Contiguous() error {
	want := len(c.Items) - 1
	if c.Closed {
		want = len(c.Items)
	}
	if len(c.Links) != want {
		return fmt.Errorf("chain %d has %d links for %d items", c.ID, len(c.Links), len(c.Items))
	}
	for i, l := range c.Links {
		next := (i + 1) % len(c.Items)
		if l.First != c.Items[i].Exit || l.Second != c.Items[next].Entry {
			return fmt.Errorf("chain %d link %d is not contiguous", c.ID, l.ID)
		}
	}
	return nil
}

// SVIDs returns the distinct SV ids of the chain, ascending.
func (c *Chain) SVIDs() []int {
	seen := make(map[int]bool)
	var ids []int
	for _, it := range c.Items {
		if !seen[it.SV.ID] {
			seen[it.SV.ID] = true
			ids = append(ids, it.SV.ID)
		}
	}
	sort.Ints(ids)
	return ids
}

// Sequence renders the chain as its link sequence, e.g. "3e-5s;5e-7s".
func (c *Chain) Sequence() string {
	parts := make([]string, 0, len(c.Links))
	for _, l := range c.Links {
		parts = append(parts, breakendLabel(l.First)+"-"+breakendLabel(l.Second))
	}
	return strings.Join(parts, ";")
}

func breakendLabel(b *sv.Breakend) string {
	if b.Start {
		return fmt.Sprintf("%ds", b.SV.ID)
	}
	return fmt.Sprintf("%de", b.SV.ID)
}

// signature identifies a chain's structure irrespective of copy index and
// direction.
func (c *Chain) signature() string {
	forward := make([]string, len(c.Items))
	backward := make([]string, len(c.Items))
	for i, it := range c.Items {
		forward[i] = itemLabel(it)
		backward[len(c.Items)-1-i] = itemLabel(it.reversed())
	}
	f, b := strings.Join(forward, ","), strings.Join(backward, ",")
	if c.Closed {
		f = "closed:" + f
		b = "closed:" + b
	}
	if b < f {
		return b
	}
	return f
}

func itemLabel(it Item) string {
	switch {
	case it.Entry == nil:
		return fmt.Sprintf("%d>", it.SV.ID)
	case it.Entry.Start:
		return fmt.Sprintf("%ds", it.SV.ID)
	default:
		return fmt.Sprintf("%de", it.SV.ID)
	}
}

// Dedup merges chains with identical structure into the lowest id, summing
// their ploidy. The input order is kept for the survivors.
func Dedup(chains []*Chain) []*Chain {
	seen := make(map[string]*Chain, len(chains))
	out := make([]*Chain, 0, len(chains))
	for _, c := range chains {
		sig := c.signature()
		if keep, ok := seen[sig]; ok {
			keep.Ploidy += c.Ploidy
			if c.ID < keep.ID {
				keep.ID = c.ID
			}
			continue
		}
		seen[sig] = c
		out = append(out, c)
	}
	return out
}
