package output

import (
	"fmt"
	"io"
	"sort"

	"github.com/inodb/vibe-sv/internal/analyse"
	"github.com/inodb/vibe-sv/internal/chain"
)

// Summary holds per-sample counts for the run report.
type Summary struct {
	Variants      int
	Excluded      int
	Clusters      int
	Resolved      int
	Chained       int
	ClosedChains  int
	Invalid       int
	DoubleMinutes int
	ByResolved    map[string]int
}

// Summarize counts the outcome of an analysis.
func Summarize(res *analyse.Result) Summary {
	s := Summary{
		Variants:   len(res.Variants),
		Clusters:   len(res.Clusters),
		Invalid:    res.Invalid,
		ByResolved: make(map[string]int),
	}
	if res.Clustering != nil {
		s.Excluded = res.Clustering.Excluded
	}
	for _, cr := range res.Clusters {
		s.ByResolved[string(cr.Cluster.ResolvedType)]++
		switch cr.Status {
		case analyse.StatusResolved:
			s.Resolved++
		case chain.StatusInvalid.String():
		default:
			s.Chained++
		}
		for _, ch := range cr.Chains {
			if ch.Closed {
				s.ClosedChains++
			}
		}
		if cr.DoubleMinute {
			s.DoubleMinutes++
		}
	}
	return s
}

// WriteSummary writes a human readable summary of the run.
func (s Summary) WriteSummary(w io.Writer) {
	fmt.Fprintf(w, "\nCluster Summary:\n")
	fmt.Fprintf(w, "  SVs:             %d (%d excluded)\n", s.Variants, s.Excluded)
	fmt.Fprintf(w, "  Clusters:        %d\n", s.Clusters)
	fmt.Fprintf(w, "  Resolved:        %d\n", s.Resolved)
	fmt.Fprintf(w, "  Chained:         %d\n", s.Chained)
	fmt.Fprintf(w, "  Invalid:         %d\n", s.Invalid)
	fmt.Fprintf(w, "  Closed chains:   %d\n", s.ClosedChains)
	fmt.Fprintf(w, "  DM candidates:   %d\n", s.DoubleMinutes)

	types := make([]string, 0, len(s.ByResolved))
	for t := range s.ByResolved {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Fprintf(w, "    %-14s %d\n", t, s.ByResolved[t])
	}
}
