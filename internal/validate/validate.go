// Package validate checks the structural invariants of a clustered and
// chained sample. Any violation makes the whole sample's output untrustworthy.
package validate

import (
	"errors"
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/inodb/vibe-sv/internal/chain"
	"github.com/inodb/vibe-sv/internal/cluster"
	"github.com/inodb/vibe-sv/internal/sv"
)

// Sample checks that every SV belongs to exactly one cluster and that every
// chain is contiguous, uses each committed link once and consumes no more
// ploidy at a breakend than its SV carries. SVs without a positive ploidy
// estimate are not checked for consumption. All violations are returned joined.
func Sample(variants []*sv.Variant, clusters []*cluster.Cluster, chains []*chain.Result, tolerance float64) error {
	var errs []error
	errs = append(errs, membership(variants, clusters)...)
	for _, r := range chains {
		errs = append(errs, chainResult(r, tolerance)...)
	}
	return errors.Join(errs...)
}

func membership(variants []*sv.Variant, clusters []*cluster.Cluster) []error {
	var errs []error
	slot := make(map[int]uint, len(variants))
	for i, v := range variants {
		slot[v.ID] = uint(i)
	}

	seen := bitset.New(uint(len(variants)))
	for _, c := range clusters {
		for _, v := range c.SVs {
			i, ok := slot[v.ID]
			if !ok {
				errs = append(errs, fmt.Errorf("cluster %d: unknown sv %d", c.ID, v.ID))
				continue
			}
			if seen.Test(i) {
				errs = append(errs, fmt.Errorf("cluster %d: sv %d already clustered", c.ID, v.ID))
				continue
			}
			seen.Set(i)
		}
	}
	if seen.Count() != uint(len(variants)) {
		for i, v := range variants {
			if !seen.Test(uint(i)) {
				errs = append(errs, fmt.Errorf("sv %d is in no cluster", v.ID))
			}
		}
	}
	return errs
}

func chainResult(r *chain.Result, tolerance float64) []error {
	var errs []error
	if r.Status == chain.StatusInvalid && len(r.Chains) > 0 {
		errs = append(errs, fmt.Errorf("cluster %d: invalid cluster has %d chains", r.ClusterID, len(r.Chains)))
	}

	used := bitset.New(uint(r.Links))
	consumed := make(map[*sv.Breakend]float64)
	for _, ch := range r.Chains {
		if err := ch.Contiguous(); err != nil {
			errs = append(errs, fmt.Errorf("cluster %d: %w", r.ClusterID, err))
		}
		for _, l := range ch.Links {
			if l.ID < 0 {
				errs = append(errs, fmt.Errorf("cluster %d chain %d: negative link id %d", r.ClusterID, ch.ID, l.ID))
				continue
			}
			id := uint(l.ID)
			if used.Test(id) {
				errs = append(errs, fmt.Errorf("cluster %d chain %d: link %d used twice", r.ClusterID, ch.ID, l.ID))
			}
			used.Set(id)
			consumed[l.First] += ch.Ploidy
			consumed[l.Second] += ch.Ploidy
		}
	}

	for b, p := range consumed {
		if b == nil || b.SV.Ploidy <= 0 {
			continue
		}
		if p > b.SV.Ploidy+tolerance {
			errs = append(errs, fmt.Errorf("cluster %d: breakend %s consumes ploidy %.2f above %.2f",
				r.ClusterID, b, p, b.SV.Ploidy))
		}
	}
	return errs
}
