package duckdb

import (
	"fmt"
	"strings"
	"time"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-sv/internal/analyse"
)

// Run is one stored analysis run.
type Run struct {
	ID            string
	CreatedAt     time.Time
	Variants      int
	Clusters      int
	Excluded      int
	Invalid       int
	LongDDICutoff int64
}

// WriteResult stores the clusters, chains, links and audit trail of an
// analysis, all stamped with its run id.
func (s *Store) WriteResult(res *analyse.Result) error {
	run := Run{
		ID:        res.RunID,
		CreatedAt: time.Now().UTC(),
		Variants:  len(res.Variants),
		Clusters:  len(res.Clusters),
		Invalid:   res.Invalid,
	}
	if res.Clustering != nil {
		run.Excluded = res.Clustering.Excluded
		run.LongDDICutoff = res.Clustering.LongDDICutoff
	}
	if _, err := s.db.Exec(`INSERT INTO runs VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt, run.Variants, run.Clusters, run.Excluded, run.Invalid, run.LongDDICutoff); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if err := s.appendTo("clusters", func(a *goduckdb.Appender) error {
		for _, cr := range res.Clusters {
			c := cr.Cluster
			if err := a.AppendRow(res.RunID, int64(c.ID), int64(c.SVCount()), string(c.ResolvedType),
				strings.Join(c.Reasons, ";"), cr.Status, cr.DoubleMinute); err != nil {
				return fmt.Errorf("append cluster %d: %w", c.ID, err)
			}
		}
		return nil
	}); err != nil {
		return err
	}

	if err := s.appendTo("chains", func(a *goduckdb.Appender) error {
		for _, cr := range res.Clusters {
			for _, ch := range cr.Chains {
				if err := a.AppendRow(res.RunID, int64(cr.Cluster.ID), int64(ch.ID), ch.Ploidy,
					ch.Closed, int64(len(ch.Items)), ch.Sequence()); err != nil {
					return fmt.Errorf("append chain %d: %w", ch.ID, err)
				}
			}
		}
		return nil
	}); err != nil {
		return err
	}

	if err := s.appendTo("links", func(a *goduckdb.Appender) error {
		for _, cr := range res.Clusters {
			for _, ch := range cr.Chains {
				for _, l := range ch.Links {
					if err := a.AppendRow(res.RunID, int64(cr.Cluster.ID), int64(ch.ID), int64(l.ID),
						int64(l.First.SV.ID), l.First.Start, int64(l.Second.SV.ID), l.Second.Start,
						l.Ploidy, l.Assembled, l.Rule.String()); err != nil {
						return fmt.Errorf("append link %d: %w", l.ID, err)
					}
				}
			}
		}
		return nil
	}); err != nil {
		return err
	}

	if res.Clustering == nil {
		return nil
	}
	p := res.Clustering.Partition
	return s.appendTo("sv_audit", func(a *goduckdb.Appender) error {
		for _, v := range res.Variants {
			if err := a.AppendRow(res.RunID, int64(v.ID), int64(p.ClusterOf(v.ID)),
				strings.Join(p.SVReasons(v.ID), ";"), v.Excluded); err != nil {
				return fmt.Errorf("append audit for sv %d: %w", v.ID, err)
			}
		}
		return nil
	})
}

// Runs lists stored runs, newest first.
func (s *Store) Runs() ([]Run, error) {
	rows, err := s.db.Query(`SELECT run_id, created_at, variants, clusters, excluded, invalid, long_ddi_cutoff
		FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.Variants, &r.Clusters, &r.Excluded, &r.Invalid, &r.LongDDICutoff); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ClusterRow is a stored cluster summary.
type ClusterRow struct {
	ClusterID    int
	SVCount      int
	ResolvedType string
	Reasons      string
	Status       string
	DoubleMinute bool
}

// Clusters returns the stored clusters of a run in id order.
func (s *Store) Clusters(runID string) ([]ClusterRow, error) {
	rows, err := s.db.Query(`SELECT cluster_id, sv_count, resolved_type, reasons, status, double_minute
		FROM clusters WHERE run_id=? ORDER BY cluster_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query clusters: %w", err)
	}
	defer rows.Close()

	var out []ClusterRow
	for rows.Next() {
		var c ClusterRow
		if err := rows.Scan(&c.ClusterID, &c.SVCount, &c.ResolvedType, &c.Reasons, &c.Status, &c.DoubleMinute); err != nil {
			return nil, fmt.Errorf("scan cluster: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clusters: %w", err)
	}
	return out, nil
}

// LinkCount returns the number of stored links of a run.
func (s *Store) LinkCount(runID string) (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT count(*) FROM links WHERE run_id=?`, runID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count links: %w", err)
	}
	return n, nil
}

// DeleteRun removes every row stored for a run.
func (s *Store) DeleteRun(runID string) error {
	for _, table := range []string{"runs", "clusters", "chains", "links", "sv_audit"} {
		if _, err := s.db.Exec("DELETE FROM "+table+" WHERE run_id=?", runID); err != nil {
			return fmt.Errorf("delete run from %s: %w", table, err)
		}
	}
	return nil
}
