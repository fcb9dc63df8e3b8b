// Package output writes analysis results as tab-delimited tables.
package output

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/vibe-sv/internal/analyse"
	"github.com/inodb/vibe-sv/internal/sv"
)

// Column headers of the three result tables.
var (
	ClusterColumns = []string{
		"ClusterId", "SvCount", "ResolvedType", "Reasons", "Status",
		"DoubleMinute", "Chains", "Unchained", "PartlyChained", "ComplexDups",
	}
	ChainColumns = []string{
		"ClusterId", "ChainId", "Ploidy", "Closed", "ItemCount", "LinkCount", "Sequence", "Rules",
	}
	AuditColumns = []string{
		"SvId", "Type", "ClusterId", "Reasons", "Excluded",
	}
)

const none = "-"

// TabWriter writes rows of a tab-delimited table with a fixed header.
type TabWriter struct {
	w       *bufio.Writer
	columns []string
}

func newTabWriter(w io.Writer, columns []string) *TabWriter {
	return &TabWriter{w: bufio.NewWriter(w), columns: columns}
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(tw.columns, "\t") + "\n")
	return err
}

func (tw *TabWriter) writeRow(values []string) error {
	if len(values) != len(tw.columns) {
		return fmt.Errorf("row has %d values for %d columns", len(values), len(tw.columns))
	}
	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}

// ClusterWriter writes one row per cluster.
type ClusterWriter struct {
	*TabWriter
}

// NewClusterWriter creates a cluster table writer.
func NewClusterWriter(w io.Writer) *ClusterWriter {
	return &ClusterWriter{newTabWriter(w, ClusterColumns)}
}

// Write writes a single cluster.
func (cw *ClusterWriter) Write(cr *analyse.ClusterResult) error {
	c := cr.Cluster
	dm := "FALSE"
	if cr.DoubleMinute {
		dm = "TRUE"
	}
	return cw.writeRow([]string{
		strconv.Itoa(c.ID),
		strconv.Itoa(c.SVCount()),
		orNone(string(c.ResolvedType)),
		joinOrNone(c.Reasons),
		cr.Status,
		dm,
		strconv.Itoa(len(cr.Chains)),
		joinInts(cr.Unchained),
		joinInts(cr.Partial),
		strconv.Itoa(len(cr.ComplexDups)),
	})
}

// ChainWriter writes one row per chain.
type ChainWriter struct {
	*TabWriter
}

// NewChainWriter creates a chain table writer.
func NewChainWriter(w io.Writer) *ChainWriter {
	return &ChainWriter{newTabWriter(w, ChainColumns)}
}

// Write writes every chain of a cluster.
func (cw *ChainWriter) Write(cr *analyse.ClusterResult) error {
	for _, ch := range cr.Chains {
		rules := make([]string, len(ch.Links))
		for i, l := range ch.Links {
			rules[i] = l.Rule.String()
		}
		closed := "FALSE"
		if ch.Closed {
			closed = "TRUE"
		}
		err := cw.writeRow([]string{
			strconv.Itoa(cr.Cluster.ID),
			strconv.Itoa(ch.ID),
			strconv.FormatFloat(ch.Ploidy, 'f', 2, 64),
			closed,
			strconv.Itoa(len(ch.Items)),
			strconv.Itoa(len(ch.Links)),
			orNone(ch.Sequence()),
			joinOrNone(rules),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// AuditWriter writes the clustering reasons recorded for each SV.
type AuditWriter struct {
	*TabWriter
}

// NewAuditWriter creates an audit table writer.
func NewAuditWriter(w io.Writer) *AuditWriter {
	return &AuditWriter{newTabWriter(w, AuditColumns)}
}

// Write writes the audit row of every SV in input order.
func (aw *AuditWriter) Write(res *analyse.Result) error {
	p := res.Clustering.Partition
	for _, v := range res.Variants {
		if err := aw.writeRow(auditRow(v, p.ClusterOf(v.ID), p.SVReasons(v.ID))); err != nil {
			return err
		}
	}
	return nil
}

func auditRow(v *sv.Variant, clusterID int, reasons []string) []string {
	return []string{
		strconv.Itoa(v.ID),
		v.Type.String(),
		strconv.Itoa(clusterID),
		joinOrNone(reasons),
		orNone(v.Excluded),
	}
}

// WriteTables writes the cluster, chain and audit tables of a result.
// A nil writer skips its table.
func WriteTables(res *analyse.Result, clusters, chains, audit io.Writer) error {
	if clusters != nil {
		cw := NewClusterWriter(clusters)
		if err := cw.WriteHeader(); err != nil {
			return fmt.Errorf("write cluster header: %w", err)
		}
		for _, cr := range res.Clusters {
			if err := cw.Write(cr); err != nil {
				return fmt.Errorf("write cluster %d: %w", cr.Cluster.ID, err)
			}
		}
		if err := cw.Flush(); err != nil {
			return err
		}
	}

	if chains != nil {
		chw := NewChainWriter(chains)
		if err := chw.WriteHeader(); err != nil {
			return fmt.Errorf("write chain header: %w", err)
		}
		for _, cr := range res.Clusters {
			if err := chw.Write(cr); err != nil {
				return fmt.Errorf("write chains of cluster %d: %w", cr.Cluster.ID, err)
			}
		}
		if err := chw.Flush(); err != nil {
			return err
		}
	}

	if audit != nil {
		aw := NewAuditWriter(audit)
		if err := aw.WriteHeader(); err != nil {
			return fmt.Errorf("write audit header: %w", err)
		}
		if err := aw.Write(res); err != nil {
			return fmt.Errorf("write audit: %w", err)
		}
		if err := aw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func orNone(s string) string {
	if s == "" {
		return none
	}
	return s
}

func joinOrNone(ss []string) string {
	if len(ss) == 0 {
		return none
	}
	return strings.Join(ss, ";")
}

func joinInts(ids []int) string {
	if len(ids) == 0 {
		return none
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ";")
}
