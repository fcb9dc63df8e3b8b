package duckdb

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-sv/internal/sv"
)

// Event kinds stored in cn_events.
const (
	eventLOH     = "LOH"
	eventHomLoss = "HOM_LOSS"
)

// WriteVariants batch-inserts SV calls. Absent end breakend and copy number
// columns are stored as NULL.
func (s *Store) WriteVariants(variants []*sv.Variant) error {
	if len(variants) == 0 {
		return nil
	}
	return s.appendTo("sv_calls", func(a *goduckdb.Appender) error {
		for _, v := range variants {
			row := []driver.Value{int64(v.ID), v.Type.String()}
			row = append(row, breakendLocation(v.Start)...)
			row = append(row, breakendLocation(v.End)...)
			row = append(row, v.Ploidy, v.PloidyMin, v.PloidyMax)
			row = append(row, homology(v.Start), homology(v.End))
			row = append(row, copyNumber(v.Start)...)
			row = append(row, copyNumber(v.End)...)
			row = append(row, assembly(v.Start), assembly(v.End))
			if err := a.AppendRow(row...); err != nil {
				return fmt.Errorf("append sv %d: %w", v.ID, err)
			}
		}
		return nil
	})
}

func breakendLocation(b *sv.Breakend) []driver.Value {
	if b == nil {
		return []driver.Value{nil, nil, nil, nil}
	}
	return []driver.Value{b.Chromosome, b.Position, int64(b.Orientation), string(b.Arm)}
}

func homology(b *sv.Breakend) driver.Value {
	if b == nil {
		return nil
	}
	return b.Homology
}

func copyNumber(b *sv.Breakend) []driver.Value {
	if b == nil || b.CN == nil {
		return []driver.Value{nil, nil, nil, nil}
	}
	return []driver.Value{b.CN.Low, b.CN.High, b.CN.MajorLow, b.CN.MajorHigh}
}

func assembly(b *sv.Breakend) driver.Value {
	if b == nil || len(b.AssemblyLinks) == 0 {
		return nil
	}
	return strings.Join(b.AssemblyLinks, ";")
}

// ClearVariants removes all stored SV calls and copy number events.
func (s *Store) ClearVariants() error {
	if _, err := s.db.Exec("DELETE FROM sv_calls"); err != nil {
		return err
	}
	_, err := s.db.Exec("DELETE FROM cn_events")
	return err
}

// LoadVariants reads every stored SV call in id order.
func (s *Store) LoadVariants() ([]*sv.Variant, error) {
	rows, err := s.db.Query(`SELECT
		id, type,
		chr_start, pos_start, orient_start, arm_start,
		chr_end, pos_end, orient_end, arm_end,
		ploidy, ploidy_min, ploidy_max,
		homology_start, homology_end,
		cn_low_start, cn_high_start, major_low_start, major_high_start,
		cn_low_end, cn_high_end, major_low_end, major_high_end,
		asm_start, asm_end
		FROM sv_calls ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query variants: %w", err)
	}
	defer rows.Close()

	var out []*sv.Variant
	for rows.Next() {
		var (
			id                 int64
			typ                string
			ploidy, pmin, pmax float64
			start, end         breakendRow
		)
		if err := rows.Scan(
			&id, &typ,
			&start.chrom, &start.pos, &start.orient, &start.arm,
			&end.chrom, &end.pos, &end.orient, &end.arm,
			&ploidy, &pmin, &pmax,
			&start.homology, &end.homology,
			&start.cn[0], &start.cn[1], &start.cn[2], &start.cn[3],
			&end.cn[0], &end.cn[1], &end.cn[2], &end.cn[3],
			&start.asm, &end.asm,
		); err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}

		t, err := sv.ParseType(typ)
		if err != nil {
			return nil, fmt.Errorf("variant %d: %w", id, err)
		}
		v := sv.New(int(id), t, start.breakend(), end.breakend(), ploidy)
		v.PloidyMin, v.PloidyMax = pmin, pmax
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variants: %w", err)
	}
	return out, nil
}

type breakendRow struct {
	chrom    sql.NullString
	pos      sql.NullInt64
	orient   sql.NullInt64
	arm      sql.NullString
	homology sql.NullInt64
	cn       [4]sql.NullFloat64
	asm      sql.NullString
}

func (r breakendRow) breakend() *sv.Breakend {
	if !r.chrom.Valid {
		return nil
	}
	b := &sv.Breakend{
		Chromosome:  r.chrom.String,
		Position:    r.pos.Int64,
		Orientation: int8(r.orient.Int64),
		Arm:         sv.Arm(r.arm.String),
		Homology:    r.homology.Int64,
	}
	if r.cn[0].Valid {
		b.CN = &sv.CopyNumber{
			Low:       r.cn[0].Float64,
			High:      r.cn[1].Float64,
			MajorLow:  r.cn[2].Float64,
			MajorHigh: r.cn[3].Float64,
		}
	}
	if r.asm.Valid && r.asm.String != "" {
		b.AssemblyLinks = strings.Split(r.asm.String, ";")
	}
	return b
}

// WriteEvents batch-inserts LOH events and their nested hom-loss events.
func (s *Store) WriteEvents(lohs []*sv.LohEvent) error {
	if len(lohs) == 0 {
		return nil
	}
	return s.appendTo("cn_events", func(a *goduckdb.Appender) error {
		for _, l := range lohs {
			if err := a.AppendRow(eventLOH, l.Chromosome, l.PosStart, l.PosEnd,
				int64(l.SvStart), int64(l.SvEnd), l.Valid); err != nil {
				return fmt.Errorf("append loh event: %w", err)
			}
			for _, h := range l.HomLoss {
				if err := a.AppendRow(eventHomLoss, h.Chromosome, h.PosStart, h.PosEnd,
					int64(h.SvStart), int64(h.SvEnd), h.Valid); err != nil {
					return fmt.Errorf("append hom-loss event: %w", err)
				}
			}
		}
		return nil
	})
}

// LoadEvents reads the stored LOH events with their hom-loss events nested.
func (s *Store) LoadEvents() ([]*sv.LohEvent, error) {
	rows, err := s.db.Query(`SELECT kind, chr, pos_start, pos_end, sv_start, sv_end, valid
		FROM cn_events ORDER BY chr, pos_start`)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var lohs []*sv.LohEvent
	var homs []*sv.HomLossEvent
	for rows.Next() {
		var kind, chrom string
		var start, end, svStart, svEnd int64
		var valid bool
		if err := rows.Scan(&kind, &chrom, &start, &end, &svStart, &svEnd, &valid); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		switch kind {
		case eventLOH:
			lohs = append(lohs, &sv.LohEvent{
				Chromosome: chrom, PosStart: start, PosEnd: end,
				SvStart: int(svStart), SvEnd: int(svEnd), Valid: valid,
			})
		case eventHomLoss:
			homs = append(homs, &sv.HomLossEvent{
				Chromosome: chrom, PosStart: start, PosEnd: end,
				SvStart: int(svStart), SvEnd: int(svEnd), Valid: valid,
			})
		default:
			return nil, fmt.Errorf("unknown event kind %q", kind)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	sv.SortLohEvents(lohs)
	for _, h := range homs {
		if !sv.NestHomLoss(lohs, h) {
			return nil, fmt.Errorf("hom-loss %s:%d-%d is not inside any LOH event", h.Chromosome, h.PosStart, h.PosEnd)
		}
	}
	return lohs, nil
}
