package svfile

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/vibe-sv/internal/sv"
)

// SV table columns. Only the start breakend columns are required; a missing
// chr_end describes a single breakend.
const (
	ColID          = "id"
	ColType        = "type"
	ColPloidy      = "ploidy"
	ColPloidyMin   = "ploidy_min"
	ColPloidyMax   = "ploidy_max"
	colChrom       = "chr_"
	colPos         = "pos_"
	colOrient      = "orient_"
	colArm         = "arm_"
	colHomology    = "homology_"
	colCNLow       = "cn_low_"
	colCNHigh      = "cn_high_"
	colMajorLow    = "major_low_"
	colMajorHigh   = "major_high_"
	colAssembly    = "asm_"
	suffixStart    = "start"
	suffixEnd      = "end"
	assemblyTagSep = ";"
)

// VariantColumns lists the SV table header in write order.
var VariantColumns = []string{
	ColID, ColType,
	"chr_start", "pos_start", "orient_start", "arm_start",
	"chr_end", "pos_end", "orient_end", "arm_end",
	ColPloidy, ColPloidyMin, ColPloidyMax,
	"homology_start", "homology_end",
	"cn_low_start", "cn_high_start", "major_low_start", "major_high_start",
	"cn_low_end", "cn_high_end", "major_low_end", "major_high_end",
	"asm_start", "asm_end",
}

// VariantParser reads SVs from a tab-separated table.
type VariantParser struct {
	t *table
}

// NewVariantParser opens an SV table, plain or gzipped. "-" reads stdin.
func NewVariantParser(path string) (*VariantParser, error) {
	t, err := openTable(path, "sv")
	if err != nil {
		return nil, err
	}
	return newVariantParser(t)
}

// NewVariantParserFromReader creates a parser from an io.Reader.
func NewVariantParserFromReader(r io.Reader) (*VariantParser, error) {
	t, err := newTable(r, "sv")
	if err != nil {
		return nil, err
	}
	return newVariantParser(t)
}

func newVariantParser(t *table) (*VariantParser, error) {
	if err := t.require(ColID, ColType, "chr_start", "pos_start", "orient_start", ColPloidy); err != nil {
		t.Close()
		return nil, err
	}
	return &VariantParser{t: t}, nil
}

// Next reads the next SV. Returns nil, nil when there are no more rows.
func (p *VariantParser) Next() (*sv.Variant, error) {
	fields, err := p.t.next()
	if err != nil || fields == nil {
		return nil, err
	}
	return p.parseRow(fields)
}

// ReadAll reads every remaining SV.
func (p *VariantParser) ReadAll() ([]*sv.Variant, error) {
	var out []*sv.Variant
	for {
		v, err := p.Next()
		if err != nil {
			return nil, err
		}
		if v == nil {
			return out, nil
		}
		out = append(out, v)
	}
}

// LineNumber returns the current line number being processed.
func (p *VariantParser) LineNumber() int {
	return p.t.lineNumber
}

// Close closes the parser and underlying file.
func (p *VariantParser) Close() error {
	return p.t.Close()
}

func (p *VariantParser) parseRow(fields []string) (*sv.Variant, error) {
	t := p.t
	id, err := strconv.Atoi(t.field(fields, ColID))
	if err != nil {
		return nil, t.errorf("invalid id: %s", t.field(fields, ColID))
	}
	typ, err := sv.ParseType(t.field(fields, ColType))
	if err != nil {
		return nil, t.errorf("%v", err)
	}

	start, err := p.parseBreakend(fields, suffixStart)
	if err != nil {
		return nil, err
	}
	var end *sv.Breakend
	if t.field(fields, colChrom+suffixEnd) != Missing {
		if end, err = p.parseBreakend(fields, suffixEnd); err != nil {
			return nil, err
		}
	}
	if (end == nil) != (typ == sv.Sgl || typ == sv.Inf) {
		return nil, t.errorf("sv %d of type %s has %s end breakend", id, typ, presence(end != nil))
	}

	ploidy, _, err := t.floatField(fields, ColPloidy, 0)
	if err != nil {
		return nil, err
	}
	v := sv.New(id, typ, start, end, ploidy)
	if v.PloidyMin, _, err = t.floatField(fields, ColPloidyMin, ploidy); err != nil {
		return nil, err
	}
	if v.PloidyMax, _, err = t.floatField(fields, ColPloidyMax, ploidy); err != nil {
		return nil, err
	}
	return v, nil
}

func presence(ok bool) string {
	if ok {
		return "an"
	}
	return "no"
}

func (p *VariantParser) parseBreakend(fields []string, suffix string) (*sv.Breakend, error) {
	t := p.t
	b := &sv.Breakend{Chromosome: t.field(fields, colChrom+suffix), Arm: sv.ArmP}
	if b.Chromosome == Missing {
		return nil, t.errorf("missing %s", colChrom+suffix)
	}

	var err error
	if b.Position, err = t.intField(fields, colPos+suffix, -1); err != nil {
		return nil, err
	}
	switch {
	case b.Position == -1:
		return nil, t.errorf("missing %s", colPos+suffix)
	case b.Position < 1:
		return nil, t.errorf("invalid %s: %d is not a 1-based position", colPos+suffix, b.Position)
	}

	switch o := t.field(fields, colOrient+suffix); o {
	case "1", "+1", "+":
		b.Orientation = sv.OrientLower
	case "-1", "-":
		b.Orientation = sv.OrientUpper
	default:
		return nil, t.errorf("invalid %s: %s", colOrient+suffix, o)
	}

	switch a := strings.ToUpper(t.field(fields, colArm+suffix)); a {
	case Missing, string(sv.ArmP):
	case string(sv.ArmQ):
		b.Arm = sv.ArmQ
	default:
		return nil, t.errorf("invalid %s: %s", colArm+suffix, a)
	}

	if b.Homology, err = t.intField(fields, colHomology+suffix, 0); err != nil {
		return nil, err
	}

	// copy number is all four values or none
	cn := &sv.CopyNumber{}
	var present, missing []string
	for _, c := range []struct {
		col string
		dst *float64
	}{
		{colCNLow, &cn.Low},
		{colCNHigh, &cn.High},
		{colMajorLow, &cn.MajorLow},
		{colMajorHigh, &cn.MajorHigh},
	} {
		v, ok, err := t.floatField(fields, c.col+suffix, 0)
		if err != nil {
			return nil, err
		}
		*c.dst = v
		if ok {
			present = append(present, c.col+suffix)
		} else {
			missing = append(missing, c.col+suffix)
		}
	}
	if len(present) > 0 && len(missing) > 0 {
		return nil, t.errorf("incomplete copy number: %s given without %s",
			strings.Join(present, ","), strings.Join(missing, ","))
	}
	if len(present) > 0 {
		b.CN = cn
	}

	if tags := t.field(fields, colAssembly+suffix); tags != Missing {
		for _, tag := range strings.Split(tags, assemblyTagSep) {
			if tag = strings.TrimSpace(tag); tag != "" {
				b.AssemblyLinks = append(b.AssemblyLinks, tag)
			}
		}
	}
	return b, nil
}

// ReadVariants reads a whole SV table.
func ReadVariants(path string) ([]*sv.Variant, error) {
	p, err := NewVariantParser(path)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	vs, err := p.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read variants: %w", err)
	}
	return vs, nil
}
