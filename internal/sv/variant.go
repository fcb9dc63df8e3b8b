// Package sv provides the structural variant data model and breakend index.
package sv

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Type is the structural variant class.
type Type int

// Structural variant types.
const (
	Unknown Type = iota
	Del
	Dup
	Ins
	Inv
	Bnd
	Sgl
	Inf
)

var typeNames = [...]string{"UNKNOWN", "DEL", "DUP", "INS", "INV", "BND", "SGL", "INF"}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return "UNKNOWN"
	}
	return typeNames[t]
}

// ParseType parses a type name such as "DEL" or "sgl".
func ParseType(s string) (Type, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for i, name := range typeNames {
		if i > 0 && name == upper {
			return Type(i), nil
		}
	}
	return Unknown, fmt.Errorf("unknown sv type %q", s)
}

// NoSV marks an event bound that is not an SV (centromere, telomere or unmatched).
const NoSV = -1

// Orientation values.
const (
	OrientLower int8 = 1  // segment retained on the lower-position side
	OrientUpper int8 = -1 // segment retained on the upper-position side
)

// Arm is a chromosome arm.
type Arm string

// Chromosome arms.
const (
	ArmP Arm = "P"
	ArmQ Arm = "Q"
)

// CopyNumber holds the copy number context flanking a breakend.
type CopyNumber struct {
	Low       float64 // copy number on the lower-position side
	High      float64 // copy number on the upper-position side
	MajorLow  float64 // major allele copy number on the lower side
	MajorHigh float64 // major allele copy number on the upper side
}

// Breakend is one genomic end of a structural variant.
type Breakend struct {
	SV          *Variant
	Start       bool
	Chromosome  string
	Position    int64
	Orientation int8
	Arm         Arm
	Homology    int64       // positional uncertainty in bases (inexact homology)
	CN          *CopyNumber // nil when copy number context is unavailable

	// AssemblyLinks are tags shared with breakends joined by an assembled junction.
	AssemblyLinks []string

	// FoldbackPartner is the other breakend of a foldback, set during clustering.
	FoldbackPartner *Breakend
}

// Other returns the opposite breakend of the same SV, or nil for single breakends.
func (b *Breakend) Other() *Breakend {
	if b.Start {
		return b.SV.End
	}
	return b.SV.Start
}

// IsFoldback returns true if the breakend forms part of a foldback.
func (b *Breakend) IsFoldback() bool {
	return b.FoldbackPartner != nil
}

// CopyNumberChange returns the absolute copy number change across the breakend.
func (b *Breakend) CopyNumberChange() float64 {
	if b.CN == nil {
		return b.SV.Ploidy
	}
	return math.Abs(b.CN.High - b.CN.Low)
}

// OuterMajorAllele returns the major allele copy number on the side facing away from
// the retained segment.
func (b *Breakend) OuterMajorAllele() float64 {
	if b.CN == nil {
		return 0
	}
	if b.Orientation == OrientLower {
		return b.CN.MajorHigh
	}
	return b.CN.MajorLow
}

// SharesAssembly returns true if the two breakends carry a common assembly tag.
func (b *Breakend) SharesAssembly(o *Breakend) bool {
	for _, t := range b.AssemblyLinks {
		for _, u := range o.AssemblyLinks {
			if t == u {
				return true
			}
		}
	}
	return false
}

func (b *Breakend) String() string {
	return fmt.Sprintf("%d:%s:%d:%d", b.SV.ID, b.Chromosome, b.Position, b.Orientation)
}

// Variant is one structural variant junction.
type Variant struct {
	ID        int
	Type      Type
	Start     *Breakend
	End       *Breakend // nil for SGL and INF
	Ploidy    float64
	PloidyMin float64
	PloidyMax float64

	// Foldback is set when either breakend forms a foldback.
	Foldback bool

	// Excluded holds the reason the SV was removed from clustering, if any.
	Excluded string
}

// New creates a variant and links its breakends back to it.
// end may be nil for single breakends.
func New(id int, typ Type, start, end *Breakend, ploidy float64) *Variant {
	v := &Variant{
		ID:        id,
		Type:      typ,
		Start:     start,
		End:       end,
		Ploidy:    ploidy,
		PloidyMin: ploidy,
		PloidyMax: ploidy,
	}
	start.SV = v
	start.Start = true
	if end != nil {
		end.SV = v
		end.Start = false
	}
	return v
}

// IsSingle returns true for single-breakend variants.
func (v *Variant) IsSingle() bool {
	return v.End == nil
}

// Breakend returns the start or end breakend.
func (v *Variant) Breakend(start bool) *Breakend {
	if start {
		return v.Start
	}
	return v.End
}

// Breakends returns the non-nil breakends of the variant.
func (v *Variant) Breakends() []*Breakend {
	if v.End == nil {
		return []*Breakend{v.Start}
	}
	return []*Breakend{v.Start, v.End}
}

// Length returns the distance between breakends, or -1 for single or
// inter-chromosomal variants.
func (v *Variant) Length() int64 {
	if v.End == nil || v.End.Chromosome != v.Start.Chromosome {
		return -1
	}
	d := v.End.Position - v.Start.Position
	if d < 0 {
		d = -d
	}
	return d
}

// IsSimple returns true for DEL, DUP and INS.
func (v *Variant) IsSimple() bool {
	return v.Type == Del || v.Type == Dup || v.Type == Ins
}

// AmplificationRatio is the SV ploidy relative to the major allele copy number
// flanking it on the outside. Flanking ploidy is floored at 1.
func (v *Variant) AmplificationRatio() float64 {
	flank := 0.0
	for _, b := range v.Breakends() {
		flank = math.Max(flank, b.OuterMajorAllele())
	}
	if flank < 1 {
		flank = 1
	}
	return v.Ploidy / flank
}

func (v *Variant) String() string {
	if v.End == nil {
		return fmt.Sprintf("id(%d) %s %s:%d:%d", v.ID, v.Type, v.Start.Chromosome, v.Start.Position, v.Start.Orientation)
	}
	return fmt.Sprintf("id(%d) %s %s:%d:%d-%s:%d:%d", v.ID, v.Type,
		v.Start.Chromosome, v.Start.Position, v.Start.Orientation,
		v.End.Chromosome, v.End.Position, v.End.Orientation)
}

// HomLossEvent is a homozygous loss segment bounded by breakends.
type HomLossEvent struct {
	Chromosome string
	PosStart   int64
	PosEnd     int64
	SvStart    int // NoSV when not bounded by an SV
	SvEnd      int
	Valid      bool
}

// BothBounded returns true if both bounds are SVs.
func (e *HomLossEvent) BothBounded() bool {
	return e.SvStart != NoSV && e.SvEnd != NoSV
}

// LohEvent is a loss-of-heterozygosity segment, possibly containing hom-loss events.
type LohEvent struct {
	Chromosome string
	PosStart   int64
	PosEnd     int64
	SvStart    int
	SvEnd      int
	Valid      bool
	HomLoss    []*HomLossEvent
}

// BothBounded returns true if both bounds are SVs.
func (e *LohEvent) BothBounded() bool {
	return e.SvStart != NoSV && e.SvEnd != NoSV
}

// Overlaps returns true if the event span overlaps [start, end] on chrom.
func (e *LohEvent) Overlaps(chrom string, start, end int64) bool {
	return e.Chromosome == chrom && e.PosStart <= end && e.PosEnd >= start
}

// Contains returns true if the hom-loss event lies within the LOH event.
func (e *LohEvent) Contains(h *HomLossEvent) bool {
	return e.Chromosome == h.Chromosome && e.PosStart <= h.PosStart && e.PosEnd >= h.PosEnd
}

// SortLohEvents orders LOH events by chromosome then start.
func SortLohEvents(lohs []*LohEvent) {
	sort.SliceStable(lohs, func(i, j int) bool {
		if lohs[i].Chromosome != lohs[j].Chromosome {
			return lohs[i].Chromosome < lohs[j].Chromosome
		}
		return lohs[i].PosStart < lohs[j].PosStart
	})
}

// NestHomLoss appends the hom-loss event to the first LOH event containing it.
// Returns false if no LOH event contains it.
func NestHomLoss(lohs []*LohEvent, h *HomLossEvent) bool {
	for _, l := range lohs {
		if l.Contains(h) {
			l.HomLoss = append(l.HomLoss, h)
			return true
		}
	}
	return false
}
