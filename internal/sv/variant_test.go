package sv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	for _, name := range []string{"DEL", "DUP", "INS", "INV", "BND", "SGL", "INF"} {
		typ, err := ParseType(name)
		require.NoError(t, err)
		assert.Equal(t, name, typ.String())
	}

	typ, err := ParseType(" dup ")
	require.NoError(t, err)
	assert.Equal(t, Dup, typ)

	_, err = ParseType("CNV")
	assert.Error(t, err)
	_, err = ParseType("UNKNOWN")
	assert.Error(t, err)
}

func TestNewLinksBreakends(t *testing.T) {
	v := New(4, Del,
		&Breakend{Chromosome: "1", Position: 1000, Orientation: OrientLower},
		&Breakend{Chromosome: "1", Position: 5000, Orientation: OrientUpper}, 2)

	assert.Same(t, v, v.Start.SV)
	assert.Same(t, v, v.End.SV)
	assert.True(t, v.Start.Start)
	assert.False(t, v.End.Start)
	assert.Same(t, v.End, v.Start.Other())
	assert.Same(t, v.Start, v.End.Other())
	assert.Equal(t, int64(4000), v.Length())
	assert.Len(t, v.Breakends(), 2)
	assert.True(t, v.IsSimple())
}

func TestSingleBreakend(t *testing.T) {
	v := New(1, Sgl, &Breakend{Chromosome: "3", Position: 10, Orientation: OrientLower}, nil, 1)
	assert.True(t, v.IsSingle())
	assert.Nil(t, v.Start.Other())
	assert.Equal(t, int64(-1), v.Length())
	assert.Len(t, v.Breakends(), 1)
}

func TestAmplificationRatio(t *testing.T) {
	v := New(1, Dup,
		&Breakend{Chromosome: "1", Position: 1000, Orientation: OrientUpper, CN: &CopyNumber{Low: 2, High: 12, MajorLow: 2, MajorHigh: 8}},
		&Breakend{Chromosome: "1", Position: 9000, Orientation: OrientLower, CN: &CopyNumber{Low: 12, High: 2, MajorLow: 8, MajorHigh: 1}},
		10)
	// outer sides: start low side (2), end high side (1)
	assert.InDelta(t, 5.0, v.AmplificationRatio(), 1e-9)

	noCN := New(2, Dup,
		&Breakend{Chromosome: "1", Position: 1000, Orientation: OrientUpper},
		&Breakend{Chromosome: "1", Position: 9000, Orientation: OrientLower}, 3)
	assert.InDelta(t, 3.0, noCN.AmplificationRatio(), 1e-9, "flank floored at 1")
}

func TestCopyNumberChange(t *testing.T) {
	b := &Breakend{Chromosome: "1", Position: 10, Orientation: OrientLower, CN: &CopyNumber{Low: 3, High: 1.5}}
	New(1, Sgl, b, nil, 1.4)
	assert.InDelta(t, 1.5, b.CopyNumberChange(), 1e-9)

	b.CN = nil
	assert.InDelta(t, 1.4, b.CopyNumberChange(), 1e-9, "falls back to ploidy")
}

func TestSharesAssembly(t *testing.T) {
	a := &Breakend{AssemblyLinks: []string{"asm1", "asm7"}}
	b := &Breakend{AssemblyLinks: []string{"asm7"}}
	c := &Breakend{AssemblyLinks: []string{"asm2"}}
	assert.True(t, a.SharesAssembly(b))
	assert.False(t, a.SharesAssembly(c))
	assert.False(t, c.SharesAssembly(&Breakend{}))
}

func TestLohOverlaps(t *testing.T) {
	e := &LohEvent{Chromosome: "2", PosStart: 100, PosEnd: 200, SvStart: 1, SvEnd: NoSV}
	assert.True(t, e.Overlaps("2", 150, 300))
	assert.True(t, e.Overlaps("2", 200, 300))
	assert.False(t, e.Overlaps("2", 201, 300))
	assert.False(t, e.Overlaps("3", 150, 160))
	assert.False(t, e.BothBounded())
}

func TestNestHomLoss(t *testing.T) {
	lohs := []*LohEvent{
		{Chromosome: "2", PosStart: 5000, PosEnd: 9000},
		{Chromosome: "1", PosStart: 100, PosEnd: 900},
	}
	SortLohEvents(lohs)
	assert.Equal(t, "1", lohs[0].Chromosome)

	inside := &HomLossEvent{Chromosome: "2", PosStart: 6000, PosEnd: 7000}
	assert.True(t, NestHomLoss(lohs, inside))
	assert.Equal(t, []*HomLossEvent{inside}, lohs[1].HomLoss)

	straddling := &HomLossEvent{Chromosome: "2", PosStart: 8000, PosEnd: 9500}
	assert.False(t, NestHomLoss(lohs, straddling))
	assert.Len(t, lohs[1].HomLoss, 1)
}
