package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/inodb/vibe-sv/internal/config"
	"github.com/inodb/vibe-sv/internal/sv"
)

func be(chrom string, pos int64, orient int8) *sv.Breakend {
	return &sv.Breakend{Chromosome: chrom, Position: pos, Orientation: orient, Arm: sv.ArmP}
}

func del(id int, chrom string, start, end int64) *sv.Variant {
	return sv.New(id, sv.Del, be(chrom, start, sv.OrientLower), be(chrom, end, sv.OrientUpper), 1)
}

func dup(id int, chrom string, start, end int64) *sv.Variant {
	return sv.New(id, sv.Dup, be(chrom, start, sv.OrientUpper), be(chrom, end, sv.OrientLower), 1)
}

func inv(id int, chrom string, start, end int64, orient int8) *sv.Variant {
	return sv.New(id, sv.Inv, be(chrom, start, orient), be(chrom, end, orient), 1)
}

func sgl(id int, chrom string, pos int64, orient int8) *sv.Variant {
	return sv.New(id, sv.Sgl, be(chrom, pos, orient), nil, 1)
}

func clusterOf(t *testing.T, res *Result, svID int) *Cluster {
	t.Helper()
	cid := res.Partition.ClusterOf(svID)
	for _, c := range res.Clusters {
		if c.ID == cid {
			return c
		}
	}
	t.Fatalf("sv %d not in any cluster", svID)
	return nil
}

func run(t *testing.T, variants []*sv.Variant, loh []*sv.LohEvent) *Result {
	t.Helper()
	res, err := NewEngine(config.Default()).Run(variants, loh)
	require.NoError(t, err)
	return res
}

func assertPartition(t *testing.T, res *Result, variants []*sv.Variant) {
	t.Helper()
	seen := make(map[int]int)
	for _, c := range res.Clusters {
		for _, v := range c.SVs {
			seen[v.ID]++
		}
	}
	assert.Len(t, seen, len(variants))
	for _, v := range variants {
		assert.Equal(t, 1, seen[v.ID], "sv %d cluster count", v.ID)
	}
}

func TestRun_ProximityMergesNearbyBreakends(t *testing.T) {
	a := del(1, "1", 1000, 200_000)
	b := dup(2, "1", 1050, 300_000)

	res := run(t, []*sv.Variant{a, b}, nil)

	c := clusterOf(t, res, 1)
	assert.Equal(t, c.ID, res.Partition.ClusterOf(2))
	assert.Equal(t, []string{ReasonProximity}, c.Reasons)
	assert.Equal(t, []string{ReasonProximity}, res.Partition.SVReasons(2))
	assert.Equal(t, ResolvedComplex, c.ResolvedType)
	assert.False(t, c.Resolved)
	assertPartition(t, res, []*sv.Variant{a, b})
}

func TestRun_ProximityBeyondDistance(t *testing.T) {
	a := del(1, "1", 1000, 2000)
	b := del(2, "1", 10_000, 11_000)

	res := run(t, []*sv.Variant{a, b}, nil)

	assert.NotEqual(t, res.Partition.ClusterOf(1), res.Partition.ClusterOf(2))
	assert.Len(t, res.Clusters, 2)
	assert.True(t, clusterOf(t, res, 1).Resolved)
	assert.Equal(t, ResolvedDel, clusterOf(t, res, 1).ResolvedType)
}

func TestRun_ProximityTransitive(t *testing.T) {
	a := del(1, "1", 1000, 4000)
	b := del(2, "1", 7000, 9500)
	c := del(3, "1", 13_000, 20_000)

	res := run(t, []*sv.Variant{a, b, c}, nil)
	assert.Len(t, res.Clusters, 1)
	assert.Equal(t, 1, res.Clusters[0].ID, "merged cluster keeps lowest id")
}

func lohSample() ([]*sv.Variant, *sv.LohEvent) {
	var vs []*sv.Variant
	for i := 1; i <= 7; i++ {
		start := int64(i) * 1_000_000
		vs = append(vs, del(i, "2", start, start+10_000))
	}
	loh := &sv.LohEvent{
		Chromosome: "2", PosStart: 3_010_000, PosEnd: 7_000_000,
		SvStart: 3, SvEnd: 7, Valid: true,
	}
	return vs, loh
}

func TestRun_LOHMergesBoundingClusters(t *testing.T) {
	vs, loh := lohSample()

	res := run(t, vs, []*sv.LohEvent{loh})

	c := clusterOf(t, res, 3)
	assert.Equal(t, c.ID, res.Partition.ClusterOf(7))
	assert.Contains(t, c.Reasons, ReasonLOH)
	assert.Len(t, c.SVs, 2)
	assert.Len(t, c.LohEvents, 1)
	assert.NotEqual(t, c.ID, res.Partition.ClusterOf(5))
	assertPartition(t, res, vs)
}

func TestRun_LOHSkippedWithUnresolvedHomLoss(t *testing.T) {
	vs, loh := lohSample()
	loh.HomLoss = []*sv.HomLossEvent{{
		Chromosome: "2", PosStart: 4_500_000, PosEnd: 4_600_000,
		SvStart: sv.NoSV, SvEnd: 5, Valid: true,
	}}

	res := run(t, vs, []*sv.LohEvent{loh})

	assert.NotEqual(t, res.Partition.ClusterOf(3), res.Partition.ClusterOf(7))
}

func TestRun_HomLossThenLOH(t *testing.T) {
	vs, loh := lohSample()
	loh.HomLoss = []*sv.HomLossEvent{{
		Chromosome: "2", PosStart: 4_010_000, PosEnd: 5_000_000,
		SvStart: 4, SvEnd: 5, Valid: true,
	}}

	res := run(t, vs, []*sv.LohEvent{loh})

	hom := clusterOf(t, res, 4)
	assert.Equal(t, hom.ID, res.Partition.ClusterOf(5))
	assert.Equal(t, []string{ReasonHomLoss}, hom.Reasons)
	assert.Len(t, hom.HomLossEvents, 1)

	c := clusterOf(t, res, 3)
	assert.Equal(t, c.ID, res.Partition.ClusterOf(7))
	assert.Equal(t, []string{ReasonLOH}, c.Reasons)
	assert.NotEqual(t, c.ID, hom.ID)
}

func TestRun_InvalidLOHIgnored(t *testing.T) {
	vs, loh := lohSample()
	loh.Valid = false

	res := run(t, vs, []*sv.LohEvent{loh})
	assert.NotEqual(t, res.Partition.ClusterOf(3), res.Partition.ClusterOf(7))
}

func TestRun_LOHWithUnknownBoundLogged(t *testing.T) {
	vs, loh := lohSample()
	loh.SvEnd = 99

	core, logs := observer.New(zapcore.DebugLevel)
	e := NewEngine(config.Default())
	e.SetLogger(zap.New(core))
	res, err := e.Run(vs, []*sv.LohEvent{loh})
	require.NoError(t, err)

	assert.NotContains(t, clusterOf(t, res, 3).Reasons, ReasonLOH)
	skipped := logs.FilterMessage("LOH bounded by unknown or excluded SV").All()
	require.NotEmpty(t, skipped)
	fields := skipped[0].ContextMap()
	assert.Equal(t, int64(3), fields["svStart"])
	assert.Equal(t, int64(99), fields["svEnd"])
}

func TestRun_LongDDIOverlap(t *testing.T) {
	a := del(1, "3", 1_000_000, 2_000_000)
	b := dup(2, "3", 1_500_000, 2_600_000)

	res := run(t, []*sv.Variant{a, b}, nil)

	c := clusterOf(t, res, 1)
	assert.Equal(t, c.ID, res.Partition.ClusterOf(2))
	assert.Equal(t, []string{ReasonLongDDI}, c.Reasons)
	assert.Equal(t, int64(100_000), res.LongDDICutoff)
}

func TestRun_LongDDIDifferentArm(t *testing.T) {
	a := del(1, "3", 1_000_000, 2_000_000)
	b := dup(2, "3", 1_500_000, 2_600_000)
	b.Start.Arm, b.End.Arm = sv.ArmQ, sv.ArmQ

	res := run(t, []*sv.Variant{a, b}, nil)
	assert.NotEqual(t, res.Partition.ClusterOf(1), res.Partition.ClusterOf(2))
}

func TestRun_LongDDIConflict(t *testing.T) {
	a := del(1, "3", 1_000_000, 2_000_000)
	b := dup(2, "3", 1_500_000, 2_600_000)
	// a short pair explaining a loss inside the shared span
	c := del(3, "3", 1_700_000, 1_701_000)
	d := del(4, "3", 1_703_000, 1_704_000)
	loh := &sv.LohEvent{
		Chromosome: "3", PosStart: 1_701_000, PosEnd: 1_703_000,
		SvStart: 3, SvEnd: 4, Valid: true,
	}

	res := run(t, []*sv.Variant{a, b, c, d}, []*sv.LohEvent{loh})

	assert.Equal(t, res.Partition.ClusterOf(3), res.Partition.ClusterOf(4))
	assert.NotEqual(t, res.Partition.ClusterOf(1), res.Partition.ClusterOf(2))
}

func TestRun_SoloSinglePair(t *testing.T) {
	a := sgl(1, "4", 1_000_000, sv.OrientUpper)
	b := sgl(2, "4", 1_200_000, sv.OrientLower)
	far := sgl(3, "4", 9_000_000, sv.OrientLower)

	res := run(t, []*sv.Variant{a, b, far}, nil)

	c := clusterOf(t, res, 1)
	assert.Equal(t, c.ID, res.Partition.ClusterOf(2))
	assert.Equal(t, ResolvedPairDup, c.ResolvedType)
	assert.True(t, c.Resolved)
	assert.Contains(t, c.Reasons, ReasonSglPair)

	lone := clusterOf(t, res, 3)
	assert.Equal(t, ResolvedSgl, lone.ResolvedType)
	assert.False(t, lone.Resolved)
}

func TestRun_SoloSingleCopyNumberMismatch(t *testing.T) {
	a := sgl(1, "4", 1_000_000, sv.OrientLower)
	b := sgl(2, "4", 1_200_000, sv.OrientUpper)
	b.Ploidy = 3

	res := run(t, []*sv.Variant{a, b}, nil)
	assert.NotEqual(t, res.Partition.ClusterOf(1), res.Partition.ClusterOf(2))
}

func TestRun_SinglePairByProximity(t *testing.T) {
	a := sgl(1, "4", 1_000_000, sv.OrientLower)
	b := sgl(2, "4", 1_002_000, sv.OrientUpper)

	res := run(t, []*sv.Variant{a, b}, nil)

	c := clusterOf(t, res, 1)
	assert.Equal(t, ResolvedPairDel, c.ResolvedType)
	assert.True(t, c.Resolved)
}

func TestClassifySinglePair(t *testing.T) {
	p := config.Default()
	tests := []struct {
		name       string
		lo, hi     int8
		start, end int64
		want       ResolvedType
	}{
		{"facing long", sv.OrientUpper, sv.OrientLower, 1000, 5000, ResolvedPairDup},
		{"facing short", sv.OrientUpper, sv.OrientLower, 1000, 1010, ResolvedPairIns},
		{"outward long", sv.OrientLower, sv.OrientUpper, 1000, 5000, ResolvedPairDel},
		{"outward short", sv.OrientLower, sv.OrientUpper, 1000, 1010, ResolvedPairIns},
		{"same orientation", sv.OrientLower, sv.OrientLower, 1000, 5000, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := sgl(1, "1", tt.start, tt.lo).Start
			b := sgl(2, "1", tt.end, tt.hi).Start
			assert.Equal(t, tt.want, ClassifySinglePair(a, b, p))
			assert.Equal(t, tt.want, ClassifySinglePair(b, a, p), "argument order")
		})
	}
}

func TestRun_ExcludesDuplicateCalls(t *testing.T) {
	a := del(1, "5", 10_000, 50_000)
	b := del(2, "5", 10_001, 50_000)
	c := dup(3, "5", 10_500, 80_000)

	res := run(t, []*sv.Variant{a, b, c}, nil)

	assert.Equal(t, ExcludedDuplicate, b.Excluded)
	assert.Equal(t, 1, res.Excluded)
	cb := clusterOf(t, res, 2)
	assert.Equal(t, ResolvedDupBE, cb.ResolvedType)
	assert.True(t, cb.Resolved)
	assert.Len(t, cb.SVs, 1)
	assert.Empty(t, cb.Breakends)

	_, ok := res.Index.IndexOf(b.Start)
	assert.False(t, ok)
	assert.Equal(t, res.Partition.ClusterOf(1), res.Partition.ClusterOf(3))
	assertPartition(t, res, []*sv.Variant{a, b, c})
}

func TestRun_ExcludesLowConfidenceSingle(t *testing.T) {
	a := del(1, "5", 10_000, 50_000)
	s := sgl(2, "5", 10_030, sv.OrientLower)
	s.Ploidy = 0.5

	res := run(t, []*sv.Variant{a, s}, nil)

	assert.Equal(t, ExcludedDuplicate, s.Excluded)
	assert.Empty(t, a.Excluded)
	assert.NotEqual(t, res.Partition.ClusterOf(1), res.Partition.ClusterOf(2))
}

func TestRun_KeepsDifferentJunctions(t *testing.T) {
	a := del(1, "5", 10_000, 50_000)
	b := del(2, "5", 10_001, 90_000)

	res := run(t, []*sv.Variant{a, b}, nil)
	assert.Zero(t, res.Excluded)
}

func TestRun_Foldbacks(t *testing.T) {
	fb := inv(1, "6", 100_000, 101_000, sv.OrientLower)
	d := dup(2, "6", 98_000, 400_000)

	res := run(t, []*sv.Variant{fb, d}, nil)

	c := clusterOf(t, res, 1)
	require.Len(t, c.Foldbacks, 1)
	assert.Same(t, fb.End, fb.Start.FoldbackPartner)
	assert.True(t, fb.Foldback)
	assert.False(t, d.Foldback)
	assert.Equal(t, int64(1000), c.Foldbacks[0].Length)
}

func TestRun_ChainedFoldback(t *testing.T) {
	a := del(1, "6", 50_000, 100_000)
	b := dup(2, "6", 60_000, 102_000)
	c := sv.New(3, sv.Bnd, be("6", 103_000, sv.OrientLower), be("9", 500, sv.OrientUpper), 1)

	res := run(t, []*sv.Variant{a, b, c}, nil)

	cl := clusterOf(t, res, 2)
	require.Len(t, cl.Foldbacks, 1)
	assert.Same(t, c.Start, b.End.FoldbackPartner)
}

func TestRun_AssemblyLinksMerge(t *testing.T) {
	a := del(1, "7", 1_000_000, 1_100_000)
	b := del(2, "7", 3_000_000, 3_100_000)
	a.End.AssemblyLinks = []string{"asm1"}
	b.Start.AssemblyLinks = []string{"asm1"}

	res := run(t, []*sv.Variant{a, b}, nil)

	c := clusterOf(t, res, 1)
	assert.Equal(t, c.ID, res.Partition.ClusterOf(2))
	assert.Equal(t, []string{ReasonAssembly}, c.Reasons)
}

func TestRun_AmplifiedDupLeftUnresolved(t *testing.T) {
	d := dup(1, "8", 1_000_000, 1_500_000)
	d.Ploidy = 10
	d.Start.CN = &sv.CopyNumber{Low: 2, High: 12, MajorLow: 2, MajorHigh: 7}
	d.End.CN = &sv.CopyNumber{Low: 12, High: 2, MajorLow: 7, MajorHigh: 2}

	res := run(t, []*sv.Variant{d}, nil)

	c := clusterOf(t, res, 1)
	assert.Equal(t, ResolvedDup, c.ResolvedType)
	assert.False(t, c.Resolved)
	assert.True(t, c.NeedsChaining())
}

func TestRun_RejectsDuplicateIDs(t *testing.T) {
	_, err := NewEngine(config.Default()).Run([]*sv.Variant{del(1, "1", 1, 100), del(1, "1", 500, 900)}, nil)
	assert.Error(t, err)
}

func mixedSample() ([]*sv.Variant, []*sv.LohEvent) {
	vs, loh := lohSample()
	vs = append(vs,
		del(11, "3", 1_000_000, 2_000_000),
		dup(12, "3", 1_500_000, 2_600_000),
		sgl(13, "4", 1_000_000, sv.OrientUpper),
		sgl(14, "4", 1_200_000, sv.OrientLower),
		inv(15, "6", 100_000, 101_000, sv.OrientLower),
		dup(16, "6", 98_000, 400_000),
		del(17, "5", 10_000, 50_000),
		del(18, "5", 10_001, 50_000),
	)
	return vs, []*sv.LohEvent{loh}
}

func TestRun_MergePassIsIdempotent(t *testing.T) {
	vs, loh := mixedSample()
	e := NewEngine(config.Default())
	res, err := e.Run(vs, loh)
	require.NoError(t, err)

	mc := &mergeContext{variants: make(map[int]*sv.Variant), index: res.Index, loh: loh, cutoff: res.LongDDICutoff}
	for _, v := range vs {
		if v.Excluded == "" {
			mc.variants[v.ID] = v
		}
	}
	next, merged := e.evidencePass(mc, res.Partition)
	assert.Zero(t, merged)
	assert.Same(t, res.Partition, next)
}

func TestRun_Deterministic(t *testing.T) {
	vs, loh := mixedSample()
	first := run(t, vs, loh)
	second := run(t, vs, loh)

	require.Equal(t, len(first.Clusters), len(second.Clusters))
	for i := range first.Clusters {
		assert.Equal(t, first.Clusters[i].ID, second.Clusters[i].ID)
		assert.Equal(t, first.Clusters[i].SVs, second.Clusters[i].SVs)
		assert.Equal(t, first.Clusters[i].Reasons, second.Clusters[i].Reasons)
		assert.Equal(t, first.Clusters[i].ResolvedType, second.Clusters[i].ResolvedType)
	}
	assertPartition(t, first, vs)
}

func TestLongDDICutoff(t *testing.T) {
	p := config.Default()

	var few []*sv.Variant
	for i := 1; i <= 5; i++ {
		few = append(few, del(i, "1", 0, int64(i)*10_000_000))
	}
	assert.Equal(t, p.LongDDIMinLength, LongDDICutoff(few, p), "too few samples")

	var short, long, mid []*sv.Variant
	for i := 1; i <= 20; i++ {
		short = append(short, del(i, "1", 0, int64(i)*1000))
		long = append(long, dup(i, "1", 0, int64(i)*10_000_000))
		mid = append(mid, del(i, "1", 0, int64(i)*100_000))
	}
	assert.Equal(t, p.LongDDIMinLength, LongDDICutoff(short, p))
	assert.Equal(t, p.LongDDIMaxLength, LongDDICutoff(long, p))

	cut := LongDDICutoff(mid, p)
	assert.GreaterOrEqual(t, cut, int64(1_900_000))
	assert.LessOrEqual(t, cut, int64(2_000_000))
}
