package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/inodb/vibe-sv/internal/config"
	"github.com/inodb/vibe-sv/internal/sv"
)

func TestLegal_CopyNumberAcrossInsertion(t *testing.T) {
	lower := translocation(1, "1", 1000, sv.OrientUpper, "2", 2)
	upper := translocation(2, "1", 3000, sv.OrientLower, "3", 2)
	mid := sv.New(3, sv.Del, be("1", 2000, sv.OrientLower), be("1", 2500, sv.OrientUpper), 1)
	_, ix := makeCluster(lower, upper, mid)
	e := NewEnumerator(config.Default(), ix)

	assert.True(t, e.Legal(lower.Start, upper.Start))

	mid.End.CN = &sv.CopyNumber{Low: 2, High: 1.8}
	_, ix = makeCluster(lower, upper, mid)
	assert.True(t, NewEnumerator(config.Default(), ix).Legal(lower.Start, upper.Start), "within tolerance")

	mid.End.CN = &sv.CopyNumber{Low: 2, High: 0.5}
	_, ix = makeCluster(lower, upper, mid)
	assert.False(t, NewEnumerator(config.Default(), ix).Legal(lower.Start, upper.Start))

	// the drop lies outside a shorter insertion
	short := translocation(4, "1", 2400, sv.OrientLower, "4", 2)
	_, ix = makeCluster(lower, upper, mid, short)
	assert.True(t, NewEnumerator(config.Default(), ix).Legal(lower.Start, short.Start))

	assert.False(t, e.Legal(upper.Start, lower.Start), "wrong orientation order")
}
