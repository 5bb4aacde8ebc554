package pipeline

import (
	"math"
	"testing"

	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
	"github.com/strandbio/duplex/read"
)

func TestScalerNode(t *testing.T) {
	sink := &testSink{}
	n := NewScalerNode(sink, 1, 100)

	r := &read.Read{
		ID:           "r1",
		Raw:          []float32{10, 20, 30, 40, 50},
		Digitisation: 2048,
		Range:        1024,
		Offset:       0,
	}
	require.NoError(t, n.Push(r))
	n.Close()

	out := sink.reads()
	require.Len(t, out, 1)
	got := out[0]
	expect.EQ(t, got.Scaling, float32(0.5))
	// Median of pA values {5,10,15,20,25} is 15; MAD is 5.
	expect.EQ(t, got.Shift, float32(15))
	expect.True(t, math.Abs(float64(got.Scale-1.4826*5)) < 1e-4)

	// pA = Scale*raw + Shift round-trips to the original picoamp values.
	for i, v := range got.Raw {
		pa := got.Scale*v + got.Shift
		want := float64(5 * (i + 1))
		expect.True(t, math.Abs(float64(pa)-want) < 1e-3)
	}
}

func TestScalerFlatSignal(t *testing.T) {
	sink := &testSink{}
	n := NewScalerNode(sink, 1, 100)
	r := &read.Read{ID: "flat", Raw: []float32{7, 7, 7}, Digitisation: 1, Range: 1}
	require.NoError(t, n.Push(r))
	n.Close()
	out := sink.reads()
	require.Len(t, out, 1)
	// Flat signal centers to zero without dividing by a zero scale.
	for _, v := range out[0].Raw {
		expect.EQ(t, v, float32(0))
	}
}
