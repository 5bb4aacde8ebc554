package pipeline

import (
	"strings"
	"testing"

	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
	"github.com/strandbio/duplex/read"
)

func TestReadFilterNode(t *testing.T) {
	sink := &testSink{}
	n := NewReadFilterNode(sink, 9.0, 2, 100)

	// '+' is Phred 10, '$' is Phred 3.
	require.NoError(t, n.Push(&read.Read{ID: "keep", Seq: "ACGT", Qstring: strings.Repeat("+", 4)}))
	require.NoError(t, n.Push(&read.Read{ID: "drop", Seq: "ACGT", Qstring: strings.Repeat("$", 4)}))
	n.Close()

	reads := sink.reads()
	require.Len(t, reads, 1)
	expect.EQ(t, reads[0].ID, "keep")
	expect.EQ(t, n.Dropped(), uint64(1))
	expect.True(t, sink.terminated)
}

func TestReadFilterPassesPairs(t *testing.T) {
	sink := &testSink{}
	n := NewReadFilterNode(sink, 100.0, 1, 100)
	require.NoError(t, n.Push(&read.ReadPair{}))
	n.Close()
	require.Len(t, sink.all(), 1)
}
