package pipeline

import (
	"strings"
	"testing"

	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
)

func TestReadPairs(t *testing.T) {
	in := "# template\tcomplement\n" +
		"t1\tc1\n" +
		"t2\tc2\n"
	pairs, ids, err := ReadPairs(strings.NewReader(in))
	require.NoError(t, err)
	expect.EQ(t, pairs, map[string]string{"t1": "c1", "t2": "c2"})
	expect.EQ(t, len(ids), 4)
	expect.True(t, ids["t1"] && ids["c2"])
}

func TestReadPairsEmpty(t *testing.T) {
	pairs, ids, err := ReadPairs(strings.NewReader(""))
	require.NoError(t, err)
	expect.EQ(t, len(pairs), 0)
	expect.EQ(t, len(ids), 0)
}
