package modbase

import (
	"testing"

	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
)

func TestBaseID(t *testing.T) {
	expect.EQ(t, BaseID('A'), 0)
	expect.EQ(t, BaseID('C'), 1)
	expect.EQ(t, BaseID('G'), 2)
	expect.EQ(t, BaseID('T'), 3)
	expect.EQ(t, BaseID('N'), -1)
	expect.EQ(t, BaseID('a'), -1)
}

func TestSequenceToInts(t *testing.T) {
	ints, err := SequenceToInts("ACGT")
	require.NoError(t, err)
	expect.EQ(t, ints, []int{0, 1, 2, 3})

	_, err = SequenceToInts("ACNT")
	expect.True(t, err != nil)
}

func TestBuildInfoSingleCaller(t *testing.T) {
	info, offsets, numStates, err := buildInfo(cgParams())
	require.NoError(t, err)
	expect.EQ(t, numStates, 5)
	expect.EQ(t, offsets, [4]int{0, 1, 3, 4})
	expect.EQ(t, info.Alphabet, "ACmGT")
	expect.EQ(t, info.LongNames, "5mC")
}

func TestBuildInfoTwoCallers(t *testing.T) {
	params := []CallerParams{
		{Motif: "CG", MotifOffset: 0, ModBases: "m", ModLongNames: []string{"5mC"}},
		{Motif: "DRACH", MotifOffset: 2, ModBases: "a", ModLongNames: []string{"6mA"}},
	}
	info, offsets, numStates, err := buildInfo(params)
	require.NoError(t, err)
	expect.EQ(t, numStates, 6)
	// A has two states, so C starts at 2, G at 4, T at 5.
	expect.EQ(t, offsets, [4]int{0, 2, 4, 5})
	expect.EQ(t, info.Alphabet, "AaCmGT")
	// Long names follow canonical base order: A's modification first.
	expect.EQ(t, info.LongNames, "6mA 5mC")
}

func TestBuildInfoRejectsBadMetadata(t *testing.T) {
	_, _, _, err := buildInfo([]CallerParams{{Motif: "NG", MotifOffset: 0}})
	expect.True(t, err != nil)
	_, _, _, err = buildInfo([]CallerParams{{Motif: "CG", MotifOffset: 5}})
	expect.True(t, err != nil)
}
