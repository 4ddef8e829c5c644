package bn_test

import (
	"testing"

	"github.com/boltlabs-coin/boltchan/bn"
	"github.com/stretchr/testify/require"
)

func TestPairingBilinearity(t *testing.T) {
	t.Parallel()

	g1 := bn.G1Generator()
	g2 := bn.G2Generator()

	a := bn.ScalarFromInt(7)
	b := bn.ScalarFromInt(11)

	ag1 := bn.G1ScalarMul(&g1, a)
	bg2 := bn.G2ScalarMul(&g2, b)

	lhs, err := bn.Pair(&ag1, &bg2)
	require.NoError(t, err)

	ab := bn.ScalarFromInt(77)
	abg1 := bn.G1ScalarMul(&g1, ab)
	rhs, err := bn.Pair(&abg1, &g2)
	require.NoError(t, err)

	require.True(t, bn.GTEqual(&lhs, &rhs))
}

func TestMultiScalarMulMatchesSequentialAdd(t *testing.T) {
	t.Parallel()

	g1 := bn.G1Generator()
	p1 := bn.G1ScalarMul(&g1, bn.ScalarFromInt(3))
	p2 := bn.G1ScalarMul(&g1, bn.ScalarFromInt(5))

	want := bn.G1Add(&p1, &p2)

	got, err := bn.G1MultiScalarMul([]bn.G1{g1, g1}, []*bn.Scalar{bn.ScalarFromInt(3), bn.ScalarFromInt(5)})
	require.NoError(t, err)
	require.True(t, got.Equal(&want))
}

func TestScalarFromIntRoundTripsNegative(t *testing.T) {
	t.Parallel()

	pos := bn.ScalarFromInt(42)
	neg := bn.ScalarFromInt(-42)

	sum := new(bn.Scalar).Add(pos, neg)
	require.True(t, sum.IsZero())
}

func TestMultiScalarMulRejectsLengthMismatch(t *testing.T) {
	t.Parallel()

	_, err := bn.G1MultiScalarMul([]bn.G1{bn.G1Generator()}, nil)
	require.Error(t, err)
}
