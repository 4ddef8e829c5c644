package commitment_test

import (
	"testing"

	"github.com/boltlabs-coin/boltchan/bn"
	"github.com/boltlabs-coin/boltchan/commitment"
	"github.com/stretchr/testify/require"
)

func TestCommitOpenRoundTrip(t *testing.T) {
	t.Parallel()

	params := commitment.Setup(4)
	messages := []*bn.Scalar{
		bn.ScalarFromInt(1),
		bn.ScalarFromInt(2),
		bn.ScalarFromInt(90),
		bn.ScalarFromInt(20),
	}
	r, err := bn.RandomScalar(bn.RandReader)
	require.NoError(t, err)

	c, err := params.Commit(messages, r)
	require.NoError(t, err)

	ok, err := params.Open(c, messages, r)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestOpenRejectsWrongMessages(t *testing.T) {
	t.Parallel()

	params := commitment.Setup(2)
	r, err := bn.RandomScalar(bn.RandReader)
	require.NoError(t, err)

	c, err := params.Commit([]*bn.Scalar{bn.ScalarFromInt(1), bn.ScalarFromInt(2)}, r)
	require.NoError(t, err)

	ok, err := params.Open(c, []*bn.Scalar{bn.ScalarFromInt(1), bn.ScalarFromInt(3)}, r)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCommitRejectsLengthMismatch(t *testing.T) {
	t.Parallel()

	params := commitment.Setup(3)
	_, err := params.Commit([]*bn.Scalar{bn.ScalarFromInt(1)}, bn.ScalarFromInt(0))
	require.ErrorIs(t, err, commitment.ErrMessageCountMismatch)
}

func TestRandomizePreservesOpeningUnderShiftedRandomness(t *testing.T) {
	t.Parallel()

	params := commitment.Setup(2)
	messages := []*bn.Scalar{bn.ScalarFromInt(5), bn.ScalarFromInt(6)}
	r, err := bn.RandomScalar(bn.RandReader)
	require.NoError(t, err)
	c, err := params.Commit(messages, r)
	require.NoError(t, err)

	delta := bn.ScalarFromInt(9)
	c2 := params.Randomize(c, delta)

	newR := new(bn.Scalar).Add(r, delta)
	ok, err := params.Open(c2, messages, newR)
	require.NoError(t, err)
	require.True(t, ok)
}
