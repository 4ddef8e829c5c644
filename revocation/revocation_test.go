package revocation_test

import (
	"testing"

	"github.com/boltlabs-coin/boltchan/revocation"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"
)

func TestReserveRecordRevokedRoundTrip(t *testing.T) {
	t.Parallel()

	wsk, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	wpk := wsk.PubKey()

	l := revocation.New()
	require.False(t, l.Contains(wpk))

	l.Reserve(wpk)
	require.True(t, l.Contains(wpk))
	require.False(t, l.Revoked(wpk))

	token := revocation.Sign(wsk)
	require.NoError(t, l.Record(wpk, token))
	require.True(t, l.Revoked(wpk))
}

func TestRecordRejectsUnreservedKey(t *testing.T) {
	t.Parallel()

	wsk, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	l := revocation.New()
	token := revocation.Sign(wsk)
	require.ErrorIs(t, l.Record(wsk.PubKey(), token), revocation.ErrUnknownKey)
}

func TestRecordRejectsDoubleRevoke(t *testing.T) {
	t.Parallel()

	wsk, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	wpk := wsk.PubKey()

	l := revocation.New()
	l.Reserve(wpk)
	token := revocation.Sign(wsk)
	require.NoError(t, l.Record(wpk, token))
	require.ErrorIs(t, l.Record(wpk, token), revocation.ErrAlreadyRevoked)
}

func TestRecordRejectsTokenSignedByWrongKey(t *testing.T) {
	t.Parallel()

	wsk, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	wpk := wsk.PubKey()

	otherWsk, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	l := revocation.New()
	l.Reserve(wpk)

	badToken := revocation.Sign(otherWsk)
	require.ErrorIs(t, l.Record(wpk, badToken), revocation.ErrBadSignature)
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	t.Parallel()

	wsk1, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	wsk2, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	l := revocation.New()
	l.Reserve(wsk1.PubKey())
	l.Reserve(wsk2.PubKey())
	require.NoError(t, l.Record(wsk1.PubKey(), revocation.Sign(wsk1)))

	restored := revocation.Restore(l.Snapshot())
	require.True(t, restored.Contains(wsk1.PubKey()))
	require.True(t, restored.Revoked(wsk1.PubKey()))
	require.True(t, restored.Contains(wsk2.PubKey()))
	require.False(t, restored.Revoked(wsk2.PubKey()))
}
