package store_test

import (
	"testing"

	"github.com/boltlabs-coin/boltchan/revocation"
	"github.com/boltlabs-coin/boltchan/store"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"
)

func TestOpenCreatesDatabase(t *testing.T) {
	t.Parallel()

	db, err := store.Open(t.TempDir())
	require.NoError(t, err)
	defer db.Close()
}

func TestChannelStateRoundTrip(t *testing.T) {
	t.Parallel()

	db, err := store.Open(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	want := []byte("encoded channel transcript")
	require.NoError(t, db.PutChannelState("alice-bob", want))

	got, err := db.LoadChannelState("alice-bob")
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestLoadChannelStateRejectsUnknownName(t *testing.T) {
	t.Parallel()

	db, err := store.Open(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	_, err = db.LoadChannelState("nope")
	require.ErrorIs(t, err, store.ErrChannelNotFound)
}

func TestWalletRoundTrip(t *testing.T) {
	t.Parallel()

	db, err := store.Open(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	want := []byte("encoded wallet and signature")
	require.NoError(t, db.PutWallet("alice-bob", want))

	got, err := db.LoadWallet("alice-bob")
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestLedgerRoundTrip(t *testing.T) {
	t.Parallel()

	db, err := store.Open(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	wsk1, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	wsk2, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	entries := []revocation.Entry{
		{Wpk: wsk1.PubKey(), Token: revocation.Sign(wsk1)},
		{Wpk: wsk2.PubKey()},
	}
	require.NoError(t, db.PutLedger("alice-bob", entries))

	got, err := db.LoadLedger("alice-bob")
	require.NoError(t, err)
	require.Len(t, got, 2)

	restored := revocation.Restore(got)
	require.True(t, restored.Revoked(wsk1.PubKey()))
	require.False(t, restored.Revoked(wsk2.PubKey()))
	require.True(t, restored.Contains(wsk2.PubKey()))
}

func TestLoadLedgerReturnsEmptyForUnknownChannel(t *testing.T) {
	t.Parallel()

	db, err := store.Open(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	got, err := db.LoadLedger("nope")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestChannelStatePersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	db, err := store.Open(dir)
	require.NoError(t, err)
	require.NoError(t, db.PutChannelState("alice-bob", []byte("v1")))
	require.NoError(t, db.Close())

	db2, err := store.Open(dir)
	require.NoError(t, err)
	defer db2.Close()

	got, err := db2.LoadChannelState("alice-bob")
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), got)
}
