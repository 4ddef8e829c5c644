package tokenenc_test

import (
	"testing"

	"github.com/boltlabs-coin/boltchan/tokenenc"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	var cid [32]byte
	for i := range cid {
		cid[i] = byte(i)
	}
	tok := tokenenc.Token{
		CID:        cid,
		Commitment: []byte("a commitment point"),
		ThirdParty: true,
	}

	s, err := tokenenc.Encode(tok)
	require.NoError(t, err)

	got, err := tokenenc.Decode(s)
	require.NoError(t, err)
	require.Equal(t, tok.CID, got.CID)
	require.Equal(t, tok.ThirdParty, got.ThirdParty)
	require.Equal(t, tok.Commitment, got.Commitment)
}

func TestDecodeRejectsWrongHRP(t *testing.T) {
	t.Parallel()

	base32, err := bech32.ConvertBits([]byte("payload"), 8, 5, true)
	require.NoError(t, err)
	s, err := bech32.Encode("wrong", base32)
	require.NoError(t, err)

	_, err = tokenenc.Decode(s)
	require.ErrorIs(t, err, tokenenc.ErrWrongHRP)
}

func TestDecodeRejectsMalformedPayload(t *testing.T) {
	t.Parallel()

	base32, err := bech32.ConvertBits([]byte{1, 2, 3}, 8, 5, true)
	require.NoError(t, err)
	s, err := bech32.Encode(tokenenc.HRP, base32)
	require.NoError(t, err)

	_, err = tokenenc.Decode(s)
	require.ErrorIs(t, err, tokenenc.ErrMalformed)
}
