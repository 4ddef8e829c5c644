package wire_test

import (
	"bytes"
	"testing"

	"github.com/boltlabs-coin/boltchan/bn"
	"github.com/boltlabs-coin/boltchan/clsign"
	"github.com/boltlabs-coin/boltchan/nizk"
	"github.com/boltlabs-coin/boltchan/wire"
	"github.com/stretchr/testify/require"
)

func TestScalarRoundTrip(t *testing.T) {
	t.Parallel()

	s := bn.ScalarFromInt(12345)
	var buf bytes.Buffer
	require.NoError(t, wire.WriteScalar(&buf, s))

	got, err := wire.ReadScalar(&buf)
	require.NoError(t, err)
	require.True(t, got.Equal(s))
}

func TestG1RoundTrip(t *testing.T) {
	t.Parallel()

	p := bn.G1ScalarMul(ptrG1(bn.G1Generator()), bn.ScalarFromInt(7))
	var buf bytes.Buffer
	require.NoError(t, wire.WriteG1(&buf, &p))

	got, err := wire.ReadG1(&buf)
	require.NoError(t, err)
	require.True(t, got.Equal(&p))
}

func TestG2RoundTrip(t *testing.T) {
	t.Parallel()

	g2 := bn.G2Generator()
	p := bn.G2ScalarMul(&g2, bn.ScalarFromInt(11))
	var buf bytes.Buffer
	require.NoError(t, wire.WriteG2(&buf, &p))

	got, err := wire.ReadG2(&buf)
	require.NoError(t, err)
	require.True(t, got.Equal(&p))
}

func TestBytesRoundTrip(t *testing.T) {
	t.Parallel()

	payload := []byte("a channel token")
	var buf bytes.Buffer
	require.NoError(t, wire.WriteBytes(&buf, payload))

	got, err := wire.ReadBytes(&buf)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestReadScalarRejectsTruncatedInput(t *testing.T) {
	t.Parallel()

	_, err := wire.ReadScalar(bytes.NewReader([]byte{1, 2, 3}))
	require.ErrorIs(t, err, wire.ErrTruncated)
}

func TestReadVersionRejectsUnknownTag(t *testing.T) {
	t.Parallel()

	_, err := wire.ReadScalar(bytes.NewReader(nil))
	require.ErrorIs(t, err, wire.ErrTruncated)

	err = wire.ReadVersion(bytes.NewReader([]byte{99}))
	require.ErrorIs(t, err, wire.ErrUnknownVersion)
}

func TestSignatureRoundTrip(t *testing.T) {
	t.Parallel()

	sk, pk, err := clsign.KeyGen(2)
	require.NoError(t, err)
	sig, err := clsign.Sign(sk, pk, bn.ScalarFromInt(1), []*bn.Scalar{bn.ScalarFromInt(2), bn.ScalarFromInt(3)})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, wire.WriteSignature(&buf, &sig))

	got, err := wire.ReadSignature(&buf)
	require.NoError(t, err)
	require.True(t, got.A.Equal(&sig.A))
	require.True(t, got.C.Equal(&sig.C))
	require.Len(t, got.Ai, len(sig.Ai))
}

func TestEncodeDecodeWalletAndSigRoundTrip(t *testing.T) {
	t.Parallel()

	sk, pk, err := clsign.KeyGen(3)
	require.NoError(t, err)

	w := nizk.Wallet{
		Pkc: bn.ScalarFromInt(1),
		Wpk: bn.ScalarFromInt(2),
		Bc:  bn.ScalarFromInt(90),
		Bm:  bn.ScalarFromInt(20),
	}
	sig, err := clsign.Sign(sk, pk, w.Pkc, []*bn.Scalar{w.Wpk, w.Bc, w.Bm})
	require.NoError(t, err)

	r := bn.ScalarFromInt(42)
	data, err := wire.EncodeWalletAndSig(w, r, sig)
	require.NoError(t, err)

	gotW, gotR, gotSig, err := wire.DecodeWalletAndSig(data)
	require.NoError(t, err)
	require.True(t, gotW.Bc.Equal(w.Bc))
	require.True(t, gotW.Bm.Equal(w.Bm))
	require.True(t, gotR.Equal(r))
	require.True(t, gotSig.A.Equal(&sig.A))
}

func TestDecodeWalletAndSigRejectsUnknownVersion(t *testing.T) {
	t.Parallel()

	_, _, _, err := wire.DecodeWalletAndSig([]byte{0xFF})
	require.ErrorIs(t, err, wire.ErrUnknownVersion)
}

func ptrG1(g bn.G1) *bn.G1 { return &g }
