// Package nizk implements the composite non-interactive zero-knowledge
// proof that ties a freshly committed wallet to a merchant-signed
// predecessor wallet, with a public balance shift epsilon and bounded
// resulting balances.
//
// Grounded on original_source/src/nizk.rs's NIZKPublicParams::prove/
// verify: a shared Fiat-Shamir challenge binds a Schnorr proof of
// knowledge of the old wallet's opening (with the old one-time public
// key revealed in the clear, hence an always-zero blind on that slot),
// a Schnorr proof of knowledge of the new wallet's opening, two CCS08
// range proofs on the new balances, and the three linear relations:
// the customer identity slot matches across old and new, the new B_c
// equals the old B_c minus epsilon and the fee, and the new B_m equals
// the old B_m plus epsilon.
package nizk

import (
	"math/big"

	"github.com/boltlabs-coin/boltchan/bn"
	"github.com/boltlabs-coin/boltchan/clsign"
	"github.com/boltlabs-coin/boltchan/commitment"
	"github.com/boltlabs-coin/boltchan/rangeproof"
	"github.com/go-errors/errors"
)

// ErrVerifyFailed is returned by Verify when any of the proof's
// constituent checks fails.
var ErrVerifyFailed = errors.New("nizk: composite proof verification failed")

// Wallet is the message vector a commitment/signature is defined over:
// the customer's persistent identifier, the payment's one-time public
// key, and the two balances.
type Wallet struct {
	Pkc *bn.Scalar
	Wpk *bn.Scalar
	Bc  *bn.Scalar
	Bm  *bn.Scalar
}

func (w Wallet) vector() []*bn.Scalar {
	return []*bn.Scalar{w.Pkc, w.Wpk, w.Bc, w.Bm}
}

// Params bundles the public parameters for every sub-proof: the wallet
// MMC bases and a range-proof instance per balance slot.
type Params struct {
	Wallet  commitment.Params
	RangeBc rangeproof.RPPublicParams
	RangeBm rangeproof.RPPublicParams
}

// Setup builds Params for wallets whose balances are bounded by
// maxBalance, matching NIZKPublicParams::setup's use of a fixed upper
// bound for both balance range proofs.
func Setup(maxBalance int64) (Params, error) {
	rbc, err := rangeproof.Setup(0, maxBalance)
	if err != nil {
		return Params{}, err
	}
	rbm, err := rangeproof.Setup(0, maxBalance)
	if err != nil {
		return Params{}, err
	}
	return Params{
		Wallet:  commitment.Setup(4),
		RangeBc: rbc,
		RangeBm: rbm,
	}, nil
}

// Proof is the composite NIZK produced by ProveTransition.
type Proof struct {
	OldComm commitment.Commitment
	NewComm commitment.Commitment
	Sig     clsign.Signature // re-randomized signature on OldComm
	TOld    bn.G1
	TNew    bn.G1
	TSig    bn.GT // signature-consistency commitment, ties Sig to OldComm
	T2New   bn.G2 // G2 opening commitment, ties NewComm to CmNew
	CmNew   bn.G2 // plaintext G2 encoding of the new wallet, for blind-signing
	RangeBc rangeproof.RangeProof
	RangeBm rangeproof.RangeProof
	Chal    *bn.Scalar
	ZPkc    *bn.Scalar
	ZWpkOld *bn.Scalar
	ZWpkNew *bn.Scalar
	ZBcOld  *bn.Scalar
	ZBmOld  *bn.Scalar
	ZROld   *bn.Scalar
	ZRNew   *bn.Scalar
}

// ProveTransition proves that newWallet is a valid successor to
// oldWallet (signed by signPK via oldSig) under the public shift
// epsilon and fee: newWallet.Bc == oldWallet.Bc - epsilon - fee and
// newWallet.Bm == oldWallet.Bm + epsilon, while revealing nothing about
// the new wpk, pkc, or the balances beyond what the range proofs bound
// them to.
// oldWallet.Wpk is passed in the clear by convention: payment replay
// protection requires the merchant to see which one-time key is being
// retired.
func ProveTransition(
	params Params,
	signPK clsign.PublicKey,
	oldWallet Wallet, oldR *bn.Scalar, oldSig clsign.Signature,
	newWallet Wallet, newR *bn.Scalar,
	epsilon, fee *bn.Scalar,
) (Proof, error) {
	oldComm, err := params.Wallet.Commit(oldWallet.vector(), oldR)
	if err != nil {
		return Proof{}, err
	}
	newComm, err := params.Wallet.Commit(newWallet.vector(), newR)
	if err != nil {
		return Proof{}, err
	}

	k, err := bn.RandomScalar(bn.RandReader)
	if err != nil {
		return Proof{}, err
	}
	sig := rerandomize(oldSig, k)
	if err := clsign.VerifyBlind(signPK, sig); err != nil {
		return Proof{}, err
	}

	cmNew, err := clsign.EncodeMessages(signPK, newWallet.Pkc, []*bn.Scalar{newWallet.Wpk, newWallet.Bc, newWallet.Bm})
	if err != nil {
		return Proof{}, err
	}

	bcInt := scalarToInt64(newWallet.Bc)
	bmInt := scalarToInt64(newWallet.Bm)
	rangeBc, err := params.RangeBc.Prove(bcInt)
	if err != nil {
		return Proof{}, err
	}
	rangeBm, err := params.RangeBm.Prove(bmInt)
	if err != nil {
		return Proof{}, err
	}

	tPkc, err := bn.RandomScalar(bn.RandReader)
	if err != nil {
		return Proof{}, err
	}
	tWpkNew, err := bn.RandomScalar(bn.RandReader)
	if err != nil {
		return Proof{}, err
	}
	tBcOld, err := bn.RandomScalar(bn.RandReader)
	if err != nil {
		return Proof{}, err
	}
	tBmOld, err := bn.RandomScalar(bn.RandReader)
	if err != nil {
		return Proof{}, err
	}
	tROld, err := bn.RandomScalar(bn.RandReader)
	if err != nil {
		return Proof{}, err
	}
	tRNew, err := bn.RandomScalar(bn.RandReader)
	if err != nil {
		return Proof{}, err
	}

	// The old one-time key is revealed, not hidden, so its blind is 0.
	zero := new(bn.Scalar).SetUint64(0)
	tOld, err := params.Wallet.Commit([]*bn.Scalar{tPkc, zero, tBcOld, tBmOld}, tROld)
	if err != nil {
		return Proof{}, err
	}
	tNew, err := params.Wallet.Commit([]*bn.Scalar{tPkc, tWpkNew, tBcOld, tBmOld}, tRNew)
	if err != nil {
		return Proof{}, err
	}

	// tSig reuses the exact blinds (tPkc for Pkc, zero for the revealed
	// Wpk, tBcOld/tBmOld for the balances) that tOld's opening proof
	// uses. Responding to both under the same challenge ties the
	// signature's message vector to oldComm's opening: a fabricated
	// wallet paired with a genuine signature on a different message can
	// satisfy at most one of the two equations.
	cp, err := clsign.GenCommonParams(signPK, sig)
	if err != nil {
		return Proof{}, err
	}
	tSig, _, _, err := clsign.ConsistencyCommit(cp, tPkc, []*bn.Scalar{zero, tBcOld, tBmOld})
	if err != nil {
		return Proof{}, err
	}

	// t2New mirrors tNew in G2 under the merchant key's Z2 bases, tying
	// CmNew (the plaintext new-wallet encoding the merchant will
	// blind-sign) to NewComm via the same blinds tNew already uses.
	t2New, err := clsign.EncodeMessages(signPK, tPkc, []*bn.Scalar{tWpkNew, tBcOld, tBmOld})
	if err != nil {
		return Proof{}, err
	}

	chal := challenge(sig, tOld.Point, tNew.Point, tSig, t2New)

	zPkc := new(bn.Scalar).Mul(chal, oldWallet.Pkc)
	zPkc.Add(zPkc, tPkc)

	zWpkOld := new(bn.Scalar).Mul(chal, oldWallet.Wpk)

	zWpkNew := new(bn.Scalar).Mul(chal, newWallet.Wpk)
	zWpkNew.Add(zWpkNew, tWpkNew)

	zBcOld := new(bn.Scalar).Mul(chal, oldWallet.Bc)
	zBcOld.Add(zBcOld, tBcOld)

	zBmOld := new(bn.Scalar).Mul(chal, oldWallet.Bm)
	zBmOld.Add(zBmOld, tBmOld)

	zROld := new(bn.Scalar).Mul(chal, oldR)
	zROld.Add(zROld, tROld)

	zRNew := new(bn.Scalar).Mul(chal, newR)
	zRNew.Add(zRNew, tRNew)

	return Proof{
		OldComm: oldComm,
		NewComm: newComm,
		Sig:     sig,
		TOld:    tOld.Point,
		TNew:    tNew.Point,
		TSig:    tSig,
		T2New:   t2New,
		CmNew:   cmNew,
		RangeBc: rangeBc,
		RangeBm: rangeBm,
		Chal:    chal,
		ZPkc:    zPkc,
		ZWpkOld: zWpkOld,
		ZWpkNew: zWpkNew,
		ZBcOld:  zBcOld,
		ZBmOld:  zBmOld,
		ZROld:   zROld,
		ZRNew:   zRNew,
	}, nil
}

// Verify checks proof against the public new-wallet commitment, the
// revealed old one-time public key, the public balance shift epsilon,
// and the per-payment fee burned from the customer's side.
func (params Params) Verify(proof Proof, signPK clsign.PublicKey, newComm commitment.Commitment, revealedOldWpk, epsilon, fee *bn.Scalar) error {
	if !proof.NewComm.Point.Equal(&newComm.Point) {
		return ErrVerifyFailed
	}
	if err := clsign.VerifyBlind(signPK, proof.Sig); err != nil {
		return ErrVerifyFailed
	}

	chal := challenge(proof.Sig, proof.TOld, proof.TNew, proof.TSig, proof.T2New)
	if !chal.Equal(proof.Chal) {
		return ErrVerifyFailed
	}

	// Old-wallet opening: T_old =?= -c*OldComm + Commit(z_pkc, z_wpkOld, z_bcOld, z_bmOld; z_rOld)
	negC := new(bn.Scalar).Neg(chal)
	lhsOld := bn.G1ScalarMul(&proof.OldComm.Point, negC)
	rOld, err := params.Wallet.Commit([]*bn.Scalar{proof.ZPkc, proof.ZWpkOld, proof.ZBcOld, proof.ZBmOld}, proof.ZROld)
	if err != nil {
		return err
	}
	lhsOld = bn.G1Add(&lhsOld, &rOld.Point)
	if !lhsOld.Equal(&proof.TOld) {
		return ErrVerifyFailed
	}

	// Ties oldSig's signed message to oldComm's opening: without this,
	// the old-wallet opening above proves only that the prover knows
	// SOME opening of OldComm, never that oldSig was issued over it.
	if err := clsign.VerifyConsistency(signPK, proof.Sig, chal, proof.TSig, proof.ZPkc, []*bn.Scalar{proof.ZWpkOld, proof.ZBcOld, proof.ZBmOld}); err != nil {
		return ErrVerifyFailed
	}

	// The revealed old wpk must match the response: z_wpkOld == c*wpk.
	expectWpk := new(bn.Scalar).Mul(chal, revealedOldWpk)
	if !expectWpk.Equal(proof.ZWpkOld) {
		return ErrVerifyFailed
	}

	// New-wallet opening, linked through epsilon and the per-payment fee:
	// z_bcNew = z_bcOld - c*(epsilon+fee) ; z_bmNew = z_bmOld + c*epsilon
	epsFee := new(bn.Scalar).Add(epsilon, fee)
	cEpsFee := new(bn.Scalar).Mul(chal, epsFee)
	cEps := new(bn.Scalar).Mul(chal, epsilon)
	zBcNew := new(bn.Scalar).Sub(proof.ZBcOld, cEpsFee)
	zBmNew := new(bn.Scalar).Add(proof.ZBmOld, cEps)

	lhsNew := bn.G1ScalarMul(&proof.NewComm.Point, negC)
	rNew, err := params.Wallet.Commit([]*bn.Scalar{proof.ZPkc, proof.ZWpkNew, zBcNew, zBmNew}, proof.ZRNew)
	if err != nil {
		return err
	}
	lhsNew = bn.G1Add(&lhsNew, &rNew.Point)
	if !lhsNew.Equal(&proof.TNew) {
		return ErrVerifyFailed
	}

	// Ties CmNew (what the merchant is asked to blind-sign as the next
	// wallet's signature) to NewComm's opening, the same way TSig/VerifyConsistency
	// ties the old signature to OldComm's opening.
	lhs2New, err := clsign.EncodeMessages(signPK, proof.ZPkc, []*bn.Scalar{proof.ZWpkNew, zBcNew, zBmNew})
	if err != nil {
		return err
	}
	cmNewC := bn.G2ScalarMul(&proof.CmNew, chal)
	rhs2New := bn.G2Add(&proof.T2New, &cmNewC)
	if !lhs2New.Equal(&rhs2New) {
		return ErrVerifyFailed
	}

	if err := params.RangeBc.Verify(proof.RangeBc); err != nil {
		return ErrVerifyFailed
	}
	if err := params.RangeBm.Verify(proof.RangeBm); err != nil {
		return ErrVerifyFailed
	}

	return nil
}

func rerandomize(sig clsign.Signature, k *bn.Scalar) clsign.Signature {
	out := clsign.Signature{
		A: bn.G2ScalarMul(&sig.A, k),
		B: bn.G2ScalarMul(&sig.B, k),
		C: bn.G2ScalarMul(&sig.C, k),
	}
	out.Ai = make([]bn.G2, len(sig.Ai))
	out.Bi = make([]bn.G2, len(sig.Bi))
	for i := range sig.Ai {
		out.Ai[i] = bn.G2ScalarMul(&sig.Ai[i], k)
		out.Bi[i] = bn.G2ScalarMul(&sig.Bi[i], k)
	}
	return out
}

func challenge(sig clsign.Signature, tOld, tNew bn.G1, tSig bn.GT, t2New bn.G2) *bn.Scalar {
	var buf []byte
	ab := sig.A.Bytes()
	buf = append(buf, ab[:]...)
	tob := tOld.Bytes()
	buf = append(buf, tob[:]...)
	tnb := tNew.Bytes()
	buf = append(buf, tnb[:]...)
	buf = append(buf, bn.GTBytes(&tSig)...)
	t2b := t2New.Bytes()
	buf = append(buf, t2b[:]...)
	return bn.HashToScalar(buf)
}

func scalarToInt64(s *bn.Scalar) int64 {
	bi := new(big.Int)
	s.BigInt(bi)
	return bi.Int64()
}
