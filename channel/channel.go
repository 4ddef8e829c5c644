// Package channel implements the three-party BOLT state machine (C6):
// Establish, Pay, Close, and Dispute, built on top of this module's
// commitment (C2), blind-signature (C3), range-proof (C4), and
// composite-NIZK (C5) packages.
package channel

import (
	"math/big"

	"github.com/boltlabs-coin/boltchan/bn"
	"github.com/boltlabs-coin/boltchan/clsign"
	"github.com/boltlabs-coin/boltchan/commitment"
	"github.com/boltlabs-coin/boltchan/config"
	"github.com/boltlabs-coin/boltchan/nizk"
	"github.com/boltlabs-coin/boltchan/revocation"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
)

// walletSlots is the fixed message-vector length: pkc, wpk, bc, bm.
const walletSlots = 4

// PublicParams is PP: the shared parameters every channel on this
// module instance is built from.
type PublicParams struct {
	Wallet     commitment.Params
	Nizk       nizk.Params
	EpsilonMax int64
	TxFee      int64
}

// Setup implements setup(extra_verify) -> PP. extra_verify is accepted
// for interface parity with the original but this rewrite's single
// bilinear-group backend (package bn) makes the extra verification
// passes the source ran across two curve backends unnecessary; see
// DESIGN.md.
func Setup(cfg *config.Config, extraVerify bool) (PublicParams, error) {
	_ = extraVerify
	n, err := nizk.Setup(cfg.MaxBalance)
	if err != nil {
		return PublicParams{}, err
	}
	return PublicParams{
		Wallet:     commitment.Setup(walletSlots),
		Nizk:       n,
		EpsilonMax: cfg.EpsilonMax,
		TxFee:      cfg.TxFee,
	}, nil
}

// KeyGen implements keygen(PP) -> (pkM, skM).
func KeyGen(pp PublicParams) (clsign.SecretKey, clsign.PublicKey, error) {
	return clsign.KeyGen(3) // wpk, bc, bm; pkc plays the role of m0
}

// MerchantState is the merchant's half of a channel: its keypair and
// the agreed initial balances escrowed at open time.
type MerchantState struct {
	SK  clsign.SecretKey
	PK  clsign.PublicKey
	Bc0 int64
	Bm0 int64
}

// InitMerchant implements init_merchant(PP, B_c0, B_m0, skM) -> MerchantState.
// B_c0 and B_m0 are accepted as btcsuite/btcutil.Amount, the unit the
// escrowed on-chain balance is denominated in, and stored internally as
// the plain int64 every scalar/commitment operation in this package
// expects.
func InitMerchant(pp PublicParams, bc0, bm0 btcutil.Amount, sk clsign.SecretKey, pk clsign.PublicKey) *MerchantState {
	return &MerchantState{SK: sk, PK: pk, Bc0: int64(bc0), Bm0: int64(bm0)}
}

// Token is T: the public, shareable channel token.
type Token struct {
	CID        [32]byte
	Commitment commitment.Commitment
	ThirdParty bool
}

// CustomerState is the customer's half of a channel: its persistent
// identity, the currently authoritative wallet and its signature, and
// any in-flight payment bookkeeping.
type CustomerState struct {
	Pkc *bn.Scalar

	Wallet nizk.Wallet
	R      *bn.Scalar
	Sig    clsign.Signature

	Wsk     *btcec.PrivateKey
	MerchPK clsign.PublicKey

	// in-flight payment state
	pending *pendingPayment
}

type pendingPayment struct {
	precomputed bool
	oldWallet   nizk.Wallet
	oldR        *bn.Scalar
	oldSig      clsign.Signature
	oldWsk      *btcec.PrivateKey

	newWallet nizk.Wallet
	newR      *bn.Scalar
	newWsk    *btcec.PrivateKey
	epsilon   int64

	merchPK clsign.PublicKey
	proof   PaymentProof
	rt      clsign.Signature
}

// InitCustomer implements init_customer(PP, S, B_c0, B_m0, pkM) -> (T, CustomerState).
// It also sets S.CID, the mutation the interface list marks with a
// trailing S parameter.
func InitCustomer(pp PublicParams, s *State, bc0, bm0 btcutil.Amount, merchPK clsign.PublicKey) (Token, *CustomerState, error) {
	if err := s.requirePhase(PhaseInit); err != nil {
		return Token{}, nil, err
	}

	pkc, err := bn.RandomScalar(bn.RandReader)
	if err != nil {
		return Token{}, nil, err
	}
	wsk, err := btcec.NewPrivateKey()
	if err != nil {
		return Token{}, nil, err
	}

	wallet := nizk.Wallet{
		Pkc: pkc,
		Wpk: scalarFromPubkey(wsk.PubKey()),
		Bc:  bn.ScalarFromInt(int64(bc0)),
		Bm:  bn.ScalarFromInt(int64(bm0)),
	}
	r, err := bn.RandomScalar(bn.RandReader)
	if err != nil {
		return Token{}, nil, err
	}
	comm, err := pp.Wallet.Commit(walletVector(wallet), r)
	if err != nil {
		return Token{}, nil, err
	}

	s.CID = CIDFromMerchantKey(merchPK)
	s.Phase = PhaseOpening

	tok := Token{CID: s.CID, Commitment: comm, ThirdParty: s.ThirdParty}
	cs := &CustomerState{
		Pkc:     pkc,
		Wallet:  wallet,
		R:       r,
		Wsk:     wsk,
		MerchPK: merchPK,
	}
	return tok, cs, nil
}

// PoK1 is the customer's Establish-phase proof of knowledge: pkc, B_c,
// B_m are revealed in the clear (per spec.md's "slot reveals"), and the
// one-time key wpk stays hidden behind a pair of Schnorr proofs sharing
// one blind: a proof of knowledge of the G1 wallet commitment's
// remaining opening (T, ZWpk, ZR), and a proof that CmWpk — the G2
// term the merchant's eventual signature must actually be issued over
// — encodes that same hidden wpk (T2). Without the second proof the
// merchant has no way to check that a customer-supplied CmWpk matches
// the commitment it is countersigning.
type PoK1 struct {
	RevealedPkc *bn.Scalar
	RevealedBc  *bn.Scalar
	RevealedBm  *bn.Scalar
	CmWpk       bn.G2 // Z2_0^wpk
	T           bn.G1 // Schnorr commitment over (wpk, r) in G1
	T2          bn.G2 // Schnorr commitment over wpk in G2, same blind as T
	Chal        *bn.Scalar
	ZWpk        *bn.Scalar
	ZR          *bn.Scalar
}

// EstablishCustomerPhase1 implements
// establish_customer_phase1(PP, CustomerState, bases) -> PoK1.
func EstablishCustomerPhase1(pp PublicParams, cs *CustomerState) (PoK1, error) {
	tWpk, err := bn.RandomScalar(bn.RandReader)
	if err != nil {
		return PoK1{}, err
	}
	tR, err := bn.RandomScalar(bn.RandReader)
	if err != nil {
		return PoK1{}, err
	}

	wpkBase := pp.Wallet.Bases[1]
	t1 := bn.G1ScalarMul(&wpkBase, tWpk)
	tr := bn.G1ScalarMul(&pp.Wallet.H, tR)
	t := bn.G1Add(&t1, &tr)

	z2Wpk := cs.MerchPK.Z2[0]
	cmWpk := bn.G2ScalarMul(&z2Wpk, cs.Wallet.Wpk)
	t2 := bn.G2ScalarMul(&z2Wpk, tWpk)

	chal := establishChallenge(t, t2)

	zWpk := new(bn.Scalar).Mul(chal, cs.Wallet.Wpk)
	zWpk.Add(zWpk, tWpk)
	zR := new(bn.Scalar).Mul(chal, cs.R)
	zR.Add(zR, tR)

	return PoK1{
		RevealedPkc: cs.Wallet.Pkc,
		RevealedBc:  cs.Wallet.Bc,
		RevealedBm:  cs.Wallet.Bm,
		CmWpk:       cmWpk,
		T:           t,
		T2:          t2,
		Chal:        chal,
		ZWpk:        zWpk,
		ZR:          zR,
	}, nil
}

func establishChallenge(t bn.G1, t2 bn.G2) *bn.Scalar {
	b := t.Bytes()
	b2 := t2.Bytes()
	buf := append(append([]byte{}, b[:]...), b2[:]...)
	return bn.HashToScalar(buf)
}

// EstablishMerchantPhase2 implements
// establish_merchant_phase2(PP, S, MerchantState, PoK1) -> sigma_W. The
// merchant checks the revealed balances equal the agreed escrow, that
// the opening proof for the hidden wpk verifies against the token's
// commitment, then blind-signs the wallet.
func EstablishMerchantPhase2(pp PublicParams, s *State, ms *MerchantState, tok Token, pok PoK1) (clsign.Signature, error) {
	if err := s.requirePhase(PhaseOpening); err != nil {
		return clsign.Signature{}, err
	}

	if scalarToInt64(pok.RevealedBm) != ms.Bm0 {
		return clsign.Signature{}, ErrInvalidOpeningProof
	}
	if scalarToInt64(pok.RevealedBc) != ms.Bc0 {
		return clsign.Signature{}, ErrInvalidOpeningProof
	}

	chal := establishChallenge(pok.T, pok.T2)
	if !chal.Equal(pok.Chal) {
		return clsign.Signature{}, ErrInvalidOpeningProof
	}

	// Known part of the commitment: pkc, bc, bm in the clear.
	known, err := pp.Wallet.Commit([]*bn.Scalar{
		pok.RevealedPkc, zeroScalar(), pok.RevealedBc, pok.RevealedBm,
	}, zeroScalar())
	if err != nil {
		return clsign.Signature{}, err
	}
	negOne := new(bn.Scalar).Neg(new(bn.Scalar).SetUint64(1))
	negKnown := bn.G1ScalarMul(&known.Point, negOne)
	hidden := bn.G1Add(&tok.Commitment.Point, &negKnown)

	negC := new(bn.Scalar).Neg(chal)
	lhs := bn.G1ScalarMul(&hidden, negC)
	wpkBase := pp.Wallet.Bases[1]
	t1 := bn.G1ScalarMul(&wpkBase, pok.ZWpk)
	tr := bn.G1ScalarMul(&pp.Wallet.H, pok.ZR)
	rhs := bn.G1Add(&t1, &tr)
	lhs = bn.G1Add(&lhs, &rhs)
	if !lhs.Equal(&pok.T) {
		return clsign.Signature{}, ErrInvalidOpeningProof
	}

	// CmWpk must encode the very same hidden wpk the G1 proof above just
	// bound to the token's commitment, not an independently chosen value:
	// Z2_0^zWpk =?= T2 + chal*CmWpk.
	z2Wpk := ms.PK.Z2[0]
	lhs2 := bn.G2ScalarMul(&z2Wpk, pok.ZWpk)
	cmWpkC := bn.G2ScalarMul(&pok.CmWpk, chal)
	rhs2 := bn.G2Add(&pok.T2, &cmWpkC)
	if !lhs2.Equal(&rhs2) {
		return clsign.Signature{}, ErrInvalidOpeningProof
	}

	// The real commitment, with the one-time key folded in from CmWpk
	// rather than zeroed out: the merchant never learns wpk itself, but
	// the signature it issues is over the wallet that actually contains it.
	knownCL, err := clsign.EncodeMessages(ms.PK, pok.RevealedPkc, []*bn.Scalar{zeroScalar(), pok.RevealedBc, pok.RevealedBm})
	if err != nil {
		return clsign.Signature{}, err
	}
	cm := bn.G2Add(&knownCL, &pok.CmWpk)
	sig, err := clsign.BlindSign(ms.SK, cm)
	if err != nil {
		return clsign.Signature{}, err
	}

	s.Phase = PhaseEstablished
	return sig, nil
}

// EstablishCustomerFinal implements
// establish_customer_final(PP, pkM, CustomerState, sigma_W) -> bool.
// The customer knows its own wallet in full, so it verifies sigma_W the
// same way any holder of a plaintext message does, rather than via the
// weaker message-independent VerifyBlind check a blind verifier is
// limited to.
func EstablishCustomerFinal(pp PublicParams, merchPK clsign.PublicKey, cs *CustomerState, sig clsign.Signature) (bool, error) {
	if err := clsign.Verify(merchPK, sig, cs.Wallet.Pkc, []*bn.Scalar{cs.Wallet.Wpk, cs.Wallet.Bc, cs.Wallet.Bm}); err != nil {
		return false, nil
	}
	cs.Sig = sig
	return true, nil
}

// PaymentProof is pi: a composite NIZK linking the old signed wallet
// to a fresh committed wallet under a public balance shift, plus the
// bookkeeping the merchant needs alongside it: the retiring one-time
// key in the clear and the public epsilon.
type PaymentProof struct {
	NIZK    nizk.Proof
	OldWpk  *btcec.PublicKey
	Epsilon int64
}

// PayCustomerPhase1Precompute implements
// pay_customer_phase1_precompute(PP, T, pkM, CustomerState): it
// snapshots the current wallet, randomness, signature, one-time key and
// merchant key into the pending payment. It does no cryptographic work:
// the signature re-randomization and the proof over the old signature
// are computed in PayCustomerPhase1, once epsilon is known.
func PayCustomerPhase1Precompute(pp PublicParams, cs *CustomerState) error {
	if cs.pending != nil && cs.pending.precomputed {
		return nil
	}
	cs.pending = &pendingPayment{
		precomputed: true,
		oldWallet:   cs.Wallet,
		oldR:        cs.R,
		oldSig:      cs.Sig,
		oldWsk:      cs.Wsk,
		merchPK:     cs.MerchPK,
	}
	return nil
}

// PayCustomerPhase1 implements
// pay_customer_phase1(PP, S, T, pkM, CustomerState, epsilon) ->
// (T', NewWallet, pi).
func PayCustomerPhase1(pp PublicParams, s *State, cs *CustomerState, epsilon int64) (Token, nizk.Wallet, PaymentProof, error) {
	if err := s.requirePhase(PhaseEstablished); err != nil {
		return Token{}, nizk.Wallet{}, PaymentProof{}, err
	}
	if abs64(epsilon) > pp.EpsilonMax {
		return Token{}, nizk.Wallet{}, PaymentProof{}, ErrEpsilonTooLarge
	}

	if err := PayCustomerPhase1Precompute(pp, cs); err != nil {
		return Token{}, nizk.Wallet{}, PaymentProof{}, err
	}

	// The fee is burned from the customer's side only, on top of
	// epsilon: each completed payment shrinks the total escrow by
	// pp.TxFee rather than transferring it to the merchant.
	newBc := scalarToInt64(cs.Wallet.Bc) - epsilon - pp.TxFee
	newBm := scalarToInt64(cs.Wallet.Bm) + epsilon
	if newBc < 0 || newBm < 0 {
		return Token{}, nizk.Wallet{}, PaymentProof{}, ErrBalanceNegative
	}

	newWsk, err := btcec.NewPrivateKey()
	if err != nil {
		return Token{}, nizk.Wallet{}, PaymentProof{}, err
	}
	newWallet := nizk.Wallet{
		Pkc: cs.Wallet.Pkc,
		Wpk: scalarFromPubkey(newWsk.PubKey()),
		Bc:  bn.ScalarFromInt(newBc),
		Bm:  bn.ScalarFromInt(newBm),
	}
	newR, err := bn.RandomScalar(bn.RandReader)
	if err != nil {
		return Token{}, nizk.Wallet{}, PaymentProof{}, err
	}

	oldWpkPoint := cs.pending.oldWsk.PubKey()
	nzProof, err := nizk.ProveTransition(
		pp.Nizk, cs.pending.merchPK, cs.Wallet, cs.R, cs.Sig,
		newWallet, newR, bn.ScalarFromInt(epsilon), bn.ScalarFromInt(pp.TxFee),
	)
	if err != nil {
		return Token{}, nizk.Wallet{}, PaymentProof{}, err
	}
	proof := PaymentProof{NIZK: nzProof, OldWpk: oldWpkPoint, Epsilon: epsilon}

	cs.pending.newWallet = newWallet
	cs.pending.newR = newR
	cs.pending.newWsk = newWsk
	cs.pending.epsilon = epsilon
	cs.pending.proof = proof

	s.Phase = PhasePayAwaitRT

	newTok := Token{CID: s.CID, Commitment: nzProof.NewComm, ThirdParty: s.ThirdParty}
	return newTok, newWallet, proof, nil
}

// PayMerchantPhase1 implements
// pay_merchant_phase1(PP, S, pi, MerchantState) -> RT.
func PayMerchantPhase1(pp PublicParams, s *State, proof PaymentProof, ms *MerchantState) (clsign.Signature, error) {
	if err := s.requirePhase(PhasePayAwaitRT); err != nil {
		return clsign.Signature{}, err
	}
	if abs64(proof.Epsilon) > pp.EpsilonMax {
		return clsign.Signature{}, ErrEpsilonTooLarge
	}

	if s.Keys.Contains(proof.OldWpk) {
		return clsign.Signature{}, ErrReplayedKey
	}

	revealedOldWpk := scalarFromPubkey(proof.OldWpk)
	if err := pp.Nizk.Verify(proof.NIZK, ms.PK, proof.NIZK.NewComm, revealedOldWpk, bn.ScalarFromInt(proof.Epsilon), bn.ScalarFromInt(pp.TxFee)); err != nil {
		return clsign.Signature{}, ErrInvalidNIZK
	}

	s.Keys.Reserve(proof.OldWpk)

	// RT is a blind signature on the new wallet itself, tagged so it
	// can't be replayed as sigma_{W'} (PayMerchantPhase2 below signs the
	// same CmNew untagged): proof.NIZK.CmNew is already tied to NewComm
	// by the composite NIZK, so RT commits to the exact balances it
	// authorizes a refund against.
	g2 := bn.G2Generator()
	tagPoint := bn.G2ScalarMul(&g2, wireTag("refund"))
	rtCm := bn.G2Add(&proof.NIZK.CmNew, &tagPoint)
	rt, err := clsign.BlindSign(ms.SK, rtCm)
	if err != nil {
		return clsign.Signature{}, err
	}

	s.Phase = PhasePayHaveRT
	return rt, nil
}

// PayCustomerPhase2 implements
// pay_customer_phase2(PP, CustomerState, NewWallet, pkM, RT) -> rho.
func PayCustomerPhase2(pp PublicParams, cs *CustomerState, merchPK clsign.PublicKey, rt clsign.Signature) ([]byte, error) {
	if cs.pending == nil {
		return nil, ErrWrongState
	}
	// The customer knows the new wallet's plaintext, so it checks RT
	// the same way it checks any signature on a known message: over the
	// new wallet's vector with the refund tag folded into pkc's slot,
	// matching how PayMerchantPhase1 built RT's signed commitment.
	w := cs.pending.newWallet
	taggedPkc := new(bn.Scalar).Add(w.Pkc, wireTag("refund"))
	if err := clsign.Verify(merchPK, rt, taggedPkc, []*bn.Scalar{w.Wpk, w.Bc, w.Bm}); err != nil {
		return nil, ErrInvalidSignature
	}
	rho := revocation.Sign(cs.pending.oldWsk)
	return rho, nil
}

// PayMerchantPhase2 implements
// pay_merchant_phase2(PP, S, pi, MerchantState, rho) -> sigma_{W'}.
func PayMerchantPhase2(pp PublicParams, s *State, proof PaymentProof, ms *MerchantState, rho []byte) (clsign.Signature, error) {
	if err := s.requirePhase(PhasePayHaveRT); err != nil {
		return clsign.Signature{}, err
	}
	if err := s.Keys.Record(proof.OldWpk, rho); err != nil {
		return clsign.Signature{}, ErrRevocationAuth
	}

	// sigma_{W'} must be issued over the new wallet's own committed
	// vector, proof.NIZK.CmNew — not proof.NIZK.Sig.C, which is the
	// re-randomized *old* signature's G2 component and carries no
	// relation to the new wallet at all.
	sig, err := clsign.BlindSign(ms.SK, proof.NIZK.CmNew)
	if err != nil {
		return clsign.Signature{}, err
	}

	s.Phase = PhaseEstablished
	return sig, nil
}

// PayCustomerFinal implements
// pay_customer_final(PP, pkM, CustomerState, T', NewWallet, sigma_{W'}) -> bool.
func PayCustomerFinal(pp PublicParams, merchPK clsign.PublicKey, cs *CustomerState, newTok Token, newWallet nizk.Wallet, sig clsign.Signature) (bool, error) {
	if cs.pending == nil {
		return false, ErrWrongState
	}
	if err := clsign.Verify(merchPK, sig, newWallet.Pkc, []*bn.Scalar{newWallet.Wpk, newWallet.Bc, newWallet.Bm}); err != nil {
		return false, nil
	}

	cs.Wallet = cs.pending.newWallet
	cs.R = cs.pending.newR
	cs.Wsk = cs.pending.newWsk
	cs.Sig = sig
	cs.pending = nil
	return true, nil
}

// ClosureC is the customer's self-published channel closure.
type ClosureC struct {
	Wallet nizk.Wallet
	Sig    clsign.Signature
	Wpk    *btcec.PublicKey
}

// CustomerRefund implements
// customer_refund(PP, S, pkM, CustomerState) -> ClosureC.
func CustomerRefund(pp PublicParams, s *State, cs *CustomerState) (ClosureC, error) {
	s.Phase = PhaseCustClosed
	return ClosureC{Wallet: cs.Wallet, Sig: cs.Sig, Wpk: cs.Wsk.PubKey()}, nil
}

// ClosureM is the merchant's refutation of a stale customer closure.
type ClosureM struct {
	Wpk   *btcec.PublicKey
	Token []byte
}

// MerchantRefute implements
// merchant_refute(PP, S, T, MerchantState, ClosureC, rho) -> ClosureM.
func MerchantRefute(pp PublicParams, s *State, ms *MerchantState, closure ClosureC) (ClosureM, bool) {
	if !s.Keys.Revoked(closure.Wpk) {
		return ClosureM{}, false
	}
	s.Phase = PhaseMerchRefuted
	return ClosureM{Wpk: closure.Wpk}, true
}

// Resolve implements
// resolve(PP, CustomerState, MerchantState, ClosureC?, ClosureM?, RT?) -> (B_c*, B_m*).
// It is total: absence of ClosureC awards everything to the merchant.
func Resolve(pp PublicParams, s *State, ms *MerchantState, closureC *ClosureC, closureM *ClosureM) (int64, int64) {
	defer func() { s.Phase = PhaseSettled }()

	if closureC == nil {
		return 0, totalEscrow(ms)
	}
	if s.Keys.Revoked(closureC.Wpk) {
		return 0, totalEscrow(ms)
	}
	return scalarToInt64(closureC.Wallet.Bc), scalarToInt64(closureC.Wallet.Bm)
}

func totalEscrow(ms *MerchantState) int64 {
	return ms.Bc0 + ms.Bm0
}

// VerifyThirdPartyPayment implements the supplemented
// verify_third_party_payment operation: the amount forwarded on the
// customer-facing leg must equal the amount forwarded on the
// merchant-facing leg. Fees are a per-channel debit on top of epsilon,
// paid by that leg's sender, never split across the intermediary.
func VerifyThirdPartyPayment(epsilonA, feeA, epsilonB, feeB int64) bool {
	return epsilonA == epsilonB && feeA >= 0 && feeB >= 0
}

func scalarFromPubkey(pk *btcec.PublicKey) *bn.Scalar {
	return bn.HashToScalar(pk.SerializeCompressed())
}

func walletVector(w nizk.Wallet) []*bn.Scalar {
	return []*bn.Scalar{w.Pkc, w.Wpk, w.Bc, w.Bm}
}

func zeroScalar() *bn.Scalar {
	return new(bn.Scalar).SetUint64(0)
}

func wireTag(label string) *bn.Scalar {
	return bn.HashToScalar([]byte(label))
}

func scalarToInt64(s *bn.Scalar) int64 {
	bi := new(big.Int)
	s.BigInt(bi)
	return bi.Int64()
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
