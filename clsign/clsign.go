// Package clsign implements a Camenisch-Lysyanskaya-style blind
// signature scheme over bn254: the merchant signs a committed wallet
// vector without learning its opening, and the customer can later prove
// knowledge of a valid signature on a (possibly re-randomized) wallet
// without revealing the signature itself.
//
// The scheme is grounded on original_source/src/clproto.rs's
// bs_compute_blind_signature / vs_verify_blind_sig pair: the value
// signed ("m" in clproto.rs) is itself a G2 group element encoding the
// message vector, not a scalar, which lets the signer fold the blinding
// into a single scalar multiplication instead of a per-message loop.
package clsign

import (
	"math/big"

	"github.com/boltlabs-coin/boltchan/bn"
	"github.com/go-errors/errors"
)

var (
	// ErrMessageCount is returned when a message vector's length does
	// not match the public key's number of per-slot bases.
	ErrMessageCount = errors.New("clsign: message vector length mismatch")

	// ErrInvalidSignature is returned by Verify/VerifyBlind when the
	// pairing identities do not hold.
	ErrInvalidSignature = errors.New("clsign: signature verification failed")
)

// PublicKey is (X, Y, {Z_i}) in G1, plus the G2 view of the same Z_i
// used to build the message encoding Cm that gets signed.
type PublicKey struct {
	X   bn.G1
	Y   bn.G1
	Z   []bn.G1 // G1 view, used in the pairing identities
	Z2  []bn.G2 // G2 view, used to encode a message vector as a point
}

// SecretKey is (x, y, {z_i}).
type SecretKey struct {
	X *bn.Scalar
	Y *bn.Scalar
	Z []*bn.Scalar
}

// KeyGen samples a fresh keypair able to sign vectors of n messages
// (beyond the implicit slot-0 message, see EncodeMessages).
func KeyGen(n int) (SecretKey, PublicKey, error) {
	x, err := bn.RandomScalar(bn.RandReader)
	if err != nil {
		return SecretKey{}, PublicKey{}, err
	}
	y, err := bn.RandomScalar(bn.RandReader)
	if err != nil {
		return SecretKey{}, PublicKey{}, err
	}

	z := make([]*bn.Scalar, n)
	zG1 := make([]bn.G1, n)
	zG2 := make([]bn.G2, n)
	for i := 0; i < n; i++ {
		zi, err := bn.RandomScalar(bn.RandReader)
		if err != nil {
			return SecretKey{}, PublicKey{}, err
		}
		z[i] = zi
		zG1[i] = bn.G1ScalarBaseMul(zi)
		g2 := bn.G2Generator()
		zG2[i] = bn.G2ScalarMul(&g2, zi)
	}

	sk := SecretKey{X: x, Y: y, Z: z}
	pk := PublicKey{
		X:  bn.G1ScalarBaseMul(x),
		Y:  bn.G1ScalarBaseMul(y),
		Z:  zG1,
		Z2: zG2,
	}
	return sk, pk, nil
}

// Signature is (a, b, {A_i}, {B_i}, c), all in G2.
type Signature struct {
	A  bn.G2
	B  bn.G2
	Ai []bn.G2
	Bi []bn.G2
	C  bn.G2
}

// EncodeMessages folds a message vector (m0, m1, ..., mL) into the
// single G2 point Cm = g2^m0 * prod_i Z2_i^{m_i} that the signing
// equations operate on. m0 plays the role of an always-present slot
// (the customer identifier pkc in a wallet, the digit value in package
// rangeproof); rest lines up one-to-one with pk.Z2.
func EncodeMessages(pk PublicKey, m0 *bn.Scalar, rest []*bn.Scalar) (bn.G2, error) {
	if len(rest) != len(pk.Z2) {
		return bn.G2{}, ErrMessageCount
	}
	g2 := bn.G2Generator()
	acc := bn.G2ScalarMul(&g2, m0)
	for i, mi := range rest {
		term := bn.G2ScalarMul(&pk.Z2[i], mi)
		acc = bn.G2Add(&acc, &term)
	}
	return acc, nil
}

// BlindSign issues a signature on an opaque encoded message point Cm,
// never learning m0 or rest. This is the primitive the merchant runs
// during Establish and Pay: it only ever sees a (re-randomized)
// commitment, never the customer's wallet contents.
func BlindSign(sk SecretKey, cm bn.G2) (Signature, error) {
	u, err := bn.RandomScalar(bn.RandReader)
	if err != nil {
		return Signature{}, err
	}

	g2 := bn.G2Generator()
	a := bn.G2ScalarMul(&g2, u)
	b := bn.G2ScalarMul(&a, sk.Y)

	ai := make([]bn.G2, len(sk.Z))
	bi := make([]bn.G2, len(sk.Z))
	for i, zi := range sk.Z {
		ai[i] = bn.G2ScalarMul(&a, zi)
		bi[i] = bn.G2ScalarMul(&ai[i], sk.Y)
	}

	xyu := new(bn.Scalar).Mul(sk.X, sk.Y)
	xyu.Mul(xyu, u)
	cmTerm := bn.G2ScalarMul(&cm, xyu)
	xTerm := bn.G2ScalarMul(&a, sk.X)
	c := bn.G2Add(&xTerm, &cmTerm)

	return Signature{A: a, B: b, Ai: ai, Bi: bi, C: c}, nil
}

// Sign issues a plain (non-blind) signature directly on a known message
// vector. It is defined as BlindSign over the deterministic encoding of
// those messages, so the signer and the verifier share one code path;
// this is how this module realizes clsigs.rs's separate sign_d/verify_d
// entry points without a second implementation to keep in sync.
func Sign(sk SecretKey, pk PublicKey, m0 *bn.Scalar, rest []*bn.Scalar) (Signature, error) {
	cm, err := EncodeMessages(pk, m0, rest)
	if err != nil {
		return Signature{}, err
	}
	return BlindSign(sk, cm)
}

// VerifyBlind checks the message-independent structural identities of a
// signature: the a/b relation and, for every extra slot, the A_i/B_i
// relation. These hold for any message the key ever signed, so
// VerifyBlind alone does not establish that sig is a signature on any
// particular wallet or digit — callers that know the plaintext message
// should use Verify instead, and callers holding only a proof of
// knowledge of the message (package nizk's composite proof, or
// rangeproof's per-digit proof) should pair VerifyBlind with
// VerifyConsistency.
func VerifyBlind(pk PublicKey, sig Signature) error {
	g1 := bn.G1Generator()

	lhs, err := bn.Pair(&g1, &sig.B)
	if err != nil {
		return err
	}
	rhs, err := bn.Pair(&pk.Y, &sig.A)
	if err != nil {
		return err
	}
	if !bn.GTEqual(&lhs, &rhs) {
		return ErrInvalidSignature
	}

	for i := range sig.Ai {
		l, err := bn.Pair(&g1, &sig.Ai[i])
		if err != nil {
			return err
		}
		r, err := bn.Pair(&pk.Z[i], &sig.A)
		if err != nil {
			return err
		}
		if !bn.GTEqual(&l, &r) {
			return ErrInvalidSignature
		}

		l2, err := bn.Pair(&g1, &sig.Bi[i])
		if err != nil {
			return err
		}
		r2, err := bn.Pair(&pk.Y, &sig.Ai[i])
		if err != nil {
			return err
		}
		if !bn.GTEqual(&l2, &r2) {
			return ErrInvalidSignature
		}
	}

	return nil
}

// CommonParams are the GT bases a signature-consistency proof is stated
// over: e(X,a) (the constant-1 term), e(X,b) (the m0 term), and e(X,B_i)
// per extra slot. They depend only on pk and sig, so a prover and a
// verifier who agree on sig derive identical bases without either
// learning the signed message. Grounded on
// original_source/src/clproto.rs's gen_common_params/CommonParams.
type CommonParams struct {
	Vx   bn.GT
	Vxy  bn.GT
	Vxyi []bn.GT
}

// GenCommonParams derives sig's GT bases under pk.
func GenCommonParams(pk PublicKey, sig Signature) (CommonParams, error) {
	vx, err := bn.Pair(&pk.X, &sig.A)
	if err != nil {
		return CommonParams{}, err
	}
	vxy, err := bn.Pair(&pk.X, &sig.B)
	if err != nil {
		return CommonParams{}, err
	}
	vxyi := make([]bn.GT, len(sig.Bi))
	for i := range sig.Bi {
		v, err := bn.Pair(&pk.X, &sig.Bi[i])
		if err != nil {
			return CommonParams{}, err
		}
		vxyi[i] = v
	}
	return CommonParams{Vx: vx, Vxy: vxy, Vxyi: vxyi}, nil
}

// ConsistencyCommit computes the first message of a Schnorr-style proof
// of knowledge of (m0, rest) satisfying vs == vx * vxy^m0 *
// prod_i(vxyi[i]^rest[i]), where vs = e(g1, sig.C) — the "aggregated
// consistency check involving messages" a blind verifier runs in place
// of Verify's per-message pairing check. A nil blind is sampled fresh;
// passing in a blind already used by another Sigma protocol over the
// same witness, combined under one Fiat-Shamir challenge, is how a
// caller proves the two protocols share a witness without any further
// equation (package nizk binds a signature to a wallet commitment this
// way). The constant-1 term never needs a blind of its own: it isn't
// secret, so its response is just the challenge itself.
func ConsistencyCommit(cp CommonParams, tM0 *bn.Scalar, tRest []*bn.Scalar) (bn.GT, *bn.Scalar, []*bn.Scalar, error) {
	if len(tRest) != len(cp.Vxyi) {
		return bn.GT{}, nil, nil, ErrMessageCount
	}
	var err error
	if tM0 == nil {
		tM0, err = bn.RandomScalar(bn.RandReader)
		if err != nil {
			return bn.GT{}, nil, nil, err
		}
	}
	blinds := make([]*bn.Scalar, len(tRest))
	t := bn.GTExp(&cp.Vxy, tM0)
	for i, ti := range tRest {
		if ti == nil {
			ti, err = bn.RandomScalar(bn.RandReader)
			if err != nil {
				return bn.GT{}, nil, nil, err
			}
		}
		blinds[i] = ti
		term := bn.GTExp(&cp.Vxyi[i], ti)
		t = bn.GTMul(&t, &term)
	}
	return t, tM0, blinds, nil
}

// ConsistencyRespond computes the Schnorr responses z = t + chal*x for
// the witnesses (m0, rest), given the blinds ConsistencyCommit produced
// or was handed.
func ConsistencyRespond(chal, m0 *bn.Scalar, rest []*bn.Scalar, tM0 *bn.Scalar, tRest []*bn.Scalar) (*bn.Scalar, []*bn.Scalar) {
	zM0 := new(bn.Scalar).Mul(chal, m0)
	zM0.Add(zM0, tM0)

	zRest := make([]*bn.Scalar, len(rest))
	for i, mi := range rest {
		z := new(bn.Scalar).Mul(chal, mi)
		z.Add(z, tRest[i])
		zRest[i] = z
	}
	return zM0, zRest
}

// VerifyConsistency checks a consistency proof (t, zM0, zRest) against
// sig under pk and chal. It recomputes sig's GT bases and its target
// vs = e(g1, sig.C) itself rather than trusting any prover-supplied
// value for either, unlike original_source/src/clproto.rs's
// part1_verify_proof_vs, which takes the target on faith from the
// prover and so cannot actually bind a proof to one specific signature.
func VerifyConsistency(pk PublicKey, sig Signature, chal *bn.Scalar, t bn.GT, zM0 *bn.Scalar, zRest []*bn.Scalar) error {
	cp, err := GenCommonParams(pk, sig)
	if err != nil {
		return err
	}
	if len(zRest) != len(cp.Vxyi) {
		return ErrMessageCount
	}

	g1 := bn.G1Generator()
	vs, err := bn.Pair(&g1, &sig.C)
	if err != nil {
		return err
	}

	lhs := bn.GTExp(&cp.Vx, chal)
	vxyZ := bn.GTExp(&cp.Vxy, zM0)
	lhs = bn.GTMul(&lhs, &vxyZ)
	for i, z := range zRest {
		term := bn.GTExp(&cp.Vxyi[i], z)
		lhs = bn.GTMul(&lhs, &term)
	}

	rhs := bn.GTExp(&vs, chal)
	rhs = bn.GTMul(&rhs, &t)

	if !bn.GTEqual(&lhs, &rhs) {
		return ErrInvalidSignature
	}
	return nil
}

// Verify checks a plain signature against a known message vector. The
// pairing identity is e(g1,c) == e(X,a) * e(X,b)^{m0} * prod_i
// e(X,B_i)^{m_i}, derived from c = a^x * b^{x*(m0 + sum z_i*m_i)} by
// distributing the exponent across e(X,b) and noting B_i = b^{z_i}.
func Verify(pk PublicKey, sig Signature, m0 *bn.Scalar, rest []*bn.Scalar) error {
	if len(rest) != len(sig.Bi) {
		return ErrMessageCount
	}
	if err := VerifyBlind(pk, sig); err != nil {
		return err
	}

	g1 := bn.G1Generator()
	lhsC, err := bn.Pair(&g1, &sig.C)
	if err != nil {
		return err
	}

	xa, err := bn.Pair(&pk.X, &sig.A)
	if err != nil {
		return err
	}

	xb, err := bn.Pair(&pk.X, &sig.B)
	if err != nil {
		return err
	}

	rhs := new(bn.GT).Exp(xb, toBigInt(m0))
	rhs.Mul(rhs, &xa)

	for i, mi := range rest {
		xbi, err := bn.Pair(&pk.X, &sig.Bi[i])
		if err != nil {
			return err
		}
		term := new(bn.GT).Exp(xbi, toBigInt(mi))
		rhs.Mul(rhs, term)
	}

	if !bn.GTEqual(&lhsC, rhs) {
		return ErrInvalidSignature
	}
	return nil
}

func toBigInt(s *bn.Scalar) *big.Int {
	bi := new(big.Int)
	s.BigInt(bi)
	return bi
}
