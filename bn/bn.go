// Package bn wraps the bn254 pairing-friendly curve (G1, G2, GT, and the
// scalar field Fr) behind a small surface tailored to the blind-signature
// and commitment schemes built on top of it. Every other package in this
// module reaches the curve only through this one, the way lnwallet never
// touches btcec points directly but goes through its own helpers.
package bn

import (
	"crypto/rand"
	"crypto/sha512"
	"io"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/go-errors/errors"
)

// Scalar is an element of Fr, the scalar field of bn254's groups.
type Scalar = fr.Element

// G1 is a point on the curve's G1 subgroup, in affine form.
type G1 = bn254.G1Affine

// G2 is a point on the curve's G2 subgroup, in affine form.
type G2 = bn254.G2Affine

// GT is an element of the target group produced by a pairing.
type GT = bn254.GT

var (
	// ErrDecodeScalar is returned when a byte string does not encode a
	// valid element of Fr.
	ErrDecodeScalar = errors.New("bn: invalid scalar encoding")

	// ErrDecodePoint is returned when a byte string does not decode to
	// a point on the expected subgroup.
	ErrDecodePoint = errors.New("bn: invalid point encoding")
)

// RandomScalar draws a uniformly random element of Fr from r.
func RandomScalar(r io.Reader) (*Scalar, error) {
	// 48 bytes reduced modulo Fr keep the bias of the reduction
	// negligible.
	var buf [48]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, errors.WrapPrefix(err, "bn: sample scalar", 0)
	}
	var s Scalar
	s.SetBytes(buf[:])
	return &s, nil
}

// ScalarFromInt builds a scalar from a small signed integer, used for
// balances and deltas before they are embedded into a wallet vector.
func ScalarFromInt(v int64) *Scalar {
	var s Scalar
	if v >= 0 {
		s.SetUint64(uint64(v))
		return &s
	}
	s.SetUint64(uint64(-v))
	s.Neg(&s)
	return &s
}

// ScalarFromBigInt reduces a big.Int modulo Fr.
func ScalarFromBigInt(v *big.Int) *Scalar {
	var s Scalar
	s.SetBigInt(v)
	return &s
}

// G1Generator returns bn254's canonical G1 base point.
func G1Generator() G1 {
	_, _, g1, _ := bn254.Generators()
	return g1
}

// G2Generator returns bn254's canonical G2 base point.
func G2Generator() G2 {
	_, _, _, g2 := bn254.Generators()
	return g2
}

// G1ScalarBaseMul computes g1^s for the canonical generator.
func G1ScalarBaseMul(s *Scalar) G1 {
	g := G1Generator()
	var out G1
	bi := new(big.Int)
	s.BigInt(bi)
	out.ScalarMultiplication(&g, bi)
	return out
}

// G1ScalarMul computes p^s.
func G1ScalarMul(p *G1, s *Scalar) G1 {
	var out G1
	bi := new(big.Int)
	s.BigInt(bi)
	out.ScalarMultiplication(p, bi)
	return out
}

// G2ScalarMul computes p^s.
func G2ScalarMul(p *G2, s *Scalar) G2 {
	var out G2
	bi := new(big.Int)
	s.BigInt(bi)
	out.ScalarMultiplication(p, bi)
	return out
}

// G1Add returns a*b.
func G1Add(a, b *G1) G1 {
	var aj, bj bn254.G1Jac
	aj.FromAffine(a)
	bj.FromAffine(b)
	aj.AddAssign(&bj)
	var out G1
	out.FromJacobian(&aj)
	return out
}

// G2Add returns a*b.
func G2Add(a, b *G2) G2 {
	var aj, bj bn254.G2Jac
	aj.FromAffine(a)
	bj.FromAffine(b)
	aj.AddAssign(&bj)
	var out G2
	out.FromJacobian(&aj)
	return out
}

// G1Neg returns the inverse of p under the group's addition.
func G1Neg(p *G1) G1 {
	var out G1
	out.Neg(p)
	return out
}

// G1MultiScalarMul computes the product prod_i base_i^{scalar_i} by
// summing the individual scalar multiplications.
func G1MultiScalarMul(bases []G1, scalars []*Scalar) (G1, error) {
	if len(bases) != len(scalars) {
		return G1{}, errors.New("bn: base/scalar length mismatch")
	}
	var acc bn254.G1Jac
	acc.FromAffine(&G1{}) // identity
	for i := range bases {
		term := G1ScalarMul(&bases[i], scalars[i])
		var tj bn254.G1Jac
		tj.FromAffine(&term)
		acc.AddAssign(&tj)
	}
	var out G1
	out.FromJacobian(&acc)
	return out, nil
}

// Pair computes e(a, b).
func Pair(a *G1, b *G2) (GT, error) {
	res, err := bn254.Pair([]bn254.G1Affine{*a}, []bn254.G2Affine{*b})
	if err != nil {
		return GT{}, errors.WrapPrefix(err, "bn: pairing", 0)
	}
	return res, nil
}

// MultiPair computes the product prod_i e(a_i, b_i). The verification
// equations in this module pair one point at a time through Pair.
func MultiPair(a []G1, b []G2) (GT, error) {
	if len(a) != len(b) {
		return GT{}, errors.New("bn: pairing slice length mismatch")
	}
	res, err := bn254.Pair(a, b)
	if err != nil {
		return GT{}, errors.WrapPrefix(err, "bn: multi-pairing", 0)
	}
	return res, nil
}

// GTEqual reports whether two target-group elements are equal.
func GTEqual(a, b *GT) bool {
	return a.Equal(b)
}

// GTMul returns a*b in the target group.
func GTMul(a, b *GT) GT {
	var out GT
	out.Mul(a, b)
	return out
}

// GTExp returns a^s.
func GTExp(a *GT, s *Scalar) GT {
	var out GT
	bi := new(big.Int)
	s.BigInt(bi)
	out.Exp(*a, bi)
	return out
}

// GTBytes returns the canonical serialization of a target-group element,
// for folding it into a Fiat-Shamir transcript alongside G1/G2 points.
func GTBytes(a *GT) []byte {
	b := a.Bytes()
	return b[:]
}

// HashToScalar derives a Fiat-Shamir challenge scalar from an arbitrary
// transcript, reducing its SHA-512 digest modulo Fr.
func HashToScalar(transcript []byte) *Scalar {
	digest := sha512.Sum512(transcript)
	var s Scalar
	s.SetBytes(digest[:])
	return &s
}

// RandReader is the default entropy source used across this module's
// randomized algorithms; exists as a single seam tests can swap.
var RandReader io.Reader = rand.Reader
