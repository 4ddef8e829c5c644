// Package commitment implements the multi-message Pedersen-style
// commitment (MMC) used to bind a wallet's message vector before it is
// blindly signed, and to open that binding again during payment and
// close.
package commitment

import (
	"github.com/boltlabs-coin/boltchan/bn"
	"github.com/go-errors/errors"
)

var (
	// ErrMessageCountMismatch is returned when a message vector does
	// not match the number of bases a Params was set up for.
	ErrMessageCountMismatch = errors.New("commitment: message count does not match params")

	// ErrOpeningFailed is returned when Open is called with randomness
	// or messages that do not reproduce the commitment.
	ErrOpeningFailed = errors.New("commitment: opening does not match commitment")
)

// Params holds the generator, the blinding base, and one message base
// per wallet slot. They are shared public parameters, generated once at
// Setup and reused by every channel.
type Params struct {
	H     bn.G1   // blinding base
	Bases []bn.G1 // one base per message slot
}

// Setup derives n+1 independent G1 bases from fixed domain-separated
// seeds. n is the number of message slots a commitment under these
// params will hold (pkc, wpk, B_c, B_m for package channel's wallets).
func Setup(n int) Params {
	bases := make([]bn.G1, n)
	for i := 0; i < n; i++ {
		bases[i] = bn.G1ScalarBaseMul(bn.HashToScalar([]byte(domainTag("mmc-base", i))))
	}
	h := bn.G1ScalarBaseMul(bn.HashToScalar([]byte(domainTag("mmc-blind", 0))))
	return Params{H: h, Bases: bases}
}

func domainTag(label string, i int) string {
	return label + ":" + string(rune('0'+i))
}

// Commitment is C = h^r * prod_i bases[i]^{messages[i]}.
type Commitment struct {
	Point bn.G1
}

// Commit binds messages under randomness r.
func (p Params) Commit(messages []*bn.Scalar, r *bn.Scalar) (Commitment, error) {
	if len(messages) != len(p.Bases) {
		return Commitment{}, ErrMessageCountMismatch
	}

	acc := bn.G1ScalarMul(&p.H, r)
	for i, m := range messages {
		term := bn.G1ScalarMul(&p.Bases[i], m)
		acc = bn.G1Add(&acc, &term)
	}
	return Commitment{Point: acc}, nil
}

// Open reports whether messages and r reproduce c, the standard
// binding/hiding commitment-opening check.
func (p Params) Open(c Commitment, messages []*bn.Scalar, r *bn.Scalar) (bool, error) {
	recomputed, err := p.Commit(messages, r)
	if err != nil {
		return false, err
	}
	return recomputed.Point.Equal(&c.Point), nil
}

// Randomize returns a commitment to the same messages with its
// randomness shifted by delta: C' = C * h^{delta}, which opens under
// r + delta.
func (p Params) Randomize(c Commitment, delta *bn.Scalar) Commitment {
	blind := bn.G1ScalarMul(&p.H, delta)
	return Commitment{Point: bn.G1Add(&c.Point, &blind)}
}
