package channel

import (
	"github.com/boltlabs-coin/boltchan/clsign"
	"github.com/boltlabs-coin/boltchan/revocation"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Phase enumerates the states of the channel state machine described
// in spec.md section 4.6.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseOpening
	PhaseEstablished
	PhasePayAwaitRT
	PhasePayHaveRT
	PhasePayAwaitSig
	PhaseCustClosed
	PhaseMerchRefuted
	PhaseSettled
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseOpening:
		return "opening"
	case PhaseEstablished:
		return "established"
	case PhasePayAwaitRT:
		return "pay_await_rt"
	case PhasePayHaveRT:
		return "pay_have_rt"
	case PhasePayAwaitSig:
		return "pay_await_sig"
	case PhaseCustClosed:
		return "cust_closed"
	case PhaseMerchRefuted:
		return "merch_refuted"
	case PhaseSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// State is S: the per-channel transcript the state-machine driver
// mutates. It never touches cryptographic material directly; it only
// tracks which keys have been retired and which phase the channel is
// in, per section 5's single-threaded synchronous model.
type State struct {
	Name       string
	CID        [32]byte
	ThirdParty bool
	TxFee      int64

	Phase Phase

	// Keys is the revocation ledger (C7): every one-time key seen on
	// this channel, and whether it has been revoked.
	Keys *revocation.Ledger
}

// NewChannel implements channel_new(name, third_party) -> S.
func NewChannel(name string, thirdParty bool) *State {
	return &State{
		Name:       name,
		ThirdParty: thirdParty,
		Phase:      PhaseInit,
		Keys:       revocation.New(),
	}
}

// CIDFromMerchantKey derives the channel id as a hash of the
// merchant's public key, per the data model's "CID: a hash of pkM".
func CIDFromMerchantKey(pk clsign.PublicKey) [32]byte {
	xb := pk.X.Bytes()
	yb := pk.Y.Bytes()
	return chainhash.HashH(append(xb[:], yb[:]...))
}

func (s *State) requirePhase(p Phase) error {
	if s.Phase != p {
		return ErrWrongState
	}
	return nil
}
