// Package revocation implements the append-only ledger of retired
// one-time wallet keys (C7): a map from a truncated hash of a wpk to
// the wpk itself and an optional revocation token ρ, used both as a
// replay guard during Pay and as the evidence Resolve needs to detect
// a customer closing on a stale wallet.
package revocation

import (
	"crypto/sha512"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/go-errors/errors"
)

// FingerprintSize is the default truncated-hash width. Widen to 32 if
// the expected payment count per channel grows large enough that a
// 16-byte birthday bound stops being negligible.
const FingerprintSize = 16

// Fingerprint identifies a one-time wallet key in the ledger.
type Fingerprint [FingerprintSize]byte

// FingerprintOf hashes a serialized wpk down to the ledger's key space.
func FingerprintOf(wpkBytes []byte) Fingerprint {
	sum := sha512.Sum512(wpkBytes)
	var fp Fingerprint
	copy(fp[:], sum[:FingerprintSize])
	return fp
}

var (
	// ErrAlreadyRevoked is returned by Record when ρ has already been
	// recorded for this wpk.
	ErrAlreadyRevoked = errors.New("revocation: token already recorded for this key")

	// ErrUnknownKey is returned by Record when the wpk was never
	// entered into the ledger via Reserve.
	ErrUnknownKey = errors.New("revocation: key was never reserved")

	// ErrBadSignature is returned when a revocation token's EC
	// signature does not verify against the claimed one-time key.
	ErrBadSignature = errors.New("revocation: signature check on token failed")
)

// Entry is one ledger row: the one-time public key and, once the
// customer has surrendered it, the signed revocation token over it.
type Entry struct {
	Wpk   *btcec.PublicKey
	Token []byte // nil until revoked
}

// Ledger is the in-process replay-guard and revocation-evidence map
// for a single channel's lifetime. Mutated only by the channel state
// machine driver, never concurrently, per the synchronous single-peer
// model this module is built for.
type Ledger struct {
	entries map[Fingerprint]*Entry
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{entries: make(map[Fingerprint]*Entry)}
}

// Contains reports whether wpk has already been seen on this channel,
// the check pay_merchant_phase1 uses to reject a replayed one-time key.
func (l *Ledger) Contains(wpk *btcec.PublicKey) bool {
	_, ok := l.entries[FingerprintOf(wpk.SerializeCompressed())]
	return ok
}

// Reserve records wpk with no revocation token yet, the bookkeeping
// pay_merchant_phase1 performs before it issues a refund token but
// before the customer has surrendered ρ. Reserving a key that is
// already in the ledger leaves its entry, and any token, unchanged.
func (l *Ledger) Reserve(wpk *btcec.PublicKey) {
	fp := FingerprintOf(wpk.SerializeCompressed())
	if _, ok := l.entries[fp]; ok {
		return
	}
	l.entries[fp] = &Entry{Wpk: wpk}
}

// Record attaches a revocation token to a previously reserved wpk,
// after checking the token is a valid EC signature over the canonical
// "revoked"||wpk message under wpk itself (the one-time secret key
// proves possession by signing its own retirement).
func (l *Ledger) Record(wpk *btcec.PublicKey, token []byte) error {
	fp := FingerprintOf(wpk.SerializeCompressed())
	entry, ok := l.entries[fp]
	if !ok {
		return ErrUnknownKey
	}
	if entry.Token != nil {
		return ErrAlreadyRevoked
	}

	sig, err := ecdsa.ParseDERSignature(token)
	if err != nil {
		return errors.WrapPrefix(ErrBadSignature, err.Error(), 0)
	}
	digest := RevocationDigest(wpk)
	if !sig.Verify(digest, wpk) {
		return ErrBadSignature
	}

	entry.Token = token
	return nil
}

// Revoked reports whether wpk carries a recorded revocation token, the
// check Resolve uses to decide whether the merchant wins the dispute.
func (l *Ledger) Revoked(wpk *btcec.PublicKey) bool {
	entry, ok := l.entries[FingerprintOf(wpk.SerializeCompressed())]
	return ok && entry.Token != nil
}

// Snapshot returns every entry in the ledger, for a caller that wants
// to persist it (see package store).
func (l *Ledger) Snapshot() []Entry {
	out := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, *e)
	}
	return out
}

// Restore rebuilds a ledger from entries previously returned by
// Snapshot, the counterpart a caller uses after loading rows back out
// of package store.
func Restore(entries []Entry) *Ledger {
	l := New()
	for i := range entries {
		e := entries[i]
		fp := FingerprintOf(e.Wpk.SerializeCompressed())
		l.entries[fp] = &e
	}
	return l
}

// RevocationDigest is the canonical message signed by wsk to revoke
// wpk: sha512("revoked" || wpk), truncated here to its first 32 bytes,
// the digest size ECDSA over secp256k1 signs.
func RevocationDigest(wpk *btcec.PublicKey) []byte {
	h := sha512.New()
	h.Write([]byte("revoked"))
	h.Write(wpk.SerializeCompressed())
	sum := h.Sum(nil)
	return sum[:32]
}

// Sign produces a revocation token ρ = sign_wsk("revoked" || wpk).
func Sign(wsk *btcec.PrivateKey) []byte {
	digest := RevocationDigest(wsk.PubKey())
	sig := ecdsa.Sign(wsk, digest)
	return sig.Serialize()
}
