// Package tokenenc encodes a channel token T as a human-readable
// bech32 string, the way zpay32 encodes a BOLT11 invoice: a short
// human-readable prefix, a base32 payload, and a checksum, so a
// channel token can be copy-pasted out of band the way an invoice
// string is.
package tokenenc

import (
	"bytes"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/go-errors/errors"
)

// HRP is the human-readable prefix stamped on every encoded token.
const HRP = "boltc"

var (
	// ErrWrongHRP is returned by Decode when the human-readable prefix
	// does not match HRP.
	ErrWrongHRP = errors.New("tokenenc: wrong human-readable prefix")

	// ErrMalformed is returned by Decode when the payload cannot be
	// parsed into a Token.
	ErrMalformed = errors.New("tokenenc: malformed token payload")
)

// Token is the subset of a channel token that is safe and useful to
// share out of band: the channel id, the current wallet commitment,
// and whether the channel supports third-party payments.
type Token struct {
	CID         [32]byte
	Commitment  []byte
	ThirdParty  bool
}

// Encode renders t as a bech32 string prefixed with HRP. The payload is
// the 32-byte CID, one third-party flag byte, and then the commitment
// bytes, untagged, running to the end of the payload; Decode relies on
// that fixed layout.
func Encode(t Token) (string, error) {
	var buf bytes.Buffer
	buf.Write(t.CID[:])
	if t.ThirdParty {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	buf.Write(t.Commitment)

	base32, err := bech32.ConvertBits(buf.Bytes(), 8, 5, true)
	if err != nil {
		return "", errors.WrapPrefix(err, "tokenenc: convert bits", 0)
	}
	encoded, err := bech32.Encode(HRP, base32)
	if err != nil {
		return "", errors.WrapPrefix(err, "tokenenc: bech32 encode", 0)
	}
	return encoded, nil
}

// Decode parses a bech32 token string produced by Encode.
func Decode(s string) (Token, error) {
	// bech32.Decode caps input at 90 characters, shorter than an
	// encoded token with a full commitment.
	hrp, base32, err := bech32.DecodeNoLimit(s)
	if err != nil {
		return Token{}, errors.WrapPrefix(err, "tokenenc: bech32 decode", 0)
	}
	if hrp != HRP {
		return Token{}, ErrWrongHRP
	}

	raw, err := bech32.ConvertBits(base32, 5, 8, false)
	if err != nil {
		return Token{}, errors.WrapPrefix(err, "tokenenc: convert bits", 0)
	}
	if len(raw) < 33 {
		return Token{}, ErrMalformed
	}

	var tok Token
	copy(tok.CID[:], raw[:32])
	tok.ThirdParty = raw[32] != 0
	tok.Commitment = append([]byte(nil), raw[33:]...)
	return tok, nil
}
