// Package wire implements the canonical, length-prefixed byte encodings
// (C8) that persisted objects in this module are built from. The
// Fiat-Shamir transcripts in packages channel, nizk and rangeproof do not
// go through this package; they concatenate the points' own fixed-size
// Bytes() encodings. The style mirrors lnwire's readElements/
// writeElements convention: each type that needs to cross a byte
// boundary gets an Encode/Decode pair operating on io.Writer/io.Reader.
package wire

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/boltlabs-coin/boltchan/bn"
	"github.com/boltlabs-coin/boltchan/clsign"
	"github.com/boltlabs-coin/boltchan/nizk"
	"github.com/go-errors/errors"
)

// Version is the wire format tag stamped on every persisted object.
// Decode rejects any tag it does not recognize outright, per spec: an
// unknown version is a hard error, never a best-effort parse.
const Version uint8 = 1

var (
	// ErrUnknownVersion is returned by Decode functions when the
	// leading version byte does not match a known encoding.
	ErrUnknownVersion = errors.New("wire: unknown version tag")

	// ErrTruncated is returned when a reader runs out of bytes mid
	// element.
	ErrTruncated = errors.New("wire: truncated input")
)

// WriteVersion stamps the current version tag.
func WriteVersion(w io.Writer) error {
	_, err := w.Write([]byte{Version})
	return err
}

// ReadVersion consumes and checks the version tag.
func ReadVersion(r io.Reader) error {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return ErrTruncated
	}
	if buf[0] != Version {
		return ErrUnknownVersion
	}
	return nil
}

// WriteScalar writes a field element as 32 big-endian bytes.
func WriteScalar(w io.Writer, s *bn.Scalar) error {
	b := s.Bytes()
	_, err := w.Write(b[:])
	return err
}

// ReadScalar reads a field element back.
func ReadScalar(r io.Reader) (*bn.Scalar, error) {
	var buf [32]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, ErrTruncated
	}
	var s bn.Scalar
	s.SetBytes(buf[:])
	return &s, nil
}

// WriteG1 writes a compressed G1 point prefixed by its length.
func WriteG1(w io.Writer, p *bn.G1) error {
	b := p.Bytes()
	return writeLenPrefixed(w, b[:])
}

// ReadG1 reads a compressed G1 point back.
func ReadG1(r io.Reader) (*bn.G1, error) {
	b, err := readLenPrefixed(r)
	if err != nil {
		return nil, err
	}
	var p bn.G1
	if _, err := p.SetBytes(b); err != nil {
		return nil, errors.WrapPrefix(err, "wire: decode G1", 0)
	}
	return &p, nil
}

// WriteG2 writes a compressed G2 point prefixed by its length.
func WriteG2(w io.Writer, p *bn.G2) error {
	b := p.Bytes()
	return writeLenPrefixed(w, b[:])
}

// ReadG2 reads a compressed G2 point back.
func ReadG2(r io.Reader) (*bn.G2, error) {
	b, err := readLenPrefixed(r)
	if err != nil {
		return nil, err
	}
	var p bn.G2
	if _, err := p.SetBytes(b); err != nil {
		return nil, errors.WrapPrefix(err, "wire: decode G2", 0)
	}
	return &p, nil
}

// WriteBytes writes an arbitrary byte slice, length-prefixed.
func WriteBytes(w io.Writer, b []byte) error {
	return writeLenPrefixed(w, b)
}

// ReadBytes reads a length-prefixed byte slice back.
func ReadBytes(r io.Reader) ([]byte, error) {
	return readLenPrefixed(r)
}

func writeLenPrefixed(w io.Writer, b []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readLenPrefixed(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, ErrTruncated
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, ErrTruncated
	}
	return buf, nil
}

// WriteSignature encodes a CL signature's five group elements.
func WriteSignature(w io.Writer, sig *clsign.Signature) error {
	if err := WriteG2(w, &sig.A); err != nil {
		return err
	}
	if err := WriteG2(w, &sig.B); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(sig.Ai))); err != nil {
		return err
	}
	for i := range sig.Ai {
		if err := WriteG2(w, &sig.Ai[i]); err != nil {
			return err
		}
		if err := WriteG2(w, &sig.Bi[i]); err != nil {
			return err
		}
	}
	return WriteG2(w, &sig.C)
}

// ReadSignature decodes a CL signature previously written by
// WriteSignature.
func ReadSignature(r io.Reader) (clsign.Signature, error) {
	var sig clsign.Signature
	a, err := ReadG2(r)
	if err != nil {
		return sig, err
	}
	b, err := ReadG2(r)
	if err != nil {
		return sig, err
	}
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return sig, ErrTruncated
	}
	ai := make([]bn.G2, n)
	bi := make([]bn.G2, n)
	for i := uint32(0); i < n; i++ {
		p, err := ReadG2(r)
		if err != nil {
			return sig, err
		}
		ai[i] = *p
		q, err := ReadG2(r)
		if err != nil {
			return sig, err
		}
		bi[i] = *q
	}
	c, err := ReadG2(r)
	if err != nil {
		return sig, err
	}
	sig.A, sig.B, sig.Ai, sig.Bi, sig.C = *a, *b, ai, bi, *c
	return sig, nil
}

// EncodeWalletAndSig marshals the state a customer needs to resume a
// channel after a restart: the wallet's four message slots, its
// commitment randomizer, and the merchant's signature over it.
func EncodeWalletAndSig(w nizk.Wallet, r *bn.Scalar, sig clsign.Signature) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteVersion(&buf); err != nil {
		return nil, err
	}
	for _, s := range []*bn.Scalar{w.Pkc, w.Wpk, w.Bc, w.Bm, r} {
		if err := WriteScalar(&buf, s); err != nil {
			return nil, err
		}
	}
	if err := WriteSignature(&buf, &sig); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeWalletAndSig reverses EncodeWalletAndSig.
func DecodeWalletAndSig(data []byte) (nizk.Wallet, *bn.Scalar, clsign.Signature, error) {
	r := bytes.NewReader(data)
	if err := ReadVersion(r); err != nil {
		return nizk.Wallet{}, nil, clsign.Signature{}, err
	}
	scalars := make([]*bn.Scalar, 5)
	for i := range scalars {
		s, err := ReadScalar(r)
		if err != nil {
			return nizk.Wallet{}, nil, clsign.Signature{}, err
		}
		scalars[i] = s
	}
	sig, err := ReadSignature(r)
	if err != nil {
		return nizk.Wallet{}, nil, clsign.Signature{}, err
	}
	w := nizk.Wallet{Pkc: scalars[0], Wpk: scalars[1], Bc: scalars[2], Bm: scalars[3]}
	return w, scalars[4], sig, nil
}

// DomainTag hashes an ASCII domain-separation label ("refund",
// "revoked", "close") to Fr via the same routine every other
// Fiat-Shamir transcript element goes through, so a tag can be folded
// into a message vector alongside real scalars.
func DomainTag(label string) *bn.Scalar {
	return bn.HashToScalar([]byte(label))
}
