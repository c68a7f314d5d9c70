// Package signing produces and checks detached Ed25519 signatures over
// the canonical form of result records.
//
// Private keys are 64 raw bytes (32-byte seed followed by the 32-byte
// public key). Public keys are 32 raw bytes. Signatures are encoded as
// URL-safe base64 without padding.
package signing

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"

	"codeberg.org/mutker/threadstone/internal/errors"
	"codeberg.org/mutker/threadstone/internal/result"
)

var encoding = base64.RawURLEncoding.Strict()

// Status is the integrity outcome for a record's signature.
type Status int

const (
	// StatusUnsigned means the record carries no signature.
	StatusUnsigned Status = iota
	// StatusValid means the signature verifies over the canonical form.
	StatusValid
	// StatusInvalid covers malformed encodings, wrong key sizes and
	// cryptographic mismatches alike.
	StatusInvalid
	// StatusUnchecked means the record is signed but no key was available
	// to check it.
	StatusUnchecked
)

func (s Status) String() string {
	switch s {
	case StatusUnsigned:
		return "unsigned"
	case StatusValid:
		return "signature valid"
	case StatusInvalid:
		return "signature invalid"
	case StatusUnchecked:
		return "signed, not checked"
	default:
		return "unknown"
	}
}

// Sign returns the signature of msg under a 64-byte seed+public key.
func Sign(msg, key []byte) (string, error) {
	private, err := privateKey(key)
	if err != nil {
		return "", err
	}

	return encoding.EncodeToString(ed25519.Sign(private, msg)), nil
}

// Verify reports whether sig is a valid signature of msg under the raw
// 32-byte public key. It never panics on malformed input.
func Verify(msg []byte, sig string, public []byte) bool {
	if len(public) != ed25519.PublicKeySize {
		return false
	}

	raw, err := encoding.DecodeString(sig)
	if err != nil || len(raw) != ed25519.SignatureSize {
		return false
	}

	return ed25519.Verify(ed25519.PublicKey(public), msg, raw)
}

// SignRecord returns a signed copy of rec. Sampled data is not modified.
func SignRecord(rec result.Record, key []byte) (result.Record, error) {
	msg, err := result.Canonical(rec)
	if err != nil {
		return result.Record{}, err
	}

	sig, err := Sign(msg, key)
	if err != nil {
		return result.Record{}, errors.New().Wrap(errors.ErrSigningFailed, err)
	}

	return rec.WithSignature(sig), nil
}

// VerifyRecord clears the signature, re-serializes the record canonically
// and checks the signature against those bytes.
func VerifyRecord(rec result.Record, public []byte) Status {
	if !rec.Signed() {
		return StatusUnsigned
	}

	msg, err := result.Canonical(rec)
	if err != nil {
		return StatusInvalid
	}

	if Verify(msg, *rec.Sig, public) {
		return StatusValid
	}

	return StatusInvalid
}

// privateKey checks the seed+public layout: the trailing half must be the
// public key derived from the seed.
func privateKey(key []byte) (ed25519.PrivateKey, error) {
	errFactory := errors.New()

	if len(key) != ed25519.PrivateKeySize {
		return nil, errFactory.WithData(errors.ErrInvalidKey, struct {
			Got  int
			Want int
		}{len(key), ed25519.PrivateKeySize})
	}

	private := ed25519.NewKeyFromSeed(key[:ed25519.SeedSize])
	if !bytes.Equal(private[ed25519.SeedSize:], key[ed25519.SeedSize:]) {
		return nil, errFactory.WithMessage(errors.ErrInvalidKey, "public half does not match seed")
	}

	return private, nil
}

// PublicKeyOf returns the public half of a 64-byte private key.
func PublicKeyOf(key []byte) ([]byte, error) {
	private, err := privateKey(key)
	if err != nil {
		return nil, err
	}

	return append([]byte(nil), private.Public().(ed25519.PublicKey)...), nil
}
