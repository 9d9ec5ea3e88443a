// Package crypto models the protocol's notion of an "Identity": an opaque,
// globally-unique principal backed by a secp256k1 keypair. It mirrors the
// shape of a typical chain SDK's crypto package (PrivateKey/PublicKey with
// Sign/Verify) so the rest of the repository can treat identities as
// comparable, hashable values without caring how they're produced.
package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// PrivateKey wraps a secp256k1 private key.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// GeneratePrivateKey creates a new random identity keypair.
func GeneratePrivateKey() PrivateKey {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		// secp256k1.GeneratePrivateKey only fails if the system CSPRNG is
		// broken; there is nothing a caller can usefully do about that.
		panic(err)
	}
	return PrivateKey{key: key}
}

// PublicKey returns the public half of the keypair.
func (p PrivateKey) PublicKey() PublicKey {
	return PublicKey(p.key.PubKey().SerializeCompressed())
}

// Sign produces a signature over data's sha256 digest.
func (p PrivateKey) Sign(data []byte) (Signature, error) {
	if p.key == nil {
		return Signature{}, errors.New("crypto: signing with zero-value private key")
	}
	digest := sha256.Sum256(data)
	sig := ecdsa.Sign(p.key, digest[:])
	return Signature{sig: sig}, nil
}

// PublicKey is a serialized, compressed secp256k1 public key: the opaque
// principal identity used throughout the protocol. It is a named byte
// slice so it remains directly comparable via its canonical String() form
// without ever being compared as a raw slice.
type PublicKey []byte

// String renders the public key as lowercase hex, the canonical form used
// for map keys and audit logs.
func (p PublicKey) String() string {
	return hex.EncodeToString(p)
}

// Equal reports whether two public keys identify the same principal.
func (p PublicKey) Equal(other PublicKey) bool {
	return p.String() == other.String()
}

func publicKeyFromBytes(b []byte) (*secp256k1.PublicKey, error) {
	return secp256k1.ParsePubKey(b)
}

// IdentityFromBytes derives a stable, opaque principal for a component
// that is not backed by a signing keypair (e.g. a DAO or Factory acting as
// the "caller" of a peer component). It is still compared and hashed
// exactly like any other PublicKey, via its canonical String() form.
func IdentityFromBytes(seed []byte) PublicKey {
	digest := sha256.Sum256(seed)
	return PublicKey(digest[:])
}

// PublicKeyFromHex decodes a hex-encoded compressed public key, as
// recovered from a signed HTTP request.
func PublicKeyFromHex(s string) (PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.New("crypto: invalid public key hex encoding")
	}
	if _, err := publicKeyFromBytes(b); err != nil {
		return nil, errors.New("crypto: invalid public key")
	}
	return PublicKey(b), nil
}

// Signature is a detached secp256k1/ECDSA signature.
type Signature struct {
	sig *ecdsa.Signature
}

// Verify reports whether sig is a valid signature by pub over data.
func (s Signature) Verify(pub PublicKey, data []byte) bool {
	if s.sig == nil {
		return false
	}
	key, err := publicKeyFromBytes(pub)
	if err != nil {
		return false
	}
	digest := sha256.Sum256(data)
	return s.sig.Verify(digest[:], key)
}

// String renders sig as DER-encoded, lowercase hex — the wire form carried
// in the X-Signature request header.
func (s Signature) String() string {
	if s.sig == nil {
		return ""
	}
	return hex.EncodeToString(s.sig.Serialize())
}

// SignatureFromHex decodes a hex-encoded DER signature, as recovered from a
// signed HTTP request's X-Signature header.
func SignatureFromHex(s string) (Signature, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Signature{}, errors.New("crypto: invalid signature hex encoding")
	}
	sig, err := ecdsa.ParseDERSignature(b)
	if err != nil {
		return Signature{}, errors.New("crypto: invalid signature encoding")
	}
	return Signature{sig: sig}, nil
}
