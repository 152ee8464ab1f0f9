// Package crypto provides the cryptographic primitives for room state:
// Ed25519 signing identities, record signatures, and the derived fixed-width
// identifiers that records refer to each other by.
package crypto

import (
	"crypto/rand"

	"github.com/cloudflare/circl/sign/ed25519"
)

// GenerateKeypair creates a fresh Ed25519 signing identity.
func GenerateKeypair() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, ErrBadKey.WithDetails(err.Error())
	}
	return pub, priv, nil
}

// KeyFromSeed rebuilds an identity from its 32-byte seed, the form the
// keystore persists.
func KeyFromSeed(seed []byte) (ed25519.PublicKey, ed25519.PrivateKey, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, nil, ErrBadKey.WithDetails("seed must be 32 bytes")
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return priv.Public().(ed25519.PublicKey), priv, nil
}
