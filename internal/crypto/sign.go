package crypto

import (
	"github.com/cloudflare/circl/sign/ed25519"
)

// SignatureSize is the length of every record signature.
const SignatureSize = ed25519.SignatureSize

// Sign signs the serialized record bytes and returns the 64-byte signature.
// Every signed record type in the room state funnels through here.
func Sign(priv ed25519.PrivateKey, record []byte) ([]byte, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, ErrSigningFailed.WithDetails("private key must be 64 bytes")
	}
	return ed25519.Sign(priv, record), nil
}

// Verify reports whether sig is a valid signature over the serialized record
// bytes under pub. Malformed keys or signatures verify as false, never as an
// error; callers treat an unverifiable record as absent.
func Verify(pub ed25519.PublicKey, record, sig []byte) bool {
	if len(pub) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(pub, record, sig)
}
