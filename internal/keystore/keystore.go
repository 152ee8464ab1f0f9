// Package keystore persists room identities. Each identity is one ed25519
// seed sealed with a password: argon2id stretches the password into the
// cipher key, chacha20poly1305 seals the seed, and a separately derived
// checksum lets a wrong password be reported before decryption.
package keystore

import (
	"crypto/hmac"
	"crypto/rand"
	"encoding/json"
	"os"

	"github.com/cloudflare/circl/sign/ed25519"
	"golang.org/x/crypto/argon2"
	chacha "golang.org/x/crypto/chacha20poly1305"

	"github.com/freenet/river-sub001/internal/crypto"
)

// Identity is the on-disk form of a sealed room identity.
type Identity struct {
	Name          string `json:"name"`
	PasswordSalt  []byte `json:"password_salt"`
	PasswordCheck []byte `json:"password_check"`
	SeedEnc       []byte `json:"seed_enc"` // encrypted w/ password
	MemberID      string `json:"member_id"`
}

// Keyring is an unsealed identity ready for signing.
type Keyring struct {
	Name string
	Pub  ed25519.PublicKey
	Priv ed25519.PrivateKey
	ID   crypto.MemberID
}

func deriveKeys(pass string, salt []byte) (cipherKey, check []byte) {
	cipherKey = argon2.IDKey([]byte(pass), salt, 1, 64*1024, 4, 32)
	check = argon2.IDKey([]byte(pass), salt, 3, 8*1024, 2, 32)
	return cipherKey, check
}

// Generate creates a fresh identity, seals it under pass, and writes it to
// path. It refuses to overwrite an existing file.
func Generate(name, pass, path string) (*Keyring, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, ErrIdentityExists.WithDetails(path)
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	cipherKey, check := deriveKeys(pass, salt)

	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, err
	}
	pub, priv, err := crypto.KeyFromSeed(seed)
	if err != nil {
		return nil, err
	}
	id := crypto.NewMemberID(pub)

	aead, err := chacha.New(cipherKey)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	sealed := aead.Seal(nonce, nonce, seed, nil)

	ident := &Identity{
		Name:          name,
		PasswordSalt:  salt,
		PasswordCheck: check,
		SeedEnc:       sealed,
		MemberID:      id.String(),
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ident); err != nil {
		return nil, err
	}

	return &Keyring{Name: name, Pub: pub, Priv: priv, ID: id}, nil
}

// Load opens the identity at path and unseals it with pass.
func Load(path, pass string) (*Keyring, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrIdentityNotFound.WithDetails(path)
	}
	if err != nil {
		return nil, err
	}

	var ident Identity
	if err := json.Unmarshal(raw, &ident); err != nil {
		return nil, ErrCorruptIdentity.WithDetails(err.Error())
	}

	cipherKey, check := deriveKeys(pass, ident.PasswordSalt)
	if !hmac.Equal(check, ident.PasswordCheck) {
		return nil, ErrInvalidPassword
	}

	aead, err := chacha.New(cipherKey)
	if err != nil {
		return nil, err
	}
	if len(ident.SeedEnc) < aead.NonceSize() {
		return nil, ErrCorruptIdentity.WithDetails("sealed seed too short")
	}
	nonce := ident.SeedEnc[:aead.NonceSize()]
	seed, err := aead.Open(nil, nonce, ident.SeedEnc[aead.NonceSize():], nil)
	if err != nil {
		return nil, ErrCorruptIdentity.WithDetails("seed does not unseal")
	}

	pub, priv, err := crypto.KeyFromSeed(seed)
	if err != nil {
		return nil, err
	}
	return &Keyring{
		Name: ident.Name,
		Pub:  pub,
		Priv: priv,
		ID:   crypto.NewMemberID(pub),
	}, nil
}
