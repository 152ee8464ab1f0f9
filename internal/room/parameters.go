package room

import (
	"github.com/cloudflare/circl/sign/ed25519"

	"github.com/freenet/river-sub001/internal/crypto"
)

// Parameters is the immutable contract data fixed when a room is created.
// Changing any field produces a different room; nothing here is ever merged.
type Parameters struct {
	// Owner is the room creator's public key. Every invite chain and every
	// owner-level action is verified against it.
	Owner ed25519.PublicKey `cbor:"owner"`

	// CascadeBans extends each ban to the banned member's whole invite
	// subtree. With the flag off, members invited by a banned member keep
	// their authority as long as their records remain intact.
	CascadeBans bool `cbor:"cascade_bans,omitempty"`
}

// Validate checks that the parameters describe a usable room.
func (p *Parameters) Validate() error {
	if len(p.Owner) != ed25519.PublicKeySize {
		return ErrBadParameters.WithDetails("owner public key must be 32 bytes")
	}
	return nil
}

// OwnerID returns the owner's derived member id.
func (p *Parameters) OwnerID() crypto.MemberID {
	return crypto.NewMemberID(p.Owner)
}

// Encode serializes the parameters deterministically.
func (p *Parameters) Encode() ([]byte, error) {
	return marshalRecord(p)
}

// DecodeParameters parses serialized room parameters.
func DecodeParameters(b []byte) (*Parameters, error) {
	var p Parameters
	if err := decMode.Unmarshal(b, &p); err != nil {
		return nil, ErrDecodeFailed.WithDetails(err.Error())
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// RoomID derives a stable identifier for the room from its parameters,
// suitable as a local storage key.
func (p *Parameters) RoomID() (crypto.RecordID, error) {
	b, err := p.Encode()
	if err != nil {
		return crypto.RecordID{}, err
	}
	return crypto.HashRecord(b), nil
}
