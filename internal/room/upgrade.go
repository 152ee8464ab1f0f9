package room

import (
	"github.com/cloudflare/circl/sign/ed25519"

	"github.com/freenet/river-sub001/internal/composable"
	"github.com/freenet/river-sub001/internal/crypto"
)

// UpgradeAddressSize is the length of a successor room address.
const UpgradeAddressSize = 32

// Upgrade announces migration to a successor room. Only the room owner can
// issue one; higher versions supersede lower ones.
type Upgrade struct {
	Owner      crypto.MemberID `cbor:"owner"`
	Version    uint32          `cbor:"version"`
	NewAddress []byte          `cbor:"new_address"`
}

// AuthorizedUpgrade wraps an upgrade with the owner's signature.
type AuthorizedUpgrade struct {
	Upgrade   Upgrade `cbor:"upgrade"`
	Signature []byte  `cbor:"signature"`
}

// NewAuthorizedUpgrade signs an upgrade with the room owner's private key.
func NewAuthorizedUpgrade(u Upgrade, ownerPriv ed25519.PrivateKey) (*AuthorizedUpgrade, error) {
	b, err := marshalRecord(&u)
	if err != nil {
		return nil, err
	}
	sig, err := crypto.Sign(ownerPriv, b)
	if err != nil {
		return nil, err
	}
	return &AuthorizedUpgrade{Upgrade: u, Signature: sig}, nil
}

func (au *AuthorizedUpgrade) check(params *Parameters) error {
	if au.Upgrade.Owner != params.OwnerID() {
		return ErrBadUpgrade.WithDetails("owner id does not match the room owner")
	}
	if au.Upgrade.Version == 0 {
		return ErrBadUpgrade.WithDetails("upgrade version must be positive")
	}
	if len(au.Upgrade.NewAddress) != UpgradeAddressSize {
		return ErrBadUpgrade.WithDetails("successor address must be 32 bytes")
	}
	b, err := marshalRecord(&au.Upgrade)
	if err != nil {
		return err
	}
	if !crypto.Verify(params.Owner, b, au.Signature) {
		return ErrBadUpgrade.WithDetails("signature does not verify under the room owner key")
	}
	return nil
}

// UpgradeState is the single upgrade slot of a room. A nil Authorized value
// means no migration has been announced.
type UpgradeState struct {
	Authorized *AuthorizedUpgrade `cbor:"authorized,omitempty"`
}

// UpgradeVersion returns the announced upgrade version, zero when none.
func (us *UpgradeState) UpgradeVersion() uint32 {
	if us.Authorized == nil {
		return 0
	}
	return us.Authorized.Upgrade.Version
}

// Verify checks the stored upgrade, if any.
func (us *UpgradeState) Verify(parent *State, params *Parameters) error {
	if us.Authorized == nil {
		return nil
	}
	return us.Authorized.check(params)
}

// Summarize reports the announced upgrade version.
func (us *UpgradeState) Summarize(parent *State, params *Parameters) uint32 {
	return us.UpgradeVersion()
}

// Delta returns the stored upgrade when it is newer than the version a peer
// reported.
func (us *UpgradeState) Delta(parent *State, params *Parameters, old uint32) (*AuthorizedUpgrade, bool) {
	if us.Authorized == nil || us.UpgradeVersion() <= old {
		return nil, false
	}
	return us.Authorized, true
}

// ApplyDelta adopts an incoming upgrade when it is valid and strictly newer.
func (us *UpgradeState) ApplyDelta(parent *State, params *Parameters, delta *AuthorizedUpgrade) error {
	if delta == nil {
		return nil
	}
	if delta.Upgrade.Version <= us.UpgradeVersion() {
		log.Debugf("ignoring upgrade version %d, have %d", delta.Upgrade.Version, us.UpgradeVersion())
		return nil
	}
	if err := delta.check(params); err != nil {
		log.Debugf("dropping upgrade version %d: %v", delta.Upgrade.Version, err)
		return nil
	}
	us.Authorized = delta
	return nil
}

var _ composable.State[*State, *Parameters, uint32, *AuthorizedUpgrade] = (*UpgradeState)(nil)
