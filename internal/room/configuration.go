package room

import (
	"fmt"

	"github.com/cloudflare/circl/sign/ed25519"

	"github.com/freenet/river-sub001/internal/composable"
	"github.com/freenet/river-sub001/internal/crypto"
)

// Limits applied before the owner publishes any signed configuration.
const (
	DefaultMaxRecentMessages = 100
	DefaultMaxUserBans       = 10
	DefaultMaxMessageSize    = 1000
	DefaultMaxNicknameSize   = 50
	DefaultMaxMembers        = 200

	maxRoomNameSize        = 255
	maxRoomDescriptionSize = 1024
)

// Configuration holds the owner-controlled room settings. Replacement is
// last-writer-wins on Version: only a strictly greater version signed by the
// room owner displaces the current one.
type Configuration struct {
	Owner             crypto.MemberID `cbor:"owner"`
	Version           uint32          `cbor:"version"`
	Name              string          `cbor:"name"`
	Description       string          `cbor:"description,omitempty"`
	MaxRecentMessages int             `cbor:"max_recent_messages"`
	MaxUserBans       int             `cbor:"max_user_bans"`
	MaxMessageSize    int             `cbor:"max_message_size"`
	MaxNicknameSize   int             `cbor:"max_nickname_size"`
	MaxMembers        int             `cbor:"max_members"`
}

// DefaultConfiguration returns the implicit version-zero settings every room
// starts from.
func DefaultConfiguration(params *Parameters) Configuration {
	return Configuration{
		Owner:             params.OwnerID(),
		Version:           0,
		MaxRecentMessages: DefaultMaxRecentMessages,
		MaxUserBans:       DefaultMaxUserBans,
		MaxMessageSize:    DefaultMaxMessageSize,
		MaxNicknameSize:   DefaultMaxNicknameSize,
		MaxMembers:        DefaultMaxMembers,
	}
}

func (c *Configuration) validate(params *Parameters) error {
	if c.Owner != params.OwnerID() {
		return ErrBadConfiguration.WithDetails("owner id does not match the room owner")
	}
	if c.Version == 0 {
		return ErrBadConfiguration.WithDetails("signed configuration version must be positive")
	}
	if len(c.Name) > maxRoomNameSize {
		return ErrBadConfiguration.WithDetails(fmt.Sprintf("name exceeds %d bytes", maxRoomNameSize))
	}
	if len(c.Description) > maxRoomDescriptionSize {
		return ErrBadConfiguration.WithDetails(fmt.Sprintf("description exceeds %d bytes", maxRoomDescriptionSize))
	}
	if c.MaxRecentMessages < 0 || c.MaxUserBans < 0 || c.MaxMessageSize < 0 ||
		c.MaxNicknameSize < 0 || c.MaxMembers < 0 {
		return ErrBadConfiguration.WithDetails("limits must not be negative")
	}
	return nil
}

// AuthorizedConfiguration pairs a configuration with the owner's signature
// over its serialized form.
type AuthorizedConfiguration struct {
	Configuration Configuration `cbor:"configuration"`
	Signature     []byte        `cbor:"signature"`
}

// NewAuthorizedConfiguration signs cfg with the room owner's private key.
func NewAuthorizedConfiguration(cfg Configuration, ownerPriv ed25519.PrivateKey) (*AuthorizedConfiguration, error) {
	b, err := marshalRecord(&cfg)
	if err != nil {
		return nil, err
	}
	sig, err := crypto.Sign(ownerPriv, b)
	if err != nil {
		return nil, err
	}
	return &AuthorizedConfiguration{Configuration: cfg, Signature: sig}, nil
}

func (ac *AuthorizedConfiguration) verifySignature(params *Parameters) bool {
	b, err := marshalRecord(&ac.Configuration)
	if err != nil {
		return false
	}
	return crypto.Verify(params.Owner, b, ac.Signature)
}

// ConfigurationState is the configuration component of a room. A nil
// Authorized value means no signed configuration has been accepted yet and
// the defaults are in force.
type ConfigurationState struct {
	Authorized *AuthorizedConfiguration `cbor:"authorized,omitempty"`
}

// Config returns the active settings, falling back to the defaults when no
// signed configuration exists.
func (cs *ConfigurationState) Config(params *Parameters) Configuration {
	if cs.Authorized == nil {
		return DefaultConfiguration(params)
	}
	return cs.Authorized.Configuration
}

// ConfigVersion returns the version of the active configuration, zero at
// genesis.
func (cs *ConfigurationState) ConfigVersion() uint32 {
	if cs.Authorized == nil {
		return 0
	}
	return cs.Authorized.Configuration.Version
}

// Verify checks the stored configuration, if any, against the room owner.
func (cs *ConfigurationState) Verify(parent *State, params *Parameters) error {
	if cs.Authorized == nil {
		return nil
	}
	if err := cs.Authorized.Configuration.validate(params); err != nil {
		return err
	}
	if !cs.Authorized.verifySignature(params) {
		return ErrBadConfiguration.WithDetails("signature does not verify under the room owner key")
	}
	return nil
}

// Summarize reports the active configuration version.
func (cs *ConfigurationState) Summarize(parent *State, params *Parameters) uint32 {
	return cs.ConfigVersion()
}

// Delta returns the stored configuration when it is newer than the version a
// peer reported.
func (cs *ConfigurationState) Delta(parent *State, params *Parameters, old uint32) (*AuthorizedConfiguration, bool) {
	if cs.Authorized == nil || cs.ConfigVersion() <= old {
		return nil, false
	}
	return cs.Authorized, true
}

// ApplyDelta adopts an incoming configuration when it is valid and strictly
// newer than the current one. Anything else is ignored; on an exact version
// tie the local value is kept even if the contents differ, so ties can leave
// peers diverged until the owner publishes a higher version.
func (cs *ConfigurationState) ApplyDelta(parent *State, params *Parameters, delta *AuthorizedConfiguration) error {
	if delta == nil {
		return nil
	}
	incoming := delta.Configuration.Version
	if incoming <= cs.ConfigVersion() {
		log.Debugf("ignoring configuration version %d, have %d", incoming, cs.ConfigVersion())
		return nil
	}
	if err := delta.Configuration.validate(params); err != nil {
		log.Debugf("dropping configuration version %d: %v", incoming, err)
		return nil
	}
	if !delta.verifySignature(params) {
		log.Debugf("dropping configuration version %d: bad owner signature", incoming)
		return nil
	}
	cs.Authorized = delta
	return nil
}

var _ composable.State[*State, *Parameters, uint32, *AuthorizedConfiguration] = (*ConfigurationState)(nil)
