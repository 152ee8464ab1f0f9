// Package room implements a decentralized chat room as a replicated state
// engine. A room is defined by immutable Parameters and evolves through
// signed records: membership grants chained back to the room owner, bans,
// member profiles, messages, configuration updates, and upgrade
// announcements. Peers reconcile by exchanging summaries and deltas; applying
// a delta merges records, re-validates the composed state, and prunes
// whatever the authorization rules or retention bounds no longer admit, so
// replicas that have seen the same records hold identical state.
package room

import (
	"fmt"

	"github.com/freenet/river-sub001/internal/crypto"
)

// CurrentSchemaVersion identifies the state encoding this package produces.
// Older versions decode with defaults for missing fields; newer versions are
// rejected.
const CurrentSchemaVersion = 1

// State is the full replicated state of one room. Field order matches the
// processing order of the components: configuration governs bounds, members
// establish authority, bans revoke it, and profiles and messages depend on
// the result.
type State struct {
	Version       uint32             `cbor:"version"`
	Configuration ConfigurationState `cbor:"configuration"`
	Members       MembersState       `cbor:"members,omitempty"`
	Bans          BansState          `cbor:"bans,omitempty"`
	MemberInfo    MemberInfoState    `cbor:"member_info,omitempty"`
	Messages      MessagesState      `cbor:"messages,omitempty"`
	Upgrade       UpgradeState       `cbor:"upgrade"`
}

// NewState returns the empty state every room starts from.
func NewState() *State {
	return &State{Version: CurrentSchemaVersion}
}

// Summary digests every component of a state compactly enough to mail to a
// peer: content addresses for record sets, version counters for the scalar
// components.
type Summary struct {
	Configuration uint32              `cbor:"configuration,omitempty"`
	Members       []crypto.MemberID   `cbor:"members,omitempty"`
	Bans          []crypto.RecordID   `cbor:"bans,omitempty"`
	MemberInfo    []MemberInfoVersion `cbor:"member_info,omitempty"`
	Messages      []crypto.RecordID   `cbor:"messages,omitempty"`
	Upgrade       uint32              `cbor:"upgrade,omitempty"`
}

// Delta carries the records one peer holds that another reported missing.
type Delta struct {
	Configuration *AuthorizedConfiguration `cbor:"configuration,omitempty"`
	Members       []AuthorizedMember       `cbor:"members,omitempty"`
	Bans          []AuthorizedUserBan      `cbor:"bans,omitempty"`
	MemberInfo    []AuthorizedMemberInfo   `cbor:"member_info,omitempty"`
	Messages      []AuthorizedMessage      `cbor:"messages,omitempty"`
	Upgrade       *AuthorizedUpgrade       `cbor:"upgrade,omitempty"`
}

// IsEmpty reports whether the delta carries nothing.
func (d *Delta) IsEmpty() bool {
	return d == nil ||
		(d.Configuration == nil && len(d.Members) == 0 && len(d.Bans) == 0 &&
			len(d.MemberInfo) == 0 && len(d.Messages) == 0 && d.Upgrade == nil)
}

// EffectiveMembers returns the ids that currently hold authority: stored,
// chain-valid, not banned, and with CascadeBans set, not sitting under a
// banned inviter. The room owner holds authority implicitly and is never
// listed.
func (s *State) EffectiveMembers(params *Parameters) map[crypto.MemberID]bool {
	banned := s.Bans.bannedSet()
	effective := make(map[crypto.MemberID]bool, len(s.Members))
	for i := range s.Members {
		id := s.Members[i].Member.ID()
		if banned[id] {
			continue
		}
		if params.CascadeBans {
			chain, err := s.Members.InviteChain(id, params)
			if err != nil {
				continue
			}
			hidden := false
			for _, ancestor := range chain {
				if banned[ancestor] {
					hidden = true
					break
				}
			}
			if hidden {
				continue
			}
		}
		effective[id] = true
	}
	return effective
}

// Nickname returns the display name for an id: the published nickname when
// one exists, otherwise the id's short form.
func (s *State) Nickname(id crypto.MemberID) string {
	if ai, ok := s.MemberInfo.Lookup(id); ok && ai.Info.Nickname != "" {
		return ai.Info.Nickname
	}
	return id.Short()
}

// Verify checks the whole state bottom up and returns the first violation.
// A state produced by ApplyDelta always verifies; this is the gate for
// states arriving from outside.
func (s *State) Verify(params *Parameters) error {
	if err := params.Validate(); err != nil {
		return err
	}
	if s.Version > CurrentSchemaVersion {
		return ErrSchemaVersion.WithDetails(fmt.Sprintf("version %d is newer than supported version %d",
			s.Version, CurrentSchemaVersion))
	}
	if err := s.Configuration.Verify(s, params); err != nil {
		return err
	}
	if err := s.Members.Verify(s, params); err != nil {
		return err
	}
	if err := s.Bans.Verify(s, params); err != nil {
		return err
	}
	if err := s.MemberInfo.Verify(s, params); err != nil {
		return err
	}
	if err := s.Messages.Verify(s, params); err != nil {
		return err
	}
	return s.Upgrade.Verify(s, params)
}

// Summarize digests the current state for a peer.
func (s *State) Summarize(params *Parameters) *Summary {
	return &Summary{
		Configuration: s.Configuration.Summarize(s, params),
		Members:       s.Members.Summarize(s, params),
		Bans:          s.Bans.Summarize(s, params),
		MemberInfo:    s.MemberInfo.Summarize(s, params),
		Messages:      s.Messages.Summarize(s, params),
		Upgrade:       s.Upgrade.Summarize(s, params),
	}
}

// Delta returns the records a peer with the given summary lacks, or nil when
// the peer already has everything. A nil summary is treated as empty.
func (s *State) Delta(params *Parameters, old *Summary) *Delta {
	if old == nil {
		old = &Summary{}
	}
	var d Delta
	if cfg, ok := s.Configuration.Delta(s, params, old.Configuration); ok {
		d.Configuration = cfg
	}
	if members, ok := s.Members.Delta(s, params, old.Members); ok {
		d.Members = members
	}
	if bans, ok := s.Bans.Delta(s, params, old.Bans); ok {
		d.Bans = bans
	}
	if info, ok := s.MemberInfo.Delta(s, params, old.MemberInfo); ok {
		d.MemberInfo = info
	}
	if msgs, ok := s.Messages.Delta(s, params, old.Messages); ok {
		d.Messages = msgs
	}
	if up, ok := s.Upgrade.Delta(s, params, old.Upgrade); ok {
		d.Upgrade = up
	}
	if d.IsEmpty() {
		return nil
	}
	return &d
}

// ApplyDelta merges a delta into the state. Component deltas apply in
// processing order, each merging and pruning against the state composed so
// far; a final pass then re-derives every cross-component judgment so the
// result only depends on the records held, not on how they arrived. Records
// that fail authorization are dropped and logged, never fatal; the returned
// error reflects a state that cannot be made consistent at all.
func (s *State) ApplyDelta(params *Parameters, delta *Delta) error {
	if delta.IsEmpty() {
		return nil
	}
	if err := s.Configuration.ApplyDelta(s, params, delta.Configuration); err != nil {
		return err
	}
	if err := s.Members.ApplyDelta(s, params, delta.Members); err != nil {
		return err
	}
	if err := s.Bans.ApplyDelta(s, params, delta.Bans); err != nil {
		return err
	}
	if err := s.MemberInfo.ApplyDelta(s, params, delta.MemberInfo); err != nil {
		return err
	}
	if err := s.Messages.ApplyDelta(s, params, delta.Messages); err != nil {
		return err
	}
	if err := s.Upgrade.ApplyDelta(s, params, delta.Upgrade); err != nil {
		return err
	}
	s.revalidate(params)
	return s.Verify(params)
}

// revalidate re-derives every cross-component judgment on the composed state
// and prunes to the configured bounds, in processing order.
func (s *State) revalidate(params *Parameters) {
	cfg := s.Configuration.Config(params)
	s.Members = s.Members.revalidate(params, cfg)
	s.Bans = s.Bans.revalidate(s, params, cfg)
	s.MemberInfo = s.MemberInfo.revalidate(s, params, cfg)
	s.Messages = s.Messages.revalidate(s, params, cfg)
	s.Version = CurrentSchemaVersion
}

// Encode serializes the state deterministically. Two states holding the same
// records encode to the same bytes.
func (s *State) Encode() ([]byte, error) {
	return marshalRecord(s)
}

// DecodeState parses serialized state. Empty input is the valid genesis
// state; older schema versions are normalized to the current one.
func DecodeState(b []byte) (*State, error) {
	if len(b) == 0 {
		return NewState(), nil
	}
	var s State
	if err := decMode.Unmarshal(b, &s); err != nil {
		return nil, ErrDecodeFailed.WithDetails(err.Error())
	}
	if s.Version == 0 {
		s.Version = CurrentSchemaVersion
	}
	return &s, nil
}

// Clone returns a deep copy of the state.
func (s *State) Clone() (*State, error) {
	b, err := s.Encode()
	if err != nil {
		return nil, err
	}
	return DecodeState(b)
}

// Encode serializes the summary deterministically.
func (sm *Summary) Encode() ([]byte, error) {
	return marshalRecord(sm)
}

// DecodeSummary parses a serialized summary.
func DecodeSummary(b []byte) (*Summary, error) {
	var sm Summary
	if err := decMode.Unmarshal(b, &sm); err != nil {
		return nil, ErrDecodeFailed.WithDetails(err.Error())
	}
	return &sm, nil
}

// Encode serializes the delta deterministically.
func (d *Delta) Encode() ([]byte, error) {
	return marshalRecord(d)
}

// DecodeDelta parses a serialized delta.
func DecodeDelta(b []byte) (*Delta, error) {
	var d Delta
	if err := decMode.Unmarshal(b, &d); err != nil {
		return nil, ErrDecodeFailed.WithDetails(err.Error())
	}
	return &d, nil
}
