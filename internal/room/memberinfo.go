package room

import (
	"fmt"
	"sort"

	"github.com/cloudflare/circl/sign/ed25519"

	"github.com/freenet/river-sub001/internal/composable"
	"github.com/freenet/river-sub001/internal/crypto"
)

// MemberInfo is a member's self-published profile. Version orders updates
// from the same member; only the member's own key can sign it.
type MemberInfo struct {
	Member   crypto.MemberID `cbor:"member"`
	Version  uint32          `cbor:"version"`
	Nickname string          `cbor:"nickname"`
}

// AuthorizedMemberInfo wraps a profile with the subject's signature.
type AuthorizedMemberInfo struct {
	Info      MemberInfo `cbor:"info"`
	Signature []byte     `cbor:"signature"`
}

// NewAuthorizedMemberInfo signs a profile with the subject's private key.
func NewAuthorizedMemberInfo(info MemberInfo, memberPriv ed25519.PrivateKey) (*AuthorizedMemberInfo, error) {
	b, err := marshalRecord(&info)
	if err != nil {
		return nil, err
	}
	sig, err := crypto.Sign(memberPriv, b)
	if err != nil {
		return nil, err
	}
	return &AuthorizedMemberInfo{Info: info, Signature: sig}, nil
}

// MemberInfoVersion pairs a member id with the profile version held for it.
type MemberInfoVersion struct {
	Member  crypto.MemberID `cbor:"member"`
	Version uint32          `cbor:"version"`
}

// MemberInfoState holds at most one profile per member, sorted by member id.
// The room owner may publish a profile like any member.
type MemberInfoState []AuthorizedMemberInfo

// Lookup returns the stored profile for a member id.
func (mis MemberInfoState) Lookup(id crypto.MemberID) (*AuthorizedMemberInfo, bool) {
	for i := range mis {
		if mis[i].Info.Member == id {
			return &mis[i], true
		}
	}
	return nil, false
}

// checkInfo validates one profile: the subject must be the owner or a stored
// member, the signature must verify under the subject's own key, and the
// nickname must fit the configured bound.
func (s *State) checkInfo(ai *AuthorizedMemberInfo, params *Parameters, cfg Configuration) error {
	key, ok := s.Members.signerKey(ai.Info.Member, params)
	if !ok {
		return ErrBadMemberInfo.WithDetails("subject " + ai.Info.Member.String() + " is not a recognized member")
	}
	b, err := marshalRecord(&ai.Info)
	if err != nil {
		return err
	}
	if !crypto.Verify(key, b, ai.Signature) {
		return ErrBadMemberInfo.WithDetails("signature does not verify under the subject key")
	}
	if len(ai.Info.Nickname) > cfg.MaxNicknameSize {
		return ErrBadMemberInfo.WithDetails(fmt.Sprintf("nickname exceeds %d bytes", cfg.MaxNicknameSize))
	}
	return nil
}

// revalidate recomputes the profile list from an arbitrary union: one record
// per member keeping the highest version (content hash breaks exact version
// ties), invalid records dropped, result sorted by member id.
func (mis MemberInfoState) revalidate(parent *State, params *Parameters, cfg Configuration) MemberInfoState {
	best := make(map[crypto.MemberID]*AuthorizedMemberInfo, len(mis))
	for i := range mis {
		cand := &mis[i]
		cur, ok := best[cand.Info.Member]
		if !ok {
			best[cand.Info.Member] = cand
			continue
		}
		switch {
		case cand.Info.Version > cur.Info.Version:
			best[cand.Info.Member] = cand
		case cand.Info.Version == cur.Info.Version:
			ci, cj := recordID(cand), recordID(cur)
			if ci.Compare(cj) < 0 {
				best[cand.Info.Member] = cand
			}
		}
	}
	kept := make(MemberInfoState, 0, len(best))
	for _, ai := range best {
		if err := parent.checkInfo(ai, params, cfg); err != nil {
			log.Debugf("dropping profile of %s: %v", ai.Info.Member, err)
			continue
		}
		kept = append(kept, *ai)
	}
	if len(kept) == 0 {
		return nil
	}
	sort.Slice(kept, func(i, j int) bool {
		return kept[i].Info.Member.Compare(kept[j].Info.Member) < 0
	})
	return kept
}

// Verify checks uniqueness per member and every stored profile.
func (mis MemberInfoState) Verify(parent *State, params *Parameters) error {
	cfg := parent.Configuration.Config(params)
	seen := make(map[crypto.MemberID]bool, len(mis))
	for i := range mis {
		id := mis[i].Info.Member
		if seen[id] {
			return ErrBadMemberInfo.WithDetails("duplicate profile for member " + id.String())
		}
		seen[id] = true
		if err := parent.checkInfo(&mis[i], params, cfg); err != nil {
			return err
		}
	}
	return nil
}

// Summarize reports the profile version held for each member.
func (mis MemberInfoState) Summarize(parent *State, params *Parameters) []MemberInfoVersion {
	versions := make([]MemberInfoVersion, 0, len(mis))
	for i := range mis {
		versions = append(versions, MemberInfoVersion{
			Member:  mis[i].Info.Member,
			Version: mis[i].Info.Version,
		})
	}
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].Member.Compare(versions[j].Member) < 0
	})
	return versions
}

// Delta returns profiles the peer lacks or holds at an older version.
func (mis MemberInfoState) Delta(parent *State, params *Parameters, old []MemberInfoVersion) ([]AuthorizedMemberInfo, bool) {
	have := make(map[crypto.MemberID]uint32, len(old))
	for _, v := range old {
		have[v.Member] = v.Version
	}
	var missing []AuthorizedMemberInfo
	for i := range mis {
		v, ok := have[mis[i].Info.Member]
		if !ok || mis[i].Info.Version > v {
			missing = append(missing, mis[i])
		}
	}
	return missing, len(missing) > 0
}

// ApplyDelta merges incoming profiles per member, adopting only strictly
// higher versions over existing entries, then prunes anything invalid.
func (mis *MemberInfoState) ApplyDelta(parent *State, params *Parameters, delta []AuthorizedMemberInfo) error {
	if len(delta) == 0 {
		return nil
	}
	merged := append(MemberInfoState{}, *mis...)
	index := make(map[crypto.MemberID]int, len(merged))
	for i := range merged {
		index[merged[i].Info.Member] = i
	}
	for i := range delta {
		id := delta[i].Info.Member
		at, ok := index[id]
		if !ok {
			index[id] = len(merged)
			merged = append(merged, delta[i])
			continue
		}
		if delta[i].Info.Version > merged[at].Info.Version {
			merged[at] = delta[i]
		} else {
			log.Debugf("ignoring profile version %d for %s, have %d",
				delta[i].Info.Version, id, merged[at].Info.Version)
		}
	}
	*mis = merged.revalidate(parent, params, parent.Configuration.Config(params))
	return nil
}

var _ composable.State[*State, *Parameters, []MemberInfoVersion, []AuthorizedMemberInfo] = (*MemberInfoState)(nil)
