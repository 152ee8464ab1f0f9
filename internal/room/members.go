package room

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/cloudflare/circl/sign/ed25519"

	"github.com/freenet/river-sub001/internal/composable"
	"github.com/freenet/river-sub001/internal/crypto"
)

// Member is a single membership grant. The invited key joins the room under
// the authority of the inviter, forming one edge of the invite tree rooted at
// the room owner.
type Member struct {
	Owner     crypto.MemberID   `cbor:"owner"`
	InvitedBy crypto.MemberID   `cbor:"invited_by"`
	MemberKey ed25519.PublicKey `cbor:"member_key"`
}

// ID returns the member id derived from the member's public key.
func (m *Member) ID() crypto.MemberID {
	return crypto.NewMemberID(m.MemberKey)
}

// AuthorizedMember wraps a membership grant with the inviter's signature.
type AuthorizedMember struct {
	Member    Member `cbor:"member"`
	Signature []byte `cbor:"signature"`
}

// NewAuthorizedMember signs a membership grant with the inviter's private
// key.
func NewAuthorizedMember(m Member, inviterPriv ed25519.PrivateKey) (*AuthorizedMember, error) {
	b, err := marshalRecord(&m)
	if err != nil {
		return nil, err
	}
	sig, err := crypto.Sign(inviterPriv, b)
	if err != nil {
		return nil, err
	}
	return &AuthorizedMember{Member: m, Signature: sig}, nil
}

// MembersState holds every stored membership record. Banned members stay in
// this list so that bans issued through them remain checkable; authority is
// resolved separately through State.EffectiveMembers.
type MembersState []AuthorizedMember

// Lookup returns the stored record whose derived id matches id.
func (ms MembersState) Lookup(id crypto.MemberID) (*AuthorizedMember, bool) {
	for i := range ms {
		if ms[i].Member.ID() == id {
			return &ms[i], true
		}
	}
	return nil, false
}

// signerKey resolves the verification key for an id: the room owner's key or
// a stored member's key.
func (ms MembersState) signerKey(id crypto.MemberID, params *Parameters) (ed25519.PublicKey, bool) {
	if id == params.OwnerID() {
		return params.Owner, true
	}
	if am, ok := ms.Lookup(id); ok {
		return am.Member.MemberKey, true
	}
	return nil, false
}

// InviteChain walks from id toward the room owner and returns the inviter
// ids along the way, nearest inviter first and the owner last. It fails on
// unknown members, dangling inviters, and cycles.
func (ms MembersState) InviteChain(id crypto.MemberID, params *Parameters) ([]crypto.MemberID, error) {
	ownerID := params.OwnerID()
	seen := map[crypto.MemberID]bool{id: true}
	var chain []crypto.MemberID
	cur := id
	for {
		rec, ok := ms.Lookup(cur)
		if !ok {
			return nil, ErrBadMember.WithDetails("invite chain references unknown member " + cur.String())
		}
		next := rec.Member.InvitedBy
		if next == ownerID {
			return append(chain, next), nil
		}
		if seen[next] {
			return nil, ErrBadMember.WithDetails("invite chain cycle at " + next.String())
		}
		seen[next] = true
		chain = append(chain, next)
		cur = next
	}
}

// inviteDepth is the distance from the owner: direct invitees are depth 1.
func (ms MembersState) inviteDepth(id crypto.MemberID, params *Parameters) (int, error) {
	chain, err := ms.InviteChain(id, params)
	if err != nil {
		return 0, err
	}
	return len(chain), nil
}

// checkMember validates one stored record against the full stored set: the
// record must belong to this room, carry a verifying inviter signature, and
// sit on an unbroken invite chain ending at the owner.
func (ms MembersState) checkMember(am *AuthorizedMember, params *Parameters) error {
	m := &am.Member
	ownerID := params.OwnerID()
	if m.Owner != ownerID {
		return ErrBadMember.WithDetails("record owner id does not match the room owner")
	}
	if len(m.MemberKey) != ed25519.PublicKeySize {
		return ErrBadMember.WithDetails("member public key must be 32 bytes")
	}
	id := m.ID()
	if id == ownerID {
		return ErrBadMember.WithDetails("the room owner cannot hold a member record")
	}
	inviterKey, ok := ms.signerKey(m.InvitedBy, params)
	if !ok {
		return ErrBadMember.WithDetails("inviter " + m.InvitedBy.String() + " is not a recognized member")
	}
	b, err := marshalRecord(m)
	if err != nil {
		return err
	}
	if !crypto.Verify(inviterKey, b, am.Signature) {
		return ErrBadMember.WithDetails("signature does not verify under the inviter key")
	}
	if _, err := ms.InviteChain(id, params); err != nil {
		return err
	}
	return nil
}

// canonicalize sorts records by member id and drops duplicates, keeping the
// record with the smaller content hash when two records share an id.
// canonicalize sorts by member id and keeps one record per id. Ties keep
// the record with the smaller content hash so every replica settles on the
// same survivor, whether the duplicate came from a repeated invite or from
// two keys truncating to the same id.
func (ms MembersState) canonicalize() MembersState {
	if len(ms) == 0 {
		return nil
	}
	sorted := append(MembersState{}, ms...)
	sort.SliceStable(sorted, func(i, j int) bool {
		idi, idj := sorted[i].Member.ID(), sorted[j].Member.ID()
		if c := idi.Compare(idj); c != 0 {
			return c < 0
		}
		ri, rj := recordID(&sorted[i]), recordID(&sorted[j])
		return ri.Compare(rj) < 0
	})
	out := sorted[:0]
	for i := range sorted {
		if i > 0 && sorted[i].Member.ID() == sorted[i-1].Member.ID() {
			continue
		}
		out = append(out, sorted[i])
	}
	return out
}

// prune removes records that fail validation, repeating until stable since
// dropping one record can break the chains of others.
func (ms MembersState) prune(params *Parameters) MembersState {
	cur := ms
	for {
		kept := make(MembersState, 0, len(cur))
		for i := range cur {
			if err := cur.checkMember(&cur[i], params); err != nil {
				log.Debugf("dropping member %s: %v", cur[i].Member.ID(), err)
				continue
			}
			kept = append(kept, cur[i])
		}
		if len(kept) == len(cur) {
			return kept
		}
		cur = kept
	}
}

// bound trims the set to maxMembers, keeping the shallowest invite depths
// and breaking depth ties by member id. Inviters are always at least one
// level shallower than their invitees, so the kept prefix never orphans a
// surviving record.
func (ms MembersState) bound(params *Parameters, maxMembers int) MembersState {
	if len(ms) <= maxMembers {
		return ms
	}
	type ranked struct {
		depth int
		rec   AuthorizedMember
	}
	rank := make([]ranked, 0, len(ms))
	for i := range ms {
		depth, err := ms.inviteDepth(ms[i].Member.ID(), params)
		if err != nil {
			continue
		}
		rank = append(rank, ranked{depth: depth, rec: ms[i]})
	}
	sort.SliceStable(rank, func(i, j int) bool {
		if rank[i].depth != rank[j].depth {
			return rank[i].depth < rank[j].depth
		}
		return rank[i].rec.Member.ID().Compare(rank[j].rec.Member.ID()) < 0
	})
	if len(rank) > maxMembers {
		for _, r := range rank[maxMembers:] {
			log.Debugf("dropping member %s: member limit %d reached", r.rec.Member.ID(), maxMembers)
		}
		rank = rank[:maxMembers]
	}
	kept := make(MembersState, 0, len(rank))
	for _, r := range rank {
		kept = append(kept, r.rec)
	}
	return kept.canonicalize()
}

// revalidate recomputes the valid bounded member set from an arbitrary
// union of records.
func (ms MembersState) revalidate(params *Parameters, cfg Configuration) MembersState {
	return ms.canonicalize().prune(params).bound(params, cfg.MaxMembers)
}

// Verify checks every stored record and the member count bound.
func (ms MembersState) Verify(parent *State, params *Parameters) error {
	cfg := parent.Configuration.Config(params)
	if len(ms) > cfg.MaxMembers {
		return ErrBadMember.WithDetails(fmt.Sprintf("%d members exceeds the limit of %d", len(ms), cfg.MaxMembers))
	}
	seen := make(map[crypto.MemberID]bool, len(ms))
	for i := range ms {
		id := ms[i].Member.ID()
		if seen[id] {
			return ErrBadMember.WithDetails("duplicate member id " + id.String())
		}
		seen[id] = true
		if err := ms.checkMember(&ms[i], params); err != nil {
			return err
		}
	}
	return nil
}

// Summarize lists the ids of all stored members in sorted order.
func (ms MembersState) Summarize(parent *State, params *Parameters) []crypto.MemberID {
	ids := make([]crypto.MemberID, 0, len(ms))
	for i := range ms {
		ids = append(ids, ms[i].Member.ID())
	}
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
	return ids
}

// Delta returns the stored records whose ids the peer summary lacks.
func (ms MembersState) Delta(parent *State, params *Parameters, old []crypto.MemberID) ([]AuthorizedMember, bool) {
	have := make(map[crypto.MemberID]bool, len(old))
	for _, id := range old {
		have[id] = true
	}
	var missing []AuthorizedMember
	for i := range ms {
		if !have[ms[i].Member.ID()] {
			missing = append(missing, ms[i])
		}
	}
	return missing, len(missing) > 0
}

// ApplyDelta merges incoming membership records and re-derives the valid
// bounded set.
func (ms *MembersState) ApplyDelta(parent *State, params *Parameters, delta []AuthorizedMember) error {
	if len(delta) == 0 {
		return nil
	}
	merged := append(append(MembersState{}, *ms...), delta...)
	*ms = merged.revalidate(params, parent.Configuration.Config(params))
	return nil
}

var _ composable.State[*State, *Parameters, []crypto.MemberID, []AuthorizedMember] = (*MembersState)(nil)
