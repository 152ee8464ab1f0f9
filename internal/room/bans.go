package room

import (
	"fmt"
	"sort"

	"github.com/cloudflare/circl/sign/ed25519"

	"github.com/freenet/river-sub001/internal/composable"
	"github.com/freenet/river-sub001/internal/crypto"
)

// UserBan revokes a member's authority. BannedAt is unix microseconds and
// orders bans for retention; it carries no authorization weight.
type UserBan struct {
	Owner      crypto.MemberID `cbor:"owner"`
	BannedAt   int64           `cbor:"banned_at"`
	BannedUser crypto.MemberID `cbor:"banned_user"`
}

// AuthorizedUserBan wraps a ban with the banner's id and signature. The
// signature covers only the serialized ban; the banner is bound to it by the
// key the signature verifies under.
type AuthorizedUserBan struct {
	Ban       UserBan         `cbor:"ban"`
	BannedBy  crypto.MemberID `cbor:"banned_by"`
	Signature []byte          `cbor:"signature"`
}

// NewAuthorizedUserBan signs a ban with the banner's private key.
func NewAuthorizedUserBan(ban UserBan, bannedBy crypto.MemberID, bannerPriv ed25519.PrivateKey) (*AuthorizedUserBan, error) {
	b, err := marshalRecord(&ban)
	if err != nil {
		return nil, err
	}
	sig, err := crypto.Sign(bannerPriv, b)
	if err != nil {
		return nil, err
	}
	return &AuthorizedUserBan{Ban: ban, BannedBy: bannedBy, Signature: sig}, nil
}

// ID returns the ban's content address.
func (ab *AuthorizedUserBan) ID() crypto.RecordID {
	return recordID(ab)
}

// BansState holds the retained bans, oldest first.
type BansState []AuthorizedUserBan

// bannedSet collects the ids named by the retained bans.
func (bs BansState) bannedSet() map[crypto.MemberID]bool {
	banned := make(map[crypto.MemberID]bool, len(bs))
	for i := range bs {
		banned[bs[i].Ban.BannedUser] = true
	}
	return banned
}

// checkBan validates one ban against the stored member graph. The owner may
// ban anyone; a member may only ban members on whose invite chain they sit.
func (s *State) checkBan(ab *AuthorizedUserBan, params *Parameters) error {
	ownerID := params.OwnerID()
	if ab.Ban.Owner != ownerID {
		return ErrBadBan.WithDetails("record owner id does not match the room owner")
	}
	if ab.Ban.BannedUser == ownerID {
		return ErrBadBan.WithDetails("the room owner cannot be banned")
	}
	key, ok := s.Members.signerKey(ab.BannedBy, params)
	if !ok {
		return ErrBadBan.WithDetails("banner " + ab.BannedBy.String() + " is not a recognized member")
	}
	b, err := marshalRecord(&ab.Ban)
	if err != nil {
		return err
	}
	if !crypto.Verify(key, b, ab.Signature) {
		return ErrBadBan.WithDetails("signature does not verify under the banner key")
	}
	if ab.BannedBy == ownerID {
		return nil
	}
	chain, err := s.Members.InviteChain(ab.Ban.BannedUser, params)
	if err != nil {
		return ErrBadBan.WithDetails("banned member " + ab.Ban.BannedUser.String() + " has no valid invite chain")
	}
	for _, ancestor := range chain {
		if ancestor == ab.BannedBy {
			return nil
		}
	}
	return ErrBadBan.WithDetails("banner " + ab.BannedBy.String() + " is not an invite ancestor of " + ab.Ban.BannedUser.String())
}

// canonicalize sorts bans oldest first with content hash as tie break and
// drops exact duplicates.
func (bs BansState) canonicalize() BansState {
	if len(bs) == 0 {
		return nil
	}
	type keyed struct {
		id  crypto.RecordID
		rec AuthorizedUserBan
	}
	items := make([]keyed, 0, len(bs))
	for i := range bs {
		items = append(items, keyed{id: bs[i].ID(), rec: bs[i]})
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].rec.Ban.BannedAt != items[j].rec.Ban.BannedAt {
			return items[i].rec.Ban.BannedAt < items[j].rec.Ban.BannedAt
		}
		return items[i].id.Compare(items[j].id) < 0
	})
	out := make(BansState, 0, len(items))
	for i := range items {
		if i > 0 && items[i].id == items[i-1].id {
			continue
		}
		out = append(out, items[i].rec)
	}
	return out
}

// revalidate recomputes the retained ban list from an arbitrary union: drop
// bans the member graph no longer supports, then keep only the newest
// maxUserBans entries.
func (bs BansState) revalidate(parent *State, params *Parameters, cfg Configuration) BansState {
	merged := bs.canonicalize()
	kept := make(BansState, 0, len(merged))
	for i := range merged {
		if err := parent.checkBan(&merged[i], params); err != nil {
			log.Debugf("dropping ban of %s: %v", merged[i].Ban.BannedUser, err)
			continue
		}
		kept = append(kept, merged[i])
	}
	if len(kept) > cfg.MaxUserBans {
		for _, ab := range kept[:len(kept)-cfg.MaxUserBans] {
			log.Debugf("dropping ban of %s: ban limit %d reached", ab.Ban.BannedUser, cfg.MaxUserBans)
		}
		kept = kept[len(kept)-cfg.MaxUserBans:]
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

// Verify checks every retained ban, their ordering, and the retention bound.
func (bs BansState) Verify(parent *State, params *Parameters) error {
	cfg := parent.Configuration.Config(params)
	if len(bs) > cfg.MaxUserBans {
		return ErrBadBan.WithDetails(fmt.Sprintf("%d bans exceeds the limit of %d", len(bs), cfg.MaxUserBans))
	}
	for i := range bs {
		if i > 0 && bs[i].Ban.BannedAt < bs[i-1].Ban.BannedAt {
			return ErrBadBan.WithDetails("bans are not in chronological order")
		}
		if err := parent.checkBan(&bs[i], params); err != nil {
			return err
		}
	}
	return nil
}

// Summarize lists the content addresses of all retained bans.
func (bs BansState) Summarize(parent *State, params *Parameters) []crypto.RecordID {
	ids := make([]crypto.RecordID, 0, len(bs))
	for i := range bs {
		ids = append(ids, bs[i].ID())
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Compare(ids[j]) < 0 })
	return ids
}

// Delta returns the retained bans the peer summary lacks.
func (bs BansState) Delta(parent *State, params *Parameters, old []crypto.RecordID) ([]AuthorizedUserBan, bool) {
	have := make(map[crypto.RecordID]bool, len(old))
	for _, id := range old {
		have[id] = true
	}
	var missing []AuthorizedUserBan
	for i := range bs {
		if !have[bs[i].ID()] {
			missing = append(missing, bs[i])
		}
	}
	return missing, len(missing) > 0
}

// ApplyDelta merges incoming bans and re-derives the retained list.
func (bs *BansState) ApplyDelta(parent *State, params *Parameters, delta []AuthorizedUserBan) error {
	if len(delta) == 0 {
		return nil
	}
	merged := append(append(BansState{}, *bs...), delta...)
	*bs = merged.revalidate(parent, params, parent.Configuration.Config(params))
	return nil
}

var _ composable.State[*State, *Parameters, []crypto.RecordID, []AuthorizedUserBan] = (*BansState)(nil)
