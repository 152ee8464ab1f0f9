package room

import (
	"fmt"
	"sort"

	"github.com/cloudflare/circl/sign/ed25519"

	"github.com/freenet/river-sub001/internal/composable"
	"github.com/freenet/river-sub001/internal/crypto"
)

// Message is one chat message. Time is unix microseconds and orders messages
// for retention.
type Message struct {
	Owner   crypto.MemberID `cbor:"owner"`
	Author  crypto.MemberID `cbor:"author"`
	Time    int64           `cbor:"time"`
	Content string          `cbor:"content"`
}

// AuthorizedMessage wraps a message with the author's signature.
type AuthorizedMessage struct {
	Message   Message `cbor:"message"`
	Signature []byte  `cbor:"signature"`
}

// NewAuthorizedMessage signs a message with the author's private key.
func NewAuthorizedMessage(msg Message, authorPriv ed25519.PrivateKey) (*AuthorizedMessage, error) {
	b, err := marshalRecord(&msg)
	if err != nil {
		return nil, err
	}
	sig, err := crypto.Sign(authorPriv, b)
	if err != nil {
		return nil, err
	}
	return &AuthorizedMessage{Message: msg, Signature: sig}, nil
}

// ID returns the message's content address.
func (am *AuthorizedMessage) ID() crypto.RecordID {
	return recordID(am)
}

// MessagesState holds the retained messages, oldest first. Only messages
// from authors holding authority at validation time are retained.
type MessagesState []AuthorizedMessage

// checkMessage validates one message against the current authority picture.
func (s *State) checkMessage(am *AuthorizedMessage, params *Parameters, cfg Configuration, effective map[crypto.MemberID]bool) error {
	ownerID := params.OwnerID()
	if am.Message.Owner != ownerID {
		return ErrBadMessage.WithDetails("record owner id does not match the room owner")
	}
	author := am.Message.Author
	var key ed25519.PublicKey
	if author == ownerID {
		key = params.Owner
	} else {
		if !effective[author] {
			return ErrBadMessage.WithDetails("author " + author.String() + " holds no authority in this room")
		}
		rec, ok := s.Members.Lookup(author)
		if !ok {
			return ErrBadMessage.WithDetails("author " + author.String() + " has no stored member record")
		}
		key = rec.Member.MemberKey
	}
	b, err := marshalRecord(&am.Message)
	if err != nil {
		return err
	}
	if !crypto.Verify(key, b, am.Signature) {
		return ErrBadMessage.WithDetails("signature does not verify under the author key")
	}
	if len(am.Message.Content) > cfg.MaxMessageSize {
		return ErrBadMessage.WithDetails(fmt.Sprintf("content exceeds %d bytes", cfg.MaxMessageSize))
	}
	return nil
}

// canonicalize sorts messages oldest first with content hash as tie break
// and drops exact duplicates.
func (msgs MessagesState) canonicalize() MessagesState {
	if len(msgs) == 0 {
		return nil
	}
	type keyed struct {
		id  crypto.RecordID
		rec AuthorizedMessage
	}
	items := make([]keyed, 0, len(msgs))
	for i := range msgs {
		items = append(items, keyed{id: msgs[i].ID(), rec: msgs[i]})
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].rec.Message.Time != items[j].rec.Message.Time {
			return items[i].rec.Message.Time < items[j].rec.Message.Time
		}
		return items[i].id.Compare(items[j].id) < 0
	})
	out := make(MessagesState, 0, len(items))
	for i := range items {
		if i > 0 && items[i].id == items[i-1].id {
			continue
		}
		out = append(out, items[i].rec)
	}
	return out
}

// revalidate recomputes the retained message list from an arbitrary union:
// drop messages whose authors lost authority, then keep only the newest
// maxRecentMessages entries.
func (msgs MessagesState) revalidate(parent *State, params *Parameters, cfg Configuration) MessagesState {
	merged := msgs.canonicalize()
	effective := parent.EffectiveMembers(params)
	kept := make(MessagesState, 0, len(merged))
	for i := range merged {
		if err := parent.checkMessage(&merged[i], params, cfg, effective); err != nil {
			log.Debugf("dropping message from %s: %v", merged[i].Message.Author, err)
			continue
		}
		kept = append(kept, merged[i])
	}
	if len(kept) > cfg.MaxRecentMessages {
		log.Debugf("dropping %d oldest messages: message limit %d reached",
			len(kept)-cfg.MaxRecentMessages, cfg.MaxRecentMessages)
		kept = kept[len(kept)-cfg.MaxRecentMessages:]
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

// Verify checks retention bounds, chronological order, and every message.
func (msgs MessagesState) Verify(parent *State, params *Parameters) error {
	cfg := parent.Configuration.Config(params)
	if len(msgs) > cfg.MaxRecentMessages {
		return ErrBadMessage.WithDetails(fmt.Sprintf("%d messages exceeds the limit of %d", len(msgs), cfg.MaxRecentMessages))
	}
	effective := parent.EffectiveMembers(params)
	for i := range msgs {
		if i > 0 && msgs[i].Message.Time < msgs[i-1].Message.Time {
			return ErrBadMessage.WithDetails("messages are not in chronological order")
		}
		if err := parent.checkMessage(&msgs[i], params, cfg, effective); err != nil {
			return err
		}
	}
	return nil
}

// Summarize lists the content addresses of all retained messages.
func (msgs MessagesState) Summarize(parent *State, params *Parameters) []crypto.RecordID {
	ids := make([]crypto.RecordID, 0, len(msgs))
	for i := range msgs {
		ids = append(ids, msgs[i].ID())
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Compare(ids[j]) < 0 })
	return ids
}

// Delta returns the retained messages the peer summary lacks.
func (msgs MessagesState) Delta(parent *State, params *Parameters, old []crypto.RecordID) ([]AuthorizedMessage, bool) {
	have := make(map[crypto.RecordID]bool, len(old))
	for _, id := range old {
		have[id] = true
	}
	var missing []AuthorizedMessage
	for i := range msgs {
		if !have[msgs[i].ID()] {
			missing = append(missing, msgs[i])
		}
	}
	return missing, len(missing) > 0
}

// ApplyDelta merges incoming messages and re-derives the retained list.
func (msgs *MessagesState) ApplyDelta(parent *State, params *Parameters, delta []AuthorizedMessage) error {
	if len(delta) == 0 {
		return nil
	}
	merged := append(append(MessagesState{}, *msgs...), delta...)
	*msgs = merged.revalidate(parent, params, parent.Configuration.Config(params))
	return nil
}

var _ composable.State[*State, *Parameters, []crypto.RecordID, []AuthorizedMessage] = (*MessagesState)(nil)
