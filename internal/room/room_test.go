package room_test

import (
	"bytes"
	"testing"

	"github.com/cloudflare/circl/sign/ed25519"
	"github.com/stretchr/testify/require"

	"github.com/freenet/river-sub001/internal/crypto"
	"github.com/freenet/river-sub001/internal/room"
)

// baseTime anchors test timestamps, unix microseconds.
const baseTime = int64(1700000000000000)

type identity struct {
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey
	id   crypto.MemberID
}

// newIdentity derives a deterministic identity from a single seed byte so
// tests are reproducible.
func newIdentity(t *testing.T, seed byte) identity {
	t.Helper()
	pub, priv, err := crypto.KeyFromSeed(bytes.Repeat([]byte{seed}, ed25519.SeedSize))
	require.NoError(t, err)
	return identity{pub: pub, priv: priv, id: crypto.NewMemberID(pub)}
}

type fixture struct {
	t      *testing.T
	params *room.Parameters
	owner  identity
	state  *room.State
}

func newFixture(t *testing.T) *fixture {
	return newFixtureCascade(t, false)
}

func newFixtureCascade(t *testing.T, cascade bool) *fixture {
	t.Helper()
	owner := newIdentity(t, 1)
	params := &room.Parameters{Owner: owner.pub, CascadeBans: cascade}
	require.NoError(t, params.Validate())
	return &fixture{t: t, params: params, owner: owner, state: room.NewState()}
}

func (f *fixture) apply(d *room.Delta) {
	f.t.Helper()
	require.NoError(f.t, f.state.ApplyDelta(f.params, d))
}

// inviteRecord signs a membership grant without applying it.
func (f *fixture) inviteRecord(inviter identity, invited identity) *room.AuthorizedMember {
	f.t.Helper()
	am, err := room.NewAuthorizedMember(room.Member{
		Owner:     f.params.OwnerID(),
		InvitedBy: inviter.id,
		MemberKey: invited.pub,
	}, inviter.priv)
	require.NoError(f.t, err)
	return am
}

// invite creates a fresh identity, has inviter sign it in, and applies it.
func (f *fixture) invite(inviter identity, seed byte) identity {
	f.t.Helper()
	invited := newIdentity(f.t, seed)
	am := f.inviteRecord(inviter, invited)
	f.apply(&room.Delta{Members: []room.AuthorizedMember{*am}})
	return invited
}

// messageRecord signs a message without applying it.
func (f *fixture) messageRecord(author identity, at int64, content string) *room.AuthorizedMessage {
	f.t.Helper()
	am, err := room.NewAuthorizedMessage(room.Message{
		Owner:   f.params.OwnerID(),
		Author:  author.id,
		Time:    at,
		Content: content,
	}, author.priv)
	require.NoError(f.t, err)
	return am
}

func (f *fixture) say(author identity, at int64, content string) *room.AuthorizedMessage {
	f.t.Helper()
	am := f.messageRecord(author, at, content)
	f.apply(&room.Delta{Messages: []room.AuthorizedMessage{*am}})
	return am
}

// banRecord signs a ban without applying it.
func (f *fixture) banRecord(banner identity, target crypto.MemberID, at int64) *room.AuthorizedUserBan {
	f.t.Helper()
	ab, err := room.NewAuthorizedUserBan(room.UserBan{
		Owner:      f.params.OwnerID(),
		BannedAt:   at,
		BannedUser: target,
	}, banner.id, banner.priv)
	require.NoError(f.t, err)
	return ab
}

func (f *fixture) ban(banner identity, target crypto.MemberID, at int64) *room.AuthorizedUserBan {
	f.t.Helper()
	ab := f.banRecord(banner, target, at)
	f.apply(&room.Delta{Bans: []room.AuthorizedUserBan{*ab}})
	return ab
}

// configRecord signs a configuration with the given signer, which only
// verifies when the signer is the room owner.
func (f *fixture) configRecord(signer identity, cfg room.Configuration) *room.AuthorizedConfiguration {
	f.t.Helper()
	ac, err := room.NewAuthorizedConfiguration(cfg, signer.priv)
	require.NoError(f.t, err)
	return ac
}

// setConfig applies an owner-signed configuration built from the defaults
// with mutate applied.
func (f *fixture) setConfig(version uint32, mutate func(*room.Configuration)) {
	f.t.Helper()
	cfg := room.DefaultConfiguration(f.params)
	cfg.Version = version
	if mutate != nil {
		mutate(&cfg)
	}
	ac := f.configRecord(f.owner, cfg)
	f.apply(&room.Delta{Configuration: ac})
}

// infoRecord signs a profile without applying it.
func (f *fixture) infoRecord(subject identity, version uint32, nickname string) *room.AuthorizedMemberInfo {
	f.t.Helper()
	ai, err := room.NewAuthorizedMemberInfo(room.MemberInfo{
		Member:   subject.id,
		Version:  version,
		Nickname: nickname,
	}, subject.priv)
	require.NoError(f.t, err)
	return ai
}

func (f *fixture) setNickname(subject identity, version uint32, nickname string) {
	f.t.Helper()
	ai := f.infoRecord(subject, version, nickname)
	f.apply(&room.Delta{MemberInfo: []room.AuthorizedMemberInfo{*ai}})
}

// encode returns the deterministic serialization of the fixture state.
func (f *fixture) encode() []byte {
	f.t.Helper()
	b, err := f.state.Encode()
	require.NoError(f.t, err)
	return b
}

// effective returns the current effective member set.
func (f *fixture) effective() map[crypto.MemberID]bool {
	return f.state.EffectiveMembers(f.params)
}

// clone copies the fixture with an independent state.
func (f *fixture) clone() *fixture {
	f.t.Helper()
	st, err := f.state.Clone()
	require.NoError(f.t, err)
	return &fixture{t: f.t, params: f.params, owner: f.owner, state: st}
}

// syncFrom pulls everything src has that f lacks through the summary and
// delta exchange.
func (f *fixture) syncFrom(src *fixture) {
	f.t.Helper()
	d := src.state.Delta(src.params, f.state.Summarize(f.params))
	if d == nil {
		return
	}
	f.apply(d)
}
