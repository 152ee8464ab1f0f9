package room_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/freenet/river-sub001/internal/room"
)

func TestOwnerBansMember(t *testing.T) {
	f := newFixture(t)
	alice := f.invite(f.owner, 2)
	f.say(alice, baseTime, "hello")
	require.Len(t, f.state.Messages, 1)

	f.ban(f.owner, alice.id, baseTime+1)

	require.False(t, f.effective()[alice.id])
	require.Empty(t, f.state.Messages, "a banned member's messages must not be retained")

	// The member record stays stored so the ban remains checkable.
	_, found := f.state.Members.Lookup(alice.id)
	require.True(t, found)
	require.Len(t, f.state.Bans, 1)
}

func TestInviterBansInvitee(t *testing.T) {
	f := newFixture(t)
	alice := f.invite(f.owner, 2)
	bob := f.invite(alice, 3)

	f.ban(alice, bob.id, baseTime)

	require.False(t, f.effective()[bob.id])
	require.True(t, f.effective()[alice.id])
}

func TestAncestorBansDescendant(t *testing.T) {
	f := newFixture(t)
	alice := f.invite(f.owner, 2)
	bob := f.invite(alice, 3)
	carol := f.invite(bob, 4)

	f.ban(alice, carol.id, baseTime)

	require.False(t, f.effective()[carol.id])
	require.True(t, f.effective()[bob.id])
}

func TestNonAncestorBanDropped(t *testing.T) {
	f := newFixture(t)
	alice := f.invite(f.owner, 2)
	bob := f.invite(f.owner, 3)
	f.say(bob, baseTime, "still here")

	// Alice and Bob are siblings; Alice has no authority over Bob.
	f.ban(alice, bob.id, baseTime+1)

	require.Empty(t, f.state.Bans)
	require.True(t, f.effective()[bob.id])
	require.Len(t, f.state.Messages, 1)
}

func TestDescendantCannotBanAncestor(t *testing.T) {
	f := newFixture(t)
	alice := f.invite(f.owner, 2)
	bob := f.invite(alice, 3)

	f.ban(bob, alice.id, baseTime)

	require.Empty(t, f.state.Bans)
	require.True(t, f.effective()[alice.id])
}

func TestSelfBanDropped(t *testing.T) {
	f := newFixture(t)
	alice := f.invite(f.owner, 2)

	f.ban(alice, alice.id, baseTime)

	require.Empty(t, f.state.Bans)
	require.True(t, f.effective()[alice.id])
}

func TestOwnerCannotBeBanned(t *testing.T) {
	f := newFixture(t)
	alice := f.invite(f.owner, 2)

	f.ban(alice, f.owner.id, baseTime)
	f.ban(f.owner, f.owner.id, baseTime+1)

	require.Empty(t, f.state.Bans)
}

func TestOwnerBanOfUnknownIDRetained(t *testing.T) {
	f := newFixture(t)
	stranger := newIdentity(t, 9)

	f.ban(f.owner, stranger.id, baseTime)
	require.Len(t, f.state.Bans, 1)

	// The preemptive ban bites the moment the member record shows up.
	am := f.inviteRecord(f.owner, stranger)
	f.apply(&room.Delta{Members: []room.AuthorizedMember{*am}})
	require.False(t, f.effective()[stranger.id])
}

func TestMemberBanOfUnknownIDDropped(t *testing.T) {
	f := newFixture(t)
	alice := f.invite(f.owner, 2)
	stranger := newIdentity(t, 9)

	f.ban(alice, stranger.id, baseTime)
	require.Empty(t, f.state.Bans)
}

func TestBanByBannedMemberStillCountsForStoredRecords(t *testing.T) {
	f := newFixture(t)
	alice := f.invite(f.owner, 2)
	bob := f.invite(alice, 3)

	// Alice bans Bob, then the owner bans Alice. Alice's record stays
	// stored, so her earlier ban of Bob keeps verifying.
	f.ban(alice, bob.id, baseTime)
	f.ban(f.owner, alice.id, baseTime+1)

	require.Len(t, f.state.Bans, 2)
	require.False(t, f.effective()[alice.id])
	require.False(t, f.effective()[bob.id])
}

func TestBanRetentionKeepsNewest(t *testing.T) {
	f := newFixture(t)
	f.setConfig(1, func(c *room.Configuration) { c.MaxUserBans = 2 })

	alice := f.invite(f.owner, 2)
	bob := f.invite(f.owner, 3)
	carol := f.invite(f.owner, 4)

	f.ban(f.owner, alice.id, baseTime)
	f.ban(f.owner, bob.id, baseTime+1)
	f.ban(f.owner, carol.id, baseTime+2)

	require.Len(t, f.state.Bans, 2)
	banned := map[string]bool{}
	for _, ab := range f.state.Bans {
		banned[ab.Ban.BannedUser.String()] = true
	}
	require.False(t, banned[alice.id.String()], "oldest ban should age out")
	require.True(t, banned[bob.id.String()])
	require.True(t, banned[carol.id.String()])

	// With the oldest ban gone, Alice's stored record grants authority
	// again until someone re-issues the ban.
	require.True(t, f.effective()[alice.id])
}

func TestCascadeBansHideSubtree(t *testing.T) {
	plain := newFixtureCascade(t, false)
	cascade := newFixtureCascade(t, true)

	for _, f := range []*fixture{plain, cascade} {
		alice := f.invite(f.owner, 2)
		bob := f.invite(alice, 3)
		f.say(bob, baseTime, "hi from bob")
		f.ban(f.owner, alice.id, baseTime+1)

		require.False(t, f.effective()[alice.id])
		if f.params.CascadeBans {
			require.False(t, f.effective()[bob.id], "cascade must hide the whole subtree")
			require.Empty(t, f.state.Messages)
		} else {
			require.True(t, f.effective()[bob.id], "without cascade the subtree keeps authority")
			require.Len(t, f.state.Messages, 1)
		}
	}
}

func TestBansSortedChronologically(t *testing.T) {
	f := newFixture(t)
	alice := f.invite(f.owner, 2)
	bob := f.invite(f.owner, 3)

	later := f.banRecord(f.owner, bob.id, baseTime+5)
	earlier := f.banRecord(f.owner, alice.id, baseTime)
	f.apply(&room.Delta{Bans: []room.AuthorizedUserBan{*later, *earlier}})

	require.Len(t, f.state.Bans, 2)
	require.Equal(t, alice.id, f.state.Bans[0].Ban.BannedUser)
	require.Equal(t, bob.id, f.state.Bans[1].Ban.BannedUser)
}
