package room_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/freenet/river-sub001/internal/room"
)

func TestDefaultConfiguration(t *testing.T) {
	f := newFixture(t)

	cfg := f.state.Configuration.Config(f.params)
	require.EqualValues(t, 0, cfg.Version)
	require.Equal(t, room.DefaultMaxRecentMessages, cfg.MaxRecentMessages)
	require.Equal(t, room.DefaultMaxUserBans, cfg.MaxUserBans)
	require.Equal(t, room.DefaultMaxMessageSize, cfg.MaxMessageSize)
	require.Equal(t, room.DefaultMaxNicknameSize, cfg.MaxNicknameSize)
	require.Equal(t, room.DefaultMaxMembers, cfg.MaxMembers)
}

func TestOwnerUpdatesConfiguration(t *testing.T) {
	f := newFixture(t)
	f.setConfig(1, func(c *room.Configuration) { c.Name = "den" })

	cfg := f.state.Configuration.Config(f.params)
	require.EqualValues(t, 1, cfg.Version)
	require.Equal(t, "den", cfg.Name)
	require.EqualValues(t, 1, f.state.Summarize(f.params).Configuration)
}

func TestNonOwnerConfigurationDropped(t *testing.T) {
	f := newFixture(t)
	alice := f.invite(f.owner, 2)

	cfg := room.DefaultConfiguration(f.params)
	cfg.Version = 1
	cfg.Name = "hijacked"
	f.apply(&room.Delta{Configuration: f.configRecord(alice, cfg)})

	require.EqualValues(t, 0, f.state.Configuration.ConfigVersion())
}

func TestStaleConfigurationIgnored(t *testing.T) {
	f := newFixture(t)
	f.setConfig(2, func(c *room.Configuration) { c.Name = "two" })
	f.setConfig(1, func(c *room.Configuration) { c.Name = "one" })

	cfg := f.state.Configuration.Config(f.params)
	require.EqualValues(t, 2, cfg.Version)
	require.Equal(t, "two", cfg.Name)
}

// Equal versions with different contents keep whichever arrived first, so
// two replicas can stay split on that version until the owner publishes a
// higher one.
func TestEqualVersionTieKeepsLocalUntilSuperseded(t *testing.T) {
	a := newFixture(t)
	b := a.clone()

	cfgA := room.DefaultConfiguration(a.params)
	cfgA.Version = 1
	cfgA.Name = "alpha"
	recA := a.configRecord(a.owner, cfgA)

	cfgB := cfgA
	cfgB.Name = "beta"
	recB := a.configRecord(a.owner, cfgB)

	a.apply(&room.Delta{Configuration: recA})
	b.apply(&room.Delta{Configuration: recB})
	a.apply(&room.Delta{Configuration: recB})
	b.apply(&room.Delta{Configuration: recA})

	require.Equal(t, "alpha", a.state.Configuration.Config(a.params).Name)
	require.Equal(t, "beta", b.state.Configuration.Config(b.params).Name)
	require.NotEqual(t, a.encode(), b.encode(), "tie handling intentionally leaves replicas split")

	cfgFix := cfgA
	cfgFix.Version = 2
	cfgFix.Name = "settled"
	fix := a.configRecord(a.owner, cfgFix)
	a.apply(&room.Delta{Configuration: fix})
	b.apply(&room.Delta{Configuration: fix})
	require.Equal(t, a.encode(), b.encode())
}

func TestInvalidConfigurationIgnoredOnApply(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		mutate func(*room.Configuration)
	}{
		{"negative limit", func(c *room.Configuration) { c.MaxUserBans = -1 }},
		{"oversized name", func(c *room.Configuration) { c.Name = strings.Repeat("n", 300) }},
		{"wrong owner id", func(c *room.Configuration) { c.Owner = newIdentity(t, 9).id }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := room.DefaultConfiguration(f.params)
			cfg.Version = 1
			tt.mutate(&cfg)
			f.apply(&room.Delta{Configuration: f.configRecord(f.owner, cfg)})
			require.EqualValues(t, 0, f.state.Configuration.ConfigVersion())
		})
	}
}

func TestVerifyRejectsPlantedBadConfiguration(t *testing.T) {
	f := newFixture(t)

	cfg := room.DefaultConfiguration(f.params)
	cfg.Version = 1
	cfg.MaxMessageSize = -5
	f.state.Configuration.Authorized = f.configRecord(f.owner, cfg)

	require.ErrorIs(t, f.state.Verify(f.params), room.ErrBadConfiguration)
}

func TestShrinkingLimitsPrunesExistingState(t *testing.T) {
	f := newFixture(t)
	alice := f.invite(f.owner, 2)
	for i := 0; i < 3; i++ {
		f.say(alice, baseTime+int64(i), "msg")
	}
	require.Len(t, f.state.Messages, 3)

	f.setConfig(1, func(c *room.Configuration) { c.MaxRecentMessages = 1 })

	require.Len(t, f.state.Messages, 1)
	require.Equal(t, baseTime+2, f.state.Messages[0].Message.Time)
}
