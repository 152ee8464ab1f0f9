package contract_test

import (
	"bytes"
	"testing"

	"github.com/cloudflare/circl/sign/ed25519"
	"github.com/stretchr/testify/require"

	"github.com/freenet/river-sub001/internal/contract"
	"github.com/freenet/river-sub001/internal/crypto"
	"github.com/freenet/river-sub001/internal/room"
)

type testRoom struct {
	params      *room.Parameters
	paramBytes  []byte
	ownerPriv   ed25519.PrivateKey
	ownerPub    ed25519.PublicKey
	memberPriv  ed25519.PrivateKey
	memberPub   ed25519.PublicKey
	memberBytes []byte
}

func newTestRoom(t *testing.T) *testRoom {
	t.Helper()
	ownerPub, ownerPriv, err := crypto.KeyFromSeed(bytes.Repeat([]byte{1}, ed25519.SeedSize))
	require.NoError(t, err)
	memberPub, memberPriv, err := crypto.KeyFromSeed(bytes.Repeat([]byte{2}, ed25519.SeedSize))
	require.NoError(t, err)

	params := &room.Parameters{Owner: ownerPub}
	pb, err := params.Encode()
	require.NoError(t, err)

	am, err := room.NewAuthorizedMember(room.Member{
		Owner:     params.OwnerID(),
		InvitedBy: params.OwnerID(),
		MemberKey: memberPub,
	}, ownerPriv)
	require.NoError(t, err)
	db, err := (&room.Delta{Members: []room.AuthorizedMember{*am}}).Encode()
	require.NoError(t, err)

	return &testRoom{
		params:      params,
		paramBytes:  pb,
		ownerPriv:   ownerPriv,
		ownerPub:    ownerPub,
		memberPriv:  memberPriv,
		memberPub:   memberPub,
		memberBytes: db,
	}
}

func TestValidateEmptyState(t *testing.T) {
	tr := newTestRoom(t)
	require.NoError(t, contract.ValidateState(tr.paramBytes, nil))
	require.NoError(t, contract.ValidateState(tr.paramBytes, []byte{}))
}

func TestValidateRejectsGarbage(t *testing.T) {
	tr := newTestRoom(t)
	require.Error(t, contract.ValidateState(tr.paramBytes, []byte("not cbor")))
	require.Error(t, contract.ValidateState([]byte("junk params"), nil))
}

func TestUpdateStateFromGenesis(t *testing.T) {
	tr := newTestRoom(t)

	stateBytes, err := contract.UpdateState(tr.paramBytes, nil, [][]byte{tr.memberBytes})
	require.NoError(t, err)
	require.NoError(t, contract.ValidateState(tr.paramBytes, stateBytes))

	st, err := room.DecodeState(stateBytes)
	require.NoError(t, err)
	require.Len(t, st.Members, 1)
}

func TestUpdateStateRejectsBrokenDelta(t *testing.T) {
	tr := newTestRoom(t)
	_, err := contract.UpdateState(tr.paramBytes, nil, [][]byte{[]byte("garbage")})
	require.Error(t, err)
}

func TestUpdateStateFoldsInArrivalOrder(t *testing.T) {
	tr := newTestRoom(t)

	msg, err := room.NewAuthorizedMessage(room.Message{
		Owner:   tr.params.OwnerID(),
		Author:  crypto.NewMemberID(tr.memberPub),
		Time:    1700000000000000,
		Content: "through the boundary",
	}, tr.memberPriv)
	require.NoError(t, err)
	msgBytes, err := (&room.Delta{Messages: []room.AuthorizedMessage{*msg}}).Encode()
	require.NoError(t, err)

	stateBytes, err := contract.UpdateState(tr.paramBytes, nil, [][]byte{tr.memberBytes, msgBytes})
	require.NoError(t, err)
	st, err := room.DecodeState(stateBytes)
	require.NoError(t, err)
	require.Len(t, st.Messages, 1)
}

func TestSummarizeAndDeltaRoundTrip(t *testing.T) {
	tr := newTestRoom(t)

	stateBytes, err := contract.UpdateState(tr.paramBytes, nil, [][]byte{tr.memberBytes})
	require.NoError(t, err)

	// A genesis peer summarizes nothing and receives everything.
	emptySummary, err := contract.SummarizeState(tr.paramBytes, nil)
	require.NoError(t, err)
	deltaBytes, err := contract.GetStateDelta(tr.paramBytes, stateBytes, emptySummary)
	require.NoError(t, err)
	require.NotNil(t, deltaBytes)

	synced, err := contract.UpdateState(tr.paramBytes, nil, [][]byte{deltaBytes})
	require.NoError(t, err)
	require.Equal(t, stateBytes, synced, "summary-delta sync must reproduce the state bytes")

	// Once synced, there is nothing left to send.
	syncedSummary, err := contract.SummarizeState(tr.paramBytes, synced)
	require.NoError(t, err)
	again, err := contract.GetStateDelta(tr.paramBytes, stateBytes, syncedSummary)
	require.NoError(t, err)
	require.Nil(t, again)
}
