package storage_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/freenet/river-sub001/internal/crypto"
	"github.com/freenet/river-sub001/internal/storage"
)

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "river.db")
	store, err := storage.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

func TestSaveAndLoadRoom(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	params := []byte("params-bytes")
	state := []byte("state-bytes")
	require.NoError(t, store.SaveRoom(ctx, "abc123", "den", params, state))

	row, err := store.LoadRoom(ctx, "abc123")
	require.NoError(t, err)
	require.Equal(t, "den", row.Name)
	require.Equal(t, params, row.Params)
	require.Equal(t, state, row.State)

	// Saving again replaces the state, not the identity.
	require.NoError(t, store.SaveRoom(ctx, "abc123", "den2", params, []byte("newer")))
	row, err = store.LoadRoom(ctx, "abc123")
	require.NoError(t, err)
	require.Equal(t, "den2", row.Name)
	require.Equal(t, []byte("newer"), row.State)

	rooms, err := store.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
}

func TestLoadMissingRoom(t *testing.T) {
	store := openTestStore(t)
	_, err := store.LoadRoom(context.Background(), "nope")
	require.ErrorIs(t, err, storage.ErrRoomNotFound)
}

func TestDeleteRoomRemovesArchive(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRoom(ctx, "r1", "den", []byte("p"), []byte("s")))
	require.NoError(t, store.SaveArchived(ctx, &storage.ArchivedMessage{
		RecordID:  "rec1",
		RoomID:    "r1",
		AuthorID:  crypto.MemberID{1},
		At:        10,
		Content:   "bye",
		Signature: []byte("sig"),
	}))

	require.NoError(t, store.DeleteRoom(ctx, "r1"))
	_, err := store.LoadRoom(ctx, "r1")
	require.ErrorIs(t, err, storage.ErrRoomNotFound)

	msgs, err := store.ArchivedMessages(ctx, "r1", 0, 0)
	require.NoError(t, err)
	require.Empty(t, msgs)
}

func TestArchiveDeduplicatesByRecordID(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	msg := &storage.ArchivedMessage{
		RecordID:  "rec1",
		RoomID:    "r1",
		AuthorID:  crypto.MemberID{1, 2},
		At:        100,
		Content:   "hello",
		Signature: []byte("sig"),
	}
	require.NoError(t, store.SaveArchived(ctx, msg))
	require.NoError(t, store.SaveArchived(ctx, msg))

	msgs, err := store.ArchivedMessages(ctx, "r1", 0, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, crypto.MemberID{1, 2}, msgs[0].AuthorID)
}

func TestArchivedMessagesWindow(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := int64(0); i < 5; i++ {
		require.NoError(t, store.SaveArchived(ctx, &storage.ArchivedMessage{
			RecordID:  string(rune('a' + i)),
			RoomID:    "r1",
			AuthorID:  crypto.MemberID{9},
			At:        100 + i,
			Content:   "m",
			Signature: []byte("sig"),
		}))
	}

	msgs, err := store.ArchivedMessages(ctx, "r1", 102, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.EqualValues(t, 102, msgs[0].At)
	require.EqualValues(t, 103, msgs[1].At)

	at, err := store.LatestArchivedTime(ctx, "r1")
	require.NoError(t, err)
	require.EqualValues(t, 104, at)
}

func TestArchiveManagerFlushes(t *testing.T) {
	store := openTestStore(t)
	mgr := storage.NewArchiveManager(16)
	mgr.Start(store)

	for i := int64(0); i < 3; i++ {
		require.NoError(t, mgr.Enqueue(storage.ArchivedMessage{
			RecordID:  string(rune('x' + i)),
			RoomID:    "r1",
			AuthorID:  crypto.MemberID{7},
			At:        200 + i,
			Content:   "queued",
			Signature: []byte("sig"),
		}))
	}
	mgr.Stop()

	msgs, err := store.ArchivedMessages(context.Background(), "r1", 0, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	at, err := mgr.LatestTime("r1", store)
	require.NoError(t, err)
	require.EqualValues(t, 202, at)
}

func TestArchiveManagerQueueFull(t *testing.T) {
	store := openTestStore(t)
	mgr := storage.NewArchiveManager(1)
	// Not started: the queue only drains when the worker runs.
	require.NoError(t, mgr.Enqueue(storage.ArchivedMessage{RecordID: "a", RoomID: "r1", Signature: []byte("sig")}))
	require.ErrorIs(t, mgr.Enqueue(storage.ArchivedMessage{RecordID: "b", RoomID: "r1", Signature: []byte("sig")}), storage.ErrArchiveQueue)

	mgr.Start(store)
	require.Eventually(t, func() bool {
		msgs, err := store.ArchivedMessages(context.Background(), "r1", 0, 0)
		return err == nil && len(msgs) == 1
	}, 2*time.Second, 10*time.Millisecond)
	mgr.Stop()
}
