package main

import (
	"bufio"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/freenet/river-sub001/internal/crypto"
	"github.com/freenet/river-sub001/internal/keystore"
	"github.com/freenet/river-sub001/internal/room"
	"github.com/freenet/river-sub001/internal/storage"
)

func openStore(cfg Config) (*storage.Store, error) {
	store, err := storage.Open("file:" + filepath.Join(cfg.DataDir, "river.db"))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return store, nil
}

func promptLine(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// resolvePassword finds the identity password: the --password flag, then
// RIVER_PASSWORD, then an interactive prompt.
func resolvePassword(opts *rootOptions, confirm bool) (string, error) {
	if opts.Password != "" {
		return opts.Password, nil
	}
	if pass := os.Getenv("RIVER_PASSWORD"); pass != "" {
		return pass, nil
	}
	pass, err := promptLine("Password: ")
	if err != nil {
		return "", err
	}
	if pass == "" {
		return "", errors.New("empty password")
	}
	if confirm {
		again, err := promptLine("Confirm password: ")
		if err != nil {
			return "", err
		}
		if pass != again {
			return "", errors.New("passwords do not match")
		}
	}
	return pass, nil
}

// loadKeyring unseals the configured identity for signing.
func loadKeyring(opts *rootOptions) (*keystore.Keyring, error) {
	name := opts.cfg.Identity
	if name == "" {
		return nil, errors.New("no identity selected; create one with 'river identity new <name>' and pass --identity or set it in config.yaml")
	}
	path, err := keystore.Path(name, "")
	if err != nil {
		return nil, err
	}
	pass, err := resolvePassword(opts, false)
	if err != nil {
		return nil, err
	}
	kr, err := keystore.Load(path, pass)
	if err != nil {
		return nil, fmt.Errorf("unlock identity %q: %w", name, err)
	}
	return kr, nil
}

// resolveRoom finds a saved room by full id, id prefix, or display name.
func resolveRoom(ctx context.Context, store *storage.Store, key string) (*storage.RoomRow, error) {
	row, err := store.LoadRoom(ctx, key)
	if err == nil {
		return row, nil
	}
	if !errors.Is(err, storage.ErrRoomNotFound) {
		return nil, err
	}
	rows, err := store.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	var match *storage.RoomRow
	for i := range rows {
		if strings.HasPrefix(rows[i].ID, key) || rows[i].Name == key {
			if match != nil && match.ID != rows[i].ID {
				return nil, fmt.Errorf("room %q is ambiguous", key)
			}
			match = &rows[i]
		}
	}
	if match == nil {
		return nil, fmt.Errorf("no room matches %q", key)
	}
	return match, nil
}

// openRoom loads a saved room and decodes its parameters and state.
func openRoom(ctx context.Context, store *storage.Store, key string) (*storage.RoomRow, *room.Parameters, *room.State, error) {
	row, err := resolveRoom(ctx, store, key)
	if err != nil {
		return nil, nil, nil, err
	}
	params, err := room.DecodeParameters(row.Params)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("room %s: %w", row.ID, err)
	}
	st, err := room.DecodeState(row.State)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("room %s: %w", row.ID, err)
	}
	return row, params, st, nil
}

// saveRoom persists a room after a local change. The display name follows
// the room configuration once the owner has published one.
func saveRoom(ctx context.Context, store *storage.Store, row *storage.RoomRow, params *room.Parameters, st *room.State) error {
	stateBytes, err := st.Encode()
	if err != nil {
		return err
	}
	name := st.Configuration.Config(params).Name
	if name == "" {
		name = row.Name
	}
	return store.SaveRoom(ctx, row.ID, name, row.Params, stateBytes)
}

// archiveMessages copies the room's current messages into the long-term
// archive before the retention window can drop them. Messages already
// archived are skipped by time, and exact duplicates are deduplicated by
// record id on insert.
func archiveMessages(store *storage.Store, roomID string, st *room.State) error {
	if len(st.Messages) == 0 {
		return nil
	}
	mgr := storage.NewArchiveManager(len(st.Messages) + 1)
	latest, err := mgr.LatestTime(roomID, store)
	if err != nil {
		return err
	}
	mgr.Start(store)
	defer mgr.Stop()
	for i := range st.Messages {
		am := &st.Messages[i]
		if am.Message.Time < latest {
			continue
		}
		err := mgr.Enqueue(storage.ArchivedMessage{
			RecordID:  am.ID().String(),
			RoomID:    roomID,
			AuthorID:  am.Message.Author,
			At:        am.Message.Time,
			Content:   am.Message.Content,
			Signature: am.Signature,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// resolveMemberID accepts a member id in hex or a nickname visible in the
// room.
func resolveMemberID(st *room.State, arg string) (crypto.MemberID, error) {
	if id, err := crypto.ParseMemberID(arg); err == nil {
		return id, nil
	}
	var match crypto.MemberID
	found := false
	for i := range st.Members {
		id := st.Members[i].Member.ID()
		if st.Nickname(id) != arg {
			continue
		}
		if found && match != id {
			return crypto.MemberID{}, fmt.Errorf("nickname %q is ambiguous", arg)
		}
		match, found = id, true
	}
	if !found {
		return crypto.MemberID{}, fmt.Errorf("no member matches %q", arg)
	}
	return match, nil
}

func encodeShareable(blob []byte) string {
	return base64.StdEncoding.EncodeToString(blob)
}

func decodeShareable(s string) ([]byte, error) {
	blob, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("not valid base64: %w", err)
	}
	return blob, nil
}

func messageStored(st *room.State, id crypto.RecordID) bool {
	for i := range st.Messages {
		if st.Messages[i].ID() == id {
			return true
		}
	}
	return false
}

func banStored(st *room.State, id crypto.RecordID) bool {
	for i := range st.Bans {
		if st.Bans[i].ID() == id {
			return true
		}
	}
	return false
}
