package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/freenet/river-sub001/internal/room"
	"github.com/freenet/river-sub001/internal/storage"
)

type joinOptions struct {
	*rootOptions
	Name string
}

func newJoinCommand(root *rootOptions) *cobra.Command {
	opts := &joinOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "join <share-string>",
		Short: "Track a room from its share string",
		Long: `Track a room starting from empty state. Joining alone grants nothing:
to post you still need a member of the room to invite your public key.
Catch up on the room's records by exchanging a summary for a delta with
any member.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJoin(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "local display name until the room configuration arrives")

	return cmd
}

func runJoin(cmd *cobra.Command, opts *joinOptions, share string) error {
	paramBytes, err := decodeShareable(share)
	if err != nil {
		return err
	}
	params, err := room.DecodeParameters(paramBytes)
	if err != nil {
		return fmt.Errorf("bad share string: %w", err)
	}
	roomID, err := params.RoomID()
	if err != nil {
		return err
	}

	store, err := openStore(opts.cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	if _, err := store.LoadRoom(ctx, roomID.String()); err == nil {
		return fmt.Errorf("already tracking room %s", roomID.Short())
	} else if !errors.Is(err, storage.ErrRoomNotFound) {
		return err
	}

	name := opts.Name
	if name == "" {
		name = roomID.Short()
	}
	stateBytes, err := room.NewState().Encode()
	if err != nil {
		return err
	}
	if err := store.SaveRoom(ctx, roomID.String(), name, paramBytes, stateBytes); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Room:  %s\n", roomID)
	fmt.Fprintf(out, "Owner: %s\n", params.OwnerID())
	fmt.Fprintf(out, "Run 'river summary %s' and trade it with a member for a delta.\n", roomID.Short())
	return nil
}
