package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/freenet/river-sub001/internal/room"
	"github.com/freenet/river-sub001/internal/storage"
)

type initOptions struct {
	*rootOptions
	Description string
	CascadeBans bool
}

func newInitCommand(root *rootOptions) *cobra.Command {
	opts := &initOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "init <name>",
		Short: "Create a room owned by the selected identity",
		Long: `Create a room whose invite chains root at the selected identity. Rooms
are identified by their parameters, so one identity owns at most one room
per flag combination; create a fresh identity for each room you own.

The printed share string is what others need to join.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Description, "description", "", "room description")
	cmd.Flags().BoolVar(&opts.CascadeBans, "cascade-bans", false, "extend bans to the banned member's whole invite subtree")

	return cmd
}

func runInit(cmd *cobra.Command, opts *initOptions, name string) error {
	kr, err := loadKeyring(opts.rootOptions)
	if err != nil {
		return err
	}
	store, err := openStore(opts.cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	params := &room.Parameters{Owner: kr.Pub, CascadeBans: opts.CascadeBans}
	paramBytes, err := params.Encode()
	if err != nil {
		return err
	}
	roomID, err := params.RoomID()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if _, err := store.LoadRoom(ctx, roomID.String()); err == nil {
		return fmt.Errorf("identity %q already owns this room; rooms are identified by their owner key", kr.Name)
	} else if !errors.Is(err, storage.ErrRoomNotFound) {
		return err
	}

	st := room.NewState()
	cfg := room.DefaultConfiguration(params)
	cfg.Version = 1
	cfg.Name = name
	cfg.Description = opts.Description
	ac, err := room.NewAuthorizedConfiguration(cfg, kr.Priv)
	if err != nil {
		return err
	}
	if err := st.ApplyDelta(params, &room.Delta{Configuration: ac}); err != nil {
		return err
	}
	if st.Configuration.ConfigVersion() != cfg.Version {
		return fmt.Errorf("room configuration rejected; is the name or description too long?")
	}

	stateBytes, err := st.Encode()
	if err != nil {
		return err
	}
	if err := store.SaveRoom(ctx, roomID.String(), name, paramBytes, stateBytes); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Room:  %s\n", roomID)
	fmt.Fprintf(out, "Owner: %s\n", kr.ID)
	fmt.Fprintf(out, "Share string (send to people you want to join):\n%s\n", encodeShareable(paramBytes))
	return nil
}
