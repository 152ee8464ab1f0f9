package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/freenet/river-sub001/internal/room"
)

func newBanCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ban <room> <member>",
		Short: "Ban a member by id or nickname",
		Long: `Sign a ban record for a member. The owner can ban anyone, including ids
that have no member record yet; anyone else can only ban members they sit
above on the invite chain. Banned members keep their stored records but
lose posting rights.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBan(cmd, root, args[0], args[1])
		},
	}
}

func runBan(cmd *cobra.Command, root *rootOptions, roomKey, memberKey string) error {
	kr, err := loadKeyring(root)
	if err != nil {
		return err
	}
	store, err := openStore(root.cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	row, params, st, err := openRoom(ctx, store, roomKey)
	if err != nil {
		return err
	}

	target, err := resolveMemberID(st, memberKey)
	if err != nil {
		return err
	}

	ban := room.UserBan{
		Owner:      params.OwnerID(),
		BannedAt:   time.Now().UnixMicro(),
		BannedUser: target,
	}
	ab, err := room.NewAuthorizedUserBan(ban, kr.ID, kr.Priv)
	if err != nil {
		return err
	}
	delta := &room.Delta{Bans: []room.AuthorizedUserBan{*ab}}
	if err := st.ApplyDelta(params, delta); err != nil {
		return err
	}
	if !banStored(st, ab.ID()) {
		return fmt.Errorf("ban rejected: you must be the owner or on %s's invite chain", st.Nickname(target))
	}
	if err := saveRoom(ctx, store, row, params, st); err != nil {
		return err
	}

	deltaBytes, err := delta.Encode()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Banned %s.\n", st.Nickname(target))
	fmt.Fprintf(out, "Delta (send to the other members):\n%s\n", encodeShareable(deltaBytes))
	return nil
}
