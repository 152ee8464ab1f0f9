package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/freenet/river-sub001/internal/room"
)

func newNickCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "nick <room> <nickname>",
		Short:         "Publish a nickname for yourself in the room",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNick(cmd, root, args[0], args[1])
		},
	}
}

func runNick(cmd *cobra.Command, root *rootOptions, roomKey, nickname string) error {
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

	version := uint32(1)
	if cur, ok := st.MemberInfo.Lookup(kr.ID); ok {
		version = cur.Info.Version + 1
	}
	info := room.MemberInfo{Member: kr.ID, Version: version, Nickname: nickname}
	ai, err := room.NewAuthorizedMemberInfo(info, kr.Priv)
	if err != nil {
		return err
	}
	delta := &room.Delta{MemberInfo: []room.AuthorizedMemberInfo{*ai}}
	if err := st.ApplyDelta(params, delta); err != nil {
		return err
	}
	cur, ok := st.MemberInfo.Lookup(kr.ID)
	if !ok || cur.Info.Version != version {
		cfg := st.Configuration.Config(params)
		return fmt.Errorf("nickname rejected: you must hold a member record and the nickname must stay within %d bytes", cfg.MaxNicknameSize)
	}
	if err := saveRoom(ctx, store, row, params, st); err != nil {
		return err
	}

	deltaBytes, err := delta.Encode()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Nickname is now %q (version %d).\n", nickname, version)
	fmt.Fprintf(out, "Delta (send to the other members):\n%s\n", encodeShareable(deltaBytes))
	return nil
}
