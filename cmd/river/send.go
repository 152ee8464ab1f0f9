package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/freenet/river-sub001/internal/room"
)

func newSendCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "send <room> <text>...",
		Short:         "Post a message to the room",
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd, root, args[0], strings.Join(args[1:], " "))
		},
	}
}

func runSend(cmd *cobra.Command, root *rootOptions, roomKey, text string) error {
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

	msg := room.Message{
		Owner:   params.OwnerID(),
		Author:  kr.ID,
		Time:    time.Now().UnixMicro(),
		Content: text,
	}
	am, err := room.NewAuthorizedMessage(msg, kr.Priv)
	if err != nil {
		return err
	}
	delta := &room.Delta{Messages: []room.AuthorizedMessage{*am}}
	if err := st.ApplyDelta(params, delta); err != nil {
		return err
	}
	if !messageStored(st, am.ID()) {
		cfg := st.Configuration.Config(params)
		return fmt.Errorf("message rejected: you must be an unbanned member and the content must stay within %d bytes", cfg.MaxMessageSize)
	}
	if err := saveRoom(ctx, store, row, params, st); err != nil {
		return err
	}
	if err := archiveMessages(store, row.ID, st); err != nil {
		return err
	}

	deltaBytes, err := delta.Encode()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Delta (send to the other members):\n%s\n", encodeShareable(deltaBytes))
	return nil
}
