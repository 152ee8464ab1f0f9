package main

import (
	"fmt"

	"github.com/cloudflare/circl/sign/ed25519"
	"github.com/spf13/cobra"

	"github.com/freenet/river-sub001/internal/room"
)

func newInviteCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "invite <room> <public-key>",
		Short: "Invite a public key into the room",
		Long: `Sign a membership record for the given public key. The invitee gets
posting rights once the printed delta reaches the other members, and the
invite stays valid only while your own membership does.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInvite(cmd, root, args[0], args[1])
		},
	}
}

func runInvite(cmd *cobra.Command, root *rootOptions, roomKey, pubKey string) error {
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

	pub, err := decodeShareable(pubKey)
	if err != nil {
		return err
	}
	if len(pub) != ed25519.PublicKeySize {
		return fmt.Errorf("public key must be %d bytes, got %d", ed25519.PublicKeySize, len(pub))
	}

	m := room.Member{Owner: params.OwnerID(), InvitedBy: kr.ID, MemberKey: pub}
	am, err := room.NewAuthorizedMember(m, kr.Priv)
	if err != nil {
		return err
	}
	delta := &room.Delta{Members: []room.AuthorizedMember{*am}}
	if err := st.ApplyDelta(params, delta); err != nil {
		return err
	}
	if _, ok := st.Members.Lookup(m.ID()); !ok {
		return fmt.Errorf("invite rejected: only current members can invite, and the room may be at its member limit")
	}
	if err := saveRoom(ctx, store, row, params, st); err != nil {
		return err
	}

	deltaBytes, err := delta.Encode()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Invited %s.\n", m.ID())
	fmt.Fprintf(out, "Delta (send to the invitee and other members):\n%s\n", encodeShareable(deltaBytes))
	return nil
}
