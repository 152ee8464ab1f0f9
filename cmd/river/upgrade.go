package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/freenet/river-sub001/internal/room"
)

func newUpgradeCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "upgrade <room> <address>",
		Short: "Announce a migration address for the room (owner only)",
		Long: `Announce that the room is moving. The address is an opaque 32-byte
value, base64-encoded; replicas keep showing it until a newer announcement
replaces it.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpgrade(cmd, root, args[0], args[1])
		},
	}
}

func runUpgrade(cmd *cobra.Command, root *rootOptions, roomKey, address string) error {
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
	if kr.ID != params.OwnerID() {
		return fmt.Errorf("only the room owner can announce an upgrade")
	}

	addr, err := decodeShareable(address)
	if err != nil {
		return err
	}
	if len(addr) != room.UpgradeAddressSize {
		return fmt.Errorf("upgrade address must be %d bytes, got %d", room.UpgradeAddressSize, len(addr))
	}

	u := room.Upgrade{
		Owner:      params.OwnerID(),
		Version:    st.Upgrade.UpgradeVersion() + 1,
		NewAddress: addr,
	}
	au, err := room.NewAuthorizedUpgrade(u, kr.Priv)
	if err != nil {
		return err
	}
	delta := &room.Delta{Upgrade: au}
	if err := st.ApplyDelta(params, delta); err != nil {
		return err
	}
	if st.Upgrade.UpgradeVersion() != u.Version {
		return fmt.Errorf("upgrade rejected")
	}
	if err := saveRoom(ctx, store, row, params, st); err != nil {
		return err
	}

	deltaBytes, err := delta.Encode()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Upgrade version %d announced.\n", u.Version)
	fmt.Fprintf(out, "Delta (send to the other members):\n%s\n", encodeShareable(deltaBytes))
	return nil
}
