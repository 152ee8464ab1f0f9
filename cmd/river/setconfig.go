package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/freenet/river-sub001/internal/room"
)

type setConfigOptions struct {
	*rootOptions
	Name            string
	Description     string
	MaxMessages     int
	MaxBans         int
	MaxMessageSize  int
	MaxNicknameSize int
	MaxMembers      int
}

func newSetConfigCommand(root *rootOptions) *cobra.Command {
	opts := &setConfigOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "set-config <room>",
		Short: "Publish a new room configuration (owner only)",
		Long: `Publish the next configuration version. Flags left unset keep their
current value. Shrinking a limit prunes existing records on every replica
that adopts the new version.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetConfig(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "room name")
	cmd.Flags().StringVar(&opts.Description, "description", "", "room description")
	cmd.Flags().IntVar(&opts.MaxMessages, "max-messages", 0, "messages kept in the replicated state")
	cmd.Flags().IntVar(&opts.MaxBans, "max-bans", 0, "bans kept in the replicated state")
	cmd.Flags().IntVar(&opts.MaxMessageSize, "max-message-size", 0, "message size limit in bytes")
	cmd.Flags().IntVar(&opts.MaxNicknameSize, "max-nickname-size", 0, "nickname size limit in bytes")
	cmd.Flags().IntVar(&opts.MaxMembers, "max-members", 0, "member records kept in the replicated state")

	return cmd
}

func runSetConfig(cmd *cobra.Command, opts *setConfigOptions, roomKey string) error {
	kr, err := loadKeyring(opts.rootOptions)
	if err != nil {
		return err
	}
	store, err := openStore(opts.cfg)
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
		return fmt.Errorf("only the room owner can change the configuration")
	}

	cfg := st.Configuration.Config(params)
	cfg.Version = st.Configuration.ConfigVersion() + 1
	flags := cmd.Flags()
	if flags.Changed("name") {
		cfg.Name = opts.Name
	}
	if flags.Changed("description") {
		cfg.Description = opts.Description
	}
	if flags.Changed("max-messages") {
		cfg.MaxRecentMessages = opts.MaxMessages
	}
	if flags.Changed("max-bans") {
		cfg.MaxUserBans = opts.MaxBans
	}
	if flags.Changed("max-message-size") {
		cfg.MaxMessageSize = opts.MaxMessageSize
	}
	if flags.Changed("max-nickname-size") {
		cfg.MaxNicknameSize = opts.MaxNicknameSize
	}
	if flags.Changed("max-members") {
		cfg.MaxMembers = opts.MaxMembers
	}

	ac, err := room.NewAuthorizedConfiguration(cfg, kr.Priv)
	if err != nil {
		return err
	}
	delta := &room.Delta{Configuration: ac}
	if err := st.ApplyDelta(params, delta); err != nil {
		return err
	}
	if st.Configuration.ConfigVersion() != cfg.Version {
		return fmt.Errorf("configuration rejected: check the name and description lengths and that no limit is negative")
	}
	if err := saveRoom(ctx, store, row, params, st); err != nil {
		return err
	}

	deltaBytes, err := delta.Encode()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Configuration is now version %d.\n", cfg.Version)
	fmt.Fprintf(out, "Delta (send to the other members):\n%s\n", encodeShareable(deltaBytes))
	return nil
}
