package main

import (
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/freenet/river-sub001/internal/utils"
)

func newShowCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <room>",
		Short:         "Print a room's configuration, members, and messages",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(root.cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			row, params, st, err := openRoom(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			cfg := st.Configuration.Config(params)
			ownerID := params.OwnerID()

			fmt.Fprintf(out, "Room:         %s\n", row.ID)
			if cfg.Name != "" {
				fmt.Fprintf(out, "Name:         %s\n", cfg.Name)
			}
			if cfg.Description != "" {
				fmt.Fprintf(out, "Description:  %s\n", cfg.Description)
			}
			fmt.Fprintf(out, "Owner:        %s  %s\n", ownerID, st.Nickname(ownerID))
			fmt.Fprintf(out, "Config:       version %d; keeps %d messages, %d members, %d bans\n",
				st.Configuration.ConfigVersion(), cfg.MaxRecentMessages, cfg.MaxMembers, cfg.MaxUserBans)
			if params.CascadeBans {
				fmt.Fprintln(out, "Cascade bans: on")
			}
			if v := st.Upgrade.UpgradeVersion(); v > 0 {
				fmt.Fprintf(out, "Upgrade:      version %d -> %s\n",
					v, base64.StdEncoding.EncodeToString(st.Upgrade.Authorized.Upgrade.NewAddress))
			}

			effective := st.EffectiveMembers(params)
			fmt.Fprintf(out, "\nMembers (%d effective of %d stored):\n", len(effective), len(st.Members))
			for i := range st.Members {
				id := st.Members[i].Member.ID()
				mark := ""
				if !effective[id] {
					mark = "  (banned)"
				}
				fmt.Fprintf(out, "  %s  %s%s\n", id, st.Nickname(id), mark)
			}

			if len(st.Bans) > 0 {
				fmt.Fprintf(out, "\nBans (%d):\n", len(st.Bans))
				for i := range st.Bans {
					b := &st.Bans[i]
					fmt.Fprintf(out, "  %s  %s banned by %s\n",
						utils.FormatPrettyTime(b.Ban.BannedAt),
						st.Nickname(b.Ban.BannedUser), st.Nickname(b.BannedBy))
				}
			}

			fmt.Fprintf(out, "\nMessages (%d):\n", len(st.Messages))
			for i := range st.Messages {
				m := &st.Messages[i]
				fmt.Fprintf(out, "  %s  %s: %s\n",
					utils.FormatPrettyTime(m.Message.Time),
					st.Nickname(m.Message.Author), m.Message.Content)
			}
			return nil
		},
	}
}
