package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/freenet/river-sub001/internal/room"
	"github.com/freenet/river-sub001/internal/utils"
)

func newRoomsCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "rooms",
		Short:         "List tracked rooms",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(root.cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			rows, err := store.ListRooms(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No rooms tracked. Create one with 'river init' or track one with 'river join'.")
				return nil
			}
			for i := range rows {
				row := &rows[i]
				params, perr := room.DecodeParameters(row.Params)
				st, serr := room.DecodeState(row.State)
				if perr != nil || serr != nil {
					fmt.Fprintf(out, "%-16s  %-24s  (undecodable)\n", shortID(row.ID), row.Name)
					continue
				}
				members := len(st.EffectiveMembers(params)) + 1 // the owner posts without a record
				fmt.Fprintf(out, "%-16s  %-24s  %3d members  %4d messages  %s\n",
					shortID(row.ID), row.Name, members, len(st.Messages),
					utils.FormatPrettyTime(row.UpdatedAt))
			}
			return nil
		},
	}
}

func shortID(id string) string {
	return id[:min(16, len(id))]
}
