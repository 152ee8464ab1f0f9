package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/freenet/river-sub001/internal/utils"
)

type historyOptions struct {
	*rootOptions
	Since int64
	Limit int
}

func newHistoryCommand(root *rootOptions) *cobra.Command {
	opts := &historyOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "history <room>",
		Short: "Print archived messages, including ones retention has dropped",
		Long: `Print the room's message archive. The replicated state keeps only the
newest messages; everything that ever passed through this client stays in
the local archive.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(root.cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			row, _, st, err := openRoom(ctx, store, args[0])
			if err != nil {
				return err
			}
			msgs, err := store.ArchivedMessages(ctx, row.ID, opts.Since, opts.Limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(msgs) == 0 {
				fmt.Fprintln(out, "No archived messages.")
				return nil
			}
			for i := range msgs {
				m := &msgs[i]
				fmt.Fprintf(out, "%s  %s: %s\n",
					utils.FormatPrettyTime(m.At), st.Nickname(m.AuthorID), m.Content)
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&opts.Since, "since", 0, "only messages at or after this unix microsecond time")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "stop after this many messages (0 = all)")

	return cmd
}
