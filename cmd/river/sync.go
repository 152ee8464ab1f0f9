package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/freenet/river-sub001/internal/contract"
	"github.com/freenet/river-sub001/internal/room"
)

func newSummaryCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "summary <room>",
		Short: "Print the room summary to trade for a delta",
		Long: `Print a compact digest of every record this replica holds. Hand it to
any member; 'river delta' on their side answers with exactly the records
you are missing.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(root.cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			row, err := resolveRoom(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}
			sumBytes, err := contract.SummarizeState(row.Params, row.State)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Summary (trade with a member for a delta):\n%s\n", encodeShareable(sumBytes))
			return nil
		},
	}
}

func newDeltaCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delta <room> <summary>",
		Short:         "Print the records a peer's summary shows it is missing",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(root.cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			row, err := resolveRoom(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}
			sumBytes, err := decodeShareable(args[1])
			if err != nil {
				return err
			}
			deltaBytes, err := contract.GetStateDelta(row.Params, row.State, sumBytes)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if deltaBytes == nil {
				fmt.Fprintln(out, "The peer already has everything this replica holds.")
				return nil
			}
			fmt.Fprintf(out, "Delta (send back to the peer):\n%s\n", encodeShareable(deltaBytes))
			return nil
		},
	}
}

func newApplyCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "apply <room> <delta>...",
		Short: "Merge deltas received from other members",
		Long: `Merge one or more deltas into the room. Records that fail verification
are dropped individually; a delta that cannot be decoded at all rejects the
whole merge.`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd, root, args[0], args[1:])
		},
	}
}

func runApply(cmd *cobra.Command, root *rootOptions, roomKey string, encoded []string) error {
	store, err := openStore(root.cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	row, err := resolveRoom(ctx, store, roomKey)
	if err != nil {
		return err
	}
	deltas := make([][]byte, 0, len(encoded))
	for _, e := range encoded {
		b, err := decodeShareable(e)
		if err != nil {
			return err
		}
		deltas = append(deltas, b)
	}

	newBytes, err := contract.UpdateState(row.Params, row.State, deltas)
	if err != nil {
		return err
	}

	params, err := room.DecodeParameters(row.Params)
	if err != nil {
		return err
	}
	before, err := room.DecodeState(row.State)
	if err != nil {
		return err
	}
	after, err := room.DecodeState(newBytes)
	if err != nil {
		return err
	}

	name := after.Configuration.Config(params).Name
	if name == "" {
		name = row.Name
	}
	if err := store.SaveRoom(ctx, row.ID, name, row.Params, newBytes); err != nil {
		return err
	}
	if err := archiveMessages(store, row.ID, after); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Applied %d delta(s) to %s.\n", len(deltas), shortID(row.ID))
	printStateDiff(out, before, after)
	return nil
}

func printStateDiff(out io.Writer, before, after *room.State) {
	changed := false
	if v := after.Configuration.ConfigVersion(); v != before.Configuration.ConfigVersion() {
		fmt.Fprintf(out, "  configuration now version %d\n", v)
		changed = true
	}
	if d := len(after.Members) - len(before.Members); d != 0 {
		fmt.Fprintf(out, "  members %+d (now %d)\n", d, len(after.Members))
		changed = true
	}
	if d := len(after.Bans) - len(before.Bans); d != 0 {
		fmt.Fprintf(out, "  bans %+d (now %d)\n", d, len(after.Bans))
		changed = true
	}
	if d := len(after.MemberInfo) - len(before.MemberInfo); d != 0 {
		fmt.Fprintf(out, "  member profiles %+d (now %d)\n", d, len(after.MemberInfo))
		changed = true
	}
	if d := len(after.Messages) - len(before.Messages); d != 0 {
		fmt.Fprintf(out, "  messages %+d (now %d)\n", d, len(after.Messages))
		changed = true
	}
	if v := after.Upgrade.UpgradeVersion(); v != before.Upgrade.UpgradeVersion() {
		fmt.Fprintf(out, "  upgrade announced: version %d\n", v)
		changed = true
	}
	if !changed {
		fmt.Fprintln(out, "  nothing new")
	}
}
