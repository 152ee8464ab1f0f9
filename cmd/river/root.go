package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootOptions holds the global flags shared by every subcommand. The
// resolved configuration is filled in before any subcommand runs.
type rootOptions struct {
	DataDir  string
	Identity string
	Password string
	LogLevel string
	Debug    bool

	cfg Config
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "river",
		Short: "Decentralized chat rooms over synchronized state",
		Long: `River keeps chat rooms as replicated state that peers reconcile by
exchanging summaries and deltas out of band. Every record is signed, every
merge is re-checked against the room's invite chains and bans, and two peers
that have seen the same records hold byte-identical state.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts.DataDir)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if opts.Identity != "" {
				cfg.Identity = opts.Identity
			}
			if opts.LogLevel != "" {
				cfg.LogLevel = opts.LogLevel
			}
			if opts.Debug {
				cfg.LogLevel = "debug"
			}
			if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
				return fmt.Errorf("create data directory: %w", err)
			}
			if err := initLogRotator(cfg.DataDir); err != nil {
				return err
			}
			if err := setLogLevel(cfg.LogLevel); err != nil {
				return err
			}
			opts.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.DataDir, "data-dir", "", "data directory (default ~/.river)")
	cmd.PersistentFlags().StringVar(&opts.Identity, "identity", "", "identity name to sign with")
	cmd.PersistentFlags().StringVar(&opts.Password, "password", "", "identity password (default $RIVER_PASSWORD or prompt)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level: trace|debug|info|warn|error")
	cmd.PersistentFlags().BoolVar(&opts.Debug, "debug", false, "shorthand for --log-level debug")

	cmd.AddCommand(newIdentityCommand(opts))
	cmd.AddCommand(newInitCommand(opts))
	cmd.AddCommand(newJoinCommand(opts))
	cmd.AddCommand(newRoomsCommand(opts))
	cmd.AddCommand(newShowCommand(opts))
	cmd.AddCommand(newHistoryCommand(opts))
	cmd.AddCommand(newInviteCommand(opts))
	cmd.AddCommand(newSendCommand(opts))
	cmd.AddCommand(newBanCommand(opts))
	cmd.AddCommand(newNickCommand(opts))
	cmd.AddCommand(newSetConfigCommand(opts))
	cmd.AddCommand(newUpgradeCommand(opts))
	cmd.AddCommand(newSummaryCommand(opts))
	cmd.AddCommand(newDeltaCommand(opts))
	cmd.AddCommand(newApplyCommand(opts))

	return cmd
}
