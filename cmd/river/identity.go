package main

import (
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/freenet/river-sub001/internal/keystore"
)

func newIdentityCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Manage signing identities",
	}
	cmd.AddCommand(newIdentityNewCommand(root))
	cmd.AddCommand(newIdentityShowCommand(root))
	return cmd
}

func newIdentityNewCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "new <name>",
		Short: "Create a password-sealed identity",
		Long: `Create a fresh signing keypair, seal it under a password, and store it
in the identity directory. The printed public key is what a room member
needs to invite you.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			path, err := keystore.Path(name, "")
			if err != nil {
				return err
			}
			pass, err := resolvePassword(root, true)
			if err != nil {
				return err
			}
			kr, err := keystore.Generate(name, pass, path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Identity:   %s\n", kr.Name)
			fmt.Fprintf(out, "Member ID:  %s\n", kr.ID)
			fmt.Fprintf(out, "Public key: %s\n", base64.StdEncoding.EncodeToString(kr.Pub))
			fmt.Fprintf(out, "Saved to:   %s\n", path)
			return nil
		},
	}
}

func newIdentityShowCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show",
		Short:         "Print the selected identity's member id and public key",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			kr, err := loadKeyring(root)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Identity:   %s\n", kr.Name)
			fmt.Fprintf(out, "Member ID:  %s\n", kr.ID)
			fmt.Fprintf(out, "Public key: %s\n", base64.StdEncoding.EncodeToString(kr.Pub))
			return nil
		},
	}
}
