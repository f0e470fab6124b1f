package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"secretline/internal/domain"
)

func fingerprintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fingerprint <channel>",
		Short: "Print the fingerprint of our public key for a channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope := domain.ScopeFor(channelKind(cmd))
			fp, err := appCtx.Keys.Fingerprint(cmd.Context(), scope, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Fingerprint: %s\n", fp)
			return nil
		},
	}
	addGroupFlag(cmd)
	return cmd
}

func leaveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leave <channel>",
		Short: "Forget the local keys of a channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := domain.ChannelID(args[0])
			var err error
			if channelKind(cmd) == domain.KindGroup {
				if _, err := self(); err != nil {
					return err
				}
				err = appCtx.Group.Leave(cmd.Context(), id)
			} else {
				err = appCtx.Direct.Leave(cmd.Context(), id)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Left %s. Its history can no longer be decrypted here.\n", id)
			return nil
		},
	}
	addGroupFlag(cmd)
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Delete every local key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			appCtx.Cache.Clear()
			if err := appCtx.Keys.ClearAll(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All local keys removed.")
			return nil
		},
	}
}
