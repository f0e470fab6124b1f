package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"secretline/internal/domain"
)

func groupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Work with secret group channels",
	}
	cmd.AddCommand(
		groupCreateCmd(),
		groupInitCmd(),
		groupJoinCmd(),
		&cobra.Command{
			Use:   "send <group> <text>",
			Short: "Encrypt a message with a one-time key and send it to the group",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return send(cmd, domain.KindGroup, args[0], args[1])
			},
		},
		&cobra.Command{
			Use:   "recv <group>",
			Short: "Fetch and decrypt the group history",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return recv(cmd, domain.KindGroup, args[0])
			},
		},
	)
	return cmd
}

func groupCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create [member...]",
		Short: "Create a group channel and publish our key for it",
		RunE: func(cmd *cobra.Command, args []string) error {
			me, err := self()
			if err != nil {
				return err
			}
			members := []domain.MemberID{me}
			for _, a := range args {
				if m := domain.MemberID(a); m != me {
					members = append(members, m)
				}
			}
			meta, err := appCtx.Relay.CreateChannel(cmd.Context(), domain.KindGroup, members)
			if err != nil {
				return err
			}
			if err := appCtx.Group.InitializeEncryption(cmd.Context(), meta.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Group %s created.\n", meta.ID)
			return nil
		},
	}
}

func groupInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init <group>",
		Short: "Generate and publish our key pair for a group we belong to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := self(); err != nil {
				return err
			}
			if err := appCtx.Group.InitializeEncryption(cmd.Context(), domain.ChannelID(args[0])); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Group key published.")
			return nil
		},
	}
}

func groupJoinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join <group>",
		Short: "Join a group and publish our key. Earlier messages stay unreadable.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			me, err := self()
			if err != nil {
				return err
			}
			id := domain.ChannelID(args[0])
			if err := appCtx.Relay.JoinChannel(cmd.Context(), id, me); err != nil {
				return err
			}
			if err := appCtx.Group.InitializeEncryption(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Joined %s.\n", id)
			return nil
		},
	}
}
