package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"secretline/internal/domain"
	"secretline/internal/protocol/handshake"
)

func createChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create-chat <peer>",
		Short: "Open a direct channel with a peer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			me, err := self()
			if err != nil {
				return err
			}
			peer := domain.MemberID(args[0])
			if peer == me {
				return errors.New("cannot open a direct channel with yourself")
			}
			meta, err := appCtx.Relay.CreateChannel(cmd.Context(), domain.KindDirect, []domain.MemberID{me, peer})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Channel %s created with %s.\nRun `secretline init %s` next.\n", meta.ID, peer, meta.ID)
			return nil
		},
	}
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init <chat>",
		Short: "Generate a key pair for a direct channel and publish the public key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := self(); err != nil {
				return err
			}
			id := domain.ChannelID(args[0])
			if err := appCtx.Direct.InitializeEncryption(cmd.Context(), id); err != nil {
				return err
			}
			fp, err := appCtx.Keys.Fingerprint(cmd.Context(), domain.ScopeDirect, id.String())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Public key published.\nFingerprint: %s\n", fp)
			return nil
		},
	}
}

func approveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "approve <chat>",
		Short: "Accept a direct channel: generate the channel key and wrap it for both sides",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := self(); err != nil {
				return err
			}
			if err := appCtx.Direct.HandleResponderApproval(cmd.Context(), domain.ChannelID(args[0])); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Channel approved.")
			return nil
		},
	}
}

func loadKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load-key <chat>",
		Short: "Unwrap the channel key after the responder approved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := self(); err != nil {
				return err
			}
			if err := appCtx.Direct.LoadKeyForInitiator(cmd.Context(), domain.ChannelID(args[0])); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Channel key loaded.")
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <chat>",
		Short: "Print the handshake state of a direct channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := self(); err != nil {
				return err
			}
			id := domain.ChannelID(args[0])
			meta, err := appCtx.Relay.FetchChannel(cmd.Context(), id)
			if err != nil {
				return err
			}
			state, err := appCtx.Direct.State(cmd.Context(), id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Channel:   %s\n", meta.ID)
			fmt.Fprintf(out, "Initiator: %s\n", meta.Initiator)
			fmt.Fprintf(out, "Responder: %s\n", meta.Responder)
			fmt.Fprintf(out, "State:     %s\n", state)
			if handshake.Ready(state) {
				fmt.Fprintln(out, "Ready to send and receive.")
			} else if meta.KeyFinalized {
				fmt.Fprintf(out, "Run `secretline load-key %s` to fetch the shared key.\n", meta.ID)
			}
			return nil
		},
	}
}
