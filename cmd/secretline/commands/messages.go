package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"secretline/internal/domain"
)

// send <chat> <text>: encrypt and post a message to a direct channel.
func sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <chat> <text>",
		Short: "Encrypt and send a message to a direct channel",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(cmd, domain.KindDirect, args[0], args[1])
		},
	}
}

// recv <chat>: fetch and decrypt the history of a direct channel.
func recvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recv <chat>",
		Short: "Fetch and decrypt the messages of a direct channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return recv(cmd, domain.KindDirect, args[0])
		},
	}
}

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <channel>",
		Short: "Stream and decrypt new messages until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := self(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return appCtx.Messages.Watch(cmd.Context(), channelKind(cmd), domain.ChannelID(args[0]),
				func(m domain.DecryptedMessage) { printMessage(out, m) })
		},
	}
	addGroupFlag(cmd)
	return cmd
}

func send(cmd *cobra.Command, kind domain.ChannelKind, chat, text string) error {
	if _, err := self(); err != nil {
		return err
	}
	if err := appCtx.Messages.Send(cmd.Context(), kind, domain.ChannelID(chat), text); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "sent")
	return nil
}

func recv(cmd *cobra.Command, kind domain.ChannelKind, chat string) error {
	if _, err := self(); err != nil {
		return err
	}
	msgs, err := appCtx.Messages.Receive(cmd.Context(), kind, domain.ChannelID(chat))
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, m := range msgs {
		printMessage(out, m)
	}
	return nil
}

func printMessage(w io.Writer, m domain.DecryptedMessage) {
	ts := "--:--:--"
	if m.SentAt > 0 {
		ts = time.Unix(m.SentAt, 0).Format(time.TimeOnly)
	}
	from := m.From
	if from == "" {
		from = "?"
	}
	switch {
	case m.Err != nil:
		fmt.Fprintf(w, "[%s] %s: <error: %v>\n", ts, from, m.Err)
	case m.Undecryptable:
		fmt.Fprintf(w, "[%s] %s: %s\n", ts, from, domain.UndecryptablePlaceholder)
	default:
		fmt.Fprintf(w, "[%s] %s: %s\n", ts, from, m.Plaintext)
	}
}
