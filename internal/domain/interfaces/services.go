package interfaces

import (
	"context"

	domaintypes "secretline/internal/domain/types"
)

// DirectChannel runs the 1:1 secret chat handshake and steady-state crypto.
type DirectChannel interface {
	InitializeEncryption(ctx context.Context, id domaintypes.ChannelID) error
	HandleResponderApproval(ctx context.Context, id domaintypes.ChannelID) error
	LoadKeyForInitiator(ctx context.Context, id domaintypes.ChannelID) error
	EncryptForSend(ctx context.Context, id domaintypes.ChannelID, plaintext string) (string, error)
	DecryptOnReceive(ctx context.Context, id domaintypes.ChannelID, envelope string) (string, error)
	State(ctx context.Context, id domaintypes.ChannelID) (domaintypes.HandshakeState, error)
	Leave(ctx context.Context, id domaintypes.ChannelID) error
}

// GroupChannel encrypts each group message under its own one-time key.
type GroupChannel interface {
	InitializeEncryption(ctx context.Context, id domaintypes.ChannelID) error
	SendMessage(
		ctx context.Context,
		plaintext string,
		id domaintypes.ChannelID,
	) (domaintypes.GroupEnvelope, error)
	ReceiveMessage(
		ctx context.Context,
		envelope domaintypes.GroupEnvelope,
		own domaintypes.MemberID,
		id domaintypes.ChannelID,
	) (domaintypes.Received, error)
	Leave(ctx context.Context, id domaintypes.ChannelID) error
}

// MessageService moves encrypted payloads between channels and the relay.
type MessageService interface {
	Send(ctx context.Context, kind domaintypes.ChannelKind, id domaintypes.ChannelID, plaintext string) error
	Receive(
		ctx context.Context,
		kind domaintypes.ChannelKind,
		id domaintypes.ChannelID,
	) ([]domaintypes.DecryptedMessage, error)
}
