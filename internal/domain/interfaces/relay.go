package interfaces

import (
	"context"

	domaintypes "secretline/internal/domain/types"
)

// MetadataClient is how we talk to the relay's channel metadata API, all
// with context.
type MetadataClient interface {
	CreateChannel(
		ctx context.Context,
		kind domaintypes.ChannelKind,
		members []domaintypes.MemberID,
	) (domaintypes.ChannelMetadata, error)
	FetchChannel(ctx context.Context, id domaintypes.ChannelID) (domaintypes.ChannelMetadata, error)
	JoinChannel(ctx context.Context, id domaintypes.ChannelID, member domaintypes.MemberID) error
	LeaveChannel(ctx context.Context, id domaintypes.ChannelID, member domaintypes.MemberID) error

	// UploadPublicKey returns an error matching ErrAlreadyExists when the
	// relay already holds a key for member.
	UploadPublicKey(
		ctx context.Context,
		id domaintypes.ChannelID,
		member domaintypes.MemberID,
		publicKey string,
	) error
	UploadSymmetricKeys(
		ctx context.Context,
		id domaintypes.ChannelID,
		wrapped map[domaintypes.MemberID]string,
	) error

	PostMessage(ctx context.Context, id domaintypes.ChannelID, payload []byte) error
	FetchMessages(ctx context.Context, id domaintypes.ChannelID) ([][]byte, error)
}

// MessageSocket is the duplex per-channel pipe carrying opaque payloads.
type MessageSocket interface {
	Send(ctx context.Context, payload []byte) error
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// SocketDialer opens a MessageSocket for a channel.
type SocketDialer interface {
	Dial(
		ctx context.Context,
		id domaintypes.ChannelID,
		member domaintypes.MemberID,
	) (MessageSocket, error)
}
