package message

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"secretline/internal/domain"
	"secretline/internal/logging"
	"secretline/internal/protocol/wire"
)

// Service sends and receives channel messages for one local member.
type Service struct {
	self   domain.MemberID
	relay  domain.MetadataClient
	dialer domain.SocketDialer
	direct domain.DirectChannel
	group  domain.GroupChannel
	now    func() time.Time
	log    *logrus.Entry
}

// New constructs a message service.
func New(
	self domain.MemberID,
	relay domain.MetadataClient,
	dialer domain.SocketDialer,
	direct domain.DirectChannel,
	group domain.GroupChannel,
) *Service {
	return &Service{
		self:   self,
		relay:  relay,
		dialer: dialer,
		direct: direct,
		group:  group,
		now:    time.Now,
		log:    logging.For("message").WithField("member_id", self),
	}
}

// Seal encrypts plaintext for the channel and returns the wire payload.
func (s *Service) Seal(
	ctx context.Context,
	kind domain.ChannelKind,
	id domain.ChannelID,
	plaintext string,
) ([]byte, error) {
	var msg wire.Message
	switch kind {
	case domain.KindDirect:
		content, err := s.direct.EncryptForSend(ctx, id, plaintext)
		if err != nil {
			return nil, err
		}
		msg = wire.NewDirect(s.self, content, s.now())
	case domain.KindGroup:
		env, err := s.group.SendMessage(ctx, plaintext, id)
		if err != nil {
			return nil, err
		}
		msg = wire.NewGroup(s.self, env, s.now())
	default:
		return nil, fmt.Errorf("unknown channel kind %q", kind)
	}
	return wire.Encode(msg)
}

// Send seals plaintext and posts it to the channel.
func (s *Service) Send(
	ctx context.Context,
	kind domain.ChannelKind,
	id domain.ChannelID,
	plaintext string,
) error {
	payload, err := s.Seal(ctx, kind, id, plaintext)
	if err != nil {
		return err
	}
	if err := s.relay.PostMessage(ctx, id, payload); err != nil {
		return fmt.Errorf("post message to %s: %w", id, err)
	}
	return nil
}

// Receive fetches the channel history and opens every payload. The error is
// only set when the history itself cannot be fetched.
func (s *Service) Receive(
	ctx context.Context,
	kind domain.ChannelKind,
	id domain.ChannelID,
) ([]domain.DecryptedMessage, error) {
	payloads, err := s.relay.FetchMessages(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch messages of %s: %w", id, err)
	}
	out := make([]domain.DecryptedMessage, 0, len(payloads))
	for _, p := range payloads {
		out = append(out, s.Open(ctx, kind, id, p))
	}
	return out, nil
}

// Open decodes and decrypts one payload.
func (s *Service) Open(
	ctx context.Context,
	kind domain.ChannelKind,
	id domain.ChannelID,
	payload []byte,
) domain.DecryptedMessage {
	dm := domain.DecryptedMessage{ChannelID: id}

	msg, err := wire.DecodeKind(payload, kind)
	if err != nil {
		s.log.WithError(err).WithField("channel_id", id).Warn("rejected payload")
		dm.Undecryptable, dm.Err = true, err
		return dm
	}
	dm.ID, dm.From, dm.SentAt = msg.ID, msg.SenderID, msg.SentAt

	switch kind {
	case domain.KindDirect:
		pt, err := s.direct.DecryptOnReceive(ctx, id, msg.Content)
		if err != nil {
			dm.Undecryptable, dm.Err = true, err
			return dm
		}
		dm.Plaintext = pt
	case domain.KindGroup:
		r, err := s.group.ReceiveMessage(ctx, msg.Envelope(), s.self, id)
		if err != nil {
			dm.Undecryptable, dm.Err = true, err
			return dm
		}
		dm.Plaintext, dm.Undecryptable = r.Plaintext, r.Undecryptable
	}
	return dm
}

// Watch opens the channel socket and calls fn for every payload received
// until ctx is done or the socket fails. Cancellation is not an error.
func (s *Service) Watch(
	ctx context.Context,
	kind domain.ChannelKind,
	id domain.ChannelID,
	fn func(domain.DecryptedMessage),
) error {
	sock, err := s.dialer.Dial(ctx, id, s.self)
	if err != nil {
		return err
	}
	defer sock.Close()

	log := s.log.WithField("channel_id", id)
	log.Debug("watching")
	for {
		payload, err := sock.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("socket %s: %w", id, err)
		}
		fn(s.Open(ctx, kind, id, payload))
	}
}

var _ domain.MessageService = (*Service)(nil)
