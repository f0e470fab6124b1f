package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"secretline/internal/domain"
)

// Version is the only payload version this build speaks.
const Version = 1

// Message is one encrypted payload on the wire.
type Message struct {
	V           int                        `json:"v"`
	Kind        domain.ChannelKind         `json:"kind"`
	ID          string                     `json:"id"`
	SenderID    domain.MemberID            `json:"sender_id"`
	SentAt      int64                      `json:"sent_at"`
	Content     string                     `json:"content"`
	WrappedKeys map[domain.MemberID]string `json:"users_symmetric_keys,omitempty"`
}

// NewDirect builds a direct payload with a fresh id.
func NewDirect(sender domain.MemberID, content string, at time.Time) Message {
	return Message{
		V:        Version,
		Kind:     domain.KindDirect,
		ID:       uuid.NewString(),
		SenderID: sender,
		SentAt:   at.Unix(),
		Content:  content,
	}
}

// NewGroup builds a group payload with a fresh id from a sealed envelope.
func NewGroup(sender domain.MemberID, env domain.GroupEnvelope, at time.Time) Message {
	return Message{
		V:           Version,
		Kind:        domain.KindGroup,
		ID:          uuid.NewString(),
		SenderID:    sender,
		SentAt:      at.Unix(),
		Content:     env.Content,
		WrappedKeys: env.WrappedKeys,
	}
}

// Envelope returns the group envelope carried by m.
func (m Message) Envelope() domain.GroupEnvelope {
	return domain.GroupEnvelope{Content: m.Content, WrappedKeys: m.WrappedKeys}
}

func protocolErr(reason string, err error) error {
	return &domain.ProtocolError{Reason: reason, Err: err}
}

// Validate checks m against the version 1 schema.
func (m Message) Validate() error {
	if m.V != Version {
		return protocolErr(fmt.Sprintf("unsupported version %d", m.V), nil)
	}
	if _, err := uuid.Parse(m.ID); err != nil {
		return protocolErr("invalid message id", err)
	}
	if m.SenderID == "" {
		return protocolErr("missing sender_id", nil)
	}
	if m.Content == "" {
		return protocolErr("empty content", nil)
	}
	switch m.Kind {
	case domain.KindDirect:
		if m.WrappedKeys != nil {
			return protocolErr("direct payload carries users_symmetric_keys", nil)
		}
	case domain.KindGroup:
		if len(m.WrappedKeys) == 0 {
			return protocolErr("group payload without users_symmetric_keys", nil)
		}
		for member, k := range m.WrappedKeys {
			if member == "" || k == "" {
				return protocolErr("empty entry in users_symmetric_keys", nil)
			}
		}
	default:
		return protocolErr(fmt.Sprintf("unknown kind %q", m.Kind), nil)
	}
	return nil
}

// Encode validates and serialises m.
func Encode(m Message) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

// Decode parses a single payload and validates it.
func Decode(b []byte) (Message, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()

	var m Message
	if err := dec.Decode(&m); err != nil {
		return Message{}, protocolErr("malformed payload", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Message{}, protocolErr("trailing data after payload", err)
	}
	if err := m.Validate(); err != nil {
		return Message{}, err
	}
	return m, nil
}

// DecodeKind is Decode plus a check that the payload belongs to a channel of
// the given kind.
func DecodeKind(b []byte, kind domain.ChannelKind) (Message, error) {
	m, err := Decode(b)
	if err != nil {
		return Message{}, err
	}
	if m.Kind != kind {
		return Message{}, protocolErr(fmt.Sprintf("%s payload on a %s channel", m.Kind, kind), nil)
	}
	return m, nil
}
