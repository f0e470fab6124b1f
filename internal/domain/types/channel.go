package types

import "time"

// ChannelMetadata is the relay's view of a channel. Public keys and wrapped
// keys are base64 strings as produced by the crypto package.
type ChannelMetadata struct {
	ID           ChannelID              `json:"id"`
	Kind         ChannelKind            `json:"kind"`
	Initiator    MemberID               `json:"initiator,omitempty"`
	Responder    MemberID               `json:"responder,omitempty"`
	Members      []MemberID             `json:"members"`
	PublicKeys   map[MemberID]string    `json:"public_keys"`
	WrappedKeys  map[MemberID]string    `json:"wrapped_keys,omitempty"`
	KeyFinalized bool                   `json:"key_finalized"`
	JoinedAt     map[MemberID]time.Time `json:"joined_at,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

// HasMember reports whether m belongs to the channel.
func (c ChannelMetadata) HasMember(m MemberID) bool {
	for _, id := range c.Members {
		if id == m {
			return true
		}
	}
	return false
}

// Counterpart returns the other participant of a direct channel.
func (c ChannelMetadata) Counterpart(self MemberID) (MemberID, bool) {
	switch self {
	case c.Initiator:
		return c.Responder, c.Responder != ""
	case c.Responder:
		return c.Initiator, c.Initiator != ""
	}
	return "", false
}
