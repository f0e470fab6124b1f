package types

// MemberID identifies a user taking part in a channel.
type MemberID string

// String returns the string form of the member id.
func (m MemberID) String() string { return string(m) }

// ChannelID identifies a secret chat or a secret group.
type ChannelID string

// String returns the string form of the channel id.
func (id ChannelID) String() string { return string(id) }

// ChannelKind distinguishes 1:1 secret chats from secret groups.
type ChannelKind string

const (
	KindDirect ChannelKind = "direct"
	KindGroup  ChannelKind = "group"
)

// Valid reports whether k is a known channel kind.
func (k ChannelKind) Valid() bool { return k == KindDirect || k == KindGroup }

// Scope partitions persisted key material.
type Scope string

const (
	ScopeDirect Scope = "directChat"
	ScopeGroup  Scope = "group"
)

// Valid reports whether s is a known scope.
func (s Scope) Valid() bool { return s == ScopeDirect || s == ScopeGroup }

// ScopeFor maps a channel kind to the key scope holding its key pair.
func ScopeFor(kind ChannelKind) Scope {
	if kind == KindGroup {
		return ScopeGroup
	}
	return ScopeDirect
}

// Fingerprint is a short identifier for public keys presented to users.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }
