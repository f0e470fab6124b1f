package domain

import (
	interfaces "secretline/internal/domain/interfaces"
	types "secretline/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	MemberID         = types.MemberID
	ChannelID        = types.ChannelID
	ChannelKind      = types.ChannelKind
	Scope            = types.Scope
	Fingerprint      = types.Fingerprint
	SymmetricKey     = types.SymmetricKey
	KeyPair          = types.KeyPair
	ChannelMetadata  = types.ChannelMetadata
	GroupEnvelope    = types.GroupEnvelope
	Received         = types.Received
	DecryptedMessage = types.DecryptedMessage
	HandshakeState   = types.HandshakeState
)

const (
	KindDirect = types.KindDirect
	KindGroup  = types.KindGroup

	ScopeDirect = types.ScopeDirect
	ScopeGroup  = types.ScopeGroup

	StateUninitialized           = types.StateUninitialized
	StateKeysGenerated           = types.StateKeysGenerated
	StatePublicKeyUploaded       = types.StatePublicKeyUploaded
	StateRecipientKeyKnown       = types.StateRecipientKeyKnown
	StateSymmetricKeyGenerated   = types.StateSymmetricKeyGenerated
	StateSymmetricKeyDistributed = types.StateSymmetricKeyDistributed
	StateFinalized               = types.StateFinalized

	RSAKeyBits          = types.RSAKeyBits
	SymmetricKeyBits128 = types.SymmetricKeyBits128
	SymmetricKeyBits256 = types.SymmetricKeyBits256
	IVBytes             = types.IVBytes

	UndecryptablePlaceholder = types.UndecryptablePlaceholder
)

// ScopeFor maps a channel kind to the key scope holding its key pair.
func ScopeFor(kind ChannelKind) Scope { return types.ScopeFor(kind) }

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	KeyValueStore     = interfaces.KeyValueStore
	KeyStore          = interfaces.KeyStore
	SymmetricKeyStore = interfaces.SymmetricKeyStore
	KeyCache          = interfaces.KeyCache
	MetadataClient    = interfaces.MetadataClient
	MessageSocket     = interfaces.MessageSocket
	SocketDialer      = interfaces.SocketDialer
	DirectChannel     = interfaces.DirectChannel
	GroupChannel      = interfaces.GroupChannel
	MessageService    = interfaces.MessageService
)
