// Package handshake derives where a direct secret chat stands in its key
// exchange.
//
// The state is never stored. It is recomputed from what this device holds
// (its key pair, the unwrapped shared key) and what the relay reports for the
// channel, so two processes for the same member always agree.
package handshake

import "secretline/internal/domain"

// Local is what this device knows about a direct channel.
type Local struct {
	HasKeyPair      bool
	HasSymmetricKey bool
}

// Derive returns the handshake state of self in the channel described by meta.
func Derive(local Local, meta domain.ChannelMetadata, self domain.MemberID) domain.HandshakeState {
	if !local.HasKeyPair {
		return domain.StateUninitialized
	}
	switch {
	case meta.KeyFinalized && local.HasSymmetricKey:
		return domain.StateFinalized
	case meta.KeyFinalized:
		return domain.StateSymmetricKeyDistributed
	case local.HasSymmetricKey:
		return domain.StateSymmetricKeyGenerated
	}

	if meta.PublicKeys[self] == "" {
		return domain.StateKeysGenerated
	}
	peer, ok := meta.Counterpart(self)
	if ok && meta.PublicKeys[peer] != "" {
		return domain.StateRecipientKeyKnown
	}
	return domain.StatePublicKeyUploaded
}

// Ready reports whether messages may be exchanged in state s.
func Ready(s domain.HandshakeState) bool { return s == domain.StateFinalized }
