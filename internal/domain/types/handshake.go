package types

// HandshakeState is the progress of a direct secret chat from creation to a
// shared symmetric key held by both participants.
type HandshakeState int

const (
	StateUninitialized HandshakeState = iota
	StateKeysGenerated
	StatePublicKeyUploaded
	StateRecipientKeyKnown
	StateSymmetricKeyGenerated
	StateSymmetricKeyDistributed
	StateFinalized
)

var handshakeStateNames = [...]string{
	"uninitialized",
	"keys-generated",
	"public-key-uploaded",
	"recipient-key-known",
	"symmetric-key-generated",
	"symmetric-key-distributed",
	"finalized",
}

func (s HandshakeState) String() string {
	if s < 0 || int(s) >= len(handshakeStateNames) {
		return "unknown"
	}
	return handshakeStateNames[s]
}
