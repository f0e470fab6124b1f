package types

// GroupEnvelope is what a secret group message carries: the body encrypted
// under a one-time key, and that key wrapped for every recipient.
type GroupEnvelope struct {
	Content     string              `json:"content"`
	WrappedKeys map[MemberID]string `json:"users_symmetric_keys"`
}

// Received is the outcome of decrypting a single group message. A message
// that cannot be opened for this member is not an error: Undecryptable is set
// and the caller renders a placeholder.
type Received struct {
	Plaintext     string
	Undecryptable bool
}

// UndecryptablePlaceholder is shown in place of a message whose key is not
// available to this member.
const UndecryptablePlaceholder = "[unable to decrypt this message]"

// Text returns the plaintext or the placeholder.
func (r Received) Text() string {
	if r.Undecryptable {
		return UndecryptablePlaceholder
	}
	return r.Plaintext
}

// DecryptedMessage is what MessageService returns for every payload fetched
// from a channel. Err is set per message so one failure does not hide the rest.
type DecryptedMessage struct {
	ID            string    `json:"id"`
	ChannelID     ChannelID `json:"channel_id"`
	From          MemberID  `json:"from"`
	Plaintext     string    `json:"plaintext"`
	Undecryptable bool      `json:"undecryptable"`
	SentAt        int64     `json:"sent_at"`
	Err           error     `json:"-"`
}
