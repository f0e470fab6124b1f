// Package message moves encrypted payloads between channels and the relay.
//
// Send seals plaintext through the direct or group channel, frames it with the
// wire schema and posts it. Receive fetches the channel history and opens each
// payload on its own: a payload that is malformed or cannot be decrypted is
// reported in its DecryptedMessage and never stops the rest. Watch does the
// same for payloads arriving on the channel socket.
package message
