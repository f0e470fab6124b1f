// Package server is the in-memory development relay behind secretline.
//
// HTTP API
//
//	POST /channel                        {kind, members} -> ChannelMetadata
//	GET  /channel/{id}                   -> ChannelMetadata
//	POST /channel/{id}/members           {member}; groups only
//	DELETE /channel/{id}/members/{m}     groups only; drops m and its public key
//	POST /channel/{id}/public-key        {member, public_key}; 409 if the member already published one
//	POST /channel/{id}/symmetric-keys    {keys: member -> wrapped key}
//	GET  /channel/{id}/messages          -> {messages: [...]}
//	POST /channel/{id}/messages          {payload}
//	GET  /channel/{id}/socket?member=M   websocket
//
// Behaviour
//
//   - All state is held in memory and lost on process exit.
//   - For direct channels the first member is the initiator and the second
//     the responder. Uploading wrapped keys for both sets key_finalized; a
//     second upload after that is a 409.
//   - Every socket frame and every posted message is appended to the
//     channel's history and broadcast to the other sockets of the channel.
//   - The relay never sees plaintext or private keys; payloads are opaque.
package server
