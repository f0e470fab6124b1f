// Package relay provides the client side of secretline's transport: an HTTP
// implementation of domain.MetadataClient and a websocket implementation of
// domain.MessageSocket.
//
// The relay stores channel metadata (members, published public keys, wrapped
// symmetric keys, the key_finalized flag) and opaque message payloads. It
// never sees plaintext or private keys.
//
// Supported operations include:
//   - Creating and joining channels.
//   - Publishing a member's public key (409 maps to domain.ErrAlreadyExists).
//   - Publishing wrapped symmetric keys.
//   - Posting and fetching message payloads.
//   - Opening a duplex socket per channel.
//
// All requests are JSON over HTTP and accept a context for cancellation and
// deadlines. Non-2xx statuses are returned as errors with the HTTP method,
// path, and status text to aid diagnostics.
package relay
