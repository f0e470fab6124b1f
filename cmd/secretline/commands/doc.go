// Package commands defines the secretline CLI and wires dependencies for subcommands.
//
// Commands
//
//   - create-chat   Open a direct channel with a peer
//   - init          Publish our public key for a direct channel (initiator)
//   - approve       Generate and wrap the channel key (responder)
//   - load-key      Unwrap the channel key once the responder approved
//   - status        Print the handshake state of a direct channel
//   - send / recv   Encrypt and post, or fetch and decrypt, direct messages
//   - watch         Stream and decrypt messages from a channel socket
//   - fingerprint   Print our public key fingerprint for a channel
//   - leave         Drop the local key material of a channel
//   - logout        Drop every local key
//   - group ...     create, init, join, send and recv on group channels
//
// # Implementation
//
// The root command loads configuration with viper, sets up logging, and
// builds the dependency graph (store, services, relay clients) before any
// subcommand runs. The graph is closed after the subcommand returns.
package commands
