// Package main runs the in-memory development relay for secretline. The HTTP
// and websocket API is documented on package internal/relay/server.
//
// Usage
//
//	relay [--addr :8080] [--log-level info] [--log-format text] [--shutdown-timeout 5s]
//
// Every flag can also be set through SECRETLINE_RELAY_<FLAG>, for example
// SECRETLINE_RELAY_ADDR=127.0.0.1:9000. On SIGINT or SIGTERM the relay stops
// accepting connections and waits for in-flight requests. All state is lost
// on exit.
package main
