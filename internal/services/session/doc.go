// Package session holds the unwrapped symmetric keys of a running process.
//
// A Cache is an explicit object owned by whoever drives the channels and is
// passed to them; there is no package-level state. Storing a key for a
// channel always replaces the previous entry.
package session
