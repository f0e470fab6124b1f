// Package store provides the local key-value persistence behind secretline's
// key material.
//
// Every backend implements domain.KeyValueStore:
//   - MemoryKV keeps values in a map, for tests and throwaway sessions
//   - FileKV keeps one JSON file, replaced atomically on every write
//   - BadgerKV keeps values in an embedded Badger database
//
// SealedKV decorates any of them, encrypting each value at rest with a key
// derived from the user's passphrase. All types are safe for concurrent use.
// Failures are reported as *domain.StorageError.
package store
