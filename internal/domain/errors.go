package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors. Callers classify with errors.Is.
var (
	// ErrMissingCounterpartKey means the handshake needed the other member's
	// public key and the relay does not have it yet.
	ErrMissingCounterpartKey = errors.New("counterpart public key not published")
	// ErrChannelNotReady means a direct channel was used before key_finalized.
	ErrChannelNotReady = errors.New("channel key not finalized")
	// ErrUnwrap means RSA-OAEP could not recover a symmetric key with our private key.
	ErrUnwrap = errors.New("unwrap symmetric key")
	// ErrDecryption means AES-GCM authentication failed.
	ErrDecryption = errors.New("decrypt message")
	// ErrKeyNotFound means no symmetric key could be resolved for a channel.
	ErrKeyNotFound = errors.New("symmetric key not found")
	// ErrAlreadyExists is reported by the relay for duplicate uploads.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotFound is reported by the relay for unknown channels.
	ErrNotFound = errors.New("not found")
	// ErrKeyMismatch means the relay holds a public key for us that differs
	// from the one stored locally, so wrapped keys addressed to us are useless.
	ErrKeyMismatch = errors.New("relay holds a different public key")

	// ErrStorage and ErrProtocol match any *StorageError and *ProtocolError.
	ErrStorage  = errors.New("storage")
	ErrProtocol = errors.New("protocol")
)

// StorageError wraps failures of the local key-value store.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrStorage) match any StorageError.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// ProtocolError reports an inbound payload that does not match the wire schema.
type ProtocolError struct {
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err == nil {
		return "protocol: " + e.Reason
	}
	return fmt.Sprintf("protocol: %s: %v", e.Reason, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrProtocol) match any ProtocolError.
func (e *ProtocolError) Is(target error) bool { return target == ErrProtocol }

// NewStorageError returns nil when err is nil, so it can wrap a call result directly.
func NewStorageError(op, key string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Key: key, Err: err}
}
