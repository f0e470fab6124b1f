// Package group encrypts secret group messages under one-time keys.
//
// Every outgoing message gets a fresh symmetric key. The body is sealed with
// it and the key is wrapped separately for each member whose public key the
// relay knows, the sender included. A receiver unwraps its own copy with the
// group private key. There is no group-wide secret, so membership changes
// need no re-keying: members who join later simply have no copy of earlier
// keys.
package group
