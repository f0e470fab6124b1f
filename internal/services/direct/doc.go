// Package direct runs the key exchange and message crypto of 1:1 secret chats.
//
// The initiator creates the chat and publishes a public key. The responder
// publishes one too and, on approval, generates the chat's only symmetric
// key, wraps it for both participants and uploads the two copies; the relay
// then marks the chat key_finalized. The initiator unwraps its copy. From then
// on both sides encrypt with the shared key.
//
// Unwrapped keys are kept in the session cache and persisted under
// directChat.symmetricKey.<chatId>, so a new process does not unwrap again.
package direct
