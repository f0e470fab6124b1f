// Package keys manages channel key pairs and persisted direct-chat keys.
//
// Key pairs are RSA-2048 for OAEP wrapping, one per (scope, id), generated
// lazily and persisted immediately through a domain.KeyValueStore. The
// persisted layout is
//
//	directChat.privateKey.<chatId>    PKCS#8, base64
//	directChat.publicKey.<chatId>     JWK, base64
//	directChat.symmetricKey.<chatId>  raw AES key, base64
//	group.privateKey.<groupId>
//	group.publicKey.<groupId>
package keys
