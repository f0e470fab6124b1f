// Package wire defines the payloads carried by a channel's socket and
// message history.
//
// Version 1:
//
//	{"v":1,"kind":"direct","id":"<uuid>","sender_id":"..","sent_at":<unix>,"content":"<base64 IV||ct>"}
//	{"v":1,"kind":"group", ...,"content":"<base64>","users_symmetric_keys":{"<member>":"<base64 wrap>"}}
//
// Decode accepts exactly these shapes. Anything else (unknown fields, another
// version or kind, empty content, wrapped keys on a direct payload, a group
// payload without them) is rejected with a *domain.ProtocolError.
package wire
