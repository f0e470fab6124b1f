package relay

import "secretline/internal/domain"

// Request and response bodies shared by the HTTP client and the development
// relay server.

type CreateChannelRequest struct {
	Kind    domain.ChannelKind `json:"kind"`
	Members []domain.MemberID  `json:"members"`
}

type JoinRequest struct {
	Member domain.MemberID `json:"member"`
}

type PublicKeyRequest struct {
	Member    domain.MemberID `json:"member"`
	PublicKey string          `json:"public_key"`
}

type SymmetricKeysRequest struct {
	Keys map[domain.MemberID]string `json:"keys"`
}

type MessageRequest struct {
	Payload string `json:"payload"`
}

type MessagesResponse struct {
	Messages []string `json:"messages"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
