package server

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"secretline/internal/domain"
)

var (
	errBadRequest = errors.New("bad request")
	errForbidden  = errors.New("not a member")
)

type channel struct {
	meta    domain.ChannelMetadata
	history []string
}

// state is the relay's channel table.
type state struct {
	mu       sync.RWMutex
	channels map[domain.ChannelID]*channel
	now      func() time.Time
}

func newState() *state {
	return &state{channels: make(map[domain.ChannelID]*channel), now: time.Now}
}

func cloneMeta(m domain.ChannelMetadata) domain.ChannelMetadata {
	out := m
	out.Members = append([]domain.MemberID(nil), m.Members...)
	out.PublicKeys = make(map[domain.MemberID]string, len(m.PublicKeys))
	for k, v := range m.PublicKeys {
		out.PublicKeys[k] = v
	}
	if m.WrappedKeys != nil {
		out.WrappedKeys = make(map[domain.MemberID]string, len(m.WrappedKeys))
		for k, v := range m.WrappedKeys {
			out.WrappedKeys[k] = v
		}
	}
	if m.JoinedAt != nil {
		out.JoinedAt = make(map[domain.MemberID]time.Time, len(m.JoinedAt))
		for k, v := range m.JoinedAt {
			out.JoinedAt[k] = v
		}
	}
	return out
}

func (s *state) create(kind domain.ChannelKind, members []domain.MemberID) (domain.ChannelMetadata, error) {
	if !kind.Valid() {
		return domain.ChannelMetadata{}, errBadRequest
	}
	seen := make(map[domain.MemberID]bool, len(members))
	for _, m := range members {
		if m == "" || seen[m] {
			return domain.ChannelMetadata{}, errBadRequest
		}
		seen[m] = true
	}
	if len(members) == 0 || (kind == domain.KindDirect && len(members) != 2) {
		return domain.ChannelMetadata{}, errBadRequest
	}

	now := s.now().UTC()
	meta := domain.ChannelMetadata{
		ID:         domain.ChannelID(uuid.NewString()),
		Kind:       kind,
		Members:    append([]domain.MemberID(nil), members...),
		PublicKeys: make(map[domain.MemberID]string),
		CreatedAt:  now,
	}
	switch kind {
	case domain.KindDirect:
		meta.Initiator, meta.Responder = members[0], members[1]
		meta.WrappedKeys = make(map[domain.MemberID]string)
	case domain.KindGroup:
		meta.JoinedAt = make(map[domain.MemberID]time.Time, len(members))
		for _, m := range members {
			meta.JoinedAt[m] = now
		}
	}

	s.mu.Lock()
	s.channels[meta.ID] = &channel{meta: meta}
	s.mu.Unlock()
	return cloneMeta(meta), nil
}

func (s *state) get(id domain.ChannelID) (domain.ChannelMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ch, ok := s.channels[id]
	if !ok {
		return domain.ChannelMetadata{}, domain.ErrNotFound
	}
	return cloneMeta(ch.meta), nil
}

func (s *state) join(id domain.ChannelID, member domain.MemberID) error {
	if member == "" {
		return errBadRequest
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[id]
	if !ok {
		return domain.ErrNotFound
	}
	if ch.meta.Kind != domain.KindGroup {
		return errBadRequest
	}
	if ch.meta.HasMember(member) {
		return nil
	}
	ch.meta.Members = append(ch.meta.Members, member)
	ch.meta.JoinedAt[member] = s.now().UTC()
	return nil
}

// leave removes member from a group together with its public key, so later
// messages are no longer wrapped for it. Leaving twice is not an error.
func (s *state) leave(id domain.ChannelID, member domain.MemberID) error {
	if member == "" {
		return errBadRequest
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[id]
	if !ok {
		return domain.ErrNotFound
	}
	if ch.meta.Kind != domain.KindGroup {
		return errBadRequest
	}
	members := ch.meta.Members[:0]
	for _, m := range ch.meta.Members {
		if m != member {
			members = append(members, m)
		}
	}
	ch.meta.Members = members
	delete(ch.meta.PublicKeys, member)
	delete(ch.meta.WrappedKeys, member)
	delete(ch.meta.JoinedAt, member)
	return nil
}

func (s *state) publishKey(id domain.ChannelID, member domain.MemberID, key string) error {
	if key == "" {
		return errBadRequest
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !ch.meta.HasMember(member) {
		return errForbidden
	}
	if _, exists := ch.meta.PublicKeys[member]; exists {
		return domain.ErrAlreadyExists
	}
	ch.meta.PublicKeys[member] = key
	return nil
}

func (s *state) publishWrapped(id domain.ChannelID, keys map[domain.MemberID]string) error {
	if len(keys) == 0 {
		return errBadRequest
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[id]
	if !ok {
		return domain.ErrNotFound
	}
	for m, k := range keys {
		if k == "" {
			return errBadRequest
		}
		if !ch.meta.HasMember(m) {
			return errForbidden
		}
	}
	if ch.meta.Kind == domain.KindDirect {
		if ch.meta.KeyFinalized {
			return domain.ErrAlreadyExists
		}
		if keys[ch.meta.Initiator] == "" || keys[ch.meta.Responder] == "" {
			return errBadRequest
		}
	}
	if ch.meta.WrappedKeys == nil {
		ch.meta.WrappedKeys = make(map[domain.MemberID]string, len(keys))
	}
	for m, k := range keys {
		ch.meta.WrappedKeys[m] = k
	}
	if ch.meta.Kind == domain.KindDirect {
		ch.meta.KeyFinalized = true
	}
	return nil
}

func (s *state) appendMessage(id domain.ChannelID, payload string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[id]
	if !ok {
		return domain.ErrNotFound
	}
	ch.history = append(ch.history, payload)
	return nil
}

func (s *state) messages(id domain.ChannelID) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ch, ok := s.channels[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]string{}, ch.history...), nil
}

func (s *state) isMember(id domain.ChannelID, member domain.MemberID) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ch, ok := s.channels[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !ch.meta.HasMember(member) {
		return errForbidden
	}
	return nil
}
