package direct

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"secretline/internal/crypto"
	"secretline/internal/domain"
	"secretline/internal/logging"
	"secretline/internal/protocol/handshake"
	"secretline/internal/services/dedupe"
)

// KeyStore is the key material a direct channel needs.
type KeyStore interface {
	domain.KeyStore
	domain.SymmetricKeyStore
}

// Service drives direct secret chats for one local member.
type Service struct {
	self  domain.MemberID
	keys  KeyStore
	relay domain.MetadataClient
	cache domain.KeyCache

	flight dedupe.Group
	log    *logrus.Entry
}

// New returns a direct channel service acting as self.
func New(
	self domain.MemberID,
	keys KeyStore,
	relay domain.MetadataClient,
	cache domain.KeyCache,
) *Service {
	return &Service{
		self:  self,
		keys:  keys,
		relay: relay,
		cache: cache,
		log:   logging.For("direct").WithField("member_id", self),
	}
}

func (s *Service) logFor(id domain.ChannelID) *logrus.Entry {
	return s.log.WithField("channel_id", id)
}

// InitializeEncryption makes sure this member has a key pair for the chat and
// that its public key is published. Calling it again reuses the stored pair;
// concurrent calls for the same chat share one run. A relay that already
// holds our key is not an error.
func (s *Service) InitializeEncryption(ctx context.Context, id domain.ChannelID) error {
	return s.flight.Do(ctx, "init:"+id.String(), func(ctx context.Context) error {
		return s.initialize(ctx, id)
	})
}

func (s *Service) initialize(ctx context.Context, id domain.ChannelID) error {
	log := s.logFor(id)

	has, err := s.keys.HasKeys(ctx, domain.ScopeDirect, id.String())
	if err != nil {
		return err
	}
	pub, err := s.ownPublicKey(ctx, id, has)
	if err != nil {
		return err
	}
	if !has {
		log.WithField("state", domain.StateKeysGenerated).Debug("handshake")
	}

	enc, err := crypto.EncodePublicKey(pub)
	if err != nil {
		return err
	}
	err = s.relay.UploadPublicKey(ctx, id, s.self, enc)
	switch {
	case errors.Is(err, domain.ErrAlreadyExists):
		s.checkPublished(ctx, id, enc)
		return nil
	case err != nil:
		return fmt.Errorf("publish public key for %s: %w", id, err)
	}
	log.WithFields(logrus.Fields{
		"state":       domain.StatePublicKeyUploaded,
		"fingerprint": crypto.Fingerprint(pub),
	}).Debug("handshake")
	return nil
}

func (s *Service) ownPublicKey(ctx context.Context, id domain.ChannelID, has bool) (*rsa.PublicKey, error) {
	if !has {
		return s.keys.GenerateKeyPair(ctx, domain.ScopeDirect, id.String())
	}
	pub, ok, err := s.keys.PublicKey(ctx, domain.ScopeDirect, id.String())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: public key for %s vanished", domain.ErrKeyNotFound, id)
	}
	return pub, nil
}

// checkPublished warns when the relay holds a different key for us than the
// one stored locally. Wrapped copies made for that key cannot be unwrapped.
func (s *Service) checkPublished(ctx context.Context, id domain.ChannelID, enc string) {
	log := s.logFor(id)
	meta, err := s.relay.FetchChannel(ctx, id)
	if err != nil {
		log.WithError(err).Warn("public key already published; could not compare")
		return
	}
	if meta.PublicKeys[s.self] != enc {
		log.Warn("relay holds a different public key for this member; key exchange will fail")
		return
	}
	log.Debug("public key already published")
}

// HandleResponderApproval runs on the responder when it accepts the chat. It
// generates the shared key, wraps it for the initiator and for itself,
// uploads both copies and keeps the key locally. If the chat is already
// finalized the responder's own copy is loaded instead.
func (s *Service) HandleResponderApproval(ctx context.Context, id domain.ChannelID) error {
	return s.flight.Do(ctx, "approve:"+id.String(), func(ctx context.Context) error {
		return s.approve(ctx, id)
	})
}

func (s *Service) approve(ctx context.Context, id domain.ChannelID) error {
	log := s.logFor(id)

	meta, err := s.relay.FetchChannel(ctx, id)
	if err != nil {
		return fmt.Errorf("fetch channel %s: %w", id, err)
	}
	if meta.Kind != domain.KindDirect {
		return fmt.Errorf("channel %s is a %s channel", id, meta.Kind)
	}
	if meta.Responder != s.self {
		return fmt.Errorf("only the responder %q can approve channel %s", meta.Responder, id)
	}
	if meta.KeyFinalized {
		return s.unwrapOwnCopy(ctx, meta)
	}

	if err := s.InitializeEncryption(ctx, id); err != nil {
		return err
	}
	peerEnc := meta.PublicKeys[meta.Initiator]
	if peerEnc == "" {
		return fmt.Errorf("%w: %s has not published a key for %s",
			domain.ErrMissingCounterpartKey, meta.Initiator, id)
	}
	peerPub, err := crypto.DecodePublicKey(peerEnc)
	if err != nil {
		return &domain.ProtocolError{Reason: "counterpart public key", Err: err}
	}
	ownPub, err := s.ownPublicKey(ctx, id, true)
	if err != nil {
		return err
	}
	log.WithField("state", domain.StateRecipientKeyKnown).Debug("handshake")

	key, err := crypto.GenerateSymmetricKey(domain.SymmetricKeyBits256)
	if err != nil {
		return err
	}
	defer crypto.Wipe(key)
	log.WithField("state", domain.StateSymmetricKeyGenerated).Debug("handshake")

	forPeer, err := crypto.Wrap(key, peerPub)
	if err != nil {
		return err
	}
	forSelf, err := crypto.Wrap(key, ownPub)
	if err != nil {
		return err
	}

	err = s.relay.UploadSymmetricKeys(ctx, id, map[domain.MemberID]string{
		meta.Initiator: forPeer,
		s.self:         forSelf,
	})
	if errors.Is(err, domain.ErrAlreadyExists) {
		// Another of our processes finalized first; its key is the one in use.
		log.Warn("symmetric key already distributed; loading it")
		return s.loadOwnCopy(ctx, id)
	}
	if err != nil {
		return fmt.Errorf("upload wrapped keys for %s: %w", id, err)
	}
	log.WithField("state", domain.StateSymmetricKeyDistributed).Debug("handshake")

	if err := s.remember(ctx, id, key); err != nil {
		return err
	}
	log.WithField("state", domain.StateFinalized).Info("handshake complete")
	return nil
}

// LoadKeyForInitiator fetches the chat metadata and unwraps the copy of the
// shared key addressed to this member. It works for either participant but is
// how the initiator obtains the key.
func (s *Service) LoadKeyForInitiator(ctx context.Context, id domain.ChannelID) error {
	return s.flight.Do(ctx, "load:"+id.String(), func(ctx context.Context) error {
		return s.loadOwnCopy(ctx, id)
	})
}

func (s *Service) loadOwnCopy(ctx context.Context, id domain.ChannelID) error {
	meta, err := s.relay.FetchChannel(ctx, id)
	if err != nil {
		return fmt.Errorf("fetch channel %s: %w", id, err)
	}
	return s.unwrapOwnCopy(ctx, meta)
}

func (s *Service) unwrapOwnCopy(ctx context.Context, meta domain.ChannelMetadata) error {
	id := meta.ID
	if !meta.KeyFinalized {
		return fmt.Errorf("%w: %s", domain.ErrChannelNotReady, id)
	}
	wrapped := meta.WrappedKeys[s.self]
	if wrapped == "" {
		return fmt.Errorf("%w: no wrapped key for %s in %s", domain.ErrKeyNotFound, s.self, id)
	}
	priv, ok, err := s.keys.PrivateKey(ctx, domain.ScopeDirect, id.String())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: no private key for %s", domain.ErrKeyNotFound, id)
	}
	key, err := crypto.Unwrap(wrapped, priv)
	crypto.WipePrivateKey(priv)
	if err != nil {
		return fmt.Errorf("channel %s: %w", id, err)
	}
	defer crypto.Wipe(key)

	if err := s.remember(ctx, id, key); err != nil {
		return err
	}
	s.logFor(id).WithField("state", domain.StateFinalized).Info("shared key loaded")
	return nil
}

// remember persists key and puts it in the session cache.
func (s *Service) remember(ctx context.Context, id domain.ChannelID, key domain.SymmetricKey) error {
	if err := s.keys.SaveSymmetricKey(ctx, id, key); err != nil {
		return err
	}
	s.cache.Store(id, key)
	return nil
}

// sharedKey resolves the chat key: session cache, then persisted copy, then
// a single attempt to unwrap it from the relay.
func (s *Service) sharedKey(ctx context.Context, id domain.ChannelID) (domain.SymmetricKey, error) {
	if key, ok := s.cache.Get(id); ok {
		return key, nil
	}
	key, ok, err := s.keys.SymmetricKey(ctx, id)
	if err != nil {
		return nil, err
	}
	if ok {
		s.cache.Store(id, key)
		return key, nil
	}

	s.logFor(id).Debug("shared key not held; loading")
	if err := s.LoadKeyForInitiator(ctx, id); err != nil {
		return nil, err
	}
	if key, ok := s.cache.Get(id); ok {
		return key, nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrKeyNotFound, id)
}

// EncryptForSend seals plaintext under the chat key. It fails with
// domain.ErrChannelNotReady before the chat is finalized.
func (s *Service) EncryptForSend(ctx context.Context, id domain.ChannelID, plaintext string) (string, error) {
	key, err := s.sharedKey(ctx, id)
	if err != nil {
		return "", err
	}
	defer crypto.Wipe(key)
	return crypto.Encrypt(plaintext, key)
}

// DecryptOnReceive opens an envelope sealed under the chat key.
func (s *Service) DecryptOnReceive(ctx context.Context, id domain.ChannelID, envelope string) (string, error) {
	key, err := s.sharedKey(ctx, id)
	if err != nil {
		return "", err
	}
	defer crypto.Wipe(key)
	return crypto.Decrypt(envelope, key)
}

// State reports the handshake state of the chat as seen from this member.
func (s *Service) State(ctx context.Context, id domain.ChannelID) (domain.HandshakeState, error) {
	has, err := s.keys.HasKeys(ctx, domain.ScopeDirect, id.String())
	if err != nil {
		return domain.StateUninitialized, err
	}
	_, hasKey := s.cache.Get(id)
	if !hasKey {
		if _, hasKey, err = s.keys.SymmetricKey(ctx, id); err != nil {
			return domain.StateUninitialized, err
		}
	}
	meta, err := s.relay.FetchChannel(ctx, id)
	if err != nil {
		return domain.StateUninitialized, fmt.Errorf("fetch channel %s: %w", id, err)
	}
	local := handshake.Local{HasKeyPair: has, HasSymmetricKey: hasKey}
	return handshake.Derive(local, meta, s.self), nil
}

// Leave destroys this member's key material for the chat.
func (s *Service) Leave(ctx context.Context, id domain.ChannelID) error {
	s.cache.Delete(id)
	if err := s.keys.Clear(ctx, domain.ScopeDirect, id.String()); err != nil {
		return err
	}
	s.logFor(id).Info("left channel")
	return nil
}

var _ domain.DirectChannel = (*Service)(nil)
