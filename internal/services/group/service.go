package group

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"secretline/internal/crypto"
	"secretline/internal/domain"
	"secretline/internal/logging"
	"secretline/internal/services/dedupe"
)

// Service drives secret groups for one local member.
type Service struct {
	self    domain.MemberID
	keys    domain.KeyStore
	relay   domain.MetadataClient
	keyBits int

	flight dedupe.Group
	log    *logrus.Entry
}

// New returns a group service acting as self. keyBits is the size of the
// one-time message keys, 128 or 256; zero selects 256.
func New(
	self domain.MemberID,
	keys domain.KeyStore,
	relay domain.MetadataClient,
	keyBits int,
) *Service {
	if keyBits == 0 {
		keyBits = domain.SymmetricKeyBits256
	}
	return &Service{
		self:    self,
		keys:    keys,
		relay:   relay,
		keyBits: keyBits,
		log:     logging.For("group").WithField("member_id", self),
	}
}

// InitializeEncryption makes sure this member has a key pair for the group
// and that its public key is published. It is safe to call repeatedly.
// If the relay already holds a different key for this member the call fails
// with domain.ErrKeyMismatch; leaving and joining again clears it.
func (s *Service) InitializeEncryption(ctx context.Context, id domain.ChannelID) error {
	return s.flight.Do(ctx, "init:"+id.String(), func(ctx context.Context) error {
		return s.initialize(ctx, id)
	})
}

func (s *Service) initialize(ctx context.Context, id domain.ChannelID) error {
	pub, err := s.ownPublicKey(ctx, id, true)
	if err != nil {
		return err
	}
	enc, err := crypto.EncodePublicKey(pub)
	if err != nil {
		return err
	}
	err = s.relay.UploadPublicKey(ctx, id, s.self, enc)
	if errors.Is(err, domain.ErrAlreadyExists) {
		return s.checkPublished(ctx, id, enc)
	}
	if err != nil {
		return fmt.Errorf("publish public key for %s: %w", id, err)
	}
	s.log.WithFields(logrus.Fields{
		"channel_id":  id,
		"fingerprint": crypto.Fingerprint(pub),
	}).Info("group key published")
	return nil
}

// checkPublished runs when the relay already has a key for us. A key other
// than ours means every message would be wrapped for a private key we no
// longer hold.
func (s *Service) checkPublished(ctx context.Context, id domain.ChannelID, enc string) error {
	log := s.log.WithField("channel_id", id)
	meta, err := s.relay.FetchChannel(ctx, id)
	if err != nil {
		return fmt.Errorf("fetch group %s: %w", id, err)
	}
	if meta.PublicKeys[s.self] != enc {
		log.Warn("relay holds a different public key for this member")
		return fmt.Errorf("%w: group %s; leave and join again to republish", domain.ErrKeyMismatch, id)
	}
	log.Debug("public key already published")
	return nil
}

// ownPublicKey returns the stored public key, generating a pair first when
// create is set and none exists.
func (s *Service) ownPublicKey(ctx context.Context, id domain.ChannelID, create bool) (*rsa.PublicKey, error) {
	pub, ok, err := s.keys.PublicKey(ctx, domain.ScopeGroup, id.String())
	if err != nil {
		return nil, err
	}
	if ok {
		has, err := s.keys.HasKeys(ctx, domain.ScopeGroup, id.String())
		if err != nil {
			return nil, err
		}
		if has {
			return pub, nil
		}
	}
	if !create {
		return nil, nil
	}
	return s.keys.GenerateKeyPair(ctx, domain.ScopeGroup, id.String())
}

// SendMessage seals plaintext under a fresh key and wraps that key for every
// member with a known public key. Members without one are skipped with a
// warning; the message still reaches everyone else.
func (s *Service) SendMessage(
	ctx context.Context,
	plaintext string,
	id domain.ChannelID,
) (domain.GroupEnvelope, error) {
	log := s.log.WithField("channel_id", id)

	key, err := crypto.GenerateSymmetricKey(s.keyBits)
	if err != nil {
		return domain.GroupEnvelope{}, err
	}
	defer crypto.Wipe(key)

	content, err := crypto.Encrypt(plaintext, key)
	if err != nil {
		return domain.GroupEnvelope{}, err
	}

	meta, err := s.relay.FetchChannel(ctx, id)
	if err != nil {
		return domain.GroupEnvelope{}, fmt.Errorf("fetch group %s: %w", id, err)
	}
	if meta.Kind != domain.KindGroup {
		return domain.GroupEnvelope{}, fmt.Errorf("channel %s is a %s channel", id, meta.Kind)
	}
	ownPub, err := s.ownPublicKey(ctx, id, false)
	if err != nil {
		return domain.GroupEnvelope{}, err
	}

	var (
		mu      sync.Mutex
		wrapped = make(map[domain.MemberID]string, len(meta.Members))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, member := range meta.Members {
		member := member
		pub, err := s.recipientKey(member, meta, ownPub)
		if err != nil {
			log.WithError(err).WithField("recipient", member).Warn("skipping member without usable public key")
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			w, err := crypto.Wrap(key, pub)
			if err != nil {
				log.WithError(err).WithField("recipient", member).Warn("skipping member: wrap failed")
				return nil
			}
			mu.Lock()
			wrapped[member] = w
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.GroupEnvelope{}, err
	}
	if len(wrapped) == 0 {
		return domain.GroupEnvelope{}, fmt.Errorf("%w: no member of %s has a public key",
			domain.ErrMissingCounterpartKey, id)
	}

	log.WithFields(logrus.Fields{
		"recipients": len(wrapped),
		"members":    len(meta.Members),
	}).Debug("group message sealed")
	return domain.GroupEnvelope{Content: content, WrappedKeys: wrapped}, nil
}

var errNoPublicKey = errors.New("no public key published")

// recipientKey picks the key to wrap for member. Our own stored key wins over
// the relay's copy of it.
func (s *Service) recipientKey(
	member domain.MemberID,
	meta domain.ChannelMetadata,
	ownPub *rsa.PublicKey,
) (*rsa.PublicKey, error) {
	if member == s.self && ownPub != nil {
		return ownPub, nil
	}
	enc := meta.PublicKeys[member]
	if enc == "" {
		return nil, errNoPublicKey
	}
	return crypto.DecodePublicKey(enc)
}

// ReceiveMessage opens env for member own. A missing wrapped copy or one we
// cannot unwrap yields Received.Undecryptable with a nil error; a body that
// fails authentication after a successful unwrap is domain.ErrDecryption.
func (s *Service) ReceiveMessage(
	ctx context.Context,
	env domain.GroupEnvelope,
	own domain.MemberID,
	id domain.ChannelID,
) (domain.Received, error) {
	log := s.log.WithField("channel_id", id)
	undecryptable := domain.Received{Undecryptable: true}

	wrapped, ok := env.WrappedKeys[own]
	if !ok {
		log.Debug("message carries no key for this member")
		return undecryptable, nil
	}
	priv, ok, err := s.keys.PrivateKey(ctx, domain.ScopeGroup, id.String())
	if err != nil {
		return domain.Received{}, err
	}
	if !ok {
		log.Debug("no group private key held")
		return undecryptable, nil
	}
	key, err := crypto.Unwrap(wrapped, priv)
	crypto.WipePrivateKey(priv)
	if err != nil {
		log.WithError(err).Debug("cannot unwrap message key")
		return undecryptable, nil
	}
	defer crypto.Wipe(key)

	pt, err := crypto.Decrypt(env.Content, key)
	if err != nil {
		return domain.Received{}, fmt.Errorf("group %s: %w", id, err)
	}
	return domain.Received{Plaintext: pt}, nil
}

// Leave removes this member from the group roster on the relay, so later
// messages are no longer wrapped for it, then destroys the local key pair.
// If the relay cannot be reached the keys are kept and the error returned.
func (s *Service) Leave(ctx context.Context, id domain.ChannelID) error {
	err := s.relay.LeaveChannel(ctx, id, s.self)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("leave group %s: %w", id, err)
	}
	if err := s.keys.Clear(ctx, domain.ScopeGroup, id.String()); err != nil {
		return err
	}
	s.log.WithField("channel_id", id).Info("left group")
	return nil
}

var _ domain.GroupChannel = (*Service)(nil)
