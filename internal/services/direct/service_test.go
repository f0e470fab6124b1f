package direct_test

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secretline/internal/crypto"
	"secretline/internal/domain"
	"secretline/internal/relay"
	"secretline/internal/relay/server"
	"secretline/internal/services/direct"
	"secretline/internal/services/keys"
	"secretline/internal/services/session"
	"secretline/internal/store"
)

type participant struct {
	id    domain.MemberID
	kv    *store.MemoryKV
	keys  *keys.Service
	cache *session.Cache
	svc   *direct.Service
}

func newParticipant(id domain.MemberID, rc domain.MetadataClient) *participant {
	kv := store.NewMemoryKV()
	ks := keys.New(kv)
	cache := session.New()
	return &participant{id: id, kv: kv, keys: ks, cache: cache, svc: direct.New(id, ks, rc, cache)}
}

func setup(t *testing.T) (domain.MetadataClient, *participant, *participant, domain.ChannelID) {
	t.Helper()
	srv := httptest.NewServer(server.New())
	t.Cleanup(srv.Close)
	rc := relay.NewHTTP(srv.URL, 5*time.Second)

	meta, err := rc.CreateChannel(context.Background(), domain.KindDirect, []domain.MemberID{"alice", "bob"})
	require.NoError(t, err)
	return rc, newParticipant("alice", rc), newParticipant("bob", rc), meta.ID
}

func handshakeAll(t *testing.T, alice, bob *participant, id domain.ChannelID) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, alice.svc.InitializeEncryption(ctx, id))
	require.NoError(t, bob.svc.InitializeEncryption(ctx, id))
	require.NoError(t, bob.svc.HandleResponderApproval(ctx, id))
	require.NoError(t, alice.svc.LoadKeyForInitiator(ctx, id))
}

func TestHandshakeProducesSharedKey(t *testing.T) {
	ctx := context.Background()
	rc, alice, bob, id := setup(t)

	handshakeAll(t, alice, bob, id)

	ka, ok, err := alice.keys.SymmetricKey(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	kb, ok, err := bob.keys.SymmetricKey(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ka, kb)
	assert.Equal(t, domain.SymmetricKeyBits256, ka.Bits())

	meta, err := rc.FetchChannel(ctx, id)
	require.NoError(t, err)
	assert.True(t, meta.KeyFinalized)

	env, err := alice.svc.EncryptForSend(ctx, id, "hello bob")
	require.NoError(t, err)
	got, err := bob.svc.DecryptOnReceive(ctx, id, env)
	require.NoError(t, err)
	assert.Equal(t, "hello bob", got)

	env, err = bob.svc.EncryptForSend(ctx, id, "hi alice")
	require.NoError(t, err)
	got, err = alice.svc.DecryptOnReceive(ctx, id, env)
	require.NoError(t, err)
	assert.Equal(t, "hi alice", got)
}

func TestHandshakeStates(t *testing.T) {
	ctx := context.Background()
	_, alice, bob, id := setup(t)

	state := func(p *participant) domain.HandshakeState {
		t.Helper()
		s, err := p.svc.State(ctx, id)
		require.NoError(t, err)
		return s
	}

	assert.Equal(t, domain.StateUninitialized, state(alice))
	require.NoError(t, alice.svc.InitializeEncryption(ctx, id))
	assert.Equal(t, domain.StatePublicKeyUploaded, state(alice))
	require.NoError(t, bob.svc.InitializeEncryption(ctx, id))
	assert.Equal(t, domain.StateRecipientKeyKnown, state(alice))
	require.NoError(t, bob.svc.HandleResponderApproval(ctx, id))
	assert.Equal(t, domain.StateFinalized, state(bob))
	assert.Equal(t, domain.StateSymmetricKeyDistributed, state(alice))
	require.NoError(t, alice.svc.LoadKeyForInitiator(ctx, id))
	assert.Equal(t, domain.StateFinalized, state(alice))
}

func TestSendBeforeFinalizedFailsFast(t *testing.T) {
	ctx := context.Background()
	_, alice, bob, id := setup(t)
	require.NoError(t, alice.svc.InitializeEncryption(ctx, id))
	require.NoError(t, bob.svc.InitializeEncryption(ctx, id))

	_, err := alice.svc.EncryptForSend(ctx, id, "too early")
	assert.ErrorIs(t, err, domain.ErrChannelNotReady)
	_, err = bob.svc.DecryptOnReceive(ctx, id, "AAAA")
	assert.ErrorIs(t, err, domain.ErrChannelNotReady)
	assert.Equal(t, 0, alice.cache.Len())
}

func TestApprovalNeedsCounterpartKey(t *testing.T) {
	ctx := context.Background()
	_, alice, bob, id := setup(t)
	require.NoError(t, bob.svc.InitializeEncryption(ctx, id))

	err := bob.svc.HandleResponderApproval(ctx, id)
	assert.ErrorIs(t, err, domain.ErrMissingCounterpartKey)

	// The initiator cannot approve.
	require.NoError(t, alice.svc.InitializeEncryption(ctx, id))
	assert.Error(t, alice.svc.HandleResponderApproval(ctx, id))
}

func TestApprovalIsIdempotent(t *testing.T) {
	ctx := context.Background()
	_, alice, bob, id := setup(t)
	handshakeAll(t, alice, bob, id)

	before, _, err := bob.keys.SymmetricKey(ctx, id)
	require.NoError(t, err)
	require.NoError(t, bob.svc.HandleResponderApproval(ctx, id))
	after, _, err := bob.keys.SymmetricKey(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestInitializeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	rc, alice, _, id := setup(t)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = alice.svc.InitializeEncryption(ctx, id)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}
	first, _, err := alice.keys.PublicKey(ctx, domain.ScopeDirect, id.String())
	require.NoError(t, err)

	require.NoError(t, alice.svc.InitializeEncryption(ctx, id))
	second, _, err := alice.keys.PublicKey(ctx, domain.ScopeDirect, id.String())
	require.NoError(t, err)
	assert.True(t, first.Equal(second))

	meta, err := rc.FetchChannel(ctx, id)
	require.NoError(t, err)
	enc, err := crypto.EncodePublicKey(first)
	require.NoError(t, err)
	assert.Equal(t, enc, meta.PublicKeys["alice"])
}

func TestApprovalRacingInitializeKeepsOneKeyPair(t *testing.T) {
	ctx := context.Background()
	rc, alice, bob, id := setup(t)
	require.NoError(t, alice.svc.InitializeEncryption(ctx, id))

	for n := 0; n < 3; n++ {
		var wg sync.WaitGroup
		errs := make([]error, 2)
		wg.Add(2)
		go func() {
			defer wg.Done()
			errs[0] = bob.svc.InitializeEncryption(ctx, id)
		}()
		go func() {
			defer wg.Done()
			errs[1] = bob.svc.HandleResponderApproval(ctx, id)
		}()
		wg.Wait()
		require.NoError(t, errs[0])
		require.NoError(t, errs[1])
	}

	pub, ok, err := bob.keys.PublicKey(ctx, domain.ScopeDirect, id.String())
	require.NoError(t, err)
	require.True(t, ok)
	enc, err := crypto.EncodePublicKey(pub)
	require.NoError(t, err)
	meta, err := rc.FetchChannel(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, enc, meta.PublicKeys["bob"])

	require.NoError(t, alice.svc.LoadKeyForInitiator(ctx, id))
	env, err := bob.svc.EncryptForSend(ctx, id, "one pair")
	require.NoError(t, err)
	got, err := alice.svc.DecryptOnReceive(ctx, id, env)
	require.NoError(t, err)
	assert.Equal(t, "one pair", got)
}

func TestCancelledCallerDoesNotFailSharedInitialize(t *testing.T) {
	_, alice, _, id := setup(t)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, alice.svc.InitializeEncryption(cancelled, id), context.Canceled)

	ctx := context.Background()
	require.NoError(t, alice.svc.InitializeEncryption(ctx, id))
	has, err := alice.keys.HasKeys(ctx, domain.ScopeDirect, id.String())
	require.NoError(t, err)
	assert.True(t, has)
}

func TestKeyLoadsLazilyOnSend(t *testing.T) {
	ctx := context.Background()
	_, alice, bob, id := setup(t)
	require.NoError(t, alice.svc.InitializeEncryption(ctx, id))
	require.NoError(t, bob.svc.InitializeEncryption(ctx, id))
	require.NoError(t, bob.svc.HandleResponderApproval(ctx, id))

	// Alice never called LoadKeyForInitiator.
	env, err := alice.svc.EncryptForSend(ctx, id, "lazy")
	require.NoError(t, err)
	got, err := bob.svc.DecryptOnReceive(ctx, id, env)
	require.NoError(t, err)
	assert.Equal(t, "lazy", got)
}

func TestPersistedKeySurvivesRestart(t *testing.T) {
	ctx := context.Background()
	rc, alice, bob, id := setup(t)
	handshakeAll(t, alice, bob, id)

	env, err := bob.svc.EncryptForSend(ctx, id, "after restart")
	require.NoError(t, err)

	restarted := direct.New("alice", alice.keys, rc, session.New())
	got, err := restarted.DecryptOnReceive(ctx, id, env)
	require.NoError(t, err)
	assert.Equal(t, "after restart", got)
}

func TestTamperedEnvelope(t *testing.T) {
	ctx := context.Background()
	_, alice, bob, id := setup(t)
	handshakeAll(t, alice, bob, id)

	env, err := alice.svc.EncryptForSend(ctx, id, "integrity")
	require.NoError(t, err)
	raw, err := crypto.UnB64(env)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff

	_, err = bob.svc.DecryptOnReceive(ctx, id, crypto.B64(raw))
	assert.ErrorIs(t, err, domain.ErrDecryption)
}

func TestRotatedKeyPairCannotUnwrap(t *testing.T) {
	ctx := context.Background()
	_, alice, bob, id := setup(t)
	handshakeAll(t, alice, bob, id)

	// Alice loses her stored keys and generates a new pair.
	require.NoError(t, alice.svc.Leave(ctx, id))
	_, err := alice.keys.GenerateKeyPair(ctx, domain.ScopeDirect, id.String())
	require.NoError(t, err)

	err = alice.svc.LoadKeyForInitiator(ctx, id)
	assert.ErrorIs(t, err, domain.ErrUnwrap)
	_, err = alice.svc.EncryptForSend(ctx, id, "x")
	assert.ErrorIs(t, err, domain.ErrUnwrap)
}

func TestLeaveRemovesKeys(t *testing.T) {
	ctx := context.Background()
	_, alice, bob, id := setup(t)
	handshakeAll(t, alice, bob, id)

	require.NoError(t, alice.svc.Leave(ctx, id))
	left, err := alice.kv.Keys(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, left)
	assert.Equal(t, 0, alice.cache.Len())

	s, err := alice.svc.State(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StateUninitialized, s)
}
