package security

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticKeys map[string]ed25519.PublicKey

func (s staticKeys) PublicKey(_ context.Context, accountID string) (ed25519.PublicKey, error) {
	k, ok := s[accountID]
	if !ok {
		return nil, errors.New("unknown account")
	}
	return k, nil
}

func newKey(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return pub, priv
}

func TestProofVerifier_AcceptsValidProof(t *testing.T) {
	pub, priv := newKey(t)
	v := NewProofVerifier(staticKeys{"0.0.42": pub}, zap.NewNop())

	proof, err := SignProof(priv, "0.0.42", "sess-1", "nonce-1", time.Now())
	require.NoError(t, err)

	assert.True(t, v.Verify(context.Background(), proof, "0.0.42", "nonce-1", "sess-1"))
}

func TestProofVerifier_RejectsBindingMismatch(t *testing.T) {
	pub, priv := newKey(t)
	v := NewProofVerifier(staticKeys{"0.0.42": pub, "0.0.43": pub}, zap.NewNop())
	ctx := context.Background()

	proof, err := SignProof(priv, "0.0.42", "sess-1", "nonce-1", time.Now())
	require.NoError(t, err)

	assert.False(t, v.Verify(ctx, proof, "0.0.42", "nonce-2", "sess-1"), "nonce")
	assert.False(t, v.Verify(ctx, proof, "0.0.42", "nonce-1", "sess-2"), "session")
	assert.False(t, v.Verify(ctx, proof, "0.0.43", "nonce-1", "sess-1"), "account")
}

func TestProofVerifier_RejectsWrongKey(t *testing.T) {
	pub, _ := newKey(t)
	_, otherPriv := newKey(t)
	v := NewProofVerifier(staticKeys{"0.0.42": pub}, zap.NewNop())

	proof, err := SignProof(otherPriv, "0.0.42", "sess-1", "nonce-1", time.Now())
	require.NoError(t, err)
	assert.False(t, v.Verify(context.Background(), proof, "0.0.42", "nonce-1", "sess-1"))
}

func TestProofVerifier_RejectsStructuralDefects(t *testing.T) {
	pub, _ := newKey(t)
	v := NewProofVerifier(staticKeys{"0.0.42": pub}, zap.NewNop())
	ctx := context.Background()

	// Голый JSON без подписи больше не проходит
	unsigned := base64.StdEncoding.EncodeToString([]byte(`{"nonce":"n","sessionId":"s","hederaAccountId":"0.0.42"}`))
	hmac, err := jwt.NewWithClaims(jwt.SigningMethodHS256, ProofClaims{
		Nonce: "n", SessionID: "s", RegisteredClaims: jwt.RegisteredClaims{Subject: "0.0.42"},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	for name, proof := range map[string]string{
		"empty":    "",
		"garbage":  "not-a-proof",
		"unsigned": unsigned,
		"hmac":     hmac,
	} {
		assert.False(t, v.Verify(ctx, proof, "0.0.42", "n", "s"), name)
	}

	assert.False(t, v.Verify(ctx, "x", "0.0.404", "n", "s"), "unknown account")
}

func TestProofVerifier_RejectsExpiredProof(t *testing.T) {
	pub, priv := newKey(t)
	v := NewProofVerifier(staticKeys{"0.0.42": pub}, zap.NewNop())

	claims := ProofClaims{
		Nonce: "n", SessionID: "s",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "0.0.42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	proof, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(priv)
	require.NoError(t, err)
	assert.False(t, v.Verify(context.Background(), proof, "0.0.42", "n", "s"))
}

func TestNewNonce_Unique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		n, err := NewNonce()
		require.NoError(t, err)
		require.Len(t, n, 64)
		require.False(t, seen[n])
		seen[n] = true
	}
}

func TestDigests(t *testing.T) {
	// base64(sha256("abc"))
	assert.Equal(t, "ungWv48Bz+pBQUDeXa4iI7ADYaOWF3qctBD/YfIAFa0=", ReflectionDigest("abc"))

	h := JourneyHash("u1", "0.0.1", 2500, 27, 6)
	assert.Len(t, h, 16)
	assert.Equal(t, h, JourneyHash("u1", "0.0.1", 2500, 27, 6))
	assert.NotEqual(t, h, JourneyHash("u1", "0.0.1", 2501, 27, 6))
}

// rotatingKeys отдает закэшированный ключ, пока его не сбросят.
type rotatingKeys struct {
	cached  ed25519.PublicKey
	current ed25519.PublicKey
	forgets int
}

func (k *rotatingKeys) PublicKey(context.Context, string) (ed25519.PublicKey, error) {
	if k.cached == nil {
		k.cached = k.current
	}
	return k.cached, nil
}

func (k *rotatingKeys) Forget(context.Context, string) error {
	k.forgets++
	k.cached = nil
	return nil
}

func TestProofVerifier_RefreshesRotatedKey(t *testing.T) {
	oldPub, _ := newKey(t)
	newPub, newPriv := newKey(t)
	keys := &rotatingKeys{cached: oldPub, current: newPub}
	v := NewProofVerifier(keys, zap.NewNop())

	proof, err := SignProof(newPriv, "0.0.42", "sess-1", "nonce-1", time.Now())
	require.NoError(t, err)

	assert.True(t, v.Verify(context.Background(), proof, "0.0.42", "nonce-1", "sess-1"))
	assert.Equal(t, 1, keys.forgets)
	assert.Equal(t, newPub, keys.cached)
}

func TestProofVerifier_WrongKeyStillRejectedAfterRefresh(t *testing.T) {
	pub, _ := newKey(t)
	_, otherPriv := newKey(t)
	keys := &rotatingKeys{cached: pub, current: pub}
	v := NewProofVerifier(keys, zap.NewNop())

	proof, err := SignProof(otherPriv, "0.0.42", "sess-1", "nonce-1", time.Now())
	require.NoError(t, err)

	assert.False(t, v.Verify(context.Background(), proof, "0.0.42", "nonce-1", "sess-1"))
	assert.Equal(t, 1, keys.forgets)

	// Несовпадение nonce - не повод сбрасывать ключ
	good, err := SignProof(otherPriv, "0.0.42", "sess-1", "nonce-1", time.Now())
	require.NoError(t, err)
	keys.current, keys.cached = otherPriv.Public().(ed25519.PublicKey), nil
	assert.False(t, v.Verify(context.Background(), good, "0.0.42", "nonce-2", "sess-1"))
	assert.Equal(t, 1, keys.forgets)
}

func TestProofVerifier_MalformedProofKeepsCachedKey(t *testing.T) {
	pub, _ := newKey(t)
	keys := &rotatingKeys{cached: pub, current: pub}
	v := NewProofVerifier(keys, zap.NewNop())

	hmac, err := jwt.NewWithClaims(jwt.SigningMethodHS256, ProofClaims{
		Nonce: "n", SessionID: "s", RegisteredClaims: jwt.RegisteredClaims{Subject: "0.0.42"},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	assert.False(t, v.Verify(context.Background(), hmac, "0.0.42", "n", "s"))
	assert.False(t, v.Verify(context.Background(), "not-a-proof", "0.0.42", "n", "s"))
	assert.Zero(t, keys.forgets)
}
