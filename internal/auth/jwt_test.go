package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestKeys(t *testing.T) (*Signer, *Verifier) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	signer := NewSigner(key, "auth-service", "chat-service", time.Minute)
	verifier := NewVerifier(&key.PublicKey, "auth-service", "chat-service", 5*time.Second)
	return signer, verifier
}

func TestVerifyToken_RoundTrip(t *testing.T) {
	signer, verifier := newTestKeys(t)

	token, err := signer.SignAccessToken("alice", time.Now())
	require.NoError(t, err)

	identity, err := verifier.VerifyToken(token)
	require.NoError(t, err)
	require.Equal(t, "alice", identity)
}

func TestVerifyToken_Expired(t *testing.T) {
	signer, verifier := newTestKeys(t)

	token, err := signer.SignAccessToken("alice", time.Now().Add(-time.Hour))
	require.NoError(t, err)

	_, err = verifier.VerifyToken(token)
	require.Error(t, err)
}

func TestVerifyToken_WrongKey(t *testing.T) {
	signer, _ := newTestKeys(t)
	_, verifier := newTestKeys(t)

	token, err := signer.SignAccessToken("alice", time.Now())
	require.NoError(t, err)

	_, err = verifier.VerifyToken(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyToken_WrongAudience(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	signer := NewSigner(key, "auth-service", "some-other-service", time.Minute)
	verifier := NewVerifier(&key.PublicKey, "auth-service", "chat-service", 0)

	token, err := signer.SignAccessToken("alice", time.Now())
	require.NoError(t, err)

	_, err = verifier.VerifyToken(token)
	require.ErrorIs(t, err, ErrInvalidAudien)
}

func TestVerifyToken_Garbage(t *testing.T) {
	_, verifier := newTestKeys(t)

	_, err := verifier.VerifyToken("")
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = verifier.VerifyToken("not.a.jwt")
	require.Error(t, err)
}
