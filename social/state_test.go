package social

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStateManager(ttl time.Duration) *EncryptedStateManager {
	encKey := []byte("0123456789abcdef0123456789abcdef")
	hmacKey := []byte("fedcba9876543210fedcba9876543210")
	return NewEncryptedStateManager(encKey, hmacKey, ttl)
}

func TestEncryptedStateManager_RoundTrip(t *testing.T) {
	sm := newTestStateManager(10 * time.Minute)

	state := &OAuthState{
		Provider:     "google",
		CodeVerifier: "verifier-value",
		ReturnTo:     "/dashboard",
	}

	token, err := sm.Encode(state)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	decoded, err := sm.Decode(token)
	require.NoError(t, err)

	assert.Equal(t, "google", decoded.Provider)
	assert.Equal(t, "verifier-value", decoded.CodeVerifier)
	assert.Equal(t, "/dashboard", decoded.ReturnTo)
	assert.NotEmpty(t, decoded.Nonce)
	assert.NotZero(t, decoded.IssuedAt)
	assert.NotZero(t, decoded.ExpiresAt)
}

func TestEncryptedStateManager_Encode(t *testing.T) {
	sm := newTestStateManager(10 * time.Minute)

	t.Run("rejects nil state", func(t *testing.T) {
		_, err := sm.Encode(nil)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("output is opaque", func(t *testing.T) {
		token, err := sm.Encode(&OAuthState{Provider: "google"})
		require.NoError(t, err)

		raw, err := base64.URLEncoding.DecodeString(token)
		require.NoError(t, err)
		assert.NotContains(t, string(raw), "google")
	})

	t.Run("every token is unique", func(t *testing.T) {
		one, err := sm.Encode(&OAuthState{Provider: "google"})
		require.NoError(t, err)
		two, err := sm.Encode(&OAuthState{Provider: "google"})
		require.NoError(t, err)
		assert.NotEqual(t, one, two)
	})
}

func TestEncryptedStateManager_Decode(t *testing.T) {
	sm := newTestStateManager(10 * time.Minute)

	t.Run("rejects garbage input", func(t *testing.T) {
		_, err := sm.Decode("not-base64-%%%")
		assert.Error(t, err)
	})

	t.Run("rejects truncated input", func(t *testing.T) {
		_, err := sm.Decode(base64.URLEncoding.EncodeToString([]byte("short")))
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("rejects a tampered token", func(t *testing.T) {
		token, err := sm.Encode(&OAuthState{Provider: "google"})
		require.NoError(t, err)

		raw, err := base64.URLEncoding.DecodeString(token)
		require.NoError(t, err)
		raw[len(raw)-1] ^= 0xff

		_, err = sm.Decode(base64.URLEncoding.EncodeToString(raw))
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("rejects a token signed with another key", func(t *testing.T) {
		other := NewEncryptedStateManager(
			[]byte("0123456789abcdef0123456789abcdef"),
			[]byte("another-hmac-key-another-hmac-ke"),
			10*time.Minute,
		)

		token, err := other.Encode(&OAuthState{Provider: "google"})
		require.NoError(t, err)

		_, err = sm.Decode(token)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("rejects an expired state", func(t *testing.T) {
		token, err := sm.Encode(&OAuthState{
			Provider:  "google",
			IssuedAt:  time.Now().Add(-time.Hour).Unix(),
			ExpiresAt: time.Now().Add(-30 * time.Minute).Unix(),
		})
		require.NoError(t, err)

		_, err = sm.Decode(token)
		assert.ErrorIs(t, err, ErrStateExpired)
	})
}

func TestCodeChallenge(t *testing.T) {
	verifier, err := generateCodeVerifier()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(verifier), 43)

	challenge := computeCodeChallenge(verifier)
	assert.NotEmpty(t, challenge)
	assert.NotEqual(t, verifier, challenge)

	// same verifier, same challenge
	assert.Equal(t, challenge, computeCodeChallenge(verifier))
}
