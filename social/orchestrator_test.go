package social

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	ats "github.com/byndhr/ats-admin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name         string
	authBase     string
	token        *Token
	profile      *Profile
	exchangeErr  error
	userInfoErr  error
	lastState    string
	lastAuthCfg  AuthCodeConfig
	lastVerifier string
}

func (p *stubProvider) Name() string {
	return p.name
}

func (p *stubProvider) AuthCodeURL(state string, opts ...AuthCodeOption) string {
	p.lastState = state
	p.lastAuthCfg = ApplyAuthCodeOptions(nil, opts...)
	return p.authBase + "?state=" + url.QueryEscape(state)
}

func (p *stubProvider) Exchange(ctx context.Context, code string, opts ...ExchangeOption) (*Token, error) {
	p.lastVerifier = ApplyExchangeOptions(opts...).CodeVerifier
	if p.exchangeErr != nil {
		return nil, p.exchangeErr
	}
	return p.token, nil
}

func (p *stubProvider) UserInfo(ctx context.Context, token *Token) (*Profile, error) {
	if p.userInfoErr != nil {
		return nil, p.userInfoErr
	}
	return p.profile, nil
}

type stubRegistry struct {
	user  *ats.UserRecord
	isNew bool
	err   error
	calls []ats.FirstLoginProfile
}

func (s *stubRegistry) UpsertOnFirstLogin(ctx context.Context, profile ats.FirstLoginProfile) (*ats.UserRecord, bool, error) {
	s.calls = append(s.calls, profile)
	if s.err != nil {
		return nil, false, s.err
	}
	return s.user, s.isNew, nil
}

type stubIssuer struct {
	token string
	err   error
}

func (s stubIssuer) Issue(email string, now time.Time) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.token, nil
}

func googleStub() *stubProvider {
	return &stubProvider{
		name:     "google",
		authBase: "https://accounts.google.com/o/oauth2/v2/auth",
		token:    &Token{AccessToken: "access-token"},
		profile: &Profile{
			Provider:  "google",
			Email:     "ana@example.com",
			Name:      "Ana",
			AvatarURL: "https://lh3.example.com/photo.jpg",
		},
	}
}

func testOrchestrator(provider Provider, registry ats.UserRegistrar, issuer ats.TokenIssuer) *LoginOrchestrator {
	return NewLoginOrchestrator(registry, issuer, Config{
		BaseURL:            "http://localhost:8080",
		StateEncryptionKey: []byte("0123456789abcdef0123456789abcdef"),
		StateHMACKey:       []byte("fedcba9876543210fedcba9876543210"),
	}, WithProvider(provider))
}

func TestLoginOrchestrator_BeginLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects unknown providers", func(t *testing.T) {
		o := testOrchestrator(googleStub(), &stubRegistry{}, stubIssuer{})

		_, err := o.BeginLogin(ctx, "myspace", "")
		assert.ErrorIs(t, err, ErrProviderNotFound)
	})

	t.Run("builds the authorization redirect with PKCE", func(t *testing.T) {
		provider := googleStub()
		o := testOrchestrator(provider, &stubRegistry{}, stubIssuer{})

		redirect, err := o.BeginLogin(ctx, "google", "")
		require.NoError(t, err)

		assert.Equal(t, "google", redirect.Provider)
		assert.NotEmpty(t, redirect.State)
		assert.Contains(t, redirect.URL, provider.authBase)

		assert.Equal(t, redirect.State, provider.lastState)
		assert.NotEmpty(t, provider.lastAuthCfg.CodeChallenge)
		assert.Equal(t, "S256", provider.lastAuthCfg.CodeChallengeMethod)
	})

	t.Run("state carries the return target", func(t *testing.T) {
		provider := googleStub()
		o := testOrchestrator(provider, &stubRegistry{}, stubIssuer{})

		redirect, err := o.BeginLogin(ctx, "google", "/settings")
		require.NoError(t, err)

		state, err := o.stateManager.Decode(redirect.State)
		require.NoError(t, err)
		assert.Equal(t, "/settings", state.ReturnTo)
		assert.Equal(t, "google", state.Provider)
		assert.NotEmpty(t, state.CodeVerifier)
	})

	t.Run("empty return target defaults to the dashboard", func(t *testing.T) {
		provider := googleStub()
		o := testOrchestrator(provider, &stubRegistry{}, stubIssuer{})

		redirect, err := o.BeginLogin(ctx, "google", "")
		require.NoError(t, err)

		state, err := o.stateManager.Decode(redirect.State)
		require.NoError(t, err)
		assert.Equal(t, "/dashboard", state.ReturnTo)
	})
}

func TestLoginOrchestrator_CompleteLogin(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	begin := func(t *testing.T, o *LoginOrchestrator) string {
		t.Helper()
		redirect, err := o.BeginLogin(ctx, "google", "")
		require.NoError(t, err)
		return redirect.State
	}

	t.Run("completes the round trip", func(t *testing.T) {
		provider := googleStub()
		registry := &stubRegistry{
			user:  &ats.UserRecord{ID: uuid.New(), Email: "ana@example.com", Name: "Ana"},
			isNew: true,
		}
		o := testOrchestrator(provider, registry, stubIssuer{token: "session-token"})

		stateToken := begin(t, o)

		result, err := o.CompleteLogin(ctx, "google", "auth-code", stateToken, now)
		require.NoError(t, err)

		assert.Equal(t, "session-token", result.Token)
		assert.Equal(t, "ana@example.com", result.User.Email)
		assert.True(t, result.IsNewUser)
		assert.Equal(t, "/dashboard", result.ReturnTo)

		// the PKCE verifier minted at begin must travel into the exchange
		assert.NotEmpty(t, provider.lastVerifier)

		require.Len(t, registry.calls, 1)
		assert.Equal(t, "ana@example.com", registry.calls[0].Email)
		assert.Equal(t, "Ana", registry.calls[0].Name)
		assert.Equal(t, "https://lh3.example.com/photo.jpg", registry.calls[0].Picture)
	})

	t.Run("rejects a forged state", func(t *testing.T) {
		o := testOrchestrator(googleStub(), &stubRegistry{}, stubIssuer{})

		_, err := o.CompleteLogin(ctx, "google", "auth-code", "forged-state", now)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("rejects an expired state", func(t *testing.T) {
		o := testOrchestrator(googleStub(), &stubRegistry{}, stubIssuer{})

		stale, err := o.stateManager.Encode(&OAuthState{
			Provider:  "google",
			IssuedAt:  time.Now().Add(-time.Hour).Unix(),
			ExpiresAt: time.Now().Add(-30 * time.Minute).Unix(),
		})
		require.NoError(t, err)

		_, err = o.CompleteLogin(ctx, "google", "auth-code", stale, now)
		assert.ErrorIs(t, err, ErrStateExpired)
	})

	t.Run("rejects a state minted for another provider", func(t *testing.T) {
		o := testOrchestrator(googleStub(), &stubRegistry{}, stubIssuer{})

		foreign, err := o.stateManager.Encode(&OAuthState{Provider: "github"})
		require.NoError(t, err)

		_, err = o.CompleteLogin(ctx, "google", "auth-code", foreign, now)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("surfaces exchange failures", func(t *testing.T) {
		provider := googleStub()
		provider.exchangeErr = fmt.Errorf("boom")
		registry := &stubRegistry{}
		o := testOrchestrator(provider, registry, stubIssuer{})

		stateToken := begin(t, o)

		_, err := o.CompleteLogin(ctx, "google", "auth-code", stateToken, now)
		assert.ErrorIs(t, err, ErrTokenExchangeFailed)
		assert.ErrorIs(t, err, provider.exchangeErr)
		assert.Empty(t, registry.calls)
	})

	t.Run("surfaces user info failures", func(t *testing.T) {
		provider := googleStub()
		provider.userInfoErr = fmt.Errorf("boom")
		registry := &stubRegistry{}
		o := testOrchestrator(provider, registry, stubIssuer{})

		stateToken := begin(t, o)

		_, err := o.CompleteLogin(ctx, "google", "auth-code", stateToken, now)
		assert.ErrorIs(t, err, ErrUserInfoFailed)
		assert.ErrorIs(t, err, provider.userInfoErr)
		assert.Empty(t, registry.calls)
	})

	t.Run("a profile without an email never reaches the store", func(t *testing.T) {
		provider := googleStub()
		provider.profile = &Profile{Provider: "google", Name: "No Email"}
		registry := &stubRegistry{}
		o := testOrchestrator(provider, registry, stubIssuer{})

		stateToken := begin(t, o)

		_, err := o.CompleteLogin(ctx, "google", "auth-code", stateToken, now)
		assert.ErrorIs(t, err, ErrEmailMissing)
		assert.Empty(t, registry.calls)
	})

	t.Run("store failures fail closed", func(t *testing.T) {
		provider := googleStub()
		registry := &stubRegistry{err: errors.New("connection refused")}
		o := testOrchestrator(provider, registry, stubIssuer{})

		stateToken := begin(t, o)

		_, err := o.CompleteLogin(ctx, "google", "auth-code", stateToken, now)
		require.Error(t, err)
		assert.True(t, ats.IsStoreUnavailable(err))
	})

	t.Run("repeat login is not reported as new", func(t *testing.T) {
		provider := googleStub()
		registry := &stubRegistry{
			user:  &ats.UserRecord{ID: uuid.New(), Email: "ana@example.com"},
			isNew: false,
		}
		o := testOrchestrator(provider, registry, stubIssuer{token: "session-token"})

		stateToken := begin(t, o)

		result, err := o.CompleteLogin(ctx, "google", "auth-code", stateToken, now)
		require.NoError(t, err)
		assert.False(t, result.IsNewUser)
	})
}

func TestLoginOrchestrator_ListProviders(t *testing.T) {
	o := testOrchestrator(googleStub(), &stubRegistry{}, stubIssuer{})
	assert.Equal(t, []string{"google"}, o.ListProviders())
}
