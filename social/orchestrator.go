package social

import (
	"context"
	"fmt"
	"time"

	"github.com/byndhr/ats-admin"
	"github.com/goliatone/go-errors"
)

// LoginOrchestrator runs the provider OAuth flow end to end: redirect out,
// callback in, first-login registration, and session token issuance.
type LoginOrchestrator struct {
	providers    map[string]Provider
	stateManager StateManager
	registry     ats.UserRegistrar
	tokens       ats.TokenIssuer
	config       Config
	logger       ats.Logger
}

// Config configures the login orchestrator.
type Config struct {
	BaseURL            string
	DefaultReturnTo    string
	StateEncryptionKey []byte
	StateHMACKey       []byte
	StateTTL           time.Duration
}

// Option configures the login orchestrator.
type Option func(*LoginOrchestrator)

// NewLoginOrchestrator creates a new login orchestrator.
func NewLoginOrchestrator(
	registry ats.UserRegistrar,
	tokens ats.TokenIssuer,
	config Config,
	opts ...Option,
) *LoginOrchestrator {
	cfg := config
	if cfg.StateTTL == 0 {
		cfg.StateTTL = 10 * time.Minute
	}
	if cfg.DefaultReturnTo == "" {
		cfg.DefaultReturnTo = "/dashboard"
	}

	o := &LoginOrchestrator{
		providers: make(map[string]Provider),
		registry:  registry,
		tokens:    tokens,
		config:    cfg,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	if o.stateManager == nil {
		o.stateManager = NewEncryptedStateManager(
			cfg.StateEncryptionKey,
			cfg.StateHMACKey,
			cfg.StateTTL,
		)
	}

	return o
}

// WithProvider registers a social provider.
func WithProvider(provider Provider) Option {
	return func(o *LoginOrchestrator) {
		if provider == nil {
			return
		}
		o.providers[provider.Name()] = provider
	}
}

// WithStateManager sets a custom state manager.
func WithStateManager(sm StateManager) Option {
	return func(o *LoginOrchestrator) {
		o.stateManager = sm
	}
}

// WithLogger sets the orchestrator logger.
func WithLogger(logger ats.Logger) Option {
	return func(o *LoginOrchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// AuthRedirect is where the browser should be sent to authorize.
type AuthRedirect struct {
	URL      string
	State    string
	Provider string
}

// LoginResult is the outcome of a completed login.
type LoginResult struct {
	Token     string
	User      *ats.UserRecord
	IsNewUser bool
	ReturnTo  string
}

// ListProviders returns the names of configured providers.
func (o *LoginOrchestrator) ListProviders() []string {
	names := make([]string, 0, len(o.providers))
	for name := range o.providers {
		names = append(names, name)
	}
	return names
}

// BeginLogin starts the OAuth flow for a provider.
func (o *LoginOrchestrator) BeginLogin(ctx context.Context, providerName, returnTo string) (*AuthRedirect, error) {
	provider, ok := o.providers[providerName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, providerName)
	}

	if returnTo == "" {
		returnTo = o.config.DefaultReturnTo
	}

	codeVerifier, err := generateCodeVerifier()
	if err != nil {
		return nil, fmt.Errorf("failed to generate code verifier: %w", err)
	}
	codeChallenge := computeCodeChallenge(codeVerifier)

	state := &OAuthState{
		Nonce:        generateNonce(),
		Provider:     providerName,
		CodeVerifier: codeVerifier,
		ReturnTo:     returnTo,
		IssuedAt:     time.Now().Unix(),
		ExpiresAt:    time.Now().Add(o.config.StateTTL).Unix(),
	}

	stateToken, err := o.stateManager.Encode(state)
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}

	authURL := provider.AuthCodeURL(stateToken, WithPKCE(codeChallenge, "S256"))

	return &AuthRedirect{
		URL:      authURL,
		State:    stateToken,
		Provider: providerName,
	}, nil
}

// CompleteLogin finishes the OAuth flow after callback. The provider profile
// must carry an email; without one the login is rejected before any store
// write. First logins register the account, repeat logins only read it.
func (o *LoginOrchestrator) CompleteLogin(ctx context.Context, providerName, code, stateToken string, now time.Time) (*LoginResult, error) {
	state, err := o.stateManager.Decode(stateToken)
	if err != nil {
		if errors.Is(err, ErrStateExpired) {
			return nil, ErrStateExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	if state.Provider != providerName {
		return nil, fmt.Errorf("%w: provider mismatch", ErrInvalidState)
	}

	provider, ok := o.providers[providerName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, providerName)
	}

	token, err := provider.Exchange(ctx, code, WithCodeVerifier(state.CodeVerifier))
	if err != nil {
		return nil, wrapProviderError(ErrTokenExchangeFailed, providerName, "exchange", err)
	}

	profile, err := provider.UserInfo(ctx, token)
	if err != nil {
		return nil, wrapProviderError(ErrUserInfoFailed, providerName, "user_info", err)
	}

	if profile == nil || profile.Email == "" {
		return nil, ErrEmailMissing
	}

	user, isNew, err := o.registry.UpsertOnFirstLogin(ctx, ats.FirstLoginProfile{
		Email:   profile.Email,
		Name:    profile.Name,
		Picture: profile.AvatarURL,
	})
	if err != nil {
		return nil, ats.NewStoreUnavailable(err)
	}

	sessionToken, err := o.tokens.Issue(user.Email, now)
	if err != nil {
		return nil, err
	}

	if o.logger != nil && isNew {
		o.logger.Info("registered account on first login", "email", user.Email, "provider", providerName)
	}

	return &LoginResult{
		Token:     sessionToken,
		User:      user,
		IsNewUser: isNew,
		ReturnTo:  state.ReturnTo,
	}, nil
}
