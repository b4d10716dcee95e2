package ats

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
)

// RequestContext is the outcome of resolving a request's session credential.
// ClearCredential tells the transport to drop whatever the browser sent; it is
// set for verifiable-but-useless credentials, never for store failures.
type RequestContext struct {
	Authenticated   bool
	User            *UserRecord
	ClearCredential bool
}

// SessionResolver turns a raw session credential into the account making the
// request.
type SessionResolver struct {
	tokens TokenVerifier
	users  UserFinder
	logger Logger
}

type SessionResolverOption func(*SessionResolver)

func WithResolverLogger(logger Logger) SessionResolverOption {
	return func(r *SessionResolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewSessionResolver(tokens TokenVerifier, users UserFinder, opts ...SessionResolverOption) *SessionResolver {
	r := &SessionResolver{
		tokens: tokens,
		users:  users,
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	return r
}

// Resolve classifies the credential into one of four outcomes: no credential,
// invalid credential, unknown account, or an authenticated user. A store
// failure is returned as an error so callers fail closed instead of treating
// the request as anonymous.
func (r *SessionResolver) Resolve(ctx context.Context, credential string, now time.Time) (RequestContext, error) {
	if credential == "" {
		return RequestContext{}, nil
	}

	email, err := r.tokens.Verify(credential, now)
	if err != nil {
		r.logger.Debug("session resolve rejected credential", "error", err)
		return RequestContext{ClearCredential: true}, nil
	}

	user, err := r.users.FindByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			// Token is genuine but the account is gone.
			r.logger.Info("session resolve found no account", "email", email)
			return RequestContext{ClearCredential: true}, nil
		}
		r.logger.Error("session resolve store lookup failed", "error", err)
		return RequestContext{}, NewStoreUnavailable(err)
	}

	return RequestContext{
		Authenticated: true,
		User:          user,
	}, nil
}
