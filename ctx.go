package ats

import (
	"context"

	"github.com/goliatone/go-router"
)

// TemplateUserKey is the router locals and view context key holding the
// authenticated account.
var TemplateUserKey = "current_user"

var userCtxKey = &contextKey{"user"}

type contextKey struct {
	name string
}

// WithContext sets the UserRecord in the given context
func WithContext(r context.Context, user *UserRecord) context.Context {
	return context.WithValue(r, userCtxKey, user)
}

// FromContext finds the user from the context.
func FromContext(ctx context.Context) (*UserRecord, bool) {
	raw, ok := ctx.Value(userCtxKey).(*UserRecord)
	return raw, ok
}

// GetRouterUser extracts the authenticated account from the router context.
func GetRouterUser(ctx router.Context, key string) (*UserRecord, bool) {
	if key == "" {
		key = TemplateUserKey
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	user, ok := raw.(*UserRecord)
	return user, ok
}
