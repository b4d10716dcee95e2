package ats

import (
	"net/http"
	"time"

	"github.com/goliatone/go-router"
)

// SessionMiddleware resolves the session credential on every request and, when
// it identifies an account, exposes it through router locals and the request
// context. A store failure renders the unavailable page instead of letting the
// request continue anonymously.
func SessionMiddleware(transport SessionTransport, resolver *SessionResolver, logger Logger) router.MiddlewareFunc {
	if logger == nil {
		logger = defLogger{}
	}

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			credential, err := transport.Read(c)
			if err != nil {
				logger.Error("session middleware credential read failed", "error", err)
				return renderUnavailable(c)
			}

			rc, err := resolver.Resolve(c.Context(), credential, time.Now())
			if err != nil {
				logger.Error("session middleware resolve failed", "error", err)
				return renderUnavailable(c)
			}

			if rc.ClearCredential {
				if err := transport.Clear(c); err != nil {
					logger.Error("session middleware credential clear failed", "error", err)
				}
			}

			if rc.Authenticated {
				c.Locals(TemplateUserKey, rc.User)
				c.SetContext(WithContext(c.Context(), rc.User))
			}

			return next(c)
		}
	}
}

// RequireUser redirects requests that carry no authenticated account.
func RequireUser(redirectTo string) router.MiddlewareFunc {
	if redirectTo == "" {
		redirectTo = "/"
	}

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			if _, ok := GetRouterUser(c, ""); !ok {
				return c.Redirect(redirectTo, http.StatusFound)
			}
			return next(c)
		}
	}
}

func renderUnavailable(c router.Context) error {
	return c.Status(http.StatusServiceUnavailable).Render("errors/503", router.ViewContext{
		"message": "The service is temporarily unavailable. Please try again shortly.",
	})
}
