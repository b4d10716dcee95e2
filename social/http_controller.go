package social

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/byndhr/ats-admin"
	"github.com/goliatone/go-router"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// HTTPController handles the OAuth login HTTP routes.
type HTTPController struct {
	orchestrator *LoginOrchestrator
	transport    ats.SessionTransport
	config       HTTPConfig
	logger       ats.Logger
}

// HTTPConfig configures the HTTP controller.
type HTTPConfig struct {
	// PathPrefix for routes (default: "/oauth")
	PathPrefix string

	// SuccessRedirect is the default redirect after successful login
	SuccessRedirect string

	// ErrorRedirect is the redirect for login errors
	ErrorRedirect string

	// ErrorHandler handles errors (optional)
	ErrorHandler func(ctx router.Context, err error) error
}

// NewHTTPController creates a new OAuth login HTTP controller.
func NewHTTPController(orchestrator *LoginOrchestrator, transport ats.SessionTransport, cfg HTTPConfig, logger ats.Logger) *HTTPController {
	if cfg.PathPrefix == "" {
		cfg.PathPrefix = "/oauth"
	}
	if cfg.SuccessRedirect == "" {
		cfg.SuccessRedirect = "/dashboard"
	}
	if cfg.ErrorRedirect == "" {
		cfg.ErrorRedirect = "/"
	}

	return &HTTPController{
		orchestrator: orchestrator,
		transport:    transport,
		config:       cfg,
		logger:       logger,
	}
}

// RegisterRoutes registers the OAuth login routes.
func (c *HTTPController) RegisterRoutes(group RouteRegistrar) {
	group.Get(c.config.PathPrefix+"/:provider/login", c.BeginLogin)
	group.Get(c.config.PathPrefix+"/:provider/redirect", c.Callback)
}

// BeginLogin starts the OAuth flow.
func (c *HTTPController) BeginLogin(ctx router.Context) error {
	providerName := ctx.Param("provider")
	returnTo := ctx.Query("return_to")

	redirect, err := c.orchestrator.BeginLogin(ctx.Context(), providerName, returnTo)
	if err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.Redirect(redirect.URL, http.StatusTemporaryRedirect)
}

// Callback handles the OAuth callback. Any failure lands back on the error
// redirect; a successful login attaches the session credential and continues
// to the page the flow started from.
func (c *HTTPController) Callback(ctx router.Context) error {
	providerName := ctx.Param("provider")
	code := ctx.Query("code")
	state := ctx.Query("state")

	if errCode := ctx.Query("error"); errCode != "" {
		errDesc := ctx.Query("error_description")
		redirectURL := appendQueryParam(c.config.ErrorRedirect, "oauth_error", errCode)
		if errDesc != "" {
			redirectURL = appendQueryParam(redirectURL, "desc", errDesc)
		}
		return ctx.Redirect(redirectURL, http.StatusTemporaryRedirect)
	}

	if code == "" || state == "" {
		redirectURL := appendQueryParam(c.config.ErrorRedirect, "error", "missing_params")
		return ctx.Redirect(redirectURL, http.StatusTemporaryRedirect)
	}

	result, err := c.orchestrator.CompleteLogin(ctx.Context(), providerName, code, state, time.Now())
	if err != nil {
		return c.handleError(ctx, err)
	}

	if err := c.transport.Attach(ctx, result.Token); err != nil {
		return c.handleError(ctx, err)
	}

	redirectURL := result.ReturnTo
	if redirectURL == "" {
		redirectURL = c.config.SuccessRedirect
	}

	if result.IsNewUser {
		redirectURL = appendQueryParam(redirectURL, "new_user", "true")
	}

	return ctx.Redirect(redirectURL, http.StatusTemporaryRedirect)
}

func (c *HTTPController) handleError(ctx router.Context, err error) error {
	if c.logger != nil {
		c.logger.Error("oauth login failed", "error", err)
	}

	if c.config.ErrorHandler != nil {
		return c.config.ErrorHandler(ctx, err)
	}

	redirectURL := appendQueryParam(c.config.ErrorRedirect, "error", "auth_failed")
	return ctx.Redirect(redirectURL, http.StatusTemporaryRedirect)
}

func appendQueryParam(rawURL, key, value string) string {
	if rawURL == "" {
		return ""
	}

	parsed, err := url.Parse(rawURL)
	if err == nil {
		query := parsed.Query()
		query.Set(key, value)
		parsed.RawQuery = query.Encode()
		return parsed.String()
	}

	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + url.QueryEscape(key) + "=" + url.QueryEscape(value)
}
