package csrf

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-router"
)

var (
	ErrTokenMismatch    = errors.New("CSRF token mismatch")
	ErrTokenMissing     = errors.New("CSRF token missing")
	ErrTokenExpired     = errors.New("CSRF token expired")
	ErrSecureKeyMissing = errors.New("CSRF secure key required")
)

// DefaultTokenLength is the nonce length for generated tokens.
const DefaultTokenLength = 32

// DefaultContextKey is the locals key holding the token for templates.
const DefaultContextKey = "csrf_token"

// DefaultFieldKey is the locals key holding a ready-to-embed hidden input.
const DefaultFieldKey = "csrf_field"

// DefaultFormFieldName is the form field carrying the token back.
const DefaultFormFieldName = "_token"

// Config defines the configuration for the CSRF middleware. Tokens are
// stateless: an HMAC over a timestamp, a nonce, and the request's session key,
// verifiable on any instance holding the same secure key.
type Config struct {
	// Skip defines a function to skip middleware
	Skip func(router.Context) bool

	// ContextKey defines the locals key for the token
	ContextKey string

	// FormFieldName defines the name of the form field containing the token
	FormFieldName string

	// SafeMethods defines HTTP methods that don't require CSRF protection
	SafeMethods []string

	// Expiration defines how long tokens stay valid
	Expiration time.Duration

	// SecureKey signs the tokens; must be at least 32 bytes
	SecureKey []byte

	// ErrorHandler defines the error handler
	ErrorHandler router.ErrorHandler
}

// New creates the CSRF middleware. Every request gets a fresh token exposed
// through locals; unsafe methods must echo a valid token back in the form.
func New(config ...Config) router.MiddlewareFunc {
	cfg := configDefault(config...)

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return next(ctx)
			}

			token, err := generateToken(ctx, cfg)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			ctx.Locals(cfg.ContextKey, token)
			ctx.Locals(DefaultFieldKey, `<input type="hidden" name="`+cfg.FormFieldName+`" value="`+token+`">`)

			method := strings.ToUpper(ctx.Method())
			if slices.Contains(cfg.SafeMethods, method) {
				return next(ctx)
			}

			if err := validateToken(ctx, cfg); err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			return next(ctx)
		}
	}
}

func generateToken(ctx router.Context, cfg Config) (string, error) {
	if len(cfg.SecureKey) == 0 {
		return "", ErrSecureKeyMissing
	}

	nonce := make([]byte, DefaultTokenLength)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	timestamp := time.Now().UTC().Unix()
	payload := fmt.Sprintf("%d:%s:%s", timestamp, hex.EncodeToString(nonce), sessionKey(ctx))

	mac := hmac.New(sha256.New, cfg.SecureKey)
	mac.Write([]byte(payload))
	signature := mac.Sum(nil)

	token := fmt.Sprintf("%s:%s", payload, hex.EncodeToString(signature))
	return base64.RawURLEncoding.EncodeToString([]byte(token)), nil
}

func validateToken(ctx router.Context, cfg Config) error {
	received := ctx.FormValue(cfg.FormFieldName)
	if received == "" {
		return ErrTokenMissing
	}

	decoded, err := base64.RawURLEncoding.DecodeString(received)
	if err != nil {
		return ErrTokenMismatch
	}

	parts := strings.Split(string(decoded), ":")
	if len(parts) != 4 {
		return ErrTokenMismatch
	}

	timestampStr, nonceHex, sessionFromToken, signatureHex := parts[0], parts[1], parts[2], parts[3]

	timestamp, err := strconv.ParseInt(timestampStr, 10, 64)
	if err != nil {
		return ErrTokenMismatch
	}

	if _, err := hex.DecodeString(nonceHex); err != nil {
		return ErrTokenMismatch
	}

	signature, err := hex.DecodeString(signatureHex)
	if err != nil {
		return ErrTokenMismatch
	}

	payload := strings.Join(parts[:3], ":")
	mac := hmac.New(sha256.New, cfg.SecureKey)
	mac.Write([]byte(payload))
	expectedSignature := mac.Sum(nil)

	if !hmac.Equal(signature, expectedSignature) {
		return ErrTokenMismatch
	}

	if subtle.ConstantTimeCompare([]byte(sessionFromToken), []byte(sessionKey(ctx))) != 1 {
		return ErrTokenMismatch
	}

	if cfg.Expiration > 0 {
		expiresAt := time.Unix(timestamp, 0).Add(cfg.Expiration)
		if time.Now().UTC().After(expiresAt) {
			return ErrTokenExpired
		}
	}

	return nil
}

// sessionKey binds tokens to the requesting account when one is resolved,
// falling back to the client IP for anonymous requests.
func sessionKey(ctx router.Context) string {
	if raw := ctx.Locals("current_user"); raw != nil {
		type emailer interface{ GetEmail() string }
		if user, ok := raw.(emailer); ok && user.GetEmail() != "" {
			return "csrf_user_" + user.GetEmail()
		}
	}

	return "csrf_ip_" + ctx.IP()
}

func configDefault(config ...Config) Config {
	var cfg Config
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}

	if cfg.FormFieldName == "" {
		cfg.FormFieldName = DefaultFormFieldName
	}

	if cfg.SafeMethods == nil {
		cfg.SafeMethods = []string{"GET", "HEAD", "OPTIONS", "TRACE"}
	}

	if cfg.Expiration == 0 {
		cfg.Expiration = 24 * time.Hour
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(ctx router.Context, err error) error {
			switch err {
			case ErrTokenMissing:
				return ctx.Status(router.StatusBadRequest).SendString("CSRF token missing")
			case ErrTokenMismatch:
				return ctx.Status(router.StatusForbidden).SendString("CSRF token mismatch")
			case ErrTokenExpired:
				return ctx.Status(router.StatusForbidden).SendString("CSRF token expired")
			default:
				return ctx.Status(router.StatusInternalServerError).SendString("CSRF validation error")
			}
		}
	}

	if len(cfg.SecureKey) > 0 && len(cfg.SecureKey) < 32 {
		panic(fmt.Errorf("csrf: secure key must be at least 32 bytes, got %d", len(cfg.SecureKey)))
	}

	if len(cfg.SecureKey) == 0 {
		key := make([]byte, 32)
		if _, err := io.ReadFull(rand.Reader, key); err != nil {
			panic(fmt.Errorf("csrf: unable to initialize secure key: %w", err))
		}
		cfg.SecureKey = key
	}

	return cfg
}
