package ats

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// DefaultTokenLifetime is how long a session credential stays valid.
const DefaultTokenLifetime = 7 * 24 * time.Hour

// HSTokenService implements TokenService using HS256 signed JWTs.
type HSTokenService struct {
	signingKey []byte
	lifetime   time.Duration
	issuer     string
	logger     Logger
}

var _ TokenService = (*HSTokenService)(nil)

// NewTokenService creates a new TokenService instance.
func NewTokenService(signingKey []byte, lifetime time.Duration, issuer string, logger Logger) *HSTokenService {
	if lifetime <= 0 {
		lifetime = DefaultTokenLifetime
	}
	if logger == nil {
		logger = defLogger{}
	}
	return &HSTokenService{
		signingKey: signingKey,
		lifetime:   lifetime,
		issuer:     issuer,
		logger:     logger,
	}
}

// Issue mints a session token for the given account email. The token expires
// lifetime after now.
func (ts *HSTokenService) Issue(email string, now time.Time) (string, error) {
	if email == "" {
		return "", errors.New("email must not be empty", errors.CategoryInternal)
	}

	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.lifetime)),
		},
		Email: email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign session token")
	}

	return signed, nil
}

// Verify parses and validates a session token, returning the account email it
// was issued for. Every failure mode collapses into ErrTokenInvalid; the
// reason is logged but never exposed to the caller.
func (ts *HSTokenService) Verify(tokenString string, now time.Time) (string, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method", errors.CategoryAuth)
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			ts.logger.Debug("token verify rejected expired token")
		} else {
			ts.logger.Debug("token verify rejected token", "error", err)
		}
		return "", ErrTokenInvalid
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		ts.logger.Error("token verify could not decode claims")
		return "", ErrTokenInvalid
	}

	email := claims.SubjectEmail()
	if email == "" {
		ts.logger.Debug("token verify rejected token without email claim")
		return "", ErrTokenInvalid
	}

	return email, nil
}
