package ats

import (
	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the claim set carried by the session token. The email is
// both the subject and an explicit claim; the store keys accounts by email so
// no opaque user id travels in the token.
type SessionClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

var _ jwt.Claims = (*SessionClaims)(nil)

// SubjectEmail returns the account email the token was issued for, falling
// back to the subject claim for tokens minted without the email claim.
func (c *SessionClaims) SubjectEmail() string {
	if c.Email != "" {
		return c.Email
	}
	return c.RegisteredClaims.Subject
}
