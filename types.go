package ats

import (
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// TokenService issues and verifies the signed session credential that
// identifies a logged in account between requests.
type TokenService interface {
	Issue(email string, now time.Time) (string, error)
	Verify(token string, now time.Time) (string, error)
}

// TokenVerifier is the verification-only surface of TokenService. Components
// that never mint tokens should depend on this instead.
type TokenVerifier interface {
	Verify(token string, now time.Time) (string, error)
}

// TokenIssuer is the issuing-only surface of TokenService.
type TokenIssuer interface {
	Issue(email string, now time.Time) (string, error)
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] ATS "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] ATS "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] ATS "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
