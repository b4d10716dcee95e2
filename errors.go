package ats

import (
	"github.com/goliatone/go-errors"
)

const (
	TextCodeTokenInvalid     = "session_token_invalid"
	TextCodeStoreUnavailable = "identity_store_unavailable"
	TextCodeCompanyExists    = "company_cnpj_exists"
)

// ErrTokenInvalid is the single error surfaced for any credential that fails
// verification: bad signature, expired, malformed, or missing its email claim.
// Callers must not be able to distinguish why a token was rejected.
var ErrTokenInvalid = errors.New("invalid session token", errors.CategoryAuth).
	WithTextCode(TextCodeTokenInvalid).
	WithCode(errors.CodeUnauthorized)

// ErrStoreUnavailable is returned when the identity store cannot answer a
// lookup. Sessions fail closed on this error.
var ErrStoreUnavailable = errors.New("identity store unavailable", errors.CategoryInternal).
	WithTextCode(TextCodeStoreUnavailable).
	WithCode(errors.CodeInternal)

// ErrCompanyExists is returned when creating or updating a company would
// duplicate an existing CNPJ.
var ErrCompanyExists = errors.New("company with this CNPJ already exists", errors.CategoryValidation).
	WithTextCode(TextCodeCompanyExists).
	WithCode(errors.CodeConflict)

// NewStoreUnavailable wraps a storage failure so callers can match it with
// IsStoreUnavailable while keeping the original cause in the chain.
func NewStoreUnavailable(cause error) *errors.Error {
	return errors.Wrap(cause, errors.CategoryInternal, ErrStoreUnavailable.Message).
		WithTextCode(TextCodeStoreUnavailable).
		WithCode(errors.CodeInternal)
}

func IsTokenInvalid(err error) bool {
	return hasTextCode(err, TextCodeTokenInvalid)
}

func IsStoreUnavailable(err error) bool {
	return hasTextCode(err, TextCodeStoreUnavailable)
}

func IsCompanyExists(err error) bool {
	return hasTextCode(err, TextCodeCompanyExists)
}

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == code
}
