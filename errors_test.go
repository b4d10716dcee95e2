package ats_test

import (
	"fmt"
	"testing"

	ats "github.com/byndhr/ats-admin"
	"github.com/stretchr/testify/assert"
)

func TestErrorPredicates(t *testing.T) {
	t.Run("token invalid", func(t *testing.T) {
		assert.True(t, ats.IsTokenInvalid(ats.ErrTokenInvalid))
		assert.False(t, ats.IsTokenInvalid(ats.ErrStoreUnavailable))
		assert.False(t, ats.IsTokenInvalid(nil))
	})

	t.Run("store unavailable matches through wrapping", func(t *testing.T) {
		cause := fmt.Errorf("dial tcp: connection refused")
		err := ats.NewStoreUnavailable(cause)

		assert.True(t, ats.IsStoreUnavailable(err))
		assert.False(t, ats.IsStoreUnavailable(cause))

		wrapped := fmt.Errorf("during request: %w", err)
		assert.True(t, ats.IsStoreUnavailable(wrapped))
	})

	t.Run("company exists", func(t *testing.T) {
		assert.True(t, ats.IsCompanyExists(ats.ErrCompanyExists))
		assert.False(t, ats.IsCompanyExists(assert.AnError))
	})
}
