package csrf

import (
	"testing"
	"time"

	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestSecureKey() []byte {
	return []byte("0123456789abcdef0123456789abcdef")
}

func newMockContextWithBase(method string) *router.MockContext {
	ctx := router.NewMockContext()
	ctx.On("Method").Return(method)
	ctx.On("IP").Return("127.0.0.1")
	ctx.On("Locals", DefaultContextKey, mock.Anything).Return(nil)
	ctx.On("Locals", DefaultFieldKey, mock.Anything).Return(nil)
	return ctx
}

func passthrough(ctx router.Context) error { return nil }

func TestTokenRoundTrip(t *testing.T) {
	cfg := Config{
		SecureKey: newTestSecureKey(),
		ErrorHandler: func(ctx router.Context, err error) error {
			return err
		},
	}

	handler := New(cfg)(passthrough)

	getCtx := newMockContextWithBase("GET")
	require.NoError(t, handler(getCtx))

	token, ok := getCtx.LocalsMock[DefaultContextKey].(string)
	require.True(t, ok)
	require.NotEmpty(t, token)

	field, ok := getCtx.LocalsMock[DefaultFieldKey].(string)
	require.True(t, ok)
	require.Contains(t, field, DefaultFormFieldName)
	require.Contains(t, field, token)

	postCtx := newMockContextWithBase("POST")
	postCtx.On("FormValue", DefaultFormFieldName).Return(token)

	require.NoError(t, handler(postCtx))
}

func TestMissingToken(t *testing.T) {
	var captured error
	cfg := Config{
		SecureKey: newTestSecureKey(),
		ErrorHandler: func(ctx router.Context, err error) error {
			captured = err
			return err
		},
	}

	handler := New(cfg)(passthrough)

	postCtx := newMockContextWithBase("POST")
	postCtx.On("FormValue", DefaultFormFieldName).Return("")

	require.Error(t, handler(postCtx))
	require.ErrorIs(t, captured, ErrTokenMissing)
}

func TestTamperedToken(t *testing.T) {
	var captured error
	cfg := Config{
		SecureKey: newTestSecureKey(),
		ErrorHandler: func(ctx router.Context, err error) error {
			captured = err
			return err
		},
	}

	handler := New(cfg)(passthrough)

	postCtx := newMockContextWithBase("POST")
	postCtx.On("FormValue", DefaultFormFieldName).Return("tampered")

	require.Error(t, handler(postCtx))
	require.ErrorIs(t, captured, ErrTokenMismatch)
}

func TestTokenFromAnotherClient(t *testing.T) {
	var captured error
	cfg := Config{
		SecureKey: newTestSecureKey(),
		ErrorHandler: func(ctx router.Context, err error) error {
			captured = err
			return err
		},
	}

	handler := New(cfg)(passthrough)

	getCtx := newMockContextWithBase("GET")
	require.NoError(t, handler(getCtx))
	token := getCtx.LocalsMock[DefaultContextKey].(string)

	postCtx := router.NewMockContext()
	postCtx.On("Method").Return("POST")
	postCtx.On("IP").Return("10.0.0.9")
	postCtx.On("Locals", DefaultContextKey, mock.Anything).Return(nil)
	postCtx.On("Locals", DefaultFieldKey, mock.Anything).Return(nil)
	postCtx.On("FormValue", DefaultFormFieldName).Return(token)

	require.Error(t, handler(postCtx))
	require.ErrorIs(t, captured, ErrTokenMismatch)
}

func TestTokenExpiration(t *testing.T) {
	cfg := Config{
		SecureKey:  newTestSecureKey(),
		Expiration: time.Nanosecond,
		ErrorHandler: func(ctx router.Context, err error) error {
			return err
		},
	}

	handler := New(cfg)(passthrough)

	getCtx := newMockContextWithBase("GET")
	require.NoError(t, handler(getCtx))
	token := getCtx.LocalsMock[DefaultContextKey].(string)

	time.Sleep(time.Millisecond)

	postCtx := newMockContextWithBase("POST")
	postCtx.On("FormValue", DefaultFormFieldName).Return(token)

	err := handler(postCtx)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestSafeMethodsSkipValidation(t *testing.T) {
	cfg := Config{
		SecureKey: newTestSecureKey(),
		ErrorHandler: func(ctx router.Context, err error) error {
			return err
		},
	}

	handler := New(cfg)(passthrough)

	for _, method := range []string{"GET", "HEAD", "OPTIONS"} {
		ctx := newMockContextWithBase(method)
		require.NoError(t, handler(ctx), method)
	}
}

func TestShortSecureKeyPanics(t *testing.T) {
	require.Panics(t, func() {
		New(Config{SecureKey: []byte("short")})
	})
}
