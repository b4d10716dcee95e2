package ats

import (
	"time"

	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

const (
	// SessionCookieName is the browser cookie carrying the session credential
	// when the cookie transport is active.
	SessionCookieName = "ats_jwt_token"

	// SlotCookieName is the browser cookie carrying the opaque slot id when
	// the slot transport is active.
	SlotCookieName = "ats_session_slot"
)

// Session transport strategies selectable through configuration.
const (
	StrategyCookie = "cookie"
	StrategySlot   = "slot"
)

// SessionTransport moves the session credential between the browser and the
// application. The cookie transport stores the credential itself client side;
// the slot transport keeps it server side behind an opaque id.
type SessionTransport interface {
	Read(c router.Context) (string, error)
	Attach(c router.Context, token string) error
	Clear(c router.Context) error
}

// NewSessionTransport selects a transport by strategy name. Unknown names
// fall back to the cookie transport.
func NewSessionTransport(strategy string, duration time.Duration, slots SessionSlots, logger Logger) SessionTransport {
	if strategy == StrategySlot && slots != nil {
		return NewSlotTransport(slots, duration, logger)
	}
	return NewCookieTransport(duration)
}

// CookieTransport keeps the credential in an HTTP only cookie.
type CookieTransport struct {
	name     string
	duration time.Duration
}

var _ SessionTransport = (*CookieTransport)(nil)

func NewCookieTransport(duration time.Duration) *CookieTransport {
	if duration <= 0 {
		duration = DefaultTokenLifetime
	}
	return &CookieTransport{
		name:     SessionCookieName,
		duration: duration,
	}
}

func (t *CookieTransport) Read(c router.Context) (string, error) {
	return c.Cookies(t.name), nil
}

func (t *CookieTransport) Attach(c router.Context, token string) error {
	setCookie(c, t.name, token, t.duration)
	return nil
}

func (t *CookieTransport) Clear(c router.Context) error {
	delCookie(c, t.name)
	return nil
}

// SlotTransport keeps the credential in the session slot store and hands the
// browser only the slot id.
type SlotTransport struct {
	slots    SessionSlots
	name     string
	duration time.Duration
	logger   Logger
}

var _ SessionTransport = (*SlotTransport)(nil)

func NewSlotTransport(slots SessionSlots, duration time.Duration, logger Logger) *SlotTransport {
	if duration <= 0 {
		duration = DefaultTokenLifetime
	}
	if logger == nil {
		logger = defLogger{}
	}
	return &SlotTransport{
		slots:    slots,
		name:     SlotCookieName,
		duration: duration,
		logger:   logger,
	}
}

func (t *SlotTransport) Read(c router.Context) (string, error) {
	id := c.Cookies(t.name)
	if id == "" {
		return "", nil
	}

	token, err := t.slots.Get(c.Context(), id)
	if err != nil {
		t.logger.Error("slot transport read failed", "slot", id, "error", err)
		return "", NewStoreUnavailable(err)
	}

	return token, nil
}

func (t *SlotTransport) Attach(c router.Context, token string) error {
	id := c.Cookies(t.name)
	if id == "" {
		id = uuid.NewString()
	}

	if err := t.slots.Put(c.Context(), id, token); err != nil {
		t.logger.Error("slot transport attach failed", "slot", id, "error", err)
		return NewStoreUnavailable(err)
	}

	setCookie(c, t.name, id, t.duration)
	return nil
}

func (t *SlotTransport) Clear(c router.Context) error {
	id := c.Cookies(t.name)
	if id != "" {
		if err := t.slots.Delete(c.Context(), id); err != nil {
			t.logger.Error("slot transport clear failed", "slot", id, "error", err)
		}
	}

	delCookie(c, t.name)
	return nil
}

func setCookie(c router.Context, name, val string, duration time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    val,
		Path:     "/",
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func delCookie(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}
