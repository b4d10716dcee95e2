package ats

import (
	"context"
	"database/sql"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// SessionSlots stores session credentials server side, keyed by an opaque
// slot id the browser carries instead of the credential itself.
type SessionSlots interface {
	Put(ctx context.Context, id, token string) error
	Get(ctx context.Context, id string) (string, error)
	Delete(ctx context.Context, id string) error
}

type sessionSlots struct {
	db *bun.DB
}

var _ SessionSlots = (*sessionSlots)(nil)

func NewSessionSlotsRepository(db *bun.DB) SessionSlots {
	return &sessionSlots{db: db}
}

// Put writes the token for the slot, replacing any previous value.
func (r *sessionSlots) Put(ctx context.Context, id, token string) error {
	record := &SessionSlot{
		ID:    id,
		Token: token,
	}

	_, err := r.db.NewInsert().
		Model(record).
		On("CONFLICT (id) DO UPDATE").
		Set("token = EXCLUDED.token").
		Set("updated_at = CURRENT_TIMESTAMP").
		Exec(ctx)

	return err
}

// Get returns the token held by the slot, or the empty string when the slot
// does not exist.
func (r *sessionSlots) Get(ctx context.Context, id string) (string, error) {
	record := &SessionSlot{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}

	return record.Token, nil
}

// Delete drops the slot. Deleting a missing slot is a no-op.
func (r *sessionSlots) Delete(ctx context.Context, id string) error {
	_, err := r.db.NewDelete().
		Model((*SessionSlot)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}
