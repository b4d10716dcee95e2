package ats

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// FirstLoginProfile carries the identity attributes captured from a social
// provider during login.
type FirstLoginProfile struct {
	Email   string
	Name    string
	Picture string
}

// UserFinder is the read-only identity store surface the session resolver
// depends on.
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*UserRecord, error)
}

// UserRegistrar registers accounts on their first social login.
type UserRegistrar interface {
	UpsertOnFirstLogin(ctx context.Context, profile FirstLoginProfile) (*UserRecord, bool, error)
}

type Users interface {
	repository.Repository[*UserRecord]

	FindByEmail(ctx context.Context, email string) (*UserRecord, error)
	FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*UserRecord, error)
	UpsertOnFirstLogin(ctx context.Context, profile FirstLoginProfile) (*UserRecord, bool, error)
	UpsertOnFirstLoginTx(ctx context.Context, tx bun.IDB, profile FirstLoginProfile) (*UserRecord, bool, error)
}

type users struct {
	repository.Repository[*UserRecord]
	db *bun.DB
}

var (
	_ Users         = (*users)(nil)
	_ UserFinder    = (*users)(nil)
	_ UserRegistrar = (*users)(nil)
)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*UserRecord](db, repository.ModelHandlers[*UserRecord]{
		NewRecord: func() *UserRecord { return &UserRecord{} },
		GetID: func(u *UserRecord) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *UserRecord, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (r *users) FindByEmail(ctx context.Context, email string) (*UserRecord, error) {
	return r.FindByEmailTx(ctx, r.db, email)
}

func (r *users) FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*UserRecord, error) {
	record := &UserRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"email": email,
				})
		}
		return nil, err
	}

	return record, nil
}

// UpsertOnFirstLogin registers the account if the email is unseen and returns
// the stored record either way. A repeat login never refreshes the stored
// profile fields; the insert races safely through ON CONFLICT DO NOTHING.
func (r *users) UpsertOnFirstLogin(ctx context.Context, profile FirstLoginProfile) (*UserRecord, bool, error) {
	return r.UpsertOnFirstLoginTx(ctx, r.db, profile)
}

func (r *users) UpsertOnFirstLoginTx(ctx context.Context, tx bun.IDB, profile FirstLoginProfile) (*UserRecord, bool, error) {
	record := &UserRecord{
		ID:      uuid.New(),
		Email:   profile.Email,
		Name:    profile.Name,
		Picture: profile.Picture,
	}

	res, err := tx.NewInsert().
		Model(record).
		On("CONFLICT (email) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, false, err
	}

	created := false
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		created = true
	}

	stored, err := r.FindByEmailTx(ctx, tx, profile.Email)
	if err != nil {
		return nil, false, err
	}

	return stored, created, nil
}
