package ats

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Companies interface {
	repository.Repository[*Company]

	ListAll(ctx context.Context) ([]*Company, error)
	FindByCNPJ(ctx context.Context, cnpj string) (*Company, error)
	CreateCompany(ctx context.Context, record *Company) (*Company, error)
	UpdateCompany(ctx context.Context, id uuid.UUID, record *Company) (*Company, error)
	DeleteCompany(ctx context.Context, id uuid.UUID) (bool, error)
}

type companies struct {
	repository.Repository[*Company]
	db *bun.DB
}

var _ Companies = (*companies)(nil)

func NewCompaniesRepository(db *bun.DB) Companies {
	repo := repository.NewRepository[*Company](db, repository.ModelHandlers[*Company]{
		NewRecord: func() *Company { return &Company{} },
		GetID: func(c *Company) uuid.UUID {
			if c == nil {
				return uuid.Nil
			}
			return c.ID
		},
		SetID: func(c *Company, id uuid.UUID) {
			if c != nil {
				c.ID = id
			}
		},
		GetIdentifier: func() string {
			return "company_cnpj"
		},
	})

	return &companies{
		Repository: repo,
		db:         db,
	}
}

func (r *companies) ListAll(ctx context.Context) ([]*Company, error) {
	records := []*Company{}
	err := r.db.NewSelect().
		Model(&records).
		Order("company_name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *companies) FindByCNPJ(ctx context.Context, cnpj string) (*Company, error) {
	record := &Company{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.company_cnpj = ?", cnpj).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"company_cnpj": cnpj,
				})
		}
		return nil, err
	}

	return record, nil
}

// CreateCompany registers a new company, rejecting duplicates by CNPJ.
func (r *companies) CreateCompany(ctx context.Context, record *Company) (*Company, error) {
	existing, err := r.FindByCNPJ(ctx, record.CNPJ)
	if err != nil && !repository.IsRecordNotFound(err) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrCompanyExists
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	return r.Repository.Create(ctx, record)
}

// UpdateCompany applies the given fields to an existing company. Moving the
// CNPJ onto one already held by another company is rejected.
func (r *companies) UpdateCompany(ctx context.Context, id uuid.UUID, record *Company) (*Company, error) {
	if record.CNPJ != "" {
		existing, err := r.FindByCNPJ(ctx, record.CNPJ)
		if err != nil && !repository.IsRecordNotFound(err) {
			return nil, err
		}
		if existing != nil && existing.ID != id {
			return nil, ErrCompanyExists
		}
	}

	record.ID = id
	return r.Repository.Update(ctx, record, repository.UpdateByID(id.String()))
}

// DeleteCompany removes a company by id. Deleting an id that no longer exists
// is not an error; the returned bool reports whether a row went away.
func (r *companies) DeleteCompany(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.NewDelete().
		Model((*Company)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
