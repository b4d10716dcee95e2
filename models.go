package ats

import (
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var (
	// Brazilian document and address formats used on the settings page.
	cnpjPattern  = regexp.MustCompile(`^\d{3}\.\d{3}\.\d{3}/\d{4}-\d{2}$`)
	cepPattern   = regexp.MustCompile(`^\d{5}-\d{3}$`)
	statePattern = regexp.MustCompile(`^[A-Za-z]{2}$`)
)

// UserRecord is an account known to the application. Accounts are keyed by
// email; the profile fields are captured from the first social login and never
// refreshed afterwards.
type UserRecord struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Name          string     `bun:"name" json:"name,omitempty"`
	Picture       string     `bun:"picture" json:"picture,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// GetEmail returns the account's email identifier.
func (u *UserRecord) GetEmail() string {
	if u == nil {
		return ""
	}
	return u.Email
}

// Company is a client company managed from the settings page.
type Company struct {
	bun.BaseModel     `bun:"table:companies,alias:cmp"`
	ID                uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name              string     `bun:"company_name,notnull" json:"company_name,omitempty"`
	CNPJ              string     `bun:"company_cnpj,notnull,unique" json:"company_cnpj,omitempty"`
	AddressCEP        string     `bun:"address_cep,notnull" json:"address_cep,omitempty"`
	AddressNumber     string     `bun:"address_number" json:"address_number,omitempty"`
	AddressAdditional string     `bun:"address_additional" json:"address_additional,omitempty"`
	AddressCity       string     `bun:"address_city,notnull" json:"address_city,omitempty"`
	AddressState      string     `bun:"address_state,notnull" json:"address_state,omitempty"`
	CreatedAt         *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt         *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Validate runs the company field rules. CNPJ, CEP and state must match the
// Brazilian formats; the street number and address complement are optional.
func (c Company) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&c.CNPJ, validation.Required, validation.Match(cnpjPattern)),
		validation.Field(&c.AddressCEP, validation.Required, validation.Match(cepPattern)),
		validation.Field(&c.AddressNumber, validation.Length(0, 20)),
		validation.Field(&c.AddressCity, validation.Required, validation.Length(1, 200)),
		validation.Field(&c.AddressState, validation.Required, validation.Match(statePattern)),
	)
}

// SessionSlot is a server side holder for one session credential. Used by the
// slot transport so the browser only carries an opaque slot id.
type SessionSlot struct {
	bun.BaseModel `bun:"table:session_slots,alias:slt"`
	ID            string     `bun:"id,pk" json:"id,omitempty"`
	Token         string     `bun:"token,notnull" json:"token,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}
