package ats

import (
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// Config is the application configuration, parsed from the environment.
type Config struct {
	BaseURL         string        `env:"BASE_URL" envDefault:"http://localhost:8080"`
	Port            int           `env:"PORT" envDefault:"8080"`
	StorageSecret   string        `env:"APP_STORAGE_SECRET,required"`
	TokenLifetime   time.Duration `env:"JWT_TOKEN_LIFETIME" envDefault:"168h"`
	SessionStrategy string        `env:"SESSION_STRATEGY" envDefault:"cookie"`
	Debug           bool          `env:"DEBUG"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID,required"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET,required"`

	Persistence PersistenceConfig `envPrefix:"DB_"`
}

// PersistenceConfig configures the database client.
type PersistenceConfig struct {
	DSN         string        `env:"DSN" envDefault:"file:ats.db?cache=shared&_pragma=foreign_keys(1)"`
	Debug       bool          `env:"DEBUG"`
	PingTimeout time.Duration `env:"PING_TIMEOUT" envDefault:"5s"`
}

func (p PersistenceConfig) GetDSN() string {
	return p.DSN
}

func (p PersistenceConfig) GetDebug() bool {
	return p.Debug
}

func (p PersistenceConfig) GetPingTimeout() time.Duration {
	return p.PingTimeout
}

func (p PersistenceConfig) GetDriver() string {
	return sqliteshim.ShimName
}

func (p PersistenceConfig) GetServer() string {
	return p.DSN
}

func (p PersistenceConfig) GetOtelIdentifier() string {
	return "ats-admin"
}

// LoadConfig parses and validates the configuration from the environment.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate will run validation rules
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.StorageSecret, validation.Required, validation.Length(16, 0)),
		validation.Field(&c.SessionStrategy, validation.Required, validation.In(StrategyCookie, StrategySlot)),
	)
}
