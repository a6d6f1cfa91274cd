package sqlstore

import (
	"errors"
	"time"
)

// Config configures a database/sql backed store.
type Config struct {
	// Driver is the database/sql driver name. The SQLite driver registers
	// as "sqlite".
	Driver string

	// DSN is the driver data source name.
	DSN string

	// Dialect selects placeholder and clause syntax. Defaults to SQLite.
	Dialect Dialect

	// MaxOpenConns limits open connections. In-memory SQLite databases are
	// private to their connection, so Open forces 1 for them.
	MaxOpenConns int

	// ConnMaxLifetime bounds how long a connection is reused.
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns a Config for a private in-memory SQLite database.
func DefaultConfig() Config {
	return Config{
		Driver:          "sqlite",
		DSN:             ":memory:",
		Dialect:         SQLite,
		MaxOpenConns:    1,
		ConnMaxLifetime: time.Hour,
	}
}

func (c Config) validate() error {
	if c.Driver == "" {
		return errors.New("quarry: sqlstore driver is required")
	}
	if c.DSN == "" {
		return errors.New("quarry: sqlstore dsn is required")
	}
	if c.Dialect.Name == "" {
		return errors.New("quarry: sqlstore dialect is required")
	}
	if c.MaxOpenConns < 0 {
		return errors.New("quarry: sqlstore max open conns must not be negative")
	}
	return nil
}
