package gormstore

import (
	"errors"
	"time"
)

// Config configures a PostgreSQL store opened through GORM.
type Config struct {
	// DSN is a pgx connection string.
	DSN string

	// PreferSimpleProtocol disables implicit prepared statements, for
	// poolers such as PgBouncer in transaction mode.
	PreferSimpleProtocol bool

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// SlowThreshold marks statements logged as slow.
	SlowThreshold time.Duration
}

// DefaultConfig returns pool defaults for dsn.
func DefaultConfig(dsn string) Config {
	return Config{
		DSN:             dsn,
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
		SlowThreshold:   200 * time.Millisecond,
	}
}

func (c Config) validate() error {
	if c.DSN == "" {
		return errors.New("quarry: gormstore dsn is required")
	}
	if c.MaxOpenConns < 0 || c.MaxIdleConns < 0 {
		return errors.New("quarry: gormstore connection limits must not be negative")
	}
	return nil
}
