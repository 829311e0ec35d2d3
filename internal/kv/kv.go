// Package kv selects the persistent key-value backend.
package kv

import (
	"context"
	"fmt"

	"invoicedesk/internal/infra/kv/memory"
	"invoicedesk/internal/infra/kv/mongo"
	"invoicedesk/internal/infra/kv/postgres"
	"invoicedesk/internal/infra/kv/redis"
	"invoicedesk/internal/infra/kv/sqlite"
	"invoicedesk/internal/kv/core"
)

type (
	// Driver identifies a key-value backend.
	Driver = core.Driver
	// Store is the backend contract returned by Open.
	Store = core.Store
)

const (
	DriverMemory   = core.DriverMemory
	DriverSQLite   = core.DriverSQLite
	DriverPostgres = core.DriverPostgres
	DriverRedis    = core.DriverRedis
	DriverMongo    = core.DriverMongo
)

// Config holds the settings of every driver; only the selected driver's
// fields are read.
type Config struct {
	Driver        Driver
	SQLitePath    string
	PostgresDSN   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
	MongoURI      string
	MongoDatabase string
}

// Open constructs the backend named by cfg.Driver (sqlite when empty).
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverSQLite
	}
	switch driver {
	case DriverMemory:
		return memory.New(), nil
	case DriverSQLite:
		return sqlite.New(cfg.SQLitePath)
	case DriverPostgres:
		return postgres.New(ctx, cfg.PostgresDSN)
	case DriverRedis:
		return redis.New(ctx, redis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
	case DriverMongo:
		return mongo.New(ctx, mongo.Config{URI: cfg.MongoURI, Database: cfg.MongoDatabase})
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

// NewMemory returns an in-process store.
func NewMemory() Store { return memory.New() }
