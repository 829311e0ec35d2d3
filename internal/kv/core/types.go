// Package core defines the driver identifiers and store contract shared by
// the key-value backends and the kv facade.
package core

import "invoicedesk/pkg/domain"

// Driver identifies a key-value backend implementation.
type Driver string

const (
	DriverMemory   Driver = "memory"   // in-process map (tests, demos)
	DriverSQLite   Driver = "sqlite"   // single-file sqlite database (default)
	DriverPostgres Driver = "postgres" // postgres via pgx database/sql
	DriverRedis    Driver = "redis"    // redis GET/SET/DEL
	DriverMongo    Driver = "mongo"    // mongodb collection
)

// Store is a domain.KeyValueStore that reports its backend.
type Store interface {
	domain.KeyValueStore
	Driver() Driver
}
