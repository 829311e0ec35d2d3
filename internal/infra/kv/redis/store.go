// Package redis stores key-value pairs as plain redis strings.
package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"invoicedesk/internal/kv/core"
)

// Config configures the redis connection.
type Config struct {
	Addr     string
	Password string
	DB       int
	// Prefix is prepended to every key, for sharing one database.
	Prefix string
}

// Store maps Get/Set/Remove onto GET/SET/DEL.
type Store struct {
	client goredis.UniversalClient
	prefix string
	owned  bool
}

var _ core.Store = (*Store)(nil)

// New connects to cfg.Addr (localhost:6379 when empty) and pings it.
func New(ctx context.Context, cfg Config) (*Store, error) {
	addr := cfg.Addr
	if addr == "" {
		addr = "localhost:6379"
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return &Store{client: client, prefix: cfg.Prefix, owned: true}, nil
}

// NewWithClient wraps an existing client. Close leaves the client open.
func NewWithClient(client goredis.UniversalClient, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

func (s *Store) key(k string) string { return s.prefix + k }

// Get implements domain.KeyValueStore.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, true, nil
}

// Set implements domain.KeyValueStore. Values never expire.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Remove implements domain.KeyValueStore.
func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Close implements domain.KeyValueStore.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}

// Driver reports the redis driver.
func (s *Store) Driver() core.Driver { return core.DriverRedis }
