package kv

import (
	"context"
	"path/filepath"
	"testing"
)

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()
	mem, err := Open(ctx, Config{Driver: DriverMemory})
	if err != nil || mem.Driver() != DriverMemory {
		t.Fatalf("memory: %v %v", mem, err)
	}

	lite, err := Open(ctx, Config{SQLitePath: filepath.Join(t.TempDir(), "kv.db")})
	if err != nil {
		t.Fatalf("sqlite default: %v", err)
	}
	defer func() { _ = lite.Close() }()
	if lite.Driver() != DriverSQLite {
		t.Fatalf("empty driver should default to sqlite, got %s", lite.Driver())
	}

	if _, err := Open(ctx, Config{Driver: "etcd"}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}
