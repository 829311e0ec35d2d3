package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"invoicedesk/pkg/domain"
)

var errBackendDown = errors.New("backend down")

type fakeKV struct {
	mu      sync.Mutex
	data    map[string][]byte
	sets    int
	failSet bool
	failGet bool
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string][]byte)}
}

func (f *fakeKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet {
		return nil, false, errBackendDown
	}
	v, ok := f.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (f *fakeKV) Set(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSet {
		return errBackendDown
	}
	f.sets++
	f.data[key] = append([]byte(nil), value...)
	return nil
}

func (f *fakeKV) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

func (f *fakeKV) Close() error { return nil }

func (f *fakeKV) setCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sets
}

func fixedClock() func() time.Time {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return ts }
}

func testInvoice(id, number string, total float64, status domain.Status) domain.Invoice {
	return domain.Invoice{
		InvoiceID:      id,
		Vendor:         "Acme",
		InvoiceNumber:  number,
		InvoiceDate:    "2025-05-01",
		InvoiceDueDate: "2025-05-31",
		TotalAmount:    domain.NewAmount(total),
		Expenses: []domain.Expense{{
			LineAmount:  domain.NewAmount(total),
			Department:  "Ops",
			Account:     "6000",
			Description: "line",
		}},
		Status:    status,
		CreatedAt: "2025-05-01T10:00:00Z",
		UpdatedAt: "2025-05-01T10:00:00Z",
	}
}

func loadedStore(t *testing.T, kv domain.KeyValueStore, opts ...StoreOption) *InvoiceStore {
	t.Helper()
	store := NewInvoiceStore(kv, "alice", opts...)
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return store
}

type captureLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

type logEntry struct {
	level string
	msg   string
}

func (c *captureLogger) log(level, msg string) {
	c.mu.Lock()
	c.entries = append(c.entries, logEntry{level: level, msg: msg})
	c.mu.Unlock()
}

func (c *captureLogger) Debug(msg string, _ ...any) { c.log("debug", msg) }
func (c *captureLogger) Info(msg string, _ ...any)  { c.log("info", msg) }
func (c *captureLogger) Warn(msg string, _ ...any)  { c.log("warn", msg) }
func (c *captureLogger) Error(msg string, _ ...any) { c.log("error", msg) }

func (c *captureLogger) count(level string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.entries {
		if e.level == level {
			n++
		}
	}
	return n
}
