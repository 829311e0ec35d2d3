// Package testutil provides a stub database/sql driver that understands the
// statements issued by the postgres key-value store.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
)

var stubSeq uint64

// StubConn keeps kv_state rows in memory and records every statement.
type StubConn struct {
	mu       sync.Mutex
	Execs    []string
	Rows     map[string][]byte
	FailPing bool
	FailExec bool
	FailRead bool
}

// NewStubDB registers a uniquely named driver and opens a sql.DB on it.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{Rows: make(map[string][]byte)}
	name := fmt.Sprintf("stubkv%d", atomic.AddUint64(&stubSeq, 1))
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

// Statements returns a copy of the executed statements.
func (c *StubConn) Statements() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.Execs...)
}

type stubDriver struct {
	conn *StubConn
}

func (d *stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

// Prepare implements driver.Conn.
func (c *StubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) { return stubTx{}, nil }

// Ping implements driver.Pinger.
func (c *StubConn) Ping(context.Context) error {
	if c.FailPing {
		return fmt.Errorf("ping fail")
	}
	return nil
}

// ExecContext implements driver.ExecerContext.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Execs = append(c.Execs, query)
	if c.FailExec {
		return nil, fmt.Errorf("exec fail")
	}
	switch verb(query) {
	case "INSERT":
		if len(args) != 2 {
			return nil, fmt.Errorf("insert expects key and payload, got %d args", len(args))
		}
		key, _ := args[0].Value.(string)
		payload, _ := args[1].Value.([]byte)
		c.Rows[key] = append([]byte(nil), payload...)
	case "DELETE":
		if len(args) != 1 {
			return nil, fmt.Errorf("delete expects key, got %d args", len(args))
		}
		key, _ := args[0].Value.(string)
		delete(c.Rows, key)
	}
	return driver.RowsAffected(1), nil
}

// QueryContext implements driver.QueryerContext.
func (c *StubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailRead {
		return nil, fmt.Errorf("query fail")
	}
	if verb(query) != "SELECT" || len(args) != 1 {
		return nil, fmt.Errorf("unsupported query: %s", query)
	}
	key, _ := args[0].Value.(string)
	rows := &stubRows{}
	if payload, ok := c.Rows[key]; ok {
		rows.values = [][]driver.Value{{append([]byte(nil), payload...)}}
	}
	return rows, nil
}

func verb(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

type stubRows struct {
	values [][]driver.Value
	idx    int
}

func (r *stubRows) Columns() []string { return []string{"payload"} }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.values) {
		return io.EOF
	}
	copy(dest, r.values[r.idx])
	r.idx++
	return nil
}
