// Package dbtest provides an in-process database/sql driver with scripted
// responses, so database-dependent code can be tested without a running
// MySQL server. Tests script query and exec outcomes on an Engine and hand
// its pool to the code under test; the Engine records transaction outcomes
// for assertions.
package dbtest

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"sync"
)

// Result is one scripted result set.
type Result struct {
	Columns []string
	Rows    [][]driver.Value
}

// QueryFunc answers one query. Returning an error simulates a driver-layer
// failure.
type QueryFunc func(query string, args []driver.Value) (*Result, error)

// ExecFunc answers one exec, returning the affected-row count.
type ExecFunc func(query string, args []driver.Value) (int64, error)

// Engine scripts responses and records transaction outcomes.
type Engine struct {
	mu        sync.Mutex
	onQuery   QueryFunc
	onExec    ExecFunc
	commits   int
	rollbacks int
}

func NewEngine() *Engine {
	return &Engine{}
}

func (e *Engine) OnQuery(fn QueryFunc) { e.onQuery = fn }
func (e *Engine) OnExec(fn ExecFunc)   { e.onExec = fn }

func (e *Engine) Commits() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.commits
}

func (e *Engine) Rollbacks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rollbacks
}

// Open returns a pool backed by this engine.
func (e *Engine) Open() *sql.DB {
	return sql.OpenDB(&connector{engine: e})
}

func (e *Engine) query(query string, args []driver.Value) (*Result, error) {
	if e.onQuery == nil {
		return nil, fmt.Errorf("dbtest: unscripted query %q", query)
	}
	return e.onQuery(query, args)
}

func (e *Engine) exec(query string, args []driver.Value) (int64, error) {
	if e.onExec == nil {
		return 0, fmt.Errorf("dbtest: unscripted exec %q", query)
	}
	return e.onExec(query, args)
}

// --- driver plumbing ---

type connector struct {
	engine *Engine
}

func (c *connector) Connect(ctx context.Context) (driver.Conn, error) {
	return &conn{engine: c.engine}, nil
}

func (c *connector) Driver() driver.Driver {
	return fakeDriver{}
}

type fakeDriver struct{}

func (fakeDriver) Open(name string) (driver.Conn, error) {
	return nil, fmt.Errorf("dbtest: use sql.OpenDB")
}

type conn struct {
	engine *Engine
}

func (c *conn) Prepare(query string) (driver.Stmt, error) {
	return nil, fmt.Errorf("dbtest: prepared statements are not supported")
}

func (c *conn) Close() error {
	return nil
}

func (c *conn) Begin() (driver.Tx, error) {
	return &tx{engine: c.engine}, nil
}

func (c *conn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	return &tx{engine: c.engine}, nil
}

func (c *conn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	res, err := c.engine.query(query, values(args))
	if err != nil {
		return nil, err
	}
	return &rows{result: res}, nil
}

func (c *conn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	affected, err := c.engine.exec(query, values(args))
	if err != nil {
		return nil, err
	}
	return execResult{affected: affected}, nil
}

func values(args []driver.NamedValue) []driver.Value {
	out := make([]driver.Value, len(args))
	for i, a := range args {
		out[i] = a.Value
	}
	return out
}

type tx struct {
	engine *Engine
}

func (t *tx) Commit() error {
	t.engine.mu.Lock()
	defer t.engine.mu.Unlock()
	t.engine.commits++
	return nil
}

func (t *tx) Rollback() error {
	t.engine.mu.Lock()
	defer t.engine.mu.Unlock()
	t.engine.rollbacks++
	return nil
}

type execResult struct {
	affected int64
}

func (r execResult) LastInsertId() (int64, error) {
	return 0, nil
}

func (r execResult) RowsAffected() (int64, error) {
	return r.affected, nil
}

type rows struct {
	result *Result
	idx    int
}

func (r *rows) Columns() []string {
	return r.result.Columns
}

func (r *rows) Close() error {
	return nil
}

func (r *rows) Next(dest []driver.Value) error {
	if r.idx >= len(r.result.Rows) {
		return io.EOF
	}
	copy(dest, r.result.Rows[r.idx])
	r.idx++
	return nil
}
