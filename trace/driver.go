package trace

import (
	"context"
	"database/sql/driver"
	"log/slog"
	"strings"
	"time"

	"github.com/hazyhaar/qmsearch/kit"
)

// TracingDriver wraps the modernc.org/sqlite driver, intercepting every
// Exec and Query at the database/sql/driver level.
//
// Only the driver.Conn methods are exposed, so database/sql always goes
// through Prepare and every statement passes through tracingStmt.
type TracingDriver struct {
	driver.Driver
}

func (d *TracingDriver) Open(name string) (driver.Conn, error) {
	conn, err := d.Driver.Open(name)
	if err != nil {
		return nil, err
	}
	return &tracingConn{Conn: conn}, nil
}

type tracingConn struct {
	driver.Conn
}

func (c *tracingConn) Prepare(query string) (driver.Stmt, error) {
	return c.PrepareContext(context.Background(), query)
}

func (c *tracingConn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	var stmt driver.Stmt
	var err error
	if pc, ok := c.Conn.(driver.ConnPrepareContext); ok {
		stmt, err = pc.PrepareContext(ctx, query)
	} else {
		stmt, err = c.Conn.Prepare(query)
	}
	if err != nil {
		return nil, err
	}
	return &tracingStmt{Stmt: stmt, query: query}, nil
}

type tracingStmt struct {
	driver.Stmt
	query string
}

// timed runs fn and records it under op.
func timed[T any](ctx context.Context, s *tracingStmt, op string, fn func() (T, error)) (T, error) {
	start := time.Now()
	v, err := fn()
	s.record(ctx, op, time.Since(start), err)
	return v, err
}

func (s *tracingStmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	return timed(ctx, s, "Exec", func() (driver.Result, error) {
		if ec, ok := s.Stmt.(driver.StmtExecContext); ok {
			return ec.ExecContext(ctx, args)
		}
		return s.Stmt.Exec(values(args))
	})
}

func (s *tracingStmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	return timed(ctx, s, "Query", func() (driver.Rows, error) {
		if qc, ok := s.Stmt.(driver.StmtQueryContext); ok {
			return qc.QueryContext(ctx, args)
		}
		return s.Stmt.Query(values(args))
	})
}

func (s *tracingStmt) Exec(args []driver.Value) (driver.Result, error) {
	return timed(context.Background(), s, "Exec", func() (driver.Result, error) { return s.Stmt.Exec(args) })
}

func (s *tracingStmt) Query(args []driver.Value) (driver.Rows, error) {
	return timed(context.Background(), s, "Query", func() (driver.Rows, error) { return s.Stmt.Query(args) })
}

func (s *tracingStmt) record(ctx context.Context, op string, d time.Duration, err error) {
	// Pragmas are only interesting when slow or failing.
	if err == nil && d < 10*time.Millisecond && strings.HasPrefix(s.query, "PRAGMA ") {
		return
	}

	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelError
	} else if d > slow() {
		level = slog.LevelWarn
	}

	attrs := []slog.Attr{
		slog.String("component", "sql"),
		slog.String("op", op),
		slog.String("query", compact(s.query)),
		slog.Duration("duration", d),
	}
	if id := kit.GetRequestID(ctx); id != "" {
		attrs = append(attrs, slog.String("request_id", id))
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	slog.LogAttrs(ctx, level, "sql", attrs...)
}

// compact folds the whitespace of multi-line statements.
func compact(q string) string {
	return strings.Join(strings.Fields(q), " ")
}

func values(named []driver.NamedValue) []driver.Value {
	vals := make([]driver.Value, len(named))
	for i, nv := range named {
		vals[i] = nv.Value
	}
	return vals
}
