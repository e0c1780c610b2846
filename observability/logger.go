package observability

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/qmsearch/idgen"
	"github.com/hazyhaar/qmsearch/kit"
)

// Run statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Run is one collector execution.
type Run struct {
	ID        string
	RequestID string
	Transport string
	Topic     string
	Status    string
	Error     string
	Duration  time.Duration
	CreatedAt time.Time
}

// RunLogger writes collector runs to collection_log.
type RunLogger struct {
	db    *sql.DB
	newID idgen.Generator
	now   func() time.Time
}

// RunLoggerOption configures a RunLogger.
type RunLoggerOption func(*RunLogger)

// WithRunIDGenerator sets a custom ID generator for run IDs.
func WithRunIDGenerator(gen idgen.Generator) RunLoggerOption {
	return func(l *RunLogger) { l.newID = gen }
}

// WithRunClock replaces time.Now.
func WithRunClock(now func() time.Time) RunLoggerOption {
	return func(l *RunLogger) { l.now = now }
}

// NewRunLogger creates a logger backed by db. Init must have been applied.
func NewRunLogger(db *sql.DB, opts ...RunLoggerOption) *RunLogger {
	l := &RunLogger{
		db:    db,
		newID: idgen.Prefixed("run_", idgen.Default),
		now:   time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Record writes one run. Non-blocking: errors are logged via slog but do not
// propagate, so a failing log table never fails a panel.
func (l *RunLogger) Record(ctx context.Context, topic string, elapsed time.Duration, runErr error) {
	status, msg := StatusOK, ""
	if runErr != nil {
		status, msg = StatusFailed, runErr.Error()
	}
	_, err := l.db.ExecContext(context.WithoutCancel(ctx), `
		INSERT INTO collection_log (
			run_id, request_id, transport, topic, status, error, duration_ms, created_at
		) VALUES (?,?,?,?,?,?,?,?)`,
		l.newID(), kit.GetRequestID(ctx), kit.GetTransport(ctx), topic, status, msg,
		elapsed.Milliseconds(), l.now().Unix())
	if err != nil {
		slog.WarnContext(ctx, "observability: collection log failed", "error", err, "topic", topic)
	}
}

// Recent returns the latest runs, newest first.
func (l *RunLogger) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT run_id, COALESCE(request_id, ''), transport, topic, status,
		       COALESCE(error, ''), duration_ms, created_at
		FROM collection_log ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("observability: recent runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var ms, created int64
		if err := rows.Scan(&r.ID, &r.RequestID, &r.Transport, &r.Topic, &r.Status, &r.Error, &ms, &created); err != nil {
			return nil, fmt.Errorf("observability: scan run: %w", err)
		}
		r.Duration = time.Duration(ms) * time.Millisecond
		r.CreatedAt = time.Unix(created, 0)
		out = append(out, r)
	}
	return out, rows.Err()
}

// RetentionConfig specifies retention in days. Zero means no cleanup.
type RetentionConfig struct {
	CollectionLogDays int
	RunVacuumAfter    bool
}

// Cleanup deletes collection log rows older than the retention threshold.
func Cleanup(ctx context.Context, db *sql.DB, cfg RetentionConfig, now time.Time) (int64, error) {
	var deleted int64
	if cfg.CollectionLogDays > 0 {
		cutoff := now.Unix() - int64(cfg.CollectionLogDays*86400)
		res, err := db.ExecContext(ctx, `DELETE FROM collection_log WHERE created_at < ?`, cutoff)
		if err != nil {
			return 0, fmt.Errorf("cleanup collection_log: %w", err)
		}
		deleted, _ = res.RowsAffected()
	}
	if cfg.RunVacuumAfter {
		if _, err := db.ExecContext(ctx, "VACUUM"); err != nil {
			return deleted, fmt.Errorf("vacuum: %w", err)
		}
	}
	return deleted, nil
}
