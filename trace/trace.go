// Package trace logs the SQL run against the cache database.
//
// It registers a "sqlite-trace" driver that wraps modernc.org/sqlite and
// reports every Exec and Query through slog: Debug normally, Warn above the
// slow threshold, Error on failure. Request ids are read from the context
// with kit.GetRequestID so queries line up with the HTTP or MCP request
// that caused them.
//
//	db, err := dbopen.Open(path, dbopen.WithDriver(trace.DriverName))
package trace

import (
	"database/sql"
	"sync/atomic"
	"time"

	sqlite "modernc.org/sqlite"
)

// DriverName is the database/sql name of the tracing driver.
const DriverName = "sqlite-trace"

var slowThreshold atomic.Int64

// SetSlowThreshold sets the duration above which queries are logged at Warn.
// Default 100ms.
func SetSlowThreshold(d time.Duration) { slowThreshold.Store(int64(d)) }

func slow() time.Duration { return time.Duration(slowThreshold.Load()) }

func init() {
	SetSlowThreshold(100 * time.Millisecond)
	sql.Register(DriverName, &TracingDriver{Driver: &sqlite.Driver{}})
}
