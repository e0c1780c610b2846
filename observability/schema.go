package observability

import "database/sql"

// Schema is the DDL for the collection log. It lives in the same database
// as the transient cache.
const Schema = `
CREATE TABLE IF NOT EXISTS collection_log (
    run_id      TEXT PRIMARY KEY,
    request_id  TEXT,
    transport   TEXT NOT NULL DEFAULT 'http',
    topic       TEXT NOT NULL,
    status      TEXT NOT NULL,
    error       TEXT,
    duration_ms INTEGER NOT NULL,
    created_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
);
CREATE INDEX IF NOT EXISTS idx_collection_log_time ON collection_log(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_collection_log_topic ON collection_log(topic, created_at DESC);
`

// Init applies the observability schema to the given database.
func Init(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
