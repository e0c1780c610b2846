// Package searchindex is the remote side of the diagnostic panels: the
// hosted search service that holds the integration's indices.
//
// Source is the contract the collectors depend on. Client implements it
// against the search service's REST API and Guarded wraps any Source with a
// timeout, retry and circuit breaker so a slow or failing service degrades
// panels instead of stalling them.
package searchindex

import (
	"context"
	"strings"
	"time"
)

// Summary is one remote index's metadata as shown in the status panel.
type Summary struct {
	Name      string    `json:"name"`
	Entries   int64     `json:"entries"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SettingsDocument is the raw settings of one index. Values are scalars or
// lists, exactly as returned by the service.
type SettingsDocument struct {
	Index    string         `json:"index"`
	Settings map[string]any `json:"settings"`
}

// Record is a single indexed object.
type Record map[string]any

// Source lists indices, fetches index settings and looks up records.
type Source interface {
	ListIndices(ctx context.Context) ([]Summary, error)
	GetSettings(ctx context.Context, index string) (map[string]any, error)
	// GetRecord returns ErrNotFound when the record does not exist.
	GetRecord(ctx context.Context, index, id string) (Record, error)
}

// FilterByPrefix keeps the indices whose name contains prefix. The match is
// a substring match, not a strict prefix, so "wp_" also keeps "staging_wp_posts".
// An empty prefix keeps everything. Order is preserved.
func FilterByPrefix(list []Summary, prefix string) []Summary {
	out := make([]Summary, 0, len(list))
	for _, s := range list {
		if strings.Contains(s.Name, prefix) {
			out = append(out, s)
		}
	}
	return out
}
