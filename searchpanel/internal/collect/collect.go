// Package collect gathers the diagnostic facts for one request.
//
// Each Collector runs once per request and returns an immutable snapshot.
// Collectors never read each other's output and remote failures never
// escape a collector: they become labelled rows. An error return is kept
// for failures of the collector itself (cancelled context, broken cache).
package collect

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/qmsearch/host"
	"github.com/hazyhaar/qmsearch/searchindex"
	"github.com/hazyhaar/qmsearch/searchpanel/internal/snapshot"
	"github.com/hazyhaar/qmsearch/searchpanel/internal/store"
)

// Built-in topics.
const (
	TopicStatus        = "status"
	TopicIndexSettings = "index-settings"
	TopicConstants     = "constants"
)

// Collector produces one snapshot per request.
type Collector interface {
	Topic() string
	// Name is the short label shown in panel headers.
	Name() string
	Collect(ctx context.Context, req *host.Request) (*snapshot.Snapshot, error)
}

// Deps are the shared dependencies of the remote-backed collectors.
type Deps struct {
	Source searchindex.Source
	Cache  *store.Cache
	Logger *slog.Logger
	Now    func() time.Time
}

func (d Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

func (d Deps) now() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}

// indices returns the full remote index list through the cache. The list is
// cached unfiltered so a prefix change takes effect immediately.
func (d Deps) indices(ctx context.Context) ([]searchindex.Summary, error) {
	return store.Remember(ctx, d.Cache, store.KeyIndices, d.Source.ListIndices)
}

func settingsOf(req *host.Request) host.Settings {
	if req.Settings == nil {
		return host.Settings{}
	}
	return *req.Settings
}

// Registry keeps collectors in registration order.
type Registry struct {
	mu      sync.RWMutex
	order   []Collector
	byTopic map[string]Collector
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byTopic: make(map[string]Collector)}
}

// Register adds c. Topics are unique.
func (r *Registry) Register(c Collector) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byTopic[c.Topic()]; dup {
		return fmt.Errorf("collect: topic %q already registered", c.Topic())
	}
	r.byTopic[c.Topic()] = c
	r.order = append(r.order, c)
	return nil
}

// Lookup returns the collector for topic.
func (r *Registry) Lookup(topic string) (Collector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byTopic[topic]
	return c, ok
}

// Collectors returns the collectors in registration order.
func (r *Registry) Collectors() []Collector {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Collector, len(r.order))
	copy(out, r.order)
	return out
}

// Topics returns the registered topics in order.
func (r *Registry) Topics() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	for i, c := range r.order {
		out[i] = c.Topic()
	}
	return out
}
