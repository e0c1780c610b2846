package collect

import (
	"context"
	"sync"
	"time"

	"github.com/hazyhaar/qmsearch/host"
	"github.com/hazyhaar/qmsearch/searchpanel/internal/snapshot"
)

// DefaultConstants are the constant names reported unless a filter changes
// the list.
var DefaultConstants = []string{
	"ALGOLIA_HIDE_HELP_NOTICES",
	"ALGOLIA_SPLIT_POSTS",
	"ALGOLIA_CONTENT_MAX_SIZE",
	"ALGOLIA_INDEX_NAME_PREFIX",
}

// ConstantFilter rewrites the list of constant names to report.
type ConstantFilter func(names []string) []string

// Constants reports the values of the integration's constants defined on
// the request. Names that are not defined are omitted.
type Constants struct {
	Now func() time.Time

	mu      sync.RWMutex
	filters []ConstantFilter
}

// AddFilter registers f. Filters run in registration order.
func (c *Constants) AddFilter(f ConstantFilter) {
	c.mu.Lock()
	c.filters = append(c.filters, f)
	c.mu.Unlock()
}

func (c *Constants) Topic() string { return TopicConstants }
func (c *Constants) Name() string  { return "WP Search with Algolia" }

// Names returns the constant names after every filter has run.
func (c *Constants) Names() []string {
	names := append([]string(nil), DefaultConstants...)
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, f := range c.filters {
		names = f(names)
	}
	return names
}

func (c *Constants) Collect(_ context.Context, req *host.Request) (*snapshot.Snapshot, error) {
	b := snapshot.NewBuilder(TopicConstants, snapshot.SectionConstants)
	for _, name := range c.Names() {
		v, ok := req.Constants[name]
		if !ok {
			continue
		}
		b.Add(snapshot.SectionConstants, name, host.FormatValue(v))
	}
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return b.Build(now()), nil
}
