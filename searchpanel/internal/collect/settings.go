package collect

import (
	"context"

	"github.com/hazyhaar/qmsearch/host"
	"github.com/hazyhaar/qmsearch/searchindex"
	"github.com/hazyhaar/qmsearch/searchpanel/internal/snapshot"
	"github.com/hazyhaar/qmsearch/searchpanel/internal/store"
)

// IndexSettings fetches the settings document of every index under the
// configured prefix. Each index has its own cache entry.
type IndexSettings struct {
	Deps
}

func (c *IndexSettings) Topic() string { return TopicIndexSettings }
func (c *IndexSettings) Name() string  { return "WPSwA" }

func (c *IndexSettings) Collect(ctx context.Context, req *host.Request) (*snapshot.Snapshot, error) {
	b := snapshot.NewBuilder(TopicIndexSettings, snapshot.SectionIndexSettings)
	prefix := settingsOf(req).IndexNamePrefix

	list, err := c.indices(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger().WarnContext(ctx, "collect: index list unavailable", "error", err)
		b.Add(snapshot.SectionIndexSettings, "error", err.Error())
		return b.Build(c.now()), nil
	}

	for _, idx := range searchindex.FilterByPrefix(list, prefix) {
		name := idx.Name
		doc, err := store.Remember(ctx, c.Cache, store.SettingsKey(name), func(ctx context.Context) (map[string]any, error) {
			return c.Source.GetSettings(ctx, name)
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger().WarnContext(ctx, "collect: settings unavailable", "index", name, "error", err)
			doc = map[string]any{"error": err.Error()}
		}
		b.AddSettings(searchindex.SettingsDocument{Index: name, Settings: doc})
	}
	return b.Build(c.now()), nil
}
