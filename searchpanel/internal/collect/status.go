package collect

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hazyhaar/qmsearch/host"
	"github.com/hazyhaar/qmsearch/searchindex"
	"github.com/hazyhaar/qmsearch/searchpanel/internal/seo"
	"github.com/hazyhaar/qmsearch/searchpanel/internal/snapshot"
)

// templateNames are the search templates worth reporting.
var templateNames = map[string]bool{
	"autocomplete.php":  true,
	"instantsearch.php": true,
}

// Status reports the current item, the template in use, the indexable post
// types, the remote indices and the plugin settings.
type Status struct {
	Deps
	// Resolver adds the SEO verdict for posts when set.
	Resolver *seo.Resolver
	// ContentDir is stripped from the reported template path.
	ContentDir string
}

func (s *Status) Topic() string { return TopicStatus }
func (s *Status) Name() string  { return "WPSwA" }

func (s *Status) Collect(ctx context.Context, req *host.Request) (*snapshot.Snapshot, error) {
	b := snapshot.NewBuilder(TopicStatus,
		snapshot.SectionCurrent,
		snapshot.SectionTemplate,
		snapshot.SectionIndexableStatus,
		snapshot.SectionIndices,
		snapshot.SectionSettingStatus,
	)
	settings := settingsOf(req)

	if req.Item != nil && !req.Admin {
		s.currentItem(ctx, b, req, settings)
	}

	if p := s.templatePath(req.TemplatePath); p != "" {
		b.Add(snapshot.SectionTemplate, "Found path", p)
	}

	b.Add(snapshot.SectionIndexableStatus, "Searchable post index enabled?",
		boolString(settings.IndexEnabled[host.SearchablePostsIndex]))
	b.Add(snapshot.SectionIndexableStatus, "Indexable Post Types:",
		strings.Join(req.SearchableTypes, ", "))

	list, err := s.indices(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger().WarnContext(ctx, "collect: index list unavailable", "error", err)
		b.Add(snapshot.SectionIndices, "Indices:", "unavailable - "+err.Error())
	} else {
		b.SetIndices(searchindex.FilterByPrefix(list, settings.IndexNamePrefix))
	}

	b.Add(snapshot.SectionSettingStatus, "API is reachable?", boolString(settings.APIReachable))
	b.Add(snapshot.SectionSettingStatus, "Autocomplete enabled?", settings.AutocompleteEnabled)
	b.Add(snapshot.SectionSettingStatus, "Autocomplete config(s):", autocompleteJSON(settings.AutocompleteConfig))
	b.Add(snapshot.SectionSettingStatus, "Search style:", capitalize(settings.OverrideNativeSearch))
	b.Add(snapshot.SectionSettingStatus, "Prefix:", settings.IndexNamePrefix)
	b.Add(snapshot.SectionSettingStatus, "Powered by enabled?", boolString(settings.PoweredByEnabled))

	return b.Build(s.now()), nil
}

func (s *Status) currentItem(ctx context.Context, b *snapshot.Builder, req *host.Request, settings host.Settings) {
	item := req.Item
	switch item.Kind {
	case host.KindPost:
		b.Add(snapshot.SectionCurrent, "Is a:", item.Type)
		b.Add(snapshot.SectionCurrent, "Is search indexable?", boolString(req.Searchable(item.Type)))
		if s.Resolver != nil {
			b.Add(snapshot.SectionCurrent, "Indexability:", s.Resolver.Resolve(item, req))
		}
		b.Add(snapshot.SectionCurrent, "Is currently indexed?", s.indexed(ctx, item, settings))
	case host.KindTerm:
		b.Add(snapshot.SectionCurrent, "Is a:", "Term archive")
	case host.KindUser:
		b.Add(snapshot.SectionCurrent, "Is a:", "User archive")
	}
}

// indexed looks up the first record of the post. Every post gets the -0
// suffix whether or not it was split.
func (s *Status) indexed(ctx context.Context, item *host.Item, settings host.Settings) string {
	index := settings.IndexName(host.SearchablePostsIndex)
	rec, err := s.Source.GetRecord(ctx, index, strconv.FormatInt(item.ID, 10)+"-0")
	switch {
	case errors.Is(err, searchindex.ErrNotFound):
		return "false"
	case err != nil:
		s.logger().WarnContext(ctx, "collect: record lookup failed", "index", index, "post_id", item.ID, "error", err)
		return "false - " + err.Error()
	case len(rec) == 0:
		return "false"
	}
	return "true"
}

func (s *Status) templatePath(path string) string {
	if path == "" || !templateNames[filepath.Base(path)] {
		return ""
	}
	if s.ContentDir != "" {
		path = strings.TrimPrefix(path, strings.TrimSuffix(s.ContentDir, "/"))
	}
	return path
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func autocompleteJSON(cfg []any) string {
	if cfg == nil {
		cfg = []any{}
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return err.Error()
	}
	return string(data)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
