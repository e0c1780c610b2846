// Package host describes the state the CMS host hands to the diagnostic
// panels for one request: the resolved content item, the search plugin's
// runtime settings, defined constants and the SEO plugins' state.
//
// Nothing here is read from globals. The host serialises a Request as JSON
// (or the CLI builds one from flags) and the collectors receive it
// explicitly.
package host

// Item kinds resolved from the host's queried object.
const (
	KindPost = "post"
	KindTerm = "term"
	KindUser = "user"
)

// Item is the content item resolved for the current request.
type Item struct {
	Kind string `json:"kind"`
	ID   int64  `json:"id"`
	// Type is the post type for posts, the taxonomy for terms.
	Type string `json:"type,omitempty"`
	// Meta holds per-item metadata. Values are strings, bools or lists of
	// strings as decoded from JSON.
	Meta map[string]any `json:"meta,omitempty"`
}

// Settings are the search plugin's runtime settings.
type Settings struct {
	APIReachable         bool            `json:"api_reachable" yaml:"api_reachable"`
	AutocompleteEnabled  string          `json:"autocomplete_enabled" yaml:"autocomplete_enabled"`
	AutocompleteConfig   []any           `json:"autocomplete_config" yaml:"autocomplete_config"`
	OverrideNativeSearch string          `json:"override_native_search" yaml:"override_native_search"`
	IndexNamePrefix      string          `json:"index_name_prefix" yaml:"index_name_prefix"`
	PoweredByEnabled     bool            `json:"powered_by_enabled" yaml:"powered_by_enabled"`
	IndexEnabled         map[string]bool `json:"index_enabled" yaml:"index_enabled"`
}

// SearchablePostsIndex is the index id of the searchable posts index.
const SearchablePostsIndex = "searchable_posts"

// IndexName returns the remote name of the index with the given id.
func (s Settings) IndexName(id string) string {
	return s.IndexNamePrefix + id
}

// SEOState is what the host knows about the active SEO plugins.
type SEOState struct {
	// ActivePlugins lists plugin slugs reported active by the host
	// (e.g. "aioseo", "rank_math").
	ActivePlugins []string `json:"active_plugins,omitempty"`
	// TypeNoindex holds each plugin's per-post-type "noindex" default,
	// keyed by plugin slug then post type.
	TypeNoindex map[string]map[string]bool `json:"type_noindex,omitempty"`
}

// Active reports whether the plugin slug is active.
func (s SEOState) Active(slug string) bool {
	for _, p := range s.ActivePlugins {
		if p == slug {
			return true
		}
	}
	return false
}

// TypeDefault returns the plugin's per-type noindex default and whether one
// is configured.
func (s SEOState) TypeDefault(slug, postType string) (noindex, ok bool) {
	byType, found := s.TypeNoindex[slug]
	if !found {
		return false, false
	}
	noindex, ok = byType[postType]
	return noindex, ok
}

// Request is one host request as seen by the collectors.
type Request struct {
	Item            *Item          `json:"item,omitempty"`
	Admin           bool           `json:"admin"`
	SearchableTypes []string       `json:"searchable_types"`
	Settings        *Settings      `json:"settings,omitempty"`
	Constants       map[string]any `json:"constants,omitempty"`
	SEO             SEOState       `json:"seo"`
	// TemplatePath is the template the host resolved for this request.
	TemplatePath string `json:"template_path,omitempty"`
	// ForceFresh asks for cache reads to be bypassed.
	ForceFresh bool `json:"force_fresh,omitempty"`
}

// Defined reports whether the named constant is defined for this request.
func (r *Request) Defined(name string) bool {
	_, ok := r.Constants[name]
	return ok
}

// Searchable reports whether postType belongs to the searchable set.
func (r *Request) Searchable(postType string) bool {
	for _, t := range r.SearchableTypes {
		if t == postType {
			return true
		}
	}
	return false
}

// MetaString returns the item meta value as a string. Absent keys and nil
// values report ok=false.
func (it *Item) MetaString(key string) (string, bool) {
	v, ok := it.Meta[key]
	if !ok || v == nil {
		return "", false
	}
	switch x := v.(type) {
	case string:
		return x, true
	case bool:
		if x {
			return "1", true
		}
		return "0", true
	case float64:
		return formatFloat(x), true
	default:
		return "", false
	}
}

// MetaList returns the item meta value as a list of strings. A single
// string is returned as a one-element list.
func (it *Item) MetaList(key string) ([]string, bool) {
	v, ok := it.Meta[key]
	if !ok || v == nil {
		return nil, false
	}
	switch x := v.(type) {
	case []string:
		return x, true
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out, true
	case string:
		return []string{x}, true
	default:
		return nil, false
	}
}
