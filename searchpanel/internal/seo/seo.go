// Package seo resolves whether a post is indexable according to the SEO
// plugin active on the host.
//
// Variants are tried in a fixed order and the first one whose plugin is
// detected produces the verdict. The built-in fallback is always detected
// and sits last.
package seo

import "github.com/hazyhaar/qmsearch/host"

// Variant is one SEO integration.
type Variant struct {
	Name    string
	Detect  func(req *host.Request) bool
	Resolve func(item *host.Item, req *host.Request) bool // true = indexable
}

// Verdict formats the variant's answer.
func (v Variant) Verdict(indexable bool) string {
	if indexable {
		return "Indexable - " + v.Name
	}
	return "Not indexable - " + v.Name
}

// Resolver is an ordered chain of variants.
type Resolver struct {
	variants []Variant
	fallback Variant
}

// NewResolver returns the default chain: Yoast, AIOSEO, RankMath, SEOPress,
// with the WPSwA Pro meta box as fallback.
func NewResolver() *Resolver {
	return &Resolver{
		variants: []Variant{Yoast(), AIOSEO(), RankMath(), SEOPress()},
		fallback: WPSwAPro(),
	}
}

// Append adds a variant after the existing ones, before the fallback.
func (r *Resolver) Append(v Variant) {
	r.variants = append(r.variants, v)
}

// Variants returns the names in evaluation order, fallback included.
func (r *Resolver) Variants() []string {
	names := make([]string, 0, len(r.variants)+1)
	for _, v := range r.variants {
		names = append(names, v.Name)
	}
	return append(names, r.fallback.Name)
}

// Resolve returns the verdict string for item.
func (r *Resolver) Resolve(item *host.Item, req *host.Request) string {
	for _, v := range r.variants {
		if v.Detect(req) {
			return v.Verdict(v.Resolve(item, req))
		}
	}
	return r.fallback.Verdict(r.fallback.Resolve(item, req))
}

// typeIndexable applies the plugin's per-type default. No default means
// indexable.
func typeIndexable(req *host.Request, slug, postType string) bool {
	noindex, ok := req.SEO.TypeDefault(slug, postType)
	return !ok || !noindex
}
