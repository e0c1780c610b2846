package seo

import (
	"slices"

	"github.com/hazyhaar/qmsearch/host"
)

// Plugin slugs used for per-type defaults and activity detection.
const (
	SlugYoast    = "yoast"
	SlugAIOSEO   = "aioseo"
	SlugRankMath = "rank_math"
	SlugSEOPress = "seopress"
)

// Meta keys read from the item.
const (
	MetaYoastNoindex    = "_yoast_wpseo_meta-robots-noindex"
	MetaAIOSEONoindex   = "_aioseo_robots_noindex"
	MetaRankMathRobots  = "rank_math_robots"
	MetaSEOPressIndex   = "_seopress_robots_index"
	MetaWPSwAProNoIndex = "wpswa_pro_should_not_index"
)

// Yoast: "1" in the item meta means "No, don't show", "2" means "Yes,
// show". Without an item choice the per-type setting applies.
func Yoast() Variant {
	return Variant{
		Name:   "Yoast",
		Detect: func(req *host.Request) bool { return req.Defined("WPSEO_VERSION") },
		Resolve: func(item *host.Item, req *host.Request) bool {
			switch v, _ := item.MetaString(MetaYoastNoindex); v {
			case "1":
				return false
			case "2":
				return true
			}
			return typeIndexable(req, SlugYoast, item.Type)
		},
	}
}

// AIOSEO stores a robots_noindex flag per item.
func AIOSEO() Variant {
	return Variant{
		Name:   "AIOSEO",
		Detect: func(req *host.Request) bool { return req.SEO.Active(SlugAIOSEO) },
		Resolve: func(item *host.Item, req *host.Request) bool {
			if v, ok := item.MetaString(MetaAIOSEONoindex); ok && v != "" {
				return v != "1" && v != "true"
			}
			return typeIndexable(req, SlugAIOSEO, item.Type)
		},
	}
}

// RankMath stores a robots directive list per item.
func RankMath() Variant {
	return Variant{
		Name:   "RankMath",
		Detect: func(req *host.Request) bool { return req.SEO.Active(SlugRankMath) },
		Resolve: func(item *host.Item, req *host.Request) bool {
			if robots, ok := item.MetaList(MetaRankMathRobots); ok && len(robots) > 0 {
				return !slices.Contains(robots, "noindex")
			}
			return typeIndexable(req, SlugRankMath, item.Type)
		},
	}
}

// SEOPress saves "yes" in _seopress_robots_index when the item is set to
// noindex.
func SEOPress() Variant {
	return Variant{
		Name:   "SEOPress",
		Detect: func(req *host.Request) bool { return req.Defined("SEOPRESS_VERSION") },
		Resolve: func(item *host.Item, req *host.Request) bool {
			if v, ok := item.MetaString(MetaSEOPressIndex); ok && v != "" {
				return v != "yes"
			}
			return typeIndexable(req, SlugSEOPress, item.Type)
		},
	}
}

// WPSwAPro is the search plugin's own "should not index" meta box.
func WPSwAPro() Variant {
	return Variant{
		Name:   "WPSWA Pro",
		Detect: func(*host.Request) bool { return true },
		Resolve: func(item *host.Item, _ *host.Request) bool {
			v, _ := item.MetaString(MetaWPSwAProNoIndex)
			return v != "yes"
		},
	}
}
