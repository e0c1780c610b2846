package render

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/net/html"

	"github.com/hazyhaar/qmsearch/searchindex"
	"github.com/hazyhaar/qmsearch/searchpanel/internal/snapshot"
)

var at = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func sectionTitles(p Panel) []string {
	out := make([]string, len(p.Sections))
	for i, s := range p.Sections {
		out[i] = s.Title
	}
	return out
}

func TestConstants_EmptyShowsNone(t *testing.T) {
	// WHAT: no constants defined gives one placeholder row.
	snap := snapshot.NewBuilder("constants", snapshot.SectionConstants).Build(at)
	p := Constants(snap)

	tbl := p.Sections[0].Tables[0]
	if !tbl.Empty() || tbl.Placeholder != None {
		t.Fatalf("table = %+v", tbl)
	}
	want := []string{"WP Search with Algolia Constant Name", "WP Search with Algolia Constant Value"}
	if diff := cmp.Diff(want, tbl.Headers); diff != "" {
		t.Errorf("headers:\n%s", diff)
	}
	if p.Menu != "WP Search with Algolia Constants" {
		t.Errorf("menu = %q", p.Menu)
	}
}

func TestStatus_SectionOrder(t *testing.T) {
	b := snapshot.NewBuilder("status",
		snapshot.SectionCurrent, snapshot.SectionTemplate, snapshot.SectionIndexableStatus,
		snapshot.SectionIndices, snapshot.SectionSettingStatus)
	b.Add(snapshot.SectionIndexableStatus, "Searchable post index enabled?", "true")
	b.Add(snapshot.SectionSettingStatus, "Prefix:", "wp_")

	p := Status(b.Build(at))
	want := []string{"Indexable search status", "Indices", "Settings Status"}
	if diff := cmp.Diff(want, sectionTitles(p)); diff != "" {
		t.Errorf("without current item (-want +got):\n%s", diff)
	}

	b = snapshot.NewBuilder("status")
	b.Add(snapshot.SectionCurrent, "Is a:", "post")
	b.Add(snapshot.SectionTemplate, "Found path", "/themes/x/instantsearch.php")
	p = Status(b.Build(at))
	want = []string{"Indexable search status", "Current item", "Template", "Indices", "Settings Status"}
	if diff := cmp.Diff(want, sectionTitles(p)); diff != "" {
		t.Errorf("with current item (-want +got):\n%s", diff)
	}
	if !p.Sections[0].Tables[0].Empty() || p.Sections[0].Tables[0].Placeholder != None {
		t.Errorf("empty indexable status should show none")
	}
}

func TestStatus_IndicesTable(t *testing.T) {
	b := snapshot.NewBuilder("status")
	b.SetIndices([]searchindex.Summary{
		{Name: "wp_searchable_posts", Entries: 12345, UpdatedAt: at.Add(-time.Hour)},
	})
	p := Status(b.Build(at))

	var indices Section
	for _, s := range p.Sections {
		if s.Title == "Indices" {
			indices = s
		}
	}
	want := [][]Cell{{
		{Text: "wp_searchable_posts"},
		{Text: "12,345"},
		{Text: "2024-05-01 11:00:00 (1 hour ago)"},
	}}
	if diff := cmp.Diff(want, indices.Tables[0].Rows); diff != "" {
		t.Errorf("rows (-want +got):\n%s", diff)
	}
}

func TestStatus_IndicesUnavailable(t *testing.T) {
	b := snapshot.NewBuilder("status")
	b.Add(snapshot.SectionIndices, "Indices:", "unavailable - timeout")
	p := Status(b.Build(at))

	for _, s := range p.Sections {
		if s.Title != "Indices" {
			continue
		}
		rows := s.Tables[0].Rows
		if len(rows) != 1 || rows[0][1].Text != "unavailable - timeout" {
			t.Fatalf("rows = %v", rows)
		}
		return
	}
	t.Fatal("no indices section")
}

func TestIndexSettings_ListsAndMarkup(t *testing.T) {
	b := snapshot.NewBuilder("index-settings", snapshot.SectionIndexSettings)
	b.AddSettings(searchindex.SettingsDocument{Index: "wp_posts", Settings: map[string]any{
		"searchableAttributes": []any{"post_title", "content"},
		"hitsPerPage":          float64(20),
		"highlightPreTag":      "<em>",
		"highlightPostTag":     "</em>",
		"attributeForDistinct": "post_id & <b>id</b>",
	}})
	p := IndexSettings(b.Build(at))

	if len(p.Sections) != 1 || p.Sections[0].Title != "wp_posts" {
		t.Fatalf("sections = %v", sectionTitles(p))
	}
	want := [][]Cell{
		{{Text: "attributeForDistinct"}, {Text: "post_id & <b>id</b>"}},
		{{Text: "highlightPostTag"}, {Text: "</em>"}},
		{{Text: "highlightPreTag"}, {Text: "<em>"}},
		{{Text: "hitsPerPage"}, {Text: "20"}},
		{{Text: "searchableAttributes"}, {Text: "post_title,\ncontent", Pre: true}},
	}
	if diff := cmp.Diff(want, p.Sections[0].Tables[0].Rows); diff != "" {
		t.Errorf("rows (-want +got):\n%s", diff)
	}
}

func TestIndexSettings_Empty(t *testing.T) {
	p := IndexSettings(snapshot.NewBuilder("index-settings", snapshot.SectionIndexSettings).Build(at))
	if len(p.Sections) != 1 || p.Sections[0].Tables[0].Placeholder != None {
		t.Fatalf("panel = %+v", p)
	}
}

func TestRender_FailedSnapshot(t *testing.T) {
	snap := snapshot.Failed("constants", errors.New("database is locked"), at)
	p := Render(Constants, snap)

	last := p.Sections[len(p.Sections)-1]
	if last.Title != "Errors" || last.Tables[0].Rows[0][1].Text != "database is locked" {
		t.Fatalf("errors section = %+v", last)
	}
}

func TestRender_NilRenderer(t *testing.T) {
	p := Render(nil, snapshot.NewBuilder("custom").Build(at))
	if p.ID != "qmsearch-custom" || p.Title != "custom" {
		t.Fatalf("panel = %+v", p)
	}
}

// cellsByTag collects the text content of every element with the tag.
func cellsByTag(n *html.Node, tag string) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag {
			var b strings.Builder
			var text func(*html.Node)
			text = func(c *html.Node) {
				if c.Type == html.TextNode {
					b.WriteString(c.Data)
				}
				for k := c.FirstChild; k != nil; k = k.NextSibling {
					text(k)
				}
			}
			text(n)
			out = append(out, b.String())
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func TestWriteHTML(t *testing.T) {
	// WHAT: the HTML page escapes values and keeps the placeholder row.
	b := snapshot.NewBuilder("constants", snapshot.SectionConstants)
	b.Add(snapshot.SectionConstants, "ALGOLIA_INDEX_NAME_PREFIX", "<script>x</script>")
	panels := []Panel{
		Constants(b.Build(at)),
		Constants(snapshot.NewBuilder("constants", snapshot.SectionConstants).Build(at)),
	}

	var buf bytes.Buffer
	if err := WriteHTML(&buf, "Panels", panels); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "<script>") {
		t.Fatal("value not escaped")
	}

	doc, err := html.Parse(&buf)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cells := cellsByTag(doc, "td")
	want := []string{"ALGOLIA_INDEX_NAME_PREFIX", "<script>x</script>", "none"}
	if diff := cmp.Diff(want, cells); diff != "" {
		t.Errorf("cells (-want +got):\n%s", diff)
	}
	if got := cellsByTag(doc, "h2"); len(got) != 2 || got[0] != "WP Search with Algolia Constants" {
		t.Errorf("menus = %v", got)
	}
}

func TestWriteHTML_SettingValuesEscapedVerbatim(t *testing.T) {
	// WHAT: highlight tags reach the page as text, not as markup.
	// WHY: a setting of "<em>" must read "<em>" in the panel.
	b := snapshot.NewBuilder("index-settings", snapshot.SectionIndexSettings)
	b.AddSettings(searchindex.SettingsDocument{Index: "wp_posts", Settings: map[string]any{
		"highlightPreTag": "<em>",
	}})

	var buf bytes.Buffer
	if err := WriteHTML(&buf, "Panels", []Panel{IndexSettings(b.Build(at))}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "&lt;em&gt;") {
		t.Fatal("tag not escaped")
	}
	doc, err := html.Parse(&buf)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if diff := cmp.Diff([]string{"highlightPreTag", "<em>"}, cellsByTag(doc, "td")); diff != "" {
		t.Errorf("cells (-want +got):\n%s", diff)
	}
}

func TestWriteText(t *testing.T) {
	b := snapshot.NewBuilder("constants", snapshot.SectionConstants)
	b.Add(snapshot.SectionConstants, "ALGOLIA_SPLIT_POSTS", "true")
	panels := []Panel{
		Constants(b.Build(at)),
		Constants(snapshot.NewBuilder("constants", snapshot.SectionConstants).Build(at)),
	}

	var buf bytes.Buffer
	if err := WriteText(&buf, panels); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"WP Search with Algolia Constants", "ALGOLIA_SPLIT_POSTS", "true", "none"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
