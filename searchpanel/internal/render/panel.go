// Package render turns collector snapshots into display trees.
//
// Renderers are pure: they read one snapshot and never reach back into the
// collectors, the cache or the search service. The resulting Panel is
// serialised as HTML (WriteHTML), plain text (WriteText) or JSON.
package render

import (
	"github.com/hazyhaar/qmsearch/searchpanel/internal/snapshot"
)

// ProductName prefixes every panel's menu title.
const ProductName = "WP Search with Algolia"

// None is the placeholder shown in empty tables.
const None = "none"

// Cell is one table cell. Pre cells hold multi-line values and are shown
// preformatted.
type Cell struct {
	Text string `json:"text"`
	Pre  bool   `json:"pre,omitempty"`
}

// Table is a headed grid of cells. When Rows is empty and Placeholder is
// set, a single full-width row with the placeholder is shown instead.
type Table struct {
	Headers     []string `json:"headers,omitempty"`
	Rows        [][]Cell `json:"rows"`
	Placeholder string   `json:"placeholder,omitempty"`
}

// Empty reports whether the placeholder row is shown.
func (t Table) Empty() bool { return len(t.Rows) == 0 }

// Section is a titled group of tables.
type Section struct {
	Title  string  `json:"title"`
	Tables []Table `json:"tables"`
}

// Panel is the display tree for one topic.
type Panel struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Menu     string    `json:"menu"`
	Sections []Section `json:"sections"`
}

// Renderer builds a panel from a snapshot.
type Renderer func(s *snapshot.Snapshot) Panel

// Render runs r and appends the failure section when the collector could
// not run.
func Render(r Renderer, s *snapshot.Snapshot) Panel {
	var p Panel
	if r != nil {
		p = r(s)
	} else {
		p = Panel{Title: s.Topic(), Menu: s.Topic()}
	}
	if p.ID == "" {
		p.ID = PanelID(s.Topic())
	}
	if rows := s.Rows(snapshot.SectionError); len(rows) > 0 {
		p.Sections = append(p.Sections, Section{
			Title:  "Errors",
			Tables: []Table{rowsTable(rows, "")},
		})
	}
	return p
}

// PanelID is the DOM id of a topic's panel.
func PanelID(topic string) string { return "qmsearch-" + topic }

// rowsTable shows title/value rows as a two-column table.
func rowsTable(rows []snapshot.Row, placeholder string) Table {
	t := Table{Rows: make([][]Cell, 0, len(rows)), Placeholder: placeholder}
	for _, r := range rows {
		t.Rows = append(t.Rows, []Cell{{Text: r.Title}, {Text: r.Value}})
	}
	return t
}
