package render

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/hazyhaar/qmsearch/host"
	"github.com/hazyhaar/qmsearch/searchpanel/internal/snapshot"
)

// IndexSettings renders one section per index. Keys are sorted; list values
// are joined one per line. Values are kept verbatim: highlight tags such as
// "<em>" are settings, and escaping is left to the writer.
func IndexSettings(s *snapshot.Snapshot) Panel {
	p := Panel{
		ID:    PanelID(s.Topic()),
		Title: "Index Settings",
		Menu:  ProductName + " Index Settings",
	}
	if rows := s.Rows(snapshot.SectionIndexSettings); len(rows) > 0 {
		p.Sections = append(p.Sections, Section{
			Title:  "Index Settings",
			Tables: []Table{rowsTable(rows, "")},
		})
	}

	docs := s.Settings()
	if len(docs) == 0 && len(p.Sections) == 0 {
		p.Sections = append(p.Sections, Section{
			Title:  "Index Settings",
			Tables: []Table{{Rows: [][]Cell{}, Placeholder: None}},
		})
	}
	for _, doc := range docs {
		keys := make([]string, 0, len(doc.Settings))
		for k := range doc.Settings {
			keys = append(keys, k)
		}
		slices.Sort(keys)

		t := Table{Rows: make([][]Cell, 0, len(keys)), Placeholder: None}
		for _, k := range keys {
			t.Rows = append(t.Rows, []Cell{{Text: k}, settingCell(doc.Settings[k])})
		}
		p.Sections = append(p.Sections, Section{Title: doc.Index, Tables: []Table{t}})
	}
	return p
}

func settingCell(v any) Cell {
	switch x := v.(type) {
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = scalar(e)
		}
		return Cell{Text: strings.Join(parts, ",\n"), Pre: true}
	case []string:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = e
		}
		return Cell{Text: strings.Join(parts, ",\n"), Pre: true}
	default:
		return Cell{Text: scalar(v)}
	}
}

func scalar(v any) string {
	switch v.(type) {
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
	return host.FormatValue(v)
}
