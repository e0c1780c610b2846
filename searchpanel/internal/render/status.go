package render

import (
	"time"

	"github.com/dustin/go-humanize"

	"github.com/hazyhaar/qmsearch/searchpanel/internal/snapshot"
)

// lastUpdateLayout keeps the 12-hour clock the panel always used.
const lastUpdateLayout = "2006-01-02 03:04:05"

// Status renders the status topic: indexable search status, the current
// item when there is one, the search template, the indices and the
// settings.
func Status(s *snapshot.Snapshot) Panel {
	p := Panel{
		ID:    PanelID(s.Topic()),
		Title: "Status",
		Menu:  ProductName + " Status",
	}

	p.Sections = append(p.Sections, Section{
		Title:  "Indexable search status",
		Tables: []Table{rowsTable(s.Rows(snapshot.SectionIndexableStatus), None)},
	})
	if rows := s.Rows(snapshot.SectionCurrent); len(rows) > 0 {
		p.Sections = append(p.Sections, Section{
			Title:  "Current item",
			Tables: []Table{rowsTable(rows, None)},
		})
	}
	if rows := s.Rows(snapshot.SectionTemplate); len(rows) > 0 {
		p.Sections = append(p.Sections, Section{
			Title:  "Template",
			Tables: []Table{rowsTable(rows, None)},
		})
	}
	p.Sections = append(p.Sections, indicesSection(s))
	p.Sections = append(p.Sections, Section{
		Title:  "Settings Status",
		Tables: []Table{rowsTable(s.Rows(snapshot.SectionSettingStatus), None)},
	})
	return p
}

func indicesSection(s *snapshot.Snapshot) Section {
	sec := Section{Title: "Indices"}
	if rows := s.Rows(snapshot.SectionIndices); len(rows) > 0 {
		sec.Tables = append(sec.Tables, rowsTable(rows, ""))
		return sec
	}
	t := Table{
		Headers:     []string{"Name", "Entries", "Last update"},
		Rows:        [][]Cell{},
		Placeholder: None,
	}
	for _, idx := range s.Indices() {
		t.Rows = append(t.Rows, []Cell{
			{Text: idx.Name},
			{Text: humanize.Comma(idx.Entries)},
			{Text: lastUpdate(idx.UpdatedAt, s.CollectedAt())},
		})
	}
	sec.Tables = append(sec.Tables, t)
	return sec
}

// lastUpdate formats an index update time with its age relative to the
// snapshot, e.g. "2024-05-01 11:00:00 (1 hour ago)".
func lastUpdate(at, now time.Time) string {
	if at.IsZero() {
		return ""
	}
	return at.Format(lastUpdateLayout) + " (" + humanize.RelTime(at, now, "ago", "from now") + ")"
}
