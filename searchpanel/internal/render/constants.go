package render

import "github.com/hazyhaar/qmsearch/searchpanel/internal/snapshot"

// Constants renders the constants table.
func Constants(s *snapshot.Snapshot) Panel {
	t := rowsTable(s.Rows(snapshot.SectionConstants), None)
	t.Headers = []string{ProductName + " Constant Name", ProductName + " Constant Value"}
	return Panel{
		ID:       PanelID(s.Topic()),
		Title:    "Constants",
		Menu:     ProductName + " Constants",
		Sections: []Section{{Title: "Constants", Tables: []Table{t}}},
	}
}
