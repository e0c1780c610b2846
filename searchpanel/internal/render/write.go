package render

import (
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var panelsTmpl = template.Must(template.New("panels").Funcs(template.FuncMap{"colspan": colspan}).Parse(`<!DOCTYPE html>
<html lang="en"><head><meta charset="UTF-8"><meta name="viewport" content="width=device-width,initial-scale=1">
<title>{{.Title}}</title>
<style>
body{font-family:system-ui,sans-serif;margin:1rem;color:#222;background:#fafafa}
.qm{background:#fff;border:1px solid #e0e0e0;border-radius:6px;padding:1rem;margin-bottom:1rem}
table{border-collapse:collapse;margin-bottom:.5rem}
th,td{border:1px solid #e0e0e0;padding:.25rem .5rem;text-align:left;vertical-align:top}
td.none{text-align:center;font-style:italic;color:#999}
pre{margin:0}
</style></head><body>
{{- range .Panels}}
<div id="{{.ID}}" class="qm">
<h2>{{.Menu}}</h2>
{{- range .Sections}}
<section>
<h3>{{.Title}}</h3>
{{- range .Tables}}
<table>
{{- if .Headers}}
<thead><tr>{{range .Headers}}<th>{{.}}</th>{{end}}</tr></thead>
{{- end}}
<tbody>
{{- if .Empty}}
{{- if .Placeholder}}
<tr><td class="none" colspan="{{colspan .}}"><em>{{.Placeholder}}</em></td></tr>
{{- end}}
{{- else}}
{{- range .Rows}}
<tr>{{range .}}<td>{{if .Pre}}<pre>{{.Text}}</pre>{{else}}{{.Text}}{{end}}</td>{{end}}</tr>
{{- end}}
{{- end}}
</tbody>
</table>
{{- end}}
</section>
{{- end}}
</div>
{{- end}}
</body></html>
`))

func colspan(t Table) int {
	if len(t.Headers) > 0 {
		return len(t.Headers)
	}
	return 2
}

// WriteHTML writes panels as a standalone HTML page.
func WriteHTML(w io.Writer, title string, panels []Panel) error {
	err := panelsTmpl.Execute(w, struct {
		Title  string
		Panels []Panel
	}{title, panels})
	if err != nil {
		return fmt.Errorf("render: html: %w", err)
	}
	return nil
}

var (
	menuStyle    = lipgloss.NewStyle().Bold(true)
	sectionStyle = lipgloss.NewStyle().Underline(true)
	noneStyle    = lipgloss.NewStyle().Italic(true)
)

// WriteText writes panels as boxed terminal tables.
func WriteText(w io.Writer, panels []Panel) error {
	var b strings.Builder
	for i, p := range panels {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(menuStyle.Render(p.Menu))
		b.WriteString("\n")
		for _, sec := range p.Sections {
			b.WriteString("\n")
			b.WriteString(sectionStyle.Render(sec.Title))
			b.WriteString("\n")
			for _, t := range sec.Tables {
				b.WriteString(textTable(t))
				b.WriteString("\n")
			}
		}
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("render: text: %w", err)
	}
	return nil
}

func textTable(t Table) string {
	if t.Empty() {
		if t.Placeholder == "" {
			return ""
		}
		return noneStyle.Render(t.Placeholder)
	}
	tbl := table.New().Border(lipgloss.NormalBorder())
	if len(t.Headers) > 0 {
		tbl = tbl.Headers(t.Headers...)
	}
	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = c.Text
		}
		tbl = tbl.Row(cells...)
	}
	return tbl.String()
}
