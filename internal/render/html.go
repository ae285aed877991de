package render

import (
	"html/template"
	"io"

	"recordconv/internal/record"
)

func init() {
	Register(FormatDefinition{
		Key:         "html",
		Label:       "HTML table",
		ContentType: "text/html; charset=utf-8",
		New:         func(w io.Writer) Renderer { return &htmlRenderer{w: w} },
	})
}

var (
	htmlHead = template.Must(template.New("head").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Records</title>
<style>
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 4px 8px; text-align: left; }
th { background: #f0f0f0; }
</style>
</head>
<body>
<table>
<thead>
<tr>{{range .}}<th>{{.}}</th>{{end}}</tr>
</thead>
<tbody>
`))

	htmlRow = template.Must(template.New("row").Parse(
		"<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>\n"))

	htmlEmpty = template.Must(template.New("empty").Parse(
		"<tr><td colspan=\"{{.}}\">No records</td></tr>\n"))

	htmlFoot = template.Must(template.New("foot").Parse(`</tbody>
</table>
</body>
</html>
`))
)

// htmlRenderer streams a self-contained HTML document with one table.
// The header row always lists all six canonical columns; a document with
// zero records carries a single placeholder row spanning every column.
type htmlRenderer struct {
	w       io.Writer
	written bool
}

func (hr *htmlRenderer) Begin() error {
	return htmlHead.Execute(hr.w, record.Headers())
}

func (hr *htmlRenderer) Record(rec record.Record) error {
	cells := make([]string, len(record.Fields))
	for i, f := range record.Fields {
		cells[i] = rec[f]
	}
	hr.written = true
	return htmlRow.Execute(hr.w, cells)
}

func (hr *htmlRenderer) End() error {
	if !hr.written {
		if err := htmlEmpty.Execute(hr.w, len(record.Fields)); err != nil {
			return err
		}
	}
	return htmlFoot.Execute(hr.w, nil)
}
