package report

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/odyssey-erp/ratios/internal/queryreport"
)

var resultTemplate = template.Must(template.New("result").Parse(`<!DOCTYPE html>
<html lang="{{.Lang}}"><head><meta charset="utf-8"><title>{{.Title}}</title>
<style>
body{font-family:sans-serif;margin:24px;}h1{font-size:20px;}
table{width:100%;border-collapse:collapse;margin-bottom:16px;}
th,td{border:1px solid #ddd;padding:6px;text-align:right;}th{background:#f5f5f5;}
td.label,th.label{text-align:left;}.negative{color:#b91c1c;}
.summary td{border:none;text-align:left;}
</style></head><body>
<h1>{{.Title}}</h1>
{{- if .Summary}}
<table class="summary"><tr>{{range .Summary}}<td><strong>{{.Value}}</strong><br>{{.Label}}</td>{{end}}</tr></table>
{{- end}}
<table><thead><tr>{{range .Headers}}<th{{if .Label}} class="label"{{end}}>{{.Text}}</th>{{end}}</tr></thead>
<tbody>{{range .Rows}}<tr>{{range .}}<td class="{{if .Label}}label{{end}}{{if .Negative}} negative{{end}}">{{.Text}}</td>{{end}}</tr>{{end}}</tbody></table>
<p>{{.Generated}}</p>
</body></html>`))

type htmlCell struct {
	Text     string
	Label    bool
	Negative bool
}

type htmlSummary struct {
	Label string
	Value string
}

type htmlPage struct {
	Lang      string
	Title     string
	Headers   []htmlCell
	Rows      [][]htmlCell
	Summary   []htmlSummary
	Generated string
}

// Document describes a report result ready for printing.
type Document struct {
	Title     string
	Lang      string
	Result    queryreport.Result
	Format    queryreport.Formatter
	Generated time.Time
}

// HTML renders the visible columns of the result as an HTML table.
func (d Document) HTML() (string, error) {
	format := d.Format
	if format == nil {
		format = func(value any, _ queryreport.Row, _ queryreport.Column) string {
			if value == nil {
				return ""
			}
			return fmt.Sprint(value)
		}
	}
	lang := d.Lang
	if lang == "" {
		lang = "en"
	}
	page := htmlPage{Lang: lang, Title: d.Title, Generated: d.Generated.UTC().Format(time.RFC1123)}

	var columns []queryreport.Column
	for _, col := range d.Result.Columns {
		if col.Hidden {
			continue
		}
		columns = append(columns, col)
		page.Headers = append(page.Headers, htmlCell{Text: col.Label, Label: len(page.Headers) == 0})
	}
	for _, row := range d.Result.Data {
		cells := make([]htmlCell, 0, len(columns))
		for i, col := range columns {
			value := row[col.Fieldname]
			negative := false
			if warn, _ := row["warn_if_negative"].(bool); warn {
				if v, ok := value.(float64); ok && v < 0 {
					negative = true
				}
			}
			cells = append(cells, htmlCell{Text: format(value, row, col), Label: i == 0, Negative: negative})
		}
		page.Rows = append(page.Rows, cells)
	}
	for _, item := range d.Result.Summary {
		if item.Type == "separator" {
			continue
		}
		value := fmt.Sprint(item.Value)
		if v, ok := item.Value.(float64); ok {
			value = format(v, queryreport.Row{}, queryreport.Column{Fieldtype: queryreport.FieldCurrency})
		}
		page.Summary = append(page.Summary, htmlSummary{Label: item.Label, Value: value})
	}

	var buf bytes.Buffer
	if err := resultTemplate.Execute(&buf, page); err != nil {
		return "", err
	}
	return buf.String(), nil
}
