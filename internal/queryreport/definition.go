// Package queryreport models query report definitions and the named report registry.
package queryreport

import "context"

// FieldType enumerates the filter widgets understood by the report UI.
type FieldType string

// Supported filter field types.
const (
	FieldLink            FieldType = "Link"
	FieldMultiSelectList FieldType = "MultiSelectList"
	FieldSelect          FieldType = "Select"
	FieldDate            FieldType = "Date"
	FieldCheck           FieldType = "Check"
	FieldData            FieldType = "Data"
	FieldInt             FieldType = "Int"
	FieldCurrency        FieldType = "Currency"
)

// LinkOption is a single suggestion returned by a link lookup.
type LinkOption struct {
	Value       string `json:"value"`
	Label       string `json:"label,omitempty"`
	Description string `json:"description,omitempty"`
}

// LinkLookup resolves link suggestions for the text typed into a filter.
type LinkLookup func(ctx context.Context, txt string) ([]LinkOption, error)

// LookupFactory builds the link lookup for a doctype.
type LookupFactory func(doctype string) LinkLookup

// Filter describes one user-facing filter control.
type Filter struct {
	Fieldname string     `json:"fieldname"`
	Label     string     `json:"label"`
	Fieldtype FieldType  `json:"fieldtype"`
	Options   string     `json:"options,omitempty"`
	Default   any        `json:"default,omitempty"`
	Reqd      bool       `json:"reqd,omitempty"`
	DependsOn string     `json:"depends_on,omitempty"`
	Lookup    string     `json:"lookup,omitempty"`
	GetData   LinkLookup `json:"-"`
}

// Column describes a report output column.
type Column struct {
	Fieldname string    `json:"fieldname"`
	Label     string    `json:"label"`
	Fieldtype FieldType `json:"fieldtype"`
	Options   string    `json:"options,omitempty"`
	Width     int       `json:"width,omitempty"`
	Hidden    bool      `json:"hidden,omitempty"`
}

// Formatter renders a cell value for display.
type Formatter func(value any, row Row, column Column) string

// Definition is the configuration the report UI interprets.
type Definition struct {
	Filters      []Filter       `json:"filters"`
	Columns      []Column       `json:"columns,omitempty"`
	Formatter    Formatter      `json:"-"`
	Tree         bool           `json:"tree,omitempty"`
	NameField    string         `json:"name_field,omitempty"`
	ParentField  string         `json:"parent_field,omitempty"`
	InitialDepth int            `json:"initial_depth,omitempty"`
	Extras       map[string]any `json:"extras,omitempty"`
}

// Filter returns the filter with the given fieldname.
func (d Definition) Filter(fieldname string) (Filter, bool) {
	for _, f := range d.Filters {
		if f.Fieldname == fieldname {
			return f, true
		}
	}
	return Filter{}, false
}

// HasFilter reports whether a filter with the fieldname exists.
func (d Definition) HasFilter(fieldname string) bool {
	_, ok := d.Filter(fieldname)
	return ok
}

// Row is one output row keyed by column fieldname.
type Row map[string]any

// SummaryItem is a headline card shown above the report table.
type SummaryItem struct {
	Type      string `json:"type,omitempty"`
	Value     any    `json:"value"`
	Label     string `json:"label,omitempty"`
	Datatype  string `json:"datatype,omitempty"`
	Currency  string `json:"currency,omitempty"`
	Indicator string `json:"indicator,omitempty"`
	Color     string `json:"color,omitempty"`
}

// Result is the rendered output of a report run.
type Result struct {
	Columns []Column      `json:"columns"`
	Data    []Row         `json:"result"`
	Summary []SummaryItem `json:"report_summary,omitempty"`
}
