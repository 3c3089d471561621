// Package dimensions exposes accounting dimensions as report filters.
package dimensions

import (
	"strings"

	"github.com/odyssey-erp/ratios/internal/i18n"
	"github.com/odyssey-erp/ratios/internal/queryreport"
)

// DefaultFilterCount is the number of dimension filters appended to the P&L report.
const DefaultFilterCount = 10

// Dimension is an accounting dimension backed by a link doctype.
type Dimension struct {
	Doctype   string
	Fieldname string
	Label     string
}

// FieldnameFor derives the ledger column name for a doctype.
func FieldnameFor(doctype string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(doctype)), " ", "_")
}

// Defaults is the built-in catalogue used when no dimensions are configured.
func Defaults() []Dimension {
	doctypes := []string{
		"Department", "Branch", "Location", "Region", "Business Unit", "Sales Channel",
		"Product Line", "Campaign", "Fund", "Segment", "Warehouse", "Customer Group",
	}
	out := make([]Dimension, 0, len(doctypes))
	for _, doctype := range doctypes {
		out = append(out, Dimension{Doctype: doctype, Fieldname: FieldnameFor(doctype), Label: doctype})
	}
	return out
}

// Filter converts the dimension into a multi-select filter descriptor.
func (d Dimension) Filter(tr *i18n.Translator, lookup queryreport.LinkLookup) queryreport.Filter {
	label := d.Label
	if label == "" {
		label = d.Doctype
	}
	fieldname := d.Fieldname
	if fieldname == "" {
		fieldname = FieldnameFor(d.Doctype)
	}
	return queryreport.Filter{
		Fieldname: fieldname,
		Label:     tr.T(label),
		Fieldtype: queryreport.FieldMultiSelectList,
		Lookup:    d.Doctype,
		GetData:   lookup,
	}
}

// AppendFilters returns a copy of def with filters for the first count
// dimensions appended. A dimension whose fieldname is already present is
// skipped, so appending twice leaves the filters unchanged. Existing filters
// keep their order.
func AppendFilters(def queryreport.Definition, dims []Dimension, count int, tr *i18n.Translator, lookups queryreport.LookupFactory) queryreport.Definition {
	if count <= 0 {
		return queryreport.Clone(def)
	}
	if count < len(dims) {
		dims = dims[:count]
	}
	seen := make(map[string]struct{}, len(def.Filters))
	for _, f := range def.Filters {
		seen[f.Fieldname] = struct{}{}
	}
	added := make([]queryreport.Filter, 0, len(dims))
	for _, dim := range dims {
		var lookup queryreport.LinkLookup
		if lookups != nil {
			lookup = lookups(dim.Doctype)
		}
		filter := dim.Filter(tr, lookup)
		if _, dup := seen[filter.Fieldname]; dup {
			continue
		}
		seen[filter.Fieldname] = struct{}{}
		added = append(added, filter)
	}
	return queryreport.WithFilters(def, added...)
}

// Fieldnames lists the fieldnames of dims in order.
func Fieldnames(dims []Dimension) []string {
	out := make([]string, 0, len(dims))
	for _, d := range dims {
		if d.Fieldname != "" {
			out = append(out, d.Fieldname)
			continue
		}
		out = append(out, FieldnameFor(d.Doctype))
	}
	return out
}
