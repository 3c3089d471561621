// Package ratios registers and runs the Financial Ratios report.
package ratios

import (
	"github.com/odyssey-erp/ratios/internal/i18n"
	"github.com/odyssey-erp/ratios/internal/queryreport"
)

// ReportName is the registry name of the report.
const ReportName = "Financial Ratios"

// BuildReport clones the shared financial statements definition into a new
// definition for the Financial Ratios report.
func BuildReport(shared queryreport.Definition) queryreport.Definition {
	return queryreport.Extend(queryreport.Definition{}, shared)
}

// ProjectFilters are the optional project and default-book filters for the
// profit and loss report.
func ProjectFilters(tr *i18n.Translator, lookups queryreport.LookupFactory) []queryreport.Filter {
	var projects queryreport.LinkLookup
	if lookups != nil {
		projects = lookups("Project")
	}
	return []queryreport.Filter{
		{
			Fieldname: "project",
			Label:     tr.T("Project"),
			Fieldtype: queryreport.FieldMultiSelectList,
			Lookup:    "Project",
			GetData:   projects,
		},
		{
			Fieldname: "include_default_book_entries",
			Label:     tr.T("Include Default Book Entries"),
			Fieldtype: queryreport.FieldCheck,
			Default:   1,
		},
	}
}

// WithProjectFilters appends ProjectFilters to def, skipping any already present.
func WithProjectFilters(def queryreport.Definition, tr *i18n.Translator, lookups queryreport.LookupFactory) queryreport.Definition {
	var missing []queryreport.Filter
	for _, f := range ProjectFilters(tr, lookups) {
		if !def.HasFilter(f.Fieldname) {
			missing = append(missing, f)
		}
	}
	return queryreport.WithFilters(def, missing...)
}
