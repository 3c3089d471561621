package reports

import (
	"context"
	"fmt"

	"github.com/odyssey-erp/ratios/internal/i18n"
	"github.com/odyssey-erp/ratios/internal/queryreport"
	"github.com/odyssey-erp/ratios/internal/queryreport/loader"
)

// ModulePath identifies the shared financial statements module for the loader.
const ModulePath = "assets/erpnext/js/financial_statements.js"

// ProfitAndLossReport is the registry name of the host profit and loss report.
const ProfitAndLossReport = "Profit and Loss Statement"

// SharedDefinition returns the filters and tree settings shared by every
// financial statement report.
func SharedDefinition(tr *i18n.Translator, lookups queryreport.LookupFactory) queryreport.Definition {
	var costCenters queryreport.LinkLookup
	if lookups != nil {
		costCenters = lookups("Cost Center")
	}
	return queryreport.Definition{
		Filters: []queryreport.Filter{
			{Fieldname: "company", Label: tr.T("Company"), Fieldtype: queryreport.FieldLink, Options: "Company", Reqd: true},
			{Fieldname: "finance_book", Label: tr.T("Finance Book"), Fieldtype: queryreport.FieldLink, Options: "Finance Book"},
			{Fieldname: "filter_based_on", Label: tr.T("Filter Based On"), Fieldtype: queryreport.FieldSelect, Options: FilterFiscalYear + "\n" + FilterDateRange, Default: FilterFiscalYear, Reqd: true},
			{Fieldname: "period_start_date", Label: tr.T("Start Date"), Fieldtype: queryreport.FieldDate, DependsOn: "eval:doc.filter_based_on == 'Date Range'"},
			{Fieldname: "period_end_date", Label: tr.T("End Date"), Fieldtype: queryreport.FieldDate, DependsOn: "eval:doc.filter_based_on == 'Date Range'"},
			{Fieldname: "from_fiscal_year", Label: tr.T("Start Year"), Fieldtype: queryreport.FieldLink, Options: "Fiscal Year", DependsOn: "eval:doc.filter_based_on == 'Fiscal Year'"},
			{Fieldname: "to_fiscal_year", Label: tr.T("End Year"), Fieldtype: queryreport.FieldLink, Options: "Fiscal Year", DependsOn: "eval:doc.filter_based_on == 'Fiscal Year'"},
			{Fieldname: "periodicity", Label: tr.T("Periodicity"), Fieldtype: queryreport.FieldSelect, Options: "Monthly\nQuarterly\nHalf-Yearly\nYearly", Default: string(Yearly), Reqd: true},
			{Fieldname: "presentation_currency", Label: tr.T("Currency"), Fieldtype: queryreport.FieldSelect},
			{Fieldname: "cost_center", Label: tr.T("Cost Center"), Fieldtype: queryreport.FieldMultiSelectList, Lookup: "Cost Center", GetData: costCenters},
			{Fieldname: "accumulated_values", Label: tr.T("Accumulated Values"), Fieldtype: queryreport.FieldCheck, Default: 0},
		},
		Formatter:    StatementFormatter(tr),
		Tree:         true,
		NameField:    "account",
		ParentField:  "parent_account",
		InitialDepth: 3,
	}
}

// Module exposes SharedDefinition to the module loader.
func Module(tr *i18n.Translator, lookups queryreport.LookupFactory) loader.Provider {
	return func(ctx context.Context) (queryreport.Definition, error) {
		if err := ctx.Err(); err != nil {
			return queryreport.Definition{}, err
		}
		return SharedDefinition(tr, lookups), nil
	}
}

// ProfitAndLossDefinition clones the shared definition for the host P&L report.
func ProfitAndLossDefinition(shared queryreport.Definition) queryreport.Definition {
	return queryreport.Extend(queryreport.Definition{}, shared)
}

// RegisterHostReports registers the statements owned by the accounting module.
func RegisterHostReports(registry *queryreport.Registry, shared queryreport.Definition) {
	registry.Set(ProfitAndLossReport, ProfitAndLossDefinition(shared))
}

// StatementFormatter renders account names and amounts for exports.
func StatementFormatter(tr *i18n.Translator) queryreport.Formatter {
	return func(value any, row queryreport.Row, column queryreport.Column) string {
		if column.Fieldname == "account" {
			if name, ok := row["account_name"].(string); ok && name != "" {
				return name
			}
		}
		switch v := value.(type) {
		case nil:
			return ""
		case float64:
			return tr.Amount(v)
		case string:
			return v
		}
		return fmt.Sprint(value)
	}
}
