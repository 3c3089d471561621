package ratios

import (
	"math"

	"github.com/odyssey-erp/ratios/internal/accounting/reports"
	"github.com/odyssey-erp/ratios/internal/i18n"
	"github.com/odyssey-erp/ratios/internal/queryreport"
)

// NetProfitMargin divides net profit by the sales of the configured accounts
// per period. A configured group account counts with its rolled-up value; an
// account whose ancestor is also configured is skipped. Sales below one are
// treated as one. A missing net profit row yields zero margins.
func NetProfitMargin(rows []reports.StatementRow, salesAccounts []string, net *reports.StatementRow, periods []reports.Period, currency string, tr *i18n.Translator) reports.StatementRow {
	isSales := make(map[string]struct{}, len(salesAccounts))
	for _, account := range salesAccounts {
		isSales[account] = struct{}{}
	}

	parents := make(map[string]string, len(rows))
	for _, row := range rows {
		parents[row.Account] = row.ParentAccount
	}

	sales := make(map[string]float64, len(periods))
	var salesTotal float64
	for _, row := range rows {
		if _, ok := isSales[row.Account]; !ok || row.Account == "" {
			continue
		}
		if hasSalesAncestor(row.Account, parents, isSales) {
			continue
		}
		for _, period := range periods {
			sales[period.Key] += row.Value(period.Key)
		}
		salesTotal += row.Total
	}

	label := tr.T("Net Profit Margin")
	margin := reports.StatementRow{
		Account:        "'" + label + "'",
		AccountName:    label,
		Currency:       currency,
		WarnIfNegative: true,
		Values:         make(map[string]float64, len(periods)),
	}
	for _, period := range periods {
		margin.Values[period.Key] = ratio(netValue(net, period.Key), sales[period.Key])
	}
	var netTotal float64
	if net != nil {
		netTotal = net.Total
	}
	margin.Total = ratio(netTotal, salesTotal)
	return margin
}

func hasSalesAncestor(account string, parents map[string]string, isSales map[string]struct{}) bool {
	visited := map[string]bool{account: true}
	for parent := parents[account]; parent != "" && !visited[parent]; parent = parents[parent] {
		if _, ok := isSales[parent]; ok {
			return true
		}
		visited[parent] = true
	}
	return false
}

func netValue(net *reports.StatementRow, key string) float64 {
	if net == nil {
		return 0
	}
	return net.Value(key)
}

func ratio(numerator, denominator float64) float64 {
	return reports.Round(numerator/math.Max(denominator, 1), 2)
}

// Columns lists the output columns for the period buckets.
func Columns(periodicity reports.Periodicity, periods []reports.Period, accumulated bool, company string, tr *i18n.Translator) []queryreport.Column {
	columns := []queryreport.Column{{
		Fieldname: "account",
		Label:     tr.T("Ratio"),
		Fieldtype: queryreport.FieldData,
		Width:     300,
	}}
	if company != "" {
		columns = append(columns, queryreport.Column{
			Fieldname: "currency",
			Label:     tr.T("Currency"),
			Fieldtype: queryreport.FieldLink,
			Options:   "Currency",
			Hidden:    true,
		})
	}
	for _, period := range periods {
		columns = append(columns, queryreport.Column{
			Fieldname: period.Key,
			Label:     period.Label,
			Fieldtype: queryreport.FieldData,
			Width:     150,
		})
	}
	if periodicity != reports.Yearly && !accumulated {
		columns = append(columns, queryreport.Column{
			Fieldname: "total",
			Label:     tr.T("Total"),
			Fieldtype: queryreport.FieldData,
			Width:     150,
		})
	}
	return columns
}
