package reports

import (
	"github.com/odyssey-erp/ratios/internal/i18n"
	"github.com/odyssey-erp/ratios/internal/queryreport"
)

// Summary builds the income, expense and net profit headline cards.
func Summary(periods []Period, periodicity Periodicity, income, expense Statement, net *StatementRow, currency string, tr *i18n.Translator) []queryreport.SummaryItem {
	var netIncome, netExpense, netProfit float64
	for _, period := range periods {
		if !income.Empty() {
			netIncome += income.Total.Value(period.Key)
		}
		if !expense.Empty() {
			netExpense += expense.Total.Value(period.Key)
		}
		if net != nil {
			netProfit += net.Value(period.Key)
		}
	}

	profitLabel := tr.T("Net Profit")
	incomeLabel := tr.T("Total Income")
	expenseLabel := tr.T("Total Expense")
	if len(periods) == 1 && periodicity == Yearly {
		profitLabel = tr.T("Profit This Year")
		incomeLabel = tr.T("Total Income This Year")
		expenseLabel = tr.T("Total Expense This Year")
	}

	indicator := "Red"
	if netProfit > 0 {
		indicator = "Green"
	}

	return []queryreport.SummaryItem{
		{Value: netIncome, Label: incomeLabel, Datatype: "Currency", Currency: currency},
		{Type: "separator", Value: "-"},
		{Value: netExpense, Label: expenseLabel, Datatype: "Currency", Currency: currency},
		{Type: "separator", Value: "=", Color: "blue"},
		{Value: netProfit, Indicator: indicator, Label: profitLabel, Datatype: "Currency", Currency: currency},
	}
}
