package reports

import (
	"sort"

	"github.com/odyssey-erp/ratios/internal/i18n"
)

// StatementRow is one account line with a value per period key.
type StatementRow struct {
	Account        string             `json:"account"`
	AccountName    string             `json:"account_name"`
	ParentAccount  string             `json:"parent_account,omitempty"`
	Indent         int                `json:"indent"`
	Currency       string             `json:"currency,omitempty"`
	WarnIfNegative bool               `json:"warn_if_negative,omitempty"`
	Values         map[string]float64 `json:"values"`
	Total          float64            `json:"total"`
}

// Value returns the amount for a period key.
func (r StatementRow) Value(key string) float64 {
	return r.Values[key]
}

// Statement groups the rows of one root type and their total.
type Statement struct {
	RootType    string         `json:"root_type"`
	BalanceType BalanceType    `json:"balance_type"`
	Rows        []StatementRow `json:"rows"`
	Total       StatementRow   `json:"total"`
}

// Empty reports whether the statement has no account rows.
func (s Statement) Empty() bool {
	return len(s.Rows) == 0
}

// StatementOptions tunes statement aggregation.
type StatementOptions struct {
	Accumulated bool
	Currency    string
}

// BuildStatement aggregates per-period balances into account rows for rootType.
// balances is keyed by Period.Key. Movements roll up into every ancestor named
// by ParentAccount; a parent missing from the balances gets a synthesized row.
// Rows come out in tree order and the statement total sums the top-level rows
// only. When accumulated, each period carries the running total of the
// previous ones.
func BuildStatement(rootType string, balanceType BalanceType, periods []Period, balances map[string][]AccountBalance, opts StatementOptions) Statement {
	rows := make(map[string]*StatementRow)
	newRow := func(account, name, parent, currency string) *StatementRow {
		if currency == "" {
			currency = opts.Currency
		}
		row := &StatementRow{
			Account:       account,
			AccountName:   name,
			ParentAccount: parent,
			Currency:      currency,
			Values:        make(map[string]float64, len(periods)),
		}
		rows[account] = row
		return row
	}
	for _, period := range periods {
		for _, bal := range balances[period.Key] {
			if !bal.IsRoot(rootType) {
				continue
			}
			row, ok := rows[bal.Account]
			if !ok {
				row = newRow(bal.Account, bal.AccountName, bal.ParentAccount, bal.Currency)
			}
			row.Values[period.Key] += bal.Amount(balanceType)
		}
	}
	for _, account := range sortedAccounts(rows) {
		if parent := rows[account].ParentAccount; parent != "" {
			if _, ok := rows[parent]; !ok {
				newRow(parent, parent, "", "")
			}
		}
	}
	rollUp(rows)

	totalLabel := "'Total " + rootType + " (" + string(balanceType) + ")'"
	total := StatementRow{
		Account:        totalLabel,
		AccountName:    totalLabel,
		Currency:       opts.Currency,
		WarnIfNegative: true,
		Values:         make(map[string]float64, len(periods)),
	}

	out := Statement{RootType: rootType, BalanceType: balanceType}
	for _, row := range treeOrder(rows) {
		running := 0.0
		for _, period := range periods {
			value := row.Values[period.Key]
			if opts.Accumulated {
				running += value
				value = running
			}
			row.Values[period.Key] = Round(value, 3)
		}
		if opts.Accumulated && len(periods) > 0 {
			row.Total = row.Values[periods[len(periods)-1].Key]
		} else {
			for _, period := range periods {
				row.Total += row.Values[period.Key]
			}
		}
		row.Total = Round(row.Total, 3)
		if row.Indent == 0 {
			for _, period := range periods {
				total.Values[period.Key] += row.Values[period.Key]
			}
			total.Total += row.Total
		}
		out.Rows = append(out.Rows, *row)
	}
	for _, period := range periods {
		total.Values[period.Key] = Round(total.Values[period.Key], 3)
	}
	total.Total = Round(total.Total, 3)
	out.Total = total
	return out
}

// rollUp adds every row's own movements to each of its ancestors.
func rollUp(rows map[string]*StatementRow) {
	own := make(map[string]map[string]float64, len(rows))
	for account, row := range rows {
		values := make(map[string]float64, len(row.Values))
		for k, v := range row.Values {
			values[k] = v
		}
		own[account] = values
	}
	for account, row := range rows {
		visited := map[string]bool{account: true}
		for parent := row.ParentAccount; parent != "" && !visited[parent]; {
			visited[parent] = true
			ancestor, ok := rows[parent]
			if !ok {
				break
			}
			for k, v := range own[account] {
				ancestor.Values[k] += v
			}
			parent = ancestor.ParentAccount
		}
	}
}

// treeOrder walks the rows depth first with siblings sorted by account and
// sets each row's indent.
func treeOrder(rows map[string]*StatementRow) []*StatementRow {
	children := make(map[string][]string)
	var roots []string
	for _, account := range sortedAccounts(rows) {
		parent := rows[account].ParentAccount
		if _, ok := rows[parent]; parent == "" || !ok {
			roots = append(roots, account)
			continue
		}
		children[parent] = append(children[parent], account)
	}

	out := make([]*StatementRow, 0, len(rows))
	visited := make(map[string]bool, len(rows))
	var walk func(account string, indent int)
	walk = func(account string, indent int) {
		if visited[account] {
			return
		}
		visited[account] = true
		row := rows[account]
		row.Indent = indent
		out = append(out, row)
		for _, child := range children[account] {
			walk(child, indent+1)
		}
	}
	for _, account := range roots {
		walk(account, 0)
	}
	return out
}

func sortedAccounts(rows map[string]*StatementRow) []string {
	accounts := make([]string, 0, len(rows))
	for account := range rows {
		accounts = append(accounts, account)
	}
	sort.Strings(accounts)
	return accounts
}

// NetProfitLoss computes income minus expense per period. It returns nil when
// every period nets to zero.
func NetProfitLoss(income, expense Statement, periods []Period, currency string, tr *i18n.Translator) *StatementRow {
	label := "'" + tr.T("Profit for the year") + "'"
	net := StatementRow{
		Account:        label,
		AccountName:    label,
		Currency:       currency,
		WarnIfNegative: true,
		Values:         make(map[string]float64, len(periods)),
	}
	hasValue := false
	for _, period := range periods {
		totalIncome := Round(income.Total.Value(period.Key), 3)
		totalExpense := Round(expense.Total.Value(period.Key), 3)
		value := totalIncome - totalExpense
		net.Values[period.Key] = value
		if value != 0 {
			hasValue = true
		}
		net.Total += value
	}
	if !hasValue {
		return nil
	}
	return &net
}
