package reports

import (
	"math"
	"strings"
)

// Root types of the chart of accounts.
const (
	RootAsset     = "Asset"
	RootLiability = "Liability"
	RootEquity    = "Equity"
	RootIncome    = "Income"
	RootExpense   = "Expense"
)

// BalanceType selects which side of the ledger is positive for a section.
type BalanceType string

// Balance types.
const (
	BalanceCredit BalanceType = "Credit"
	BalanceDebit  BalanceType = "Debit"
)

// AccountBalance models a general ledger account with movements aggregated for one period.
type AccountBalance struct {
	Account       string
	AccountName   string
	ParentAccount string
	RootType      string
	Currency      string
	Debit         float64
	Credit        float64
}

// Amount returns the signed movement for the balance type.
func (a AccountBalance) Amount(balanceType BalanceType) float64 {
	if balanceType == BalanceCredit {
		return a.Credit - a.Debit
	}
	return a.Debit - a.Credit
}

// IsRoot reports whether the account belongs to rootType (case-insensitive).
func (a AccountBalance) IsRoot(rootType string) bool {
	return strings.EqualFold(a.RootType, rootType)
}

// Round rounds v half away from zero to the given decimals.
func Round(v float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(v*pow) / pow
}
