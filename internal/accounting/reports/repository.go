package reports

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrFiscalYearNotFound indicates the fiscal year name is unknown.
var ErrFiscalYearNotFound = errors.New("reports: fiscal year not found")

// BalanceQuery narrows the ledger movements aggregated for one period.
type BalanceQuery struct {
	Company                   string
	RootType                  string
	From                      time.Time
	To                        time.Time
	FinanceBook               string
	IncludeDefaultBookEntries bool
	IgnoreClosingEntries      bool
	CostCenters               []string
	Projects                  []string
	Dimensions                map[string][]string
}

// Repository reads ledger data for financial statements.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FiscalYear loads a fiscal year by name.
func (r *Repository) FiscalYear(ctx context.Context, name string) (FiscalYear, error) {
	var fy FiscalYear
	err := r.pool.QueryRow(ctx, `SELECT name, year_start_date, year_end_date FROM fiscal_years WHERE name = $1`, name).
		Scan(&fy.Name, &fy.StartDate, &fy.EndDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FiscalYear{}, fmt.Errorf("%s: %w", name, ErrFiscalYearNotFound)
		}
		return FiscalYear{}, err
	}
	return fy, nil
}

// CompanyCurrency returns the company's default currency.
func (r *Repository) CompanyCurrency(ctx context.Context, company string) (string, error) {
	var currency string
	err := r.pool.QueryRow(ctx, `SELECT default_currency FROM companies WHERE name = $1`, company).Scan(&currency)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return currency, nil
}

// AccountBalances aggregates debit and credit per account for the query window.
// Group accounts are listed too so statements can roll leaves up into them.
func (r *Repository) AccountBalances(ctx context.Context, q BalanceQuery) ([]AccountBalance, error) {
	sql, args := balanceSQL(q)
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var balances []AccountBalance
	for rows.Next() {
		var b AccountBalance
		if err := rows.Scan(&b.Account, &b.AccountName, &b.ParentAccount, &b.RootType, &b.Currency, &b.Debit, &b.Credit); err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

func balanceSQL(q BalanceQuery) (string, []any) {
	args := []any{q.Company, q.From, q.To, q.RootType}
	conds := []string{
		"g.account = a.name",
		"g.company = $1",
		"g.posting_date BETWEEN $2 AND $3",
		"g.is_cancelled = false",
	}
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if q.IgnoreClosingEntries {
		conds = append(conds, "g.voucher_type <> 'Period Closing Voucher'")
	}
	if q.FinanceBook != "" {
		if q.IncludeDefaultBookEntries {
			conds = append(conds, "(g.finance_book = "+next(q.FinanceBook)+" OR COALESCE(g.finance_book, '') = '')")
		} else {
			conds = append(conds, "g.finance_book = "+next(q.FinanceBook))
		}
	}
	if len(q.CostCenters) > 0 {
		conds = append(conds, "g.cost_center = ANY("+next(q.CostCenters)+")")
	}
	if len(q.Projects) > 0 {
		conds = append(conds, "g.project = ANY("+next(q.Projects)+")")
	}
	for _, field := range sortedKeys(q.Dimensions) {
		values := q.Dimensions[field]
		if len(values) == 0 {
			continue
		}
		conds = append(conds, "g."+pgx.Identifier{field}.Sanitize()+" = ANY("+next(values)+")")
	}

	sql := `SELECT a.name, a.account_name, COALESCE(a.parent_account, ''), a.root_type, COALESCE(a.account_currency, ''),
	COALESCE(SUM(g.debit), 0)::float8, COALESCE(SUM(g.credit), 0)::float8
FROM accounts a
LEFT JOIN gl_entries g ON ` + strings.Join(conds, " AND ") + `
WHERE a.company = $1 AND a.root_type = $4
GROUP BY a.name, a.account_name, a.parent_account, a.root_type, a.account_currency
ORDER BY a.name`
	return sql, args
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
