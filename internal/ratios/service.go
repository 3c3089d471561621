package ratios

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/ratios/internal/accounting/reports"
	"github.com/odyssey-erp/ratios/internal/i18n"
	"github.com/odyssey-erp/ratios/internal/queryreport"
)

const balanceFetchLimit = 4

// LedgerReader exposes the ledger reads used to compute the report.
type LedgerReader interface {
	FiscalYear(ctx context.Context, name string) (reports.FiscalYear, error)
	CompanyCurrency(ctx context.Context, company string) (string, error)
	AccountBalances(ctx context.Context, q reports.BalanceQuery) ([]reports.AccountBalance, error)
}

// SalesAccountReader lists the configured sales accounts.
type SalesAccountReader interface {
	SalesAccounts(ctx context.Context) ([]string, error)
}

// Report is a computed Financial Ratios report.
type Report struct {
	Filters  Filters                   `json:"filters"`
	Currency string                    `json:"currency"`
	Periods  []reports.Period          `json:"periods"`
	Columns  []queryreport.Column      `json:"columns"`
	Rows     []reports.StatementRow    `json:"rows"`
	Summary  []queryreport.SummaryItem `json:"summary"`
}

// Result flattens the report into query report rows keyed by column fieldname.
func (r Report) Result() queryreport.Result {
	data := make([]queryreport.Row, 0, len(r.Rows))
	for _, row := range r.Rows {
		out := queryreport.Row{
			"account":          row.Account,
			"account_name":     row.AccountName,
			"currency":         row.Currency,
			"warn_if_negative": row.WarnIfNegative,
			"total":            row.Total,
		}
		for _, period := range r.Periods {
			out[period.Key] = row.Value(period.Key)
		}
		data = append(data, out)
	}
	return queryreport.Result{Columns: r.Columns, Data: data, Summary: r.Summary}
}

// Service computes the Financial Ratios report.
type Service struct {
	ledger LedgerReader
	sales  SalesAccountReader
	cache  *Cache
	tr     *i18n.Translator
	logger *slog.Logger
}

// NewService constructs the service. cache may be nil.
func NewService(ledger LedgerReader, sales SalesAccountReader, cache *Cache, tr *i18n.Translator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{ledger: ledger, sales: sales, cache: cache, tr: tr, logger: logger}
}

// Run parses query parameters and executes the report.
func (s *Service) Run(ctx context.Context, values url.Values, dimensionFields []string) (queryreport.Result, error) {
	report, err := s.Execute(ctx, ParseFilters(values, dimensionFields))
	if err != nil {
		return queryreport.Result{}, err
	}
	return report.Result(), nil
}

// Execute validates the filters and returns the cached or freshly computed report.
func (s *Service) Execute(ctx context.Context, filters Filters) (Report, error) {
	if err := filters.Validate(); err != nil {
		return Report{}, err
	}
	digest := uuid.NewSHA1(uuid.NameSpaceOID, []byte(filters.CacheKey())).String()
	key, err := s.cache.BuildKey(ctx, "ratios", "report", s.tr.Language(), digest)
	if err != nil {
		return Report{}, err
	}
	var report Report
	err = s.cache.FetchJSON(ctx, key, &report, func(ctx context.Context) (any, error) {
		return s.compute(ctx, filters)
	})
	if err != nil {
		return Report{}, err
	}
	return report, nil
}

// Invalidate drops every cached report.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func (s *Service) compute(ctx context.Context, filters Filters) (Report, error) {
	salesAccounts, err := s.sales.SalesAccounts(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("ratios: sales accounts: %w", err)
	}
	periods, err := s.periods(ctx, filters)
	if err != nil {
		return Report{}, err
	}
	currency := filters.PresentationCurrency
	if currency == "" {
		currency, err = s.ledger.CompanyCurrency(ctx, filters.Company)
		if err != nil {
			return Report{}, fmt.Errorf("ratios: company currency: %w", err)
		}
	}

	income, expense, err := s.balances(ctx, filters, periods)
	if err != nil {
		return Report{}, err
	}
	opts := reports.StatementOptions{Accumulated: filters.AccumulatedValues, Currency: currency}
	incomeStmt := reports.BuildStatement(reports.RootIncome, reports.BalanceCredit, periods, income, opts)
	expenseStmt := reports.BuildStatement(reports.RootExpense, reports.BalanceDebit, periods, expense, opts)
	net := reports.NetProfitLoss(incomeStmt, expenseStmt, periods, currency, s.tr)

	statementRows := make([]reports.StatementRow, 0, len(incomeStmt.Rows)+len(expenseStmt.Rows))
	statementRows = append(statementRows, incomeStmt.Rows...)
	statementRows = append(statementRows, expenseStmt.Rows...)
	margin := NetProfitMargin(statementRows, salesAccounts, net, periods, currency, s.tr)

	periodicity := reports.Periodicity(filters.Periodicity)
	s.logger.Debug("ratios computed",
		slog.String("company", filters.Company),
		slog.Int("periods", len(periods)),
		slog.Int("sales_accounts", len(salesAccounts)))
	return Report{
		Filters:  filters,
		Currency: currency,
		Periods:  periods,
		Columns:  Columns(periodicity, periods, filters.AccumulatedValues, filters.Company, s.tr),
		Rows:     []reports.StatementRow{margin},
		Summary:  reports.Summary(periods, periodicity, incomeStmt, expenseStmt, net, currency, s.tr),
	}, nil
}

func (s *Service) periods(ctx context.Context, filters Filters) ([]reports.Period, error) {
	var fromFY, toFY reports.FiscalYear
	if filters.FilterBasedOn == reports.FilterFiscalYear {
		var err error
		if fromFY, err = s.ledger.FiscalYear(ctx, filters.FromFiscalYear); err != nil {
			return nil, err
		}
		if toFY, err = s.ledger.FiscalYear(ctx, filters.ToFiscalYear); err != nil {
			return nil, err
		}
	}
	start, end, err := filters.DateRange()
	if err != nil {
		return nil, err
	}
	from, to, err := reports.PeriodRange(filters.FilterBasedOn, fromFY, toFY, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilters, err)
	}
	return reports.PeriodList(from, to, reports.Periodicity(filters.Periodicity))
}

// balances fetches income and expense movements for every period concurrently.
func (s *Service) balances(ctx context.Context, filters Filters, periods []reports.Period) (map[string][]reports.AccountBalance, map[string][]reports.AccountBalance, error) {
	income := make(map[string][]reports.AccountBalance, len(periods))
	expense := make(map[string][]reports.AccountBalance, len(periods))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(balanceFetchLimit)
	for _, period := range periods {
		for _, rootType := range []string{reports.RootIncome, reports.RootExpense} {
			period, rootType := period, rootType
			g.Go(func() error {
				rows, err := s.ledger.AccountBalances(gctx, reports.BalanceQuery{
					Company:                   filters.Company,
					RootType:                  rootType,
					From:                      period.FromDate,
					To:                        period.ToDate,
					FinanceBook:               filters.FinanceBook,
					IncludeDefaultBookEntries: filters.IncludeDefaultBookEntries,
					IgnoreClosingEntries:      true,
					CostCenters:               filters.CostCenters,
					Projects:                  filters.Projects,
					Dimensions:                filters.Dimensions,
				})
				if err != nil {
					return fmt.Errorf("ratios: %s balances for %s: %w", rootType, period.Key, err)
				}
				mu.Lock()
				defer mu.Unlock()
				if rootType == reports.RootIncome {
					income[period.Key] = rows
				} else {
					expense[period.Key] = rows
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return income, expense, nil
}

// IsClientError reports whether err stems from bad user input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidFilters) || errors.Is(err, reports.ErrFiscalYearNotFound) || errors.Is(err, reports.ErrInvalidPeriodRange)
}
