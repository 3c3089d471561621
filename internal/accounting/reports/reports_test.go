package reports

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/odyssey-erp/ratios/internal/i18n"
	_ "github.com/odyssey-erp/ratios/testing"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPeriodListQuarterly(t *testing.T) {
	periods, err := PeriodList(date(2024, 1, 1), date(2024, 12, 31), Quarterly)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(periods) != 4 {
		t.Fatalf("expected 4 periods, got %d", len(periods))
	}
	wantKeys := []string{"mar_2024", "jun_2024", "sep_2024", "dec_2024"}
	for i, p := range periods {
		if p.Key != wantKeys[i] {
			t.Fatalf("period %d: expected key %s got %s", i, wantKeys[i], p.Key)
		}
	}
	if periods[0].Label != "Jan 24-Mar 24" {
		t.Fatalf("unexpected label %q", periods[0].Label)
	}
	if !periods[3].ToDate.Equal(date(2024, 12, 31)) {
		t.Fatalf("unexpected final to date %v", periods[3].ToDate)
	}
}

func TestPeriodListClipsFinalBucket(t *testing.T) {
	periods, err := PeriodList(date(2024, 1, 1), date(2024, 8, 31), HalfYearly)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(periods) != 2 {
		t.Fatalf("expected 2 periods, got %d", len(periods))
	}
	if !periods[1].FromDate.Equal(date(2024, 7, 1)) || !periods[1].ToDate.Equal(date(2024, 8, 31)) {
		t.Fatalf("unexpected clipped period %+v", periods[1])
	}
	if periods[1].Key != "aug_2024" {
		t.Fatalf("unexpected key %s", periods[1].Key)
	}
}

func TestPeriodListYearlyLabels(t *testing.T) {
	periods, err := PeriodList(date(2023, 4, 1), date(2024, 3, 31), Yearly)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(periods) != 1 || periods[0].Label != "2023-2024" {
		t.Fatalf("unexpected yearly periods %+v", periods)
	}
	monthly, _ := PeriodList(date(2024, 1, 1), date(2024, 2, 29), Monthly)
	if len(monthly) != 2 || monthly[1].Label != "Feb 2024" {
		t.Fatalf("unexpected monthly periods %+v", monthly)
	}
}

func TestPeriodListRejectsUnknownPeriodicity(t *testing.T) {
	if _, err := PeriodList(date(2024, 1, 1), date(2024, 12, 31), Periodicity("Weekly")); err == nil {
		t.Fatal("expected error for unknown periodicity")
	}
}

func TestPeriodListUnalignedRanges(t *testing.T) {
	cases := []struct {
		name        string
		from, to    time.Time
		periodicity Periodicity
		wantKeys    []string
		wantEnds    []time.Time
	}{
		{
			name:        "mid month start",
			from:        date(2024, 1, 15),
			to:          date(2024, 3, 20),
			periodicity: Monthly,
			wantKeys:    []string{"feb_2024", "mar_2024", "mar_2024_2"},
			wantEnds:    []time.Time{date(2024, 2, 14), date(2024, 3, 14), date(2024, 3, 20)},
		},
		{
			name:        "month end start",
			from:        date(2024, 1, 31),
			to:          date(2024, 4, 30),
			periodicity: Monthly,
			wantKeys:    []string{"feb_2024", "mar_2024", "apr_2024", "apr_2024_2"},
			wantEnds:    []time.Time{date(2024, 2, 28), date(2024, 3, 30), date(2024, 4, 29), date(2024, 4, 30)},
		},
		{
			name:        "quarter from month end",
			from:        date(2023, 11, 30),
			to:          date(2024, 5, 31),
			periodicity: Quarterly,
			wantKeys:    []string{"feb_2024", "may_2024", "may_2024_2"},
			wantEnds:    []time.Time{date(2024, 2, 28), date(2024, 5, 29), date(2024, 5, 31)},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			periods, err := PeriodList(tc.from, tc.to, tc.periodicity)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(periods) != len(tc.wantKeys) {
				t.Fatalf("expected %d periods, got %+v", len(tc.wantKeys), periods)
			}
			seen := make(map[string]bool)
			next := tc.from
			for i, p := range periods {
				if p.Key != tc.wantKeys[i] {
					t.Fatalf("period %d: expected key %s got %s", i, tc.wantKeys[i], p.Key)
				}
				if seen[p.Key] {
					t.Fatalf("duplicate key %s", p.Key)
				}
				seen[p.Key] = true
				if !p.FromDate.Equal(next) {
					t.Fatalf("period %d starts %v, expected %v", i, p.FromDate, next)
				}
				if !p.ToDate.Equal(tc.wantEnds[i]) {
					t.Fatalf("period %d ends %v, expected %v", i, p.ToDate, tc.wantEnds[i])
				}
				next = p.ToDate.AddDate(0, 0, 1)
			}
			if !periods[len(periods)-1].ToDate.Equal(tc.to) {
				t.Fatalf("range end not covered: %+v", periods[len(periods)-1])
			}
		})
	}
}

func TestAddMonthsClipsToMonthEnd(t *testing.T) {
	if got := addMonths(date(2024, 1, 31), 1); !got.Equal(date(2024, 2, 29)) {
		t.Fatalf("expected Feb 29, got %v", got)
	}
	if got := addMonths(date(2023, 8, 31), 6); !got.Equal(date(2024, 2, 29)) {
		t.Fatalf("expected Feb 29, got %v", got)
	}
	if got := addMonths(date(2024, 1, 15), 12); !got.Equal(date(2025, 1, 15)) {
		t.Fatalf("expected Jan 15 2025, got %v", got)
	}
}

func TestPeriodRange(t *testing.T) {
	fy := FiscalYear{Name: "2024", StartDate: date(2024, 1, 1), EndDate: date(2024, 12, 31)}
	from, to, err := PeriodRange(FilterFiscalYear, fy, fy, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !from.Equal(fy.StartDate) || !to.Equal(fy.EndDate) {
		t.Fatalf("unexpected range %v - %v", from, to)
	}
	_, _, err = PeriodRange(FilterDateRange, fy, fy, date(2024, 5, 1), date(2024, 4, 1))
	if !errors.Is(err, ErrInvalidPeriodRange) {
		t.Fatalf("expected ErrInvalidPeriodRange, got %v", err)
	}
}

func twoPeriods() []Period {
	return []Period{{Key: "jun_2024", Label: "H1"}, {Key: "dec_2024", Label: "H2"}}
}

func TestBuildStatementIncome(t *testing.T) {
	balances := map[string][]AccountBalance{
		"jun_2024": {
			{Account: "4100 - Sales", AccountName: "Sales", RootType: "Income", Debit: 0, Credit: 1200},
			{Account: "4200 - Service", AccountName: "Service", RootType: "Income", Debit: 50, Credit: 300},
			{Account: "5100 - COGS", AccountName: "COGS", RootType: "Expense", Debit: 400},
		},
		"dec_2024": {
			{Account: "4100 - Sales", AccountName: "Sales", RootType: "Income", Credit: 800},
		},
	}

	income := BuildStatement(RootIncome, BalanceCredit, twoPeriods(), balances, StatementOptions{Currency: "IDR"})
	if len(income.Rows) != 2 {
		t.Fatalf("expected 2 income rows, got %d", len(income.Rows))
	}
	if income.Rows[0].Account != "4100 - Sales" || income.Rows[0].Total != 2000 {
		t.Fatalf("unexpected sales row %+v", income.Rows[0])
	}
	if income.Rows[1].Value("jun_2024") != 250 {
		t.Fatalf("expected service 250 got %v", income.Rows[1].Value("jun_2024"))
	}
	if income.Total.Value("jun_2024") != 1450 || income.Total.Value("dec_2024") != 800 {
		t.Fatalf("unexpected totals %+v", income.Total.Values)
	}
	if income.Total.Total != 2250 {
		t.Fatalf("expected total 2250 got %v", income.Total.Total)
	}
	if income.Rows[0].Currency != "IDR" {
		t.Fatalf("expected fallback currency IDR got %s", income.Rows[0].Currency)
	}
}

func TestBuildStatementAccumulated(t *testing.T) {
	balances := map[string][]AccountBalance{
		"jun_2024": {{Account: "5100 - COGS", RootType: "Expense", Debit: 100}},
		"dec_2024": {{Account: "5100 - COGS", RootType: "Expense", Debit: 40, Credit: 10}},
	}
	expense := BuildStatement(RootExpense, BalanceDebit, twoPeriods(), balances, StatementOptions{Accumulated: true})
	row := expense.Rows[0]
	if row.Value("jun_2024") != 100 || row.Value("dec_2024") != 130 {
		t.Fatalf("unexpected accumulated values %+v", row.Values)
	}
	if row.Total != 130 {
		t.Fatalf("expected accumulated total 130 got %v", row.Total)
	}
}

func TestBuildStatementRollsUpAccountTree(t *testing.T) {
	balances := map[string][]AccountBalance{
		"jun_2024": {
			{Account: "4000 - Pendapatan", AccountName: "Pendapatan", RootType: "Income"},
			{Account: "4100 - Penjualan", AccountName: "Penjualan", ParentAccount: "4000 - Pendapatan", RootType: "Income", Credit: 1000},
			{Account: "4110 - Ekspor", AccountName: "Ekspor", ParentAccount: "4100 - Penjualan", RootType: "Income", Credit: 200},
			{Account: "4900 - Lain", AccountName: "Lain", ParentAccount: "4800 - Non Operasional", RootType: "Income", Credit: 50},
		},
		"dec_2024": {
			{Account: "4100 - Penjualan", AccountName: "Penjualan", ParentAccount: "4000 - Pendapatan", RootType: "Income", Credit: 300},
		},
	}
	income := BuildStatement(RootIncome, BalanceCredit, twoPeriods(), balances, StatementOptions{Currency: "IDR"})

	wantOrder := []string{"4000 - Pendapatan", "4100 - Penjualan", "4110 - Ekspor", "4800 - Non Operasional", "4900 - Lain"}
	wantIndent := []int{0, 1, 2, 0, 1}
	if len(income.Rows) != len(wantOrder) {
		t.Fatalf("expected %d rows, got %+v", len(wantOrder), income.Rows)
	}
	for i, row := range income.Rows {
		if row.Account != wantOrder[i] || row.Indent != wantIndent[i] {
			t.Fatalf("row %d: expected %s at indent %d, got %s at %d", i, wantOrder[i], wantIndent[i], row.Account, row.Indent)
		}
	}
	if v := income.Rows[0].Value("jun_2024"); v != 1200 {
		t.Fatalf("expected group jun 1200 got %v", v)
	}
	if income.Rows[0].Total != 1500 || income.Rows[1].Total != 1500 {
		t.Fatalf("unexpected rolled-up totals %+v %+v", income.Rows[0], income.Rows[1])
	}
	if income.Rows[3].Total != 50 || income.Rows[3].Currency != "IDR" {
		t.Fatalf("unexpected synthesized parent %+v", income.Rows[3])
	}
	if income.Total.Total != 1550 || income.Total.Value("jun_2024") != 1250 {
		t.Fatalf("leaves counted more than once: %+v", income.Total)
	}
}

func TestNetProfitLoss(t *testing.T) {
	periods := twoPeriods()
	income := Statement{Rows: []StatementRow{{}}, Total: StatementRow{Values: map[string]float64{"jun_2024": 1000, "dec_2024": 500}}}
	expense := Statement{Rows: []StatementRow{{}}, Total: StatementRow{Values: map[string]float64{"jun_2024": 400, "dec_2024": 700}}}

	net := NetProfitLoss(income, expense, periods, "IDR", i18n.New("en"))
	if net == nil {
		t.Fatal("expected net profit row")
	}
	if net.Value("jun_2024") != 600 || net.Value("dec_2024") != -200 || net.Total != 400 {
		t.Fatalf("unexpected net %+v", net)
	}
	if net.AccountName != "'Profit for the year'" {
		t.Fatalf("unexpected label %s", net.AccountName)
	}

	if NetProfitLoss(Statement{}, Statement{}, periods, "IDR", nil) != nil {
		t.Fatal("expected nil net profit when every period is zero")
	}
}

func TestSummaryLabels(t *testing.T) {
	periods := []Period{{Key: "dec_2024"}}
	income := Statement{Rows: []StatementRow{{}}, Total: StatementRow{Values: map[string]float64{"dec_2024": 900}}}
	expense := Statement{Rows: []StatementRow{{}}, Total: StatementRow{Values: map[string]float64{"dec_2024": 300}}}
	net := NetProfitLoss(income, expense, periods, "IDR", nil)

	cards := Summary(periods, Yearly, income, expense, net, "IDR", nil)
	if len(cards) != 5 {
		t.Fatalf("expected 5 cards got %d", len(cards))
	}
	if cards[0].Label != "Total Income This Year" || cards[4].Label != "Profit This Year" {
		t.Fatalf("unexpected labels %q %q", cards[0].Label, cards[4].Label)
	}
	if cards[4].Value != 600.0 || cards[4].Indicator != "Green" {
		t.Fatalf("unexpected profit card %+v", cards[4])
	}

	cards = Summary(twoPeriods(), Quarterly, Statement{}, Statement{}, nil, "IDR", nil)
	if cards[4].Label != "Net Profit" || cards[4].Indicator != "Red" {
		t.Fatalf("unexpected profit card %+v", cards[4])
	}
}

func TestBalanceSQLPlaceholders(t *testing.T) {
	sql, args := balanceSQL(BalanceQuery{
		Company:                   "Odyssey",
		RootType:                  RootIncome,
		From:                      date(2024, 1, 1),
		To:                        date(2024, 12, 31),
		FinanceBook:               "Tax",
		IncludeDefaultBookEntries: true,
		IgnoreClosingEntries:      true,
		CostCenters:               []string{"Main"},
		Dimensions:                map[string][]string{"region": {"West"}, "branch": {"JKT"}},
	})
	if len(args) != 8 {
		t.Fatalf("expected 8 args got %d", len(args))
	}
	for _, want := range []string{
		"(g.finance_book = $5 OR COALESCE(g.finance_book, '') = '')",
		"g.cost_center = ANY($6)",
		`g."branch" = ANY($7)`,
		`g."region" = ANY($8)`,
		"Period Closing Voucher",
	} {
		if !strings.Contains(sql, want) {
			t.Fatalf("expected sql to contain %q\n%s", want, sql)
		}
	}
	if strings.Contains(sql, "is_group") {
		t.Fatalf("group accounts must be listed for roll-up\n%s", sql)
	}
}

func TestModuleProvidesSharedDefinition(t *testing.T) {
	def, err := Module(i18n.New("id"), nil)(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	company, ok := def.Filter("company")
	if !ok || company.Label != "Perusahaan" || !company.Reqd {
		t.Fatalf("unexpected company filter %+v", company)
	}
	if def.HasFilter("project") || def.HasFilter("include_default_book_entries") {
		t.Fatal("shared definition must not carry project filters")
	}
	if !def.Tree || def.NameField != "account" || def.ParentField != "parent_account" {
		t.Fatalf("unexpected tree settings %+v", def)
	}
}
