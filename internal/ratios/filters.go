package ratios

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/ratios/internal/accounting/reports"
)

// ErrInvalidFilters wraps every filter validation failure.
var ErrInvalidFilters = errors.New("ratios: invalid filters")

const dateLayout = "2006-01-02"

var validate = validator.New()

// Filters are the user inputs of the Financial Ratios report.
type Filters struct {
	Company                   string              `json:"company" validate:"required"`
	FinanceBook               string              `json:"finance_book,omitempty"`
	FilterBasedOn             string              `json:"filter_based_on" validate:"required,oneof='Fiscal Year' 'Date Range'"`
	PeriodStartDate           string              `json:"period_start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	PeriodEndDate             string              `json:"period_end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	FromFiscalYear            string              `json:"from_fiscal_year,omitempty"`
	ToFiscalYear              string              `json:"to_fiscal_year,omitempty"`
	Periodicity               string              `json:"periodicity" validate:"required,oneof=Monthly Quarterly Half-Yearly Yearly"`
	PresentationCurrency      string              `json:"presentation_currency,omitempty" validate:"omitempty,len=3"`
	CostCenters               []string            `json:"cost_center,omitempty"`
	Projects                  []string            `json:"project,omitempty"`
	IncludeDefaultBookEntries bool                `json:"include_default_book_entries,omitempty"`
	AccumulatedValues         bool                `json:"accumulated_values,omitempty"`
	Dimensions                map[string][]string `json:"dimensions,omitempty"`
}

// Validate checks field formats and the fields required by the period mode.
func (f Filters) Validate() error {
	if err := validate.Struct(f); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("%w: %s failed %s", ErrInvalidFilters, strings.ToLower(fe.Field()), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidFilters, err)
	}
	switch f.FilterBasedOn {
	case reports.FilterFiscalYear:
		if f.FromFiscalYear == "" || f.ToFiscalYear == "" {
			return fmt.Errorf("%w: from_fiscal_year and to_fiscal_year required", ErrInvalidFilters)
		}
	case reports.FilterDateRange:
		if f.PeriodStartDate == "" || f.PeriodEndDate == "" {
			return fmt.Errorf("%w: period_start_date and period_end_date required", ErrInvalidFilters)
		}
	}
	return nil
}

// DateRange parses the explicit period dates.
func (f Filters) DateRange() (time.Time, time.Time, error) {
	if f.PeriodStartDate == "" || f.PeriodEndDate == "" {
		return time.Time{}, time.Time{}, nil
	}
	start, err := time.Parse(dateLayout, f.PeriodStartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: period_start_date: %v", ErrInvalidFilters, err)
	}
	end, err := time.Parse(dateLayout, f.PeriodEndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: period_end_date: %v", ErrInvalidFilters, err)
	}
	return start, end, nil
}

// CacheKey is a stable representation of the filters.
func (f Filters) CacheKey() string {
	parts := []string{
		f.Company, f.FinanceBook, f.FilterBasedOn, f.PeriodStartDate, f.PeriodEndDate,
		f.FromFiscalYear, f.ToFiscalYear, f.Periodicity, f.PresentationCurrency,
		joinSorted(f.CostCenters), joinSorted(f.Projects),
		strconv.FormatBool(f.IncludeDefaultBookEntries), strconv.FormatBool(f.AccumulatedValues),
	}
	keys := make([]string, 0, len(f.Dimensions))
	for k := range f.Dimensions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+"="+joinSorted(f.Dimensions[k]))
	}
	return strings.Join(parts, "|")
}

// ParseFilters reads filters from query parameters. Multi-select values may be
// repeated or comma separated. dimensionFields lists the accepted dimension keys.
func ParseFilters(values url.Values, dimensionFields []string) Filters {
	f := Filters{
		Company:                   strings.TrimSpace(values.Get("company")),
		FinanceBook:               strings.TrimSpace(values.Get("finance_book")),
		FilterBasedOn:             strings.TrimSpace(values.Get("filter_based_on")),
		PeriodStartDate:           strings.TrimSpace(values.Get("period_start_date")),
		PeriodEndDate:             strings.TrimSpace(values.Get("period_end_date")),
		FromFiscalYear:            strings.TrimSpace(values.Get("from_fiscal_year")),
		ToFiscalYear:              strings.TrimSpace(values.Get("to_fiscal_year")),
		Periodicity:               strings.TrimSpace(values.Get("periodicity")),
		PresentationCurrency:      strings.ToUpper(strings.TrimSpace(values.Get("presentation_currency"))),
		CostCenters:               multi(values["cost_center"]),
		Projects:                  multi(values["project"]),
		IncludeDefaultBookEntries: truthy(values.Get("include_default_book_entries")),
		AccumulatedValues:         truthy(values.Get("accumulated_values")),
	}
	if f.FilterBasedOn == "" {
		f.FilterBasedOn = reports.FilterFiscalYear
	}
	if f.Periodicity == "" {
		f.Periodicity = string(reports.Yearly)
	}
	for _, field := range dimensionFields {
		if vals := multi(values[field]); len(vals) > 0 {
			if f.Dimensions == nil {
				f.Dimensions = make(map[string][]string)
			}
			f.Dimensions[field] = vals
		}
	}
	return f
}

func multi(raw []string) []string {
	var out []string
	for _, item := range raw {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func joinSorted(values []string) string {
	cp := append([]string(nil), values...)
	sort.Strings(cp)
	return strings.Join(cp, ",")
}
