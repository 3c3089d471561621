package ratios

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/ratios/internal/accounting/reports"
)

func TestParseFiltersDefaultsAndMultiValues(t *testing.T) {
	values := url.Values{
		"company":               {" Odyssey "},
		"from_fiscal_year":      {"2024"},
		"to_fiscal_year":        {"2024"},
		"cost_center":           {"Main, Ops", "Sales"},
		"department":            {"Finance"},
		"warehouse":             {"Stores"},
		"accumulated_values":    {"1"},
		"presentation_currency": {"idr"},
	}

	f := ParseFilters(values, []string{"department"})

	assert.Equal(t, "Odyssey", f.Company)
	assert.Equal(t, reports.FilterFiscalYear, f.FilterBasedOn)
	assert.Equal(t, string(reports.Yearly), f.Periodicity)
	assert.Equal(t, "IDR", f.PresentationCurrency)
	assert.Equal(t, []string{"Main", "Ops", "Sales"}, f.CostCenters)
	assert.Equal(t, map[string][]string{"department": {"Finance"}}, f.Dimensions)
	assert.True(t, f.AccumulatedValues)
	require.NoError(t, f.Validate())
}

func TestValidateModeRequirements(t *testing.T) {
	f := Filters{Company: "Odyssey", FilterBasedOn: reports.FilterDateRange, Periodicity: "Monthly"}
	assert.ErrorIs(t, f.Validate(), ErrInvalidFilters)

	f.PeriodStartDate = "2024-01-01"
	f.PeriodEndDate = "2024-13-01"
	assert.ErrorIs(t, f.Validate(), ErrInvalidFilters)

	f.PeriodEndDate = "2024-12-31"
	assert.NoError(t, f.Validate())

	f.Periodicity = "Weekly"
	assert.ErrorIs(t, f.Validate(), ErrInvalidFilters)
}

func TestCacheKeyIgnoresOrder(t *testing.T) {
	a := Filters{Company: "Odyssey", CostCenters: []string{"B", "A"}, Dimensions: map[string][]string{"branch": {"y", "x"}, "department": {"z"}}}
	b := Filters{Company: "Odyssey", CostCenters: []string{"A", "B"}, Dimensions: map[string][]string{"department": {"z"}, "branch": {"x", "y"}}}
	assert.Equal(t, a.CacheKey(), b.CacheKey())

	b.AccumulatedValues = true
	assert.NotEqual(t, a.CacheKey(), b.CacheKey())
}
