package ratios

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/odyssey-erp/ratios/internal/accounting/dimensions"
	"github.com/odyssey-erp/ratios/internal/accounting/reports"
	"github.com/odyssey-erp/ratios/internal/i18n"
	"github.com/odyssey-erp/ratios/internal/queryreport"
	"github.com/odyssey-erp/ratios/internal/queryreport/loader"
)

// ModuleRequester starts asynchronous module loads.
type ModuleRequester interface {
	Require(ctx context.Context, path string) *loader.Future
}

// RegistrarParams groups the collaborators of Register.
type RegistrarParams struct {
	Registry       *queryreport.Registry
	Loader         ModuleRequester
	Dimensions     []dimensions.Dimension
	DimensionCount int
	ProjectFilters bool
	Translator     *i18n.Translator
	Lookups        queryreport.LookupFactory
	Logger         *slog.Logger
}

// Register requests the shared financial statements module, extends the profit
// and loss report's filters while the load is in flight, then registers the
// Financial Ratios report from the loaded definition. Failures of either step
// are returned; a failed load leaves the report unregistered.
func Register(ctx context.Context, p RegistrarParams) error {
	if p.Registry == nil || p.Loader == nil {
		return errors.New("ratios: registry and loader required")
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	pending := p.Loader.Require(ctx, reports.ModulePath)

	var errs []error
	err := p.Registry.Update(reports.ProfitAndLossReport, func(def queryreport.Definition) queryreport.Definition {
		def = dimensions.AppendFilters(def, p.Dimensions, p.DimensionCount, p.Translator, p.Lookups)
		if p.ProjectFilters {
			def = WithProjectFilters(def, p.Translator, p.Lookups)
		}
		return def
	})
	if err != nil {
		errs = append(errs, fmt.Errorf("ratios: extend profit and loss filters: %w", err))
	} else {
		logger.Info("profit and loss filters extended",
			slog.Int("dimensions", p.DimensionCount),
			slog.Bool("project_filters", p.ProjectFilters))
	}

	shared, err := pending.Await(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("ratios: load %s: %w", reports.ModulePath, err))
		return errors.Join(errs...)
	}
	p.Registry.Set(ReportName, BuildReport(shared))
	logger.Info("report registered", slog.String("report", ReportName), slog.Int("filters", len(shared.Filters)))
	return errors.Join(errs...)
}
