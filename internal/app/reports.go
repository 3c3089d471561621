package app

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/ratios/internal/accounting/dimensions"
	"github.com/odyssey-erp/ratios/internal/accounting/reports"
	"github.com/odyssey-erp/ratios/internal/i18n"
	"github.com/odyssey-erp/ratios/internal/observability"
	"github.com/odyssey-erp/ratios/internal/queryreport"
	reporthttp "github.com/odyssey-erp/ratios/internal/queryreport/http"
	"github.com/odyssey-erp/ratios/internal/queryreport/loader"
	"github.com/odyssey-erp/ratios/internal/ratios"
)

// Stores bundles the persistence used by the reports.
type Stores struct {
	Ledger     ratios.LedgerReader
	Sales      ratios.SalesAccountReader
	Dimensions dimensions.Store
}

// PostgresStores builds the pgx-backed stores.
func PostgresStores(pool *pgxpool.Pool) Stores {
	return Stores{
		Ledger:     reports.NewRepository(pool),
		Sales:      ratios.NewRepository(pool),
		Dimensions: dimensions.NewRepository(pool),
	}
}

// ReportsParams groups the dependencies of BuildReports.
type ReportsParams struct {
	Config  *Config
	Logger  *slog.Logger
	Stores  Stores
	Redis   *redis.Client
	PDF     reporthttp.PDFRenderer
	Metrics *observability.Metrics
}

// Reports is the wired report subsystem.
type Reports struct {
	Registry   *queryreport.Registry
	Loader     *loader.Loader
	Ratios     *ratios.Service
	Dimensions *dimensions.Service
	Cache      *ratios.Cache
	Handler    *reporthttp.Handler

	// DimensionFields are the ledger columns accepted as dimension filters.
	DimensionFields []string
}

// BuildReports registers the host statements and the Financial Ratios report
// and wires the HTTP handler. A failed module load is logged and leaves the
// ratios report unregistered; the rest of the subsystem still starts.
func BuildReports(ctx context.Context, p ReportsParams) *Reports {
	cfg := p.Config
	if cfg == nil {
		cfg = &Config{DimensionFilterCount: dimensions.DefaultFilterCount}
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tr := i18n.New(cfg.AppLang)

	dimSvc := dimensions.NewService(p.Stores.Dimensions, logger)
	lookups := queryreport.LookupFactory(dimSvc.Lookup)

	registry := queryreport.NewRegistry()
	reports.RegisterHostReports(registry, reports.SharedDefinition(tr, lookups))

	modules := loader.New()
	modules.Register(reports.ModulePath, reports.Module(tr, lookups))

	loadCtx := ctx
	if cfg.AssetLoadTimeout > 0 {
		var cancel context.CancelFunc
		loadCtx, cancel = context.WithTimeout(ctx, cfg.AssetLoadTimeout)
		defer cancel()
	}

	catalogue, err := dimSvc.Catalogue(loadCtx)
	if err != nil {
		logger.Warn("load dimension catalogue", slog.Any("error", err))
		catalogue = dimensions.Defaults()
	}

	if err := ratios.Register(loadCtx, ratios.RegistrarParams{
		Registry:       registry,
		Loader:         modules,
		Dimensions:     catalogue,
		DimensionCount: cfg.DimensionFilterCount,
		ProjectFilters: cfg.RatiosProjectFilters,
		Translator:     tr,
		Lookups:        lookups,
		Logger:         logger,
	}); err != nil {
		logger.Error("register financial ratios", slog.Any("error", err))
	}

	dimensionFields := filterFields(catalogue, cfg.DimensionFilterCount)
	cache := ratios.NewCache(p.Redis, cfg.ReportCacheTTL)
	svc := ratios.NewService(p.Stores.Ledger, p.Stores.Sales, cache, tr, logger)

	handlerCfg := reporthttp.Config{
		Registry: registry,
		Runners: map[string]reporthttp.Runner{
			ratios.ReportName: func(ctx context.Context, values url.Values) (queryreport.Result, error) {
				return svc.Run(ctx, values, dimensionFields)
			},
		},
		Links:       dimSvc,
		PDF:         p.PDF,
		Translator:  tr,
		Logger:      logger,
		ClientError: ratios.IsClientError,
		RunTimeout:  cfg.AppRequestTimeout,
	}
	if p.Metrics != nil {
		handlerCfg.Metrics = p.Metrics
	}

	return &Reports{
		Registry:   registry,
		Loader:     modules,
		Ratios:     svc,
		Dimensions: dimSvc,
		Cache:      cache,
		Handler:    reporthttp.NewHandler(handlerCfg),

		DimensionFields: dimensionFields,
	}
}

// filterFields mirrors the dimensions appended as report filters.
func filterFields(catalogue []dimensions.Dimension, count int) []string {
	if count <= 0 {
		return nil
	}
	if count < len(catalogue) {
		catalogue = catalogue[:count]
	}
	return dimensions.Fieldnames(catalogue)
}
