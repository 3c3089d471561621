package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/ratios/internal/accounting/reports"
	jobmetrics "github.com/odyssey-erp/ratios/internal/jobs"
	"github.com/odyssey-erp/ratios/internal/platform/db"
	"github.com/odyssey-erp/ratios/internal/ratios"
)

const scopeTimeout = 20 * time.Second

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// RatiosWarmer is the part of the ratios service the warmup drives.
type RatiosWarmer interface {
	Execute(ctx context.Context, filters ratios.Filters) (ratios.Report, error)
	Invalidate(ctx context.Context) error
}

// WarmupScope is one company and fiscal year pair to precompute.
type WarmupScope struct {
	Company    string
	FiscalYear string
}

// ScopeSource lists the scopes active on a date.
type ScopeSource interface {
	ActiveScopes(ctx context.Context, on time.Time) ([]WarmupScope, error)
}

// ScopeRepository reads warmup scopes from PostgreSQL.
type ScopeRepository struct {
	pool *pgxpool.Pool
}

// NewScopeRepository constructs ScopeRepository.
func NewScopeRepository(pool *pgxpool.Pool) *ScopeRepository {
	return &ScopeRepository{pool: pool}
}

// ActiveScopes pairs every company with the fiscal years containing on.
func (r *ScopeRepository) ActiveScopes(ctx context.Context, on time.Time) ([]WarmupScope, error) {
	var scopes []WarmupScope
	err := db.ReadOnly(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT c.name, fy.name
FROM companies c
JOIN fiscal_years fy ON $1::date BETWEEN fy.year_start_date AND fy.year_end_date
ORDER BY c.name, fy.name`, on)
		if err != nil {
			return err
		}
		scopes, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (WarmupScope, error) {
			var s WarmupScope
			err := row.Scan(&s.Company, &s.FiscalYear)
			return s, err
		})
		return err
	})
	return scopes, err
}

// RatiosWarmupJob precomputes Financial Ratios reports into the cache.
type RatiosWarmupJob struct {
	Ratios  RatiosWarmer
	Scopes  ScopeSource
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewRatiosWarmupJob wires dependencies for the warmup handler.
func NewRatiosWarmupJob(svc RatiosWarmer, scopes ScopeSource, logger *slog.Logger, metrics *jobmetrics.Metrics) *RatiosWarmupJob {
	return &RatiosWarmupJob{
		Ratios:  svc,
		Scopes:  scopes,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes ratios warmup tasks.
func (j *RatiosWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Ratios == nil {
		return errors.New("ratios warmup: handler not configured")
	}
	var payload RatiosWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("ratios warmup: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.Periodicity == "" {
		payload.Periodicity = string(reports.Yearly)
	}

	tracker := j.metrics().Track(TaskRatiosWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("run_id", payload.RunID), slog.String("periodicity", payload.Periodicity))
	logger.Info("starting ratios warmup")

	now := j.now()
	scopes, err := j.resolveScopes(ctx, payload, now)
	if err != nil {
		resultErr = err
		logger.Error("load warmup scopes", slog.Any("error", err))
		return resultErr
	}
	if len(scopes) == 0 {
		logger.Info("no scopes discovered for warmup")
		return resultErr
	}

	if payload.Invalidate {
		if err := j.Ratios.Invalidate(ctx); err != nil {
			resultErr = err
			logger.Error("invalidate ratios cache", slog.Any("error", err))
			return resultErr
		}
	}

	warmed := 0
	for _, scope := range scopes {
		if err := j.warmScope(ctx, scope, payload.Periodicity); err != nil {
			resultErr = err
			logger.Error("warm scope", slog.String("company", scope.Company), slog.String("fiscal_year", scope.FiscalYear), slog.Any("error", err))
			if ratios.IsClientError(err) {
				resultErr = fmt.Errorf("%v: %w", err, asynq.SkipRetry)
			}
			return resultErr
		}
		warmed++
	}

	logger.Info("completed ratios warmup", slog.Int("scopes", warmed), slog.Duration("duration", time.Since(now)))
	return resultErr
}

func (j *RatiosWarmupJob) resolveScopes(ctx context.Context, payload RatiosWarmupPayload, now time.Time) ([]WarmupScope, error) {
	if payload.Company != "" && payload.FiscalYear != "" {
		return []WarmupScope{{Company: payload.Company, FiscalYear: payload.FiscalYear}}, nil
	}
	if j.Scopes == nil {
		return nil, errors.New("ratios warmup: scope source not configured")
	}
	scopes, err := j.Scopes.ActiveScopes(ctx, now)
	if err != nil {
		return nil, err
	}
	if payload.Company == "" {
		return scopes, nil
	}
	filtered := scopes[:0]
	for _, s := range scopes {
		if s.Company == payload.Company {
			filtered = append(filtered, s)
		}
	}
	return filtered, nil
}

func (j *RatiosWarmupJob) warmScope(ctx context.Context, scope WarmupScope, periodicity string) error {
	scopeCtx, cancel := context.WithTimeout(ctx, scopeTimeout)
	defer cancel()

	_, err := j.Ratios.Execute(scopeCtx, ratios.Filters{
		Company:        scope.Company,
		FilterBasedOn:  reports.FilterFiscalYear,
		FromFiscalYear: scope.FiscalYear,
		ToFiscalYear:   scope.FiscalYear,
		Periodicity:    periodicity,
	})
	return err
}

func (j *RatiosWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskRatiosWarmup))
	}
	return slog.Default().With(slog.String("job", TaskRatiosWarmup))
}

func (j *RatiosWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *RatiosWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
