package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/ratios/internal/accounting/reports"
	jobmetrics "github.com/odyssey-erp/ratios/internal/jobs"
	"github.com/odyssey-erp/ratios/internal/ratios"
)

type fakeWarmer struct {
	mu          sync.Mutex
	executed    []ratios.Filters
	invalidated int
	err         error
}

func (f *fakeWarmer) Execute(_ context.Context, filters ratios.Filters) (ratios.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.executed = append(f.executed, filters)
	return ratios.Report{}, f.err
}

func (f *fakeWarmer) Invalidate(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated++
	return nil
}

type fakeScopes struct {
	scopes []WarmupScope
	on     time.Time
	err    error
}

func (f *fakeScopes) ActiveScopes(_ context.Context, on time.Time) ([]WarmupScope, error) {
	f.on = on
	return f.scopes, f.err
}

func newWarmupJob(warmer *fakeWarmer, scopes ScopeSource) *RatiosWarmupJob {
	job := NewRatiosWarmupJob(warmer, scopes, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	job.clock = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }
	return job
}

func warmupTask(t *testing.T, payload RatiosWarmupPayload) *asynq.Task {
	t.Helper()
	task, err := NewRatiosWarmupTask(payload)
	require.NoError(t, err)
	return task
}

func TestNewRatiosWarmupTaskAssignsRunID(t *testing.T) {
	task := warmupTask(t, RatiosWarmupPayload{Company: "Odyssey"})
	assert.Equal(t, TaskRatiosWarmup, task.Type())

	var payload RatiosWarmupPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.NotEmpty(t, payload.RunID)
	assert.Equal(t, "Odyssey", payload.Company)
}

func TestWarmupAllActiveScopes(t *testing.T) {
	warmer := &fakeWarmer{}
	scopes := &fakeScopes{scopes: []WarmupScope{{"Odyssey", "2024"}, {"Odyssey Retail", "2024"}}}
	job := newWarmupJob(warmer, scopes)

	require.NoError(t, job.Handle(context.Background(), warmupTask(t, RatiosWarmupPayload{Invalidate: true})))

	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), scopes.on)
	assert.Equal(t, 1, warmer.invalidated)
	require.Len(t, warmer.executed, 2)
	first := warmer.executed[0]
	assert.Equal(t, "Odyssey", first.Company)
	assert.Equal(t, reports.FilterFiscalYear, first.FilterBasedOn)
	assert.Equal(t, "2024", first.FromFiscalYear)
	assert.Equal(t, "2024", first.ToFiscalYear)
	assert.Equal(t, string(reports.Yearly), first.Periodicity)
}

func TestWarmupSingleCompany(t *testing.T) {
	warmer := &fakeWarmer{}
	scopes := &fakeScopes{scopes: []WarmupScope{{"Odyssey", "2024"}, {"Odyssey Retail", "2024"}}}
	job := newWarmupJob(warmer, scopes)

	require.NoError(t, job.Handle(context.Background(), warmupTask(t, RatiosWarmupPayload{Company: "Odyssey Retail", Periodicity: "Quarterly"})))
	require.Len(t, warmer.executed, 1)
	assert.Equal(t, "Odyssey Retail", warmer.executed[0].Company)
	assert.Equal(t, "Quarterly", warmer.executed[0].Periodicity)
	assert.Zero(t, warmer.invalidated)
}

func TestWarmupExplicitScopeSkipsLookup(t *testing.T) {
	warmer := &fakeWarmer{}
	job := newWarmupJob(warmer, nil)

	require.NoError(t, job.Handle(context.Background(), warmupTask(t, RatiosWarmupPayload{Company: "Odyssey", FiscalYear: "2023"})))
	require.Len(t, warmer.executed, 1)
	assert.Equal(t, "2023", warmer.executed[0].FromFiscalYear)
}

func TestWarmupScopeErrors(t *testing.T) {
	boom := errors.New("db down")
	job := newWarmupJob(&fakeWarmer{}, &fakeScopes{err: boom})
	assert.ErrorIs(t, job.Handle(context.Background(), warmupTask(t, RatiosWarmupPayload{})), boom)
}

func TestWarmupClientErrorSkipsRetry(t *testing.T) {
	warmer := &fakeWarmer{err: ratios.ErrInvalidFilters}
	job := newWarmupJob(warmer, &fakeScopes{scopes: []WarmupScope{{"Odyssey", "2024"}}})

	err := job.Handle(context.Background(), warmupTask(t, RatiosWarmupPayload{}))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.ErrorIs(t, err, ratios.ErrInvalidFilters)
}

func TestWarmupServerErrorRetries(t *testing.T) {
	boom := errors.New("timeout")
	job := newWarmupJob(&fakeWarmer{err: boom}, &fakeScopes{scopes: []WarmupScope{{"Odyssey", "2024"}}})

	err := job.Handle(context.Background(), warmupTask(t, RatiosWarmupPayload{}))
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestWarmupRejectsBadPayload(t *testing.T) {
	job := newWarmupJob(&fakeWarmer{}, &fakeScopes{})
	err := job.Handle(context.Background(), asynq.NewTask(TaskRatiosWarmup, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestWarmupNotConfigured(t *testing.T) {
	var job *RatiosWarmupJob
	assert.Error(t, job.Handle(context.Background(), asynq.NewTask(TaskRatiosWarmup, nil)))
}
