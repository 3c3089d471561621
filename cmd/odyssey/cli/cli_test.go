package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/ratios/internal/accounting/reports"
	"github.com/odyssey-erp/ratios/internal/queryreport"
	"github.com/odyssey-erp/ratios/internal/ratios"
	"github.com/odyssey-erp/ratios/jobs"
)

type stubRatios struct {
	filters ratios.Filters
	err     error
}

func (s *stubRatios) Execute(_ context.Context, filters ratios.Filters) (ratios.Report, error) {
	s.filters = filters
	if s.err != nil {
		return ratios.Report{}, s.err
	}
	return ratios.Report{
		Periods: []reports.Period{{Key: "dec_2024", Label: "2024"}},
		Columns: []queryreport.Column{
			{Fieldname: "account", Label: "Ratio", Fieldtype: queryreport.FieldData},
			{Fieldname: "dec_2024", Label: "2024", Fieldtype: queryreport.FieldData},
		},
		Rows: []reports.StatementRow{{Account: "'Net Profit Margin'", Values: map[string]float64{"dec_2024": 0.25}}},
	}, nil
}

type stubJobs struct {
	payload jobs.RatiosWarmupPayload
	closed  bool
}

func (s *stubJobs) TriggerWarmup(_ context.Context, payload jobs.RatiosWarmupPayload) (*asynq.TaskInfo, error) {
	s.payload = payload
	return &asynq.TaskInfo{ID: "task-1", Type: jobs.TaskRatiosWarmup, Queue: jobs.QueueDefault}, nil
}

func (s *stubJobs) InspectQueue(context.Context) (QueueStats, error) {
	return QueueStats{Queue: jobs.QueueDefault, Pending: 2}, nil
}

func (s *stubJobs) ListScheduled(context.Context, int) ([]*asynq.TaskInfo, error) {
	return []*asynq.TaskInfo{{ID: "t1", Type: jobs.TaskRatiosWarmup, NextProcessAt: time.Date(2024, 1, 1, 1, 15, 0, 0, time.UTC)}}, nil
}

func (s *stubJobs) Close() error {
	s.closed = true
	return nil
}

func newTestCLI(r *stubRatios, j *stubJobs) (*CLI, *bytes.Buffer, *bool) {
	out := new(bytes.Buffer)
	closed := false
	c := New(Options{
		Serve: func(context.Context) error { return errors.New("serve called") },
		Ratios: func(context.Context) (RatiosRunner, func(), error) {
			return r, func() { closed = true }, nil
		},
		Jobs:   func() (JobsClient, error) { return j, nil },
		Output: out,
	})
	return c, out, &closed
}

func TestRatiosRunJSON(t *testing.T) {
	r := &stubRatios{}
	c, out, closed := newTestCLI(r, &stubJobs{})

	err := c.Execute(context.Background(), []string{"ratios", "run", "--company", "Odyssey", "--from-fiscal-year", "2024", "--to-fiscal-year", "2024", "--periodicity", "Quarterly", "--cost-center", "Main,Ops"})
	require.NoError(t, err)

	assert.Equal(t, "Odyssey", r.filters.Company)
	assert.Equal(t, reports.FilterFiscalYear, r.filters.FilterBasedOn)
	assert.Equal(t, "Quarterly", r.filters.Periodicity)
	assert.Equal(t, []string{"Main", "Ops"}, r.filters.CostCenters)
	assert.Contains(t, out.String(), `"account": "'Net Profit Margin'"`)
	assert.True(t, *closed)
}

func TestRatiosRunCSV(t *testing.T) {
	c, out, _ := newTestCLI(&stubRatios{}, &stubJobs{})
	require.NoError(t, c.Execute(context.Background(), []string{"ratios", "run", "--company", "Odyssey", "--format", "csv"}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Ratio,2024", lines[0])
	assert.Equal(t, "'Net Profit Margin',0.25", lines[1])
}

func TestRatiosRunErrors(t *testing.T) {
	c, _, _ := newTestCLI(&stubRatios{}, &stubJobs{})
	assert.Error(t, c.Execute(context.Background(), []string{"ratios", "run"}), "company is required")

	c, _, _ = newTestCLI(&stubRatios{}, &stubJobs{})
	assert.Error(t, c.Execute(context.Background(), []string{"ratios", "run", "--company", "Odyssey", "--format", "xml"}))

	c, _, _ = newTestCLI(&stubRatios{err: ratios.ErrInvalidFilters}, &stubJobs{})
	err := c.Execute(context.Background(), []string{"ratios", "run", "--company", "Odyssey"})
	assert.ErrorIs(t, err, ratios.ErrInvalidFilters)
}

func TestJobsWarmup(t *testing.T) {
	j := &stubJobs{}
	c, out, _ := newTestCLI(&stubRatios{}, j)

	require.NoError(t, c.Execute(context.Background(), []string{"jobs", "warmup", "--company", "Odyssey", "--invalidate"}))
	assert.Equal(t, "Odyssey", j.payload.Company)
	assert.True(t, j.payload.Invalidate)
	assert.True(t, j.closed)
	assert.Contains(t, out.String(), "enqueued ratios:warmup id=task-1")
}

func TestJobsStatsAndScheduled(t *testing.T) {
	c, out, _ := newTestCLI(&stubRatios{}, &stubJobs{})
	require.NoError(t, c.Execute(context.Background(), []string{"jobs", "stats"}))
	assert.Contains(t, out.String(), `"pending":2`)

	c, out, _ = newTestCLI(&stubRatios{}, &stubJobs{})
	require.NoError(t, c.Execute(context.Background(), []string{"jobs", "scheduled"}))
	assert.Equal(t, "t1\tratios:warmup\t2024-01-01T01:15:00Z\n", out.String())
}

func TestRootRunsServe(t *testing.T) {
	c, _, _ := newTestCLI(&stubRatios{}, &stubJobs{})
	assert.EqualError(t, c.Execute(context.Background(), nil), "serve called")
	c, _, _ = newTestCLI(&stubRatios{}, &stubJobs{})
	assert.EqualError(t, c.Execute(context.Background(), []string{"serve"}), "serve called")
}
