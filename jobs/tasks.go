package jobs

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskRatiosWarmup recomputes cached Financial Ratios reports.
	TaskRatiosWarmup = "ratios:warmup"
)

// RatiosWarmupPayload scopes a warmup run. An empty Company warms every
// company for the fiscal years that contain the run date.
type RatiosWarmupPayload struct {
	RunID       string `json:"run_id"`
	Company     string `json:"company,omitempty"`
	FiscalYear  string `json:"fiscal_year,omitempty"`
	Periodicity string `json:"periodicity,omitempty"`
	Invalidate  bool   `json:"invalidate,omitempty"`
}

// NewRatiosWarmupTask constructs a warmup task, assigning a run id when absent.
func NewRatiosWarmupTask(payload RatiosWarmupPayload) (*asynq.Task, error) {
	if payload.RunID == "" {
		payload.RunID = uuid.NewString()
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRatiosWarmup, data), nil
}
