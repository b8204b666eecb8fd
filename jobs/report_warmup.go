package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/opsdesk/opsdesk/internal/reports"
)

const (
	// TaskReportWarmup refreshes the cached dashboard summary.
	TaskReportWarmup = "reports:warmup"
)

// ReportWarmupPayload carries scheduling metadata.
type ReportWarmupPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewReportWarmupTask constructs an Asynq task for the report cache warmup.
func NewReportWarmupTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(ReportWarmupPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportWarmup, body, asynq.Queue(QueueDefault)), nil
}

// ReportWarmupJob rebuilds the report summary so dashboard loads hit a
// warm cache.
type ReportWarmupJob struct {
	Reports *reports.Service
	Logger  *slog.Logger
}

// NewReportWarmupJob initialises the warmup handler.
func NewReportWarmupJob(service *reports.Service, logger *slog.Logger) *ReportWarmupJob {
	return &ReportWarmupJob{Reports: service, Logger: logger}
}

// Handle executes the cache warmup.
func (j *ReportWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reports == nil {
		return errors.New("report warmup: handler not configured")
	}
	var payload ReportWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	summary, err := j.Reports.Refresh(ctx)
	if err != nil {
		j.logger().Error("report warmup failed", slog.Any("error", err))
		return err
	}
	j.logger().Info("report warmup complete",
		slog.Int64("open_repairs", summary.OpenRepairs),
		slog.Int64("active_issuances", summary.ActiveIssuances))
	return nil
}

func (j *ReportWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
