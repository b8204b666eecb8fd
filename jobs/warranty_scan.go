package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/opsdesk/opsdesk/internal/assets"
)

const (
	// TaskWarrantyScan triggers the nightly warranty expiry sweep.
	TaskWarrantyScan = "assets:warranty_scan"

	defaultWarrantyWindowDays = 30
)

// WarrantyScanPayload carries the lookahead window for the sweep.
type WarrantyScanPayload struct {
	WindowDays int `json:"window_days"`
}

// NewWarrantyScanTask constructs an Asynq task for the warranty sweep.
func NewWarrantyScanTask(windowDays int) (*asynq.Task, error) {
	body, err := json.Marshal(WarrantyScanPayload{WindowDays: windowDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWarrantyScan, body, asynq.Queue(QueueDefault)), nil
}

// WarrantyScanJob finds assets whose warranty expires within the window
// and queues notification emails for the operations inbox.
type WarrantyScanJob struct {
	Assets   *assets.Service
	Client   *Client
	Logger   *slog.Logger
	NotifyTo string
}

// NewWarrantyScanJob initialises the warranty scan handler.
func NewWarrantyScanJob(service *assets.Service, client *Client, logger *slog.Logger, notifyTo string) *WarrantyScanJob {
	return &WarrantyScanJob{Assets: service, Client: client, Logger: logger, NotifyTo: notifyTo}
}

// Handle executes the warranty sweep.
func (j *WarrantyScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Assets == nil {
		return errors.New("warranty scan: handler not configured")
	}
	var payload WarrantyScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.WindowDays <= 0 {
		payload.WindowDays = defaultWarrantyWindowDays
	}

	window := time.Duration(payload.WindowDays) * 24 * time.Hour
	expiring, err := j.Assets.ExpiringWarranties(ctx, window)
	if err != nil {
		j.logger().Error("warranty scan failed", slog.Any("error", err))
		return err
	}

	j.logger().Info("warranty scan complete",
		slog.Int("window_days", payload.WindowDays),
		slog.Int("expiring", len(expiring)))

	if len(expiring) == 0 || j.Client == nil || j.NotifyTo == "" {
		return nil
	}

	body := "Assets with warranties expiring soon:\n"
	for _, a := range expiring {
		body += a.Tag + " " + a.Name + " expires " + a.WarrantyExpiry.Format("2006-01-02") + "\n"
	}
	_, err = j.Client.EnqueueSendEmail(ctx, SendEmailPayload{
		To:      j.NotifyTo,
		Subject: "Warranty expiry report",
		Body:    body,
	})
	if err != nil {
		j.logger().Warn("enqueue warranty notification", slog.Any("error", err))
	}
	return nil
}

func (j *WarrantyScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
