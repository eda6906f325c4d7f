package jobs

import (
	"encoding/json"
	"errors"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-pharmacy/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPODispatch transmits a sent purchase order to its supplier.
	TaskPODispatch = "procurement:po_dispatch"
	// TaskIdempotencyCleanup prunes expired idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// PODispatchPayload identifies the purchase order to transmit.
type PODispatchPayload struct {
	PONumber string `json:"po_number"`
}

// NewPODispatchTask builds a dispatch task for the given PO number.
func NewPODispatchTask(poNumber string) (*asynq.Task, error) {
	if poNumber == "" {
		return nil, errors.New("jobs: po number required")
	}
	body, err := json.Marshal(PODispatchPayload{PONumber: poNumber})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPODispatch, body, asynq.Queue(QueueDefault), asynq.MaxRetry(8)), nil
}

// IdempotencyCleanupPayload configures key retention.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewIdempotencyCleanupTask builds the cleanup task. Non-positive retention defaults to 30 days.
func NewIdempotencyCleanupTask(retentionHours int) (*asynq.Task, error) {
	if retentionHours <= 0 {
		retentionHours = 24 * 30
	}
	body, err := json.Marshal(IdempotencyCleanupPayload{RetentionHours: retentionHours})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, body, asynq.Queue(QueueDefault)), nil
}
