package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-pharmacy/internal/jobs"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/procurement"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/shared"
)

// OrderStore loads purchase orders and records their dispatch.
type OrderStore interface {
	GetPO(ctx context.Context, number string) (procurement.StoredOrder, error)
	MarkDispatched(ctx context.Context, number string, at time.Time) error
}

// KeyStore guards against transmitting the same order twice.
type KeyStore interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// PODispatchJob transmits sent purchase orders to suppliers.
type PODispatchJob struct {
	Orders      OrderStore
	Keys        KeyStore
	Transmitter Transmitter
	Logger      *slog.Logger
	Metrics     *jobmetrics.Metrics
	clock       func() time.Time
}

// NewPODispatchJob constructs the job handler.
func NewPODispatchJob(orders OrderStore, keys KeyStore, transmitter Transmitter, logger *slog.Logger, metrics *jobmetrics.Metrics) *PODispatchJob {
	return &PODispatchJob{
		Orders:      orders,
		Keys:        keys,
		Transmitter: transmitter,
		Logger:      logger,
		Metrics:     metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func dispatchKey(poNumber string) string {
	return "PO-DISPATCH:" + poNumber
}

// Handle executes one dispatch. Missing or unsent orders are not retried; transmission
// failures release the idempotency key so asynq can retry.
func (j *PODispatchJob) Handle(ctx context.Context, task *asynq.Task) (err error) {
	if j == nil || j.Orders == nil || j.Transmitter == nil {
		return errors.New("po dispatch: dependencies not configured")
	}
	var payload PODispatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil || payload.PONumber == "" {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track("po_dispatch")
	defer func() {
		err = tracker.End(err)
	}()
	logger := j.log().With(slog.String("po_number", payload.PONumber))

	order, err := j.Orders.GetPO(ctx, payload.PONumber)
	if errors.Is(err, procurement.ErrNotFound) {
		logger.Warn("purchase order not found")
		j.metrics().ObserveDispatch("skipped")
		return fmt.Errorf("po dispatch %s: %w", payload.PONumber, asynq.SkipRetry)
	}
	if err != nil {
		return err
	}
	if order.Status != procurement.POStatusSent {
		logger.Warn("purchase order not sent", slog.String("status", string(order.Status)))
		j.metrics().ObserveDispatch("skipped")
		return fmt.Errorf("po dispatch %s: %w", payload.PONumber, asynq.SkipRetry)
	}
	if order.DispatchedAt != nil {
		logger.Info("purchase order already dispatched", slog.Time("dispatched_at", *order.DispatchedAt))
		j.metrics().ObserveDispatch("duplicate")
		return nil
	}

	key := dispatchKey(order.PONumber)
	if j.Keys != nil {
		if err := j.Keys.CheckAndInsert(ctx, key, "procurement.dispatch"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				logger.Info("dispatch already in progress")
				j.metrics().ObserveDispatch("duplicate")
				return nil
			}
			return err
		}
	}

	if err := j.Transmitter.Transmit(ctx, order); err != nil {
		logger.Error("transmit purchase order", slog.Any("error", err))
		j.metrics().ObserveDispatch("failed")
		return j.release(ctx, key, err)
	}
	if err := j.Orders.MarkDispatched(ctx, order.PONumber, j.now()); err != nil {
		logger.Error("mark purchase order dispatched", slog.Any("error", err))
		j.metrics().ObserveDispatch("failed")
		return j.release(ctx, key, err)
	}

	logger.Info("purchase order transmitted", slog.String("supplier_id", order.SupplierID))
	j.metrics().ObserveDispatch("transmitted")
	return nil
}

func (j *PODispatchJob) release(ctx context.Context, key string, cause error) error {
	if j.Keys == nil {
		return cause
	}
	if err := j.Keys.Delete(ctx, key); err != nil {
		j.log().Warn("release dispatch key", slog.String("key", key), slog.Any("error", err))
	}
	return cause
}

func (j *PODispatchJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *PODispatchJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskPODispatch))
	}
	return slog.Default().With(slog.String("job", TaskPODispatch))
}

func (j *PODispatchJob) now() time.Time {
	if j != nil && j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

// WithClock overrides the internal clock for deterministic tests.
func (j *PODispatchJob) WithClock(clock func() time.Time) {
	if j != nil && clock != nil {
		j.clock = clock
	}
}
