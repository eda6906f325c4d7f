package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/procurement"
)

// Transmitter delivers a sent purchase order to the supplier.
type Transmitter interface {
	Transmit(ctx context.Context, order procurement.StoredOrder) error
}

// NewTransmitter returns a webhook transmitter, or a log-only one when url is empty.
func NewTransmitter(url string, logger *slog.Logger) Transmitter {
	if url == "" {
		return &LogTransmitter{logger: logger}
	}
	return NewWebhookTransmitter(url, 15*time.Second)
}

// WebhookEvent is the body posted to the supplier endpoint.
type WebhookEvent struct {
	Event  string                  `json:"event"`
	SentAt time.Time               `json:"sent_at"`
	Order  procurement.StoredOrder `json:"order"`
}

// WebhookTransmitter posts purchase orders as JSON.
type WebhookTransmitter struct {
	url        string
	httpClient *http.Client
	now        func() time.Time
}

// NewWebhookTransmitter constructs a transmitter for the given endpoint.
func NewWebhookTransmitter(url string, timeout time.Duration) *WebhookTransmitter {
	return &WebhookTransmitter{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

// Transmit posts the order. The PO number doubles as the Idempotency-Key header.
func (t *WebhookTransmitter) Transmit(ctx context.Context, order procurement.StoredOrder) error {
	body, err := json.Marshal(WebhookEvent{Event: "purchase_order.sent", SentAt: t.now().UTC(), Order: order})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", order.PONumber)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("supplier webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// LogTransmitter only logs the order. Used when no supplier endpoint is configured.
type LogTransmitter struct {
	logger *slog.Logger
}

func (t *LogTransmitter) Transmit(ctx context.Context, order procurement.StoredOrder) error {
	logger := t.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("purchase order dispatched",
		slog.String("po_number", order.PONumber),
		slog.String("supplier_id", order.SupplierID),
		slog.Int("items", len(order.Items)),
		slog.Int64("total_amount", int64(order.TotalAmount)))
	return nil
}
