package jobs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/procurement"
)

func TestWebhookTransmitterPostsOrder(t *testing.T) {
	var received WebhookEvent
	var idempotencyKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		idempotencyKey = r.Header.Get("Idempotency-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	transmitter := NewWebhookTransmitter(server.URL, time.Second)
	order := sentOrder("PO-202603-HOOK0001", procurement.POStatusSent)
	require.NoError(t, transmitter.Transmit(context.Background(), order))

	require.Equal(t, "PO-202603-HOOK0001", idempotencyKey)
	require.Equal(t, "purchase_order.sent", received.Event)
	require.Equal(t, "PO-202603-HOOK0001", received.Order.PONumber)
	require.EqualValues(t, 350000, received.Order.Items[0].TotalPrice)
}

func TestWebhookTransmitterFailsOnErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	err := NewWebhookTransmitter(server.URL, time.Second).Transmit(context.Background(), sentOrder("PO-1", procurement.POStatusSent))
	require.ErrorContains(t, err, "502")
}

func TestNewTransmitterFallsBackToLog(t *testing.T) {
	transmitter := NewTransmitter("", nil)
	_, ok := transmitter.(*LogTransmitter)
	require.True(t, ok)
	require.NoError(t, transmitter.Transmit(context.Background(), sentOrder("PO-1", procurement.POStatusSent)))

	_, ok = NewTransmitter("http://supplier.invalid/hook", nil).(*WebhookTransmitter)
	require.True(t, ok)
}
