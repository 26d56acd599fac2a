package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPaymentMetricsCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPaymentMetrics(reg)

	m.IncWebhookEvent("payment_intent.succeeded", "applied")
	m.IncWebhookEvent("payment_intent.succeeded", "applied")
	m.IncWebhookEvent("", "ignored")
	m.IncCheckoutSession("created")
	m.ObserveSettlement("payment_intent.succeeded", 25*time.Millisecond)

	if got := testutil.ToFloat64(m.webhookEvents.WithLabelValues("payment_intent.succeeded", "applied")); got != 2 {
		t.Fatalf("expected 2 applied events, got %v", got)
	}
	if got := testutil.ToFloat64(m.webhookEvents.WithLabelValues("unknown", "ignored")); got != 1 {
		t.Fatalf("empty event type should normalize to unknown, got %v", got)
	}
	if got := testutil.ToFloat64(m.checkoutSessions.WithLabelValues("created")); got != 1 {
		t.Fatalf("expected 1 created session, got %v", got)
	}
}

func TestNilRegistererIsSafe(t *testing.T) {
	m := NewPaymentMetrics(nil)
	m.IncWebhookEvent("x", "y")
	m.IncCheckoutSession("z")
	m.ObserveSettlement("x", time.Second)

	var noop *PaymentMetrics
	noop.IncWebhookEvent("x", "y")
}
