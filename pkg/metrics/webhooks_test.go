package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookMetricsCountsDispatchOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWebhookMetrics(reg)

	m.ObserveDispatch("products/update", OutcomeSuccess, 20*time.Millisecond)
	m.ObserveDispatch("products/update", OutcomeSuccess, 10*time.Millisecond)
	m.ObserveDispatch("carts/update", OutcomeUnknown, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.dispatched.WithLabelValues("products/update", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dispatched.WithLabelValues("carts/update", OutcomeUnknown)))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	sum, err := fetchHistogramSum(mfs, "shopwish_webhook_dispatch_duration_seconds", "topic", "products/update")
	require.NoError(t, err)
	assert.InDelta(t, 0.03, sum, 0.0001)

	_, err = fetchHistogramSum(mfs, "shopwish_webhook_dispatch_duration_seconds", "topic", "carts/update")
	assert.Error(t, err, "unknown topics should not be observed in the duration histogram")
}

func TestWebhookMetricsCountsDeliveries(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWebhookMetrics(reg)

	m.IncDelivery("back_in_stock", OutcomeSuccess)
	m.IncDelivery("back_in_stock", OutcomeTimeout)
	m.IncDelivery("", OutcomeFailure)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	got, err := fetchCounterValue(mfs, "shopwish_notification_delivery_total", "outcome", OutcomeTimeout)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)
	got, err = fetchCounterValue(mfs, "shopwish_notification_delivery_total", "type", "unknown")
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)
}

func TestWebhookMetricsNilSafe(t *testing.T) {
	var m *WebhookMetrics
	m.ObserveDispatch("products/update", OutcomeSuccess, time.Second)
	m.IncDelivery("low_stock", OutcomeFailure)
	NewWebhookMetrics(nil).IncDelivery("low_stock", OutcomeFailure)
}
