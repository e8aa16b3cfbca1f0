package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCheckoutCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCheckout(reg)

	m.OrderPlaced()
	m.OrderPlaced()
	m.PaymentCaptured("PayPal")
	m.PaymentFailed("")
	m.Receipt("sent")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ordersPlaced))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.paymentsCaptured.WithLabelValues("PayPal")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.paymentFailures.WithLabelValues("unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.receipts.WithLabelValues("sent")))
}

func TestCheckoutNilSafe(t *testing.T) {
	var m *Checkout
	assert.NotPanics(t, func() {
		m.OrderPlaced()
		m.PaymentCaptured("Stripe")
		NewCheckout(nil).Receipt("dead")
	})
}
