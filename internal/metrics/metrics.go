package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Checkout counts checkout, payment and receipt events. A nil *Checkout, or one
// built without a registerer, silently drops observations.
type Checkout struct {
	ordersPlaced     prometheus.Counter
	paymentsCaptured *prometheus.CounterVec
	paymentFailures  *prometheus.CounterVec
	receipts         *prometheus.CounterVec
}

func NewCheckout(reg prometheus.Registerer) *Checkout {
	if reg == nil {
		return &Checkout{}
	}
	ordersPlaced := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storefront_orders_placed_total",
		Help: "Orders created from a cart.",
	})
	paymentsCaptured := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_payments_captured_total",
		Help: "Orders moved to paid, by payment method.",
	}, []string{"method"})
	paymentFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_payment_failures_total",
		Help: "Failed payment attempts, by reason.",
	}, []string{"reason"})
	receipts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_receipts_total",
		Help: "Receipt emails handled by the worker, by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(ordersPlaced, paymentsCaptured, paymentFailures, receipts)
	return &Checkout{
		ordersPlaced:     ordersPlaced,
		paymentsCaptured: paymentsCaptured,
		paymentFailures:  paymentFailures,
		receipts:         receipts,
	}
}

func (c *Checkout) OrderPlaced() {
	if c == nil || c.ordersPlaced == nil {
		return
	}
	c.ordersPlaced.Inc()
}

func (c *Checkout) PaymentCaptured(method string) {
	if c == nil || c.paymentsCaptured == nil {
		return
	}
	c.paymentsCaptured.WithLabelValues(normalizeLabel(method)).Inc()
}

func (c *Checkout) PaymentFailed(reason string) {
	if c == nil || c.paymentFailures == nil {
		return
	}
	c.paymentFailures.WithLabelValues(normalizeLabel(reason)).Inc()
}

// Receipt records a worker outcome: "sent", "duplicate", "retried" or "dead".
func (c *Checkout) Receipt(outcome string) {
	if c == nil || c.receipts == nil {
		return
	}
	c.receipts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
