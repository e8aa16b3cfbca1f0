package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/go-storefront/internal/model"
	"github.com/flicky/go-storefront/internal/payment"
)

type paymentFixture struct {
	orders   *mockOrderRepo
	products *mockProductRepo
	paypal   *fakeProcessor
	receipts *fakeReceipts
	cache    *recordingInvalidator
	svc      *PaymentService
	buyer    Actor
	admin    Actor
	shirt    *model.Product
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()
	f := &paymentFixture{
		orders:   newMockOrderRepo(),
		products: newMockProductRepo(),
		paypal:   &fakeProcessor{intentID: "PAYPAL-1"},
		receipts: &fakeReceipts{},
		cache:    &recordingInvalidator{},
		buyer:    Actor{UserID: uuid.New(), Role: model.RoleCustomer},
		admin:    Actor{UserID: uuid.New(), Role: model.RoleAdmin},
	}
	f.shirt = f.products.add("shirt", "49.99", 3)
	processors := map[model.PaymentMethod]payment.Processor{model.PaymentMethodPayPal: f.paypal}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = NewPaymentService(f.orders, f.products, processors, f.receipts, f.cache, nil, log)
	f.svc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return f
}

func (f *paymentFixture) order(method model.PaymentMethod, qty int) *model.Order {
	return f.orders.add(&model.Order{
		UserID:        f.buyer.UserID,
		PaymentMethod: method,
		TotalPrice:    decimal.RequireFromString("124.98"),
		Items: []model.OrderItem{
			{ProductID: f.shirt.ID, Name: f.shirt.Name, Price: f.shirt.Price, Quantity: qty},
		},
	})
}

func (f *paymentFixture) completed(id string) {
	f.paypal.capture = &payment.Capture{
		ID:         id,
		Status:     payment.StatusCompleted,
		PayerEmail: "buyer@example.com",
		Amount:     decimal.RequireFromString("124.98"),
	}
}

func TestPaymentService_CreatePaymentIntent(t *testing.T) {
	f := newPaymentFixture(t)
	order := f.order(model.PaymentMethodPayPal, 2)

	intent, err := f.svc.CreatePaymentIntent(context.Background(), f.buyer, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "PAYPAL-1", intent.ID)

	stored := f.orders.orders[order.ID]
	require.NotNil(t, stored.PaymentResult)
	assert.Equal(t, model.PaymentResult{ID: "PAYPAL-1", PricePaid: "0"}, *stored.PaymentResult)
	assert.False(t, stored.IsPaid)
}

func TestPaymentService_CreatePaymentIntentErrors(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	cod := f.order(model.PaymentMethodCashOnDelivery, 1)
	_, err := f.svc.CreatePaymentIntent(ctx, f.buyer, cod.ID)
	assert.ErrorIs(t, err, ErrUnsupportedPaymentMethod)

	order := f.order(model.PaymentMethodPayPal, 1)
	_, err = f.svc.CreatePaymentIntent(ctx, Actor{UserID: uuid.New()}, order.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	f.paypal.createErr = errors.New("503 service unavailable")
	_, err = f.svc.CreatePaymentIntent(ctx, f.buyer, order.ID)
	assert.ErrorIs(t, err, ErrPaymentProcessor)
	assert.Nil(t, f.orders.orders[order.ID].PaymentResult)

	_, err = f.svc.CreatePaymentIntent(ctx, f.buyer, uuid.New())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestPaymentService_CaptureAndApprove(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()
	order := f.order(model.PaymentMethodPayPal, 2)
	_, err := f.svc.CreatePaymentIntent(ctx, f.buyer, order.ID)
	require.NoError(t, err)
	f.completed("PAYPAL-1")

	paid, err := f.svc.CaptureAndApprove(ctx, f.buyer, order.ID, "PAYPAL-1")
	require.NoError(t, err)

	assert.True(t, paid.IsPaid)
	require.NotNil(t, paid.PaidAt)
	assert.Equal(t, 2024, paid.PaidAt.Year())
	assert.Equal(t, model.PaymentResult{
		ID: "PAYPAL-1", Status: "COMPLETED", EmailAddress: "buyer@example.com", PricePaid: "124.98",
	}, *paid.PaymentResult)

	assert.True(t, f.orders.orders[order.ID].IsPaid)
	assert.Equal(t, 1, f.products.stock(f.shirt.ID))
	assert.Equal(t, []model.ReceiptMessage{{OrderID: order.ID, UserID: f.buyer.UserID}}, f.receipts.msgs)
	assert.Equal(t, []uuid.UUID{f.shirt.ID}, f.cache.ids)
}

func TestPaymentService_CaptureChecksStockBeforeCharging(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()
	order := f.order(model.PaymentMethodPayPal, 5)
	_, err := f.svc.CreatePaymentIntent(ctx, f.buyer, order.ID)
	require.NoError(t, err)
	f.completed("PAYPAL-1")

	_, err = f.svc.CaptureAndApprove(ctx, f.buyer, order.ID, "PAYPAL-1")
	assert.ErrorIs(t, err, ErrOutOfStock)
	assert.Zero(t, f.paypal.captures)
	assert.False(t, f.orders.orders[order.ID].IsPaid)
	assert.Equal(t, 3, f.products.stock(f.shirt.ID))

	// Restocked, the same intent can still be captured exactly once.
	f.products.products[f.shirt.ID].Stock = 10
	paid, err := f.svc.CaptureAndApprove(ctx, f.buyer, order.ID, "PAYPAL-1")
	require.NoError(t, err)
	assert.True(t, paid.IsPaid)
	assert.Equal(t, 1, f.paypal.captures)
	assert.Equal(t, 5, f.products.stock(f.shirt.ID))
}

func TestPaymentService_UnsettledCaptureIsKeptAndBlocksRecharge(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()
	order := f.order(model.PaymentMethodPayPal, 2)
	_, err := f.svc.CreatePaymentIntent(ctx, f.buyer, order.ID)
	require.NoError(t, err)
	f.completed("PAYPAL-1")
	// Another buyer takes the stock while the processor is capturing.
	f.paypal.onCapture = func() { f.products.products[f.shirt.ID].Stock = 1 }

	_, err = f.svc.CaptureAndApprove(ctx, f.buyer, order.ID, "PAYPAL-1")
	assert.ErrorIs(t, err, ErrOutOfStock)
	assert.Equal(t, 1, f.paypal.captures)

	want := model.PaymentResult{
		ID: "PAYPAL-1", Status: "COMPLETED", EmailAddress: "buyer@example.com", PricePaid: "124.98",
	}
	stored := f.orders.orders[order.ID]
	assert.False(t, stored.IsPaid)
	require.NotNil(t, stored.PaymentResult)
	assert.Equal(t, want, *stored.PaymentResult)

	f.paypal.intentID = "PAYPAL-2"
	_, err = f.svc.CreatePaymentIntent(ctx, f.buyer, order.ID)
	assert.ErrorIs(t, err, ErrPaymentAlreadyCaptured)
	_, err = f.svc.CaptureAndApprove(ctx, f.buyer, order.ID, "PAYPAL-1")
	assert.ErrorIs(t, err, ErrPaymentAlreadyCaptured)
	assert.Equal(t, 1, f.paypal.captures)
	assert.Equal(t, want, *f.orders.orders[order.ID].PaymentResult)

	// An admin settles the captured payment once stock is back.
	f.products.products[f.shirt.ID].Stock = 5
	paid, err := f.svc.MarkPaidByCash(ctx, f.admin, order.ID)
	require.NoError(t, err)
	assert.True(t, paid.IsPaid)
	assert.Equal(t, want, *paid.PaymentResult)
	assert.Equal(t, 3, f.products.stock(f.shirt.ID))
	assert.Equal(t, 1, f.paypal.captures)
}

func TestPaymentService_CaptureRejectsMismatch(t *testing.T) {
	tests := []struct {
		name       string
		externalID string
		capture    *payment.Capture
	}{
		{"unknown payment id", "OTHER", &payment.Capture{ID: "OTHER", Status: payment.StatusCompleted}},
		{"processor reports another id", "PAYPAL-1", &payment.Capture{ID: "OTHER", Status: payment.StatusCompleted}},
		{"not completed", "PAYPAL-1", &payment.Capture{ID: "PAYPAL-1", Status: "PENDING"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPaymentFixture(t)
			ctx := context.Background()
			order := f.order(model.PaymentMethodPayPal, 1)
			_, err := f.svc.CreatePaymentIntent(ctx, f.buyer, order.ID)
			require.NoError(t, err)
			f.paypal.capture = tt.capture

			_, err = f.svc.CaptureAndApprove(ctx, f.buyer, order.ID, tt.externalID)
			assert.ErrorIs(t, err, ErrPaymentVerificationFailed)
			assert.False(t, f.orders.orders[order.ID].IsPaid)
			assert.Equal(t, 3, f.products.stock(f.shirt.ID))
			assert.Empty(t, f.receipts.msgs)
		})
	}
}

func TestPaymentService_CaptureWithoutIntent(t *testing.T) {
	f := newPaymentFixture(t)
	order := f.order(model.PaymentMethodPayPal, 1)
	f.completed("PAYPAL-1")

	_, err := f.svc.CaptureAndApprove(context.Background(), f.buyer, order.ID, "PAYPAL-1")
	assert.ErrorIs(t, err, ErrPaymentVerificationFailed)
	assert.Zero(t, f.paypal.captures)
}

func TestPaymentService_CaptureProcessorError(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()
	order := f.order(model.PaymentMethodPayPal, 1)
	_, err := f.svc.CreatePaymentIntent(ctx, f.buyer, order.ID)
	require.NoError(t, err)
	f.paypal.captureErr = errors.New("timeout")

	_, err = f.svc.CaptureAndApprove(ctx, f.buyer, order.ID, "PAYPAL-1")
	assert.ErrorIs(t, err, ErrPaymentProcessor)
	assert.False(t, f.orders.orders[order.ID].IsPaid)
}

func TestPaymentService_PayingTwiceConsumesStockOnce(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()
	order := f.order(model.PaymentMethodPayPal, 1)
	_, err := f.svc.CreatePaymentIntent(ctx, f.buyer, order.ID)
	require.NoError(t, err)
	f.completed("PAYPAL-1")

	_, err = f.svc.CaptureAndApprove(ctx, f.buyer, order.ID, "PAYPAL-1")
	require.NoError(t, err)
	_, err = f.svc.CaptureAndApprove(ctx, f.buyer, order.ID, "PAYPAL-1")
	assert.ErrorIs(t, err, ErrAlreadyPaid)

	assert.Equal(t, 2, f.products.stock(f.shirt.ID))
	assert.Equal(t, 1, f.paypal.captures)
	assert.Len(t, f.receipts.msgs, 1)
}

func TestPaymentService_StaleOrderCannotBePaidTwice(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()
	order := f.order(model.PaymentMethodCashOnDelivery, 1)

	stale, err := f.orders.GetByID(ctx, order.ID)
	require.NoError(t, err)

	_, err = f.svc.MarkPaidByCash(ctx, f.admin, order.ID)
	require.NoError(t, err)

	_, err = f.svc.markPaid(ctx, stale, nil)
	assert.ErrorIs(t, err, ErrAlreadyPaid)
	assert.Equal(t, 2, f.products.stock(f.shirt.ID))
	assert.Len(t, f.receipts.msgs, 1)
}

func TestPaymentService_OutOfStockAbortsPayment(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()
	order := f.order(model.PaymentMethodCashOnDelivery, 5)

	_, err := f.svc.MarkPaidByCash(ctx, f.admin, order.ID)
	assert.ErrorIs(t, err, ErrOutOfStock)

	assert.False(t, f.orders.orders[order.ID].IsPaid)
	assert.Nil(t, f.orders.orders[order.ID].PaidAt)
	assert.Equal(t, 3, f.products.stock(f.shirt.ID))
	assert.Empty(t, f.receipts.msgs)
}

func TestPaymentService_OutOfStockOnSecondLineKeepsFirst(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()
	scarce := f.products.add("scarce", "5.00", 0)
	order := f.orders.add(&model.Order{
		UserID:        f.buyer.UserID,
		PaymentMethod: model.PaymentMethodCashOnDelivery,
		Items: []model.OrderItem{
			{ProductID: f.shirt.ID, Quantity: 1},
			{ProductID: scarce.ID, Quantity: 1},
		},
	})

	_, err := f.svc.MarkPaidByCash(ctx, f.admin, order.ID)
	assert.ErrorIs(t, err, ErrOutOfStock)
	assert.Equal(t, 3, f.products.stock(f.shirt.ID))
}

func TestPaymentService_ReceiptFailureKeepsPayment(t *testing.T) {
	f := newPaymentFixture(t)
	f.receipts.err = errors.New("broker unavailable")
	order := f.order(model.PaymentMethodCashOnDelivery, 1)

	paid, err := f.svc.MarkPaidByCash(context.Background(), f.admin, order.ID)
	require.NoError(t, err)
	assert.True(t, paid.IsPaid)
	assert.True(t, f.orders.orders[order.ID].IsPaid)
	assert.Equal(t, 2, f.products.stock(f.shirt.ID))
}

func TestPaymentService_MarkPaidByCashRequiresAdmin(t *testing.T) {
	f := newPaymentFixture(t)
	order := f.order(model.PaymentMethodCashOnDelivery, 1)

	_, err := f.svc.MarkPaidByCash(context.Background(), f.buyer, order.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.False(t, f.orders.orders[order.ID].IsPaid)
}
