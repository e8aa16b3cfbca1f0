package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/flicky/go-storefront/internal/metrics"
	"github.com/flicky/go-storefront/internal/model"
	"github.com/flicky/go-storefront/internal/payment"
	"github.com/flicky/go-storefront/internal/pricing"
	"github.com/flicky/go-storefront/internal/repository"
)

// ReceiptPublisher hands a paid order to the receipt pipeline.
type ReceiptPublisher interface {
	PublishReceipt(ctx context.Context, msg model.ReceiptMessage) error
}

type PaymentService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	processors  map[model.PaymentMethod]payment.Processor
	receipts    ReceiptPublisher
	cache       productInvalidator
	metrics     *metrics.Checkout
	log         *slog.Logger
	now         func() time.Time
}

func NewPaymentService(orderRepo repository.OrderRepository, productRepo repository.ProductRepository,
	processors map[model.PaymentMethod]payment.Processor, receipts ReceiptPublisher,
	cache productInvalidator, m *metrics.Checkout, log *slog.Logger) *PaymentService {
	if log == nil {
		log = slog.Default()
	}
	return &PaymentService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		processors:  processors,
		receipts:    receipts,
		cache:       cache,
		metrics:     m,
		log:         log,
		now:         time.Now,
	}
}

func (s *PaymentService) loadOrder(ctx context.Context, actor Actor, orderID uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if !canAccess(actor, order.UserID) {
		return nil, ErrForbidden
	}
	return order, nil
}

func (s *PaymentService) processor(method model.PaymentMethod) (payment.Processor, error) {
	p, ok := s.processors[method]
	if !ok || p == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPaymentMethod, method)
	}
	return p, nil
}

// CreatePaymentIntent opens an external payment for the order total and
// records its id as a placeholder payment result. The order stays unpaid.
func (s *PaymentService) CreatePaymentIntent(ctx context.Context, actor Actor, orderID uuid.UUID) (*payment.Intent, error) {
	order, err := s.loadOrder(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	if order.IsPaid {
		return nil, ErrAlreadyPaid
	}
	if captured(order) {
		return nil, ErrPaymentAlreadyCaptured
	}
	proc, err := s.processor(order.PaymentMethod)
	if err != nil {
		return nil, err
	}

	intent, err := proc.CreateOrder(ctx, order.ID.String(), order.TotalPrice)
	if err != nil {
		s.metrics.PaymentFailed("create")
		return nil, fmt.Errorf("%w: %v", ErrPaymentProcessor, err)
	}

	placeholder := model.PaymentResult{ID: intent.ID, Status: "", EmailAddress: "", PricePaid: "0"}
	if err := s.orderRepo.SetPaymentResult(ctx, order.ID, placeholder); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentAlreadyCaptured
		}
		return nil, fmt.Errorf("store payment intent: %w", err)
	}
	return intent, nil
}

// CaptureAndApprove captures the external payment and marks the order paid
// once the captured id matches the stored intent and its status is COMPLETED.
// Stock is checked before any money moves. A capture that still fails to settle
// stays recorded on the order and blocks further captures until an admin
// settles it.
func (s *PaymentService) CaptureAndApprove(ctx context.Context, actor Actor, orderID uuid.UUID, externalID string) (*model.Order, error) {
	order, err := s.loadOrder(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	if order.IsPaid {
		return nil, ErrAlreadyPaid
	}
	if captured(order) {
		return nil, ErrPaymentAlreadyCaptured
	}
	proc, err := s.processor(order.PaymentMethod)
	if err != nil {
		return nil, err
	}
	if order.PaymentResult == nil || order.PaymentResult.ID == "" || order.PaymentResult.ID != externalID {
		s.metrics.PaymentFailed("verification")
		return nil, ErrPaymentVerificationFailed
	}
	if err := s.checkStock(ctx, order); err != nil {
		return nil, err
	}

	capture, err := proc.Capture(ctx, externalID)
	if err != nil {
		s.metrics.PaymentFailed("capture")
		return nil, fmt.Errorf("%w: %v", ErrPaymentProcessor, err)
	}
	if capture.ID != order.PaymentResult.ID || capture.Status != payment.StatusCompleted {
		s.metrics.PaymentFailed("verification")
		s.log.WarnContext(ctx, "payment capture rejected",
			"order_id", order.ID, "payment_id", capture.ID, "status", capture.Status)
		return nil, ErrPaymentVerificationFailed
	}

	result := model.PaymentResult{
		ID:           capture.ID,
		Status:       capture.Status,
		EmailAddress: capture.PayerEmail,
		PricePaid:    pricing.Format(capture.Amount),
	}
	// Recorded outside the paid transaction so a rollback cannot lose it.
	if err := s.orderRepo.SetPaymentResult(ctx, order.ID, result); err != nil {
		s.log.ErrorContext(ctx, "failed to record captured payment",
			"order_id", order.ID, "payment_id", capture.ID, "error", err)
		return nil, fmt.Errorf("record capture: %w", err)
	}

	paid, err := s.markPaid(ctx, order, &result)
	if err != nil && !errors.Is(err, ErrAlreadyPaid) {
		s.log.ErrorContext(ctx, "captured payment left unsettled",
			"order_id", order.ID, "payment_id", capture.ID, "error", err)
	}
	return paid, err
}

func captured(order *model.Order) bool {
	return order.PaymentResult != nil && order.PaymentResult.Status == payment.StatusCompleted
}

// checkStock refuses an order whose lines no longer fit the current stock.
// The conditional decrement in markPaid stays the authority under concurrency.
func (s *PaymentService) checkStock(ctx context.Context, order *model.Order) error {
	for _, item := range order.Items {
		product, err := s.productRepo.GetByID(ctx, item.ProductID)
		if err != nil {
			return fmt.Errorf("get product: %w", err)
		}
		if product == nil || product.Stock < item.Quantity {
			s.metrics.PaymentFailed("out_of_stock")
			return fmt.Errorf("%w: %s", ErrOutOfStock, item.Name)
		}
	}
	return nil
}

// MarkPaidByCash settles an order without any external check. Besides cash on
// delivery it is how an admin settles a captured payment that a stock shortfall
// left unpaid; the captured result is kept.
func (s *PaymentService) MarkPaidByCash(ctx context.Context, actor Actor, orderID uuid.UUID) (*model.Order, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	order, err := s.loadOrder(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	return s.markPaid(ctx, order, order.PaymentResult)
}

// markPaid is the single unpaid-to-paid transition. The conditional paid flag
// and the stock decrements commit together; the receipt goes out afterwards and
// its failure never undoes the payment.
func (s *PaymentService) markPaid(ctx context.Context, order *model.Order, result *model.PaymentResult) (*model.Order, error) {
	if order.IsPaid {
		return nil, ErrAlreadyPaid
	}

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	paidAt := s.now().UTC()
	if err := s.orderRepo.MarkPaid(ctx, tx, order.ID, paidAt, result); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlreadyPaid
		}
		return nil, err
	}
	if err := s.reconcileStock(ctx, tx, order); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit payment: %w", err)
	}

	order.IsPaid = true
	order.PaidAt = &paidAt
	order.PaymentResult = result
	s.metrics.PaymentCaptured(string(order.PaymentMethod))
	s.invalidateProducts(ctx, order)

	if s.receipts != nil {
		msg := model.ReceiptMessage{OrderID: order.ID, UserID: order.UserID}
		if err := s.receipts.PublishReceipt(ctx, msg); err != nil {
			s.log.ErrorContext(ctx, "failed to queue receipt", "order_id", order.ID, "error", err)
		}
	}
	return order, nil
}

func (s *PaymentService) invalidateProducts(ctx context.Context, order *model.Order) {
	if s.cache == nil {
		return
	}
	for _, item := range order.Items {
		product, err := s.productRepo.GetByID(ctx, item.ProductID)
		if err != nil || product == nil {
			continue
		}
		s.cache.InvalidateProduct(ctx, product)
	}
}

// reconcileStock consumes inventory for every order line. A line that would
// drive stock negative aborts the payment transaction.
func (s *PaymentService) reconcileStock(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	for _, item := range order.Items {
		err := s.productRepo.DecrementStock(ctx, tx, item.ProductID, item.Quantity)
		if err == nil {
			continue
		}
		if errors.Is(err, repository.ErrInsufficientStock) {
			s.metrics.PaymentFailed("out_of_stock")
			s.log.WarnContext(ctx, "stock reconciliation failed",
				"order_id", order.ID, "product_id", item.ProductID, "qty", item.Quantity)
			return fmt.Errorf("%w: %s", ErrOutOfStock, item.Name)
		}
		return err
	}
	return nil
}
