package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/flicky/go-storefront/internal/metrics"
	"github.com/flicky/go-storefront/internal/model"
	"github.com/flicky/go-storefront/internal/repository"
)

const (
	summaryMonths      = 6
	summaryLatestSales = 6
)

type OrderService struct {
	orderRepo repository.OrderRepository
	cartRepo  repository.CartRepository
	userRepo  repository.UserRepository
	pageSize  int
	metrics   *metrics.Checkout
}

func NewOrderService(orderRepo repository.OrderRepository, cartRepo repository.CartRepository,
	userRepo repository.UserRepository, pageSize int, m *metrics.Checkout) *OrderService {
	return &OrderService{orderRepo: orderRepo, cartRepo: cartRepo, userRepo: userRepo, pageSize: pageSize, metrics: m}
}

// PlaceOrder turns the owner's cart into an order. Missing prerequisites come
// back as *RedirectError. The order row, its items and the cart reset are
// written in one transaction.
func (s *OrderService) PlaceOrder(ctx context.Context, owner model.CartOwner) (*model.Order, error) {
	if !owner.Authenticated() {
		return nil, ErrForbidden
	}

	cart, err := findCart(ctx, s.cartRepo, owner)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if cart == nil || len(cart.Items) == 0 {
		return nil, &RedirectError{Err: ErrEmptyCart, RedirectTo: "/cart"}
	}

	user, err := s.userRepo.GetByID(ctx, owner.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.Address == nil {
		return nil, &RedirectError{Err: ErrNoShippingAddress, RedirectTo: "/shipping-address"}
	}
	if user.PaymentMethod == "" {
		return nil, &RedirectError{Err: ErrNoPaymentMethod, RedirectTo: "/payment-method"}
	}

	order := &model.Order{
		UserID:          user.ID,
		ShippingAddress: *user.Address,
		PaymentMethod:   user.PaymentMethod,
		ItemsPrice:      cart.ItemsPrice,
		ShippingPrice:   cart.ShippingPrice,
		TaxPrice:        cart.TaxPrice,
		TotalPrice:      cart.TotalPrice,
		UserName:        user.Name,
		UserEmail:       user.Email,
	}

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.orderRepo.Create(ctx, tx, order); err != nil {
		return nil, err
	}
	items := make([]model.OrderItem, 0, len(cart.Items))
	for _, line := range cart.Items {
		item := model.OrderItem{
			OrderID:   order.ID,
			ProductID: line.ProductID,
			Name:      line.Name,
			Slug:      line.Slug,
			Image:     line.Image,
			Price:     line.Price,
			Quantity:  line.Quantity,
		}
		if err := s.orderRepo.CreateItem(ctx, tx, &item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := s.cartRepo.Clear(ctx, tx, cart.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit order: %w", err)
	}

	order.Items = items
	s.metrics.OrderPlaced()
	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, actor Actor, id uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
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

// ListMyOrders returns one page of the actor's orders and the page count.
func (s *OrderService) ListMyOrders(ctx context.Context, actor Actor, page int) ([]model.Order, int, error) {
	orders, total, err := s.orderRepo.ListByUserID(ctx, actor.UserID, s.pageSize, pageOffset(page, s.pageSize))
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, pageCount(total, s.pageSize), nil
}

func (s *OrderService) ListOrders(ctx context.Context, actor Actor, query string, page int) ([]model.Order, int, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, 0, err
	}
	orders, total, err := s.orderRepo.List(ctx, query, s.pageSize, pageOffset(page, s.pageSize))
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, pageCount(total, s.pageSize), nil
}

func (s *OrderService) DeleteOrder(ctx context.Context, actor Actor, id uuid.UUID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.orderRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("delete order: %w", err)
	}
	return nil
}

func (s *OrderService) Summary(ctx context.Context, actor Actor) (*model.SalesSummary, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	summary, err := s.orderRepo.Summary(ctx, summaryMonths, summaryLatestSales)
	if err != nil {
		return nil, fmt.Errorf("sales summary: %w", err)
	}
	return summary, nil
}
