package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/flicky/go-storefront/internal/model"
	"github.com/flicky/go-storefront/internal/repository"
)

type FulfillmentService struct {
	orderRepo repository.OrderRepository
	now       func() time.Time
}

func NewFulfillmentService(orderRepo repository.OrderRepository) *FulfillmentService {
	return &FulfillmentService{orderRepo: orderRepo, now: time.Now}
}

// DeliverOrder flags a paid order as delivered. Delivery never precedes payment.
func (s *FulfillmentService) DeliverOrder(ctx context.Context, actor Actor, orderID uuid.UUID) (*model.Order, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if !order.IsPaid {
		return nil, ErrNotPaid
	}

	deliveredAt := s.now().UTC()
	if err := s.orderRepo.MarkDelivered(ctx, order.ID, deliveredAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotPaid
		}
		return nil, err
	}
	order.IsDelivered = true
	order.DeliveredAt = &deliveredAt
	return order, nil
}
