package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/flicky/go-storefront/internal/mailer"
	"github.com/flicky/go-storefront/internal/metrics"
	"github.com/flicky/go-storefront/internal/model"
	"github.com/flicky/go-storefront/internal/repository"
)

const idempotencyTTL = 24 * time.Hour

var errNothingToSend = errors.New("order not found or not paid")

// ledger is the subset of the Redis client used to remember sent receipts.
type ledger interface {
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// ReceiptWorker emails a receipt for every paid order published to the
// receipt queue. A failed send is retried once, then dead-lettered.
type ReceiptWorker struct {
	channel   *amqp.Channel
	orderRepo repository.OrderRepository
	ledger    ledger
	mailer    mailer.Mailer
	metrics   *metrics.Checkout
	log       *slog.Logger
	done      chan struct{}
}

func NewReceiptWorker(
	ch *amqp.Channel,
	orderRepo repository.OrderRepository,
	redisClient *redis.Client,
	m mailer.Mailer,
	checkout *metrics.Checkout,
	log *slog.Logger,
) *ReceiptWorker {
	w := &ReceiptWorker{
		channel:   ch,
		orderRepo: orderRepo,
		mailer:    m,
		metrics:   checkout,
		log:       log,
		done:      make(chan struct{}),
	}
	if redisClient != nil {
		w.ledger = redisClient
	}
	return w
}

func (w *ReceiptWorker) Start(ctx context.Context) error {
	msgs, err := w.channel.Consume(receiptQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	go func() {
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				w.processMessage(ctx, msg)
			case <-w.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	w.log.Info("receipt worker started")
	return nil
}

func (w *ReceiptWorker) Stop() { close(w.done) }

func (w *ReceiptWorker) processMessage(ctx context.Context, msg amqp.Delivery) {
	var receipt model.ReceiptMessage
	if err := json.Unmarshal(msg.Body, &receipt); err != nil {
		w.log.Error("unmarshal receipt message", "error", err)
		w.metrics.Receipt("dead")
		_ = msg.Nack(false, false)
		return
	}

	log := w.log.With("order_id", receipt.OrderID, "user_id", receipt.UserID)

	key := "receipt_sent:" + receipt.OrderID.String()
	if w.ledger != nil {
		exists, err := w.ledger.Exists(ctx, key).Result()
		if err != nil {
			log.Error("check idempotency key", "error", err)
			w.metrics.Receipt("retried")
			_ = msg.Nack(false, true)
			return
		}
		if exists > 0 {
			log.Info("receipt already sent, skipping")
			w.metrics.Receipt("duplicate")
			_ = msg.Ack(false)
			return
		}
	}

	if err := w.sendReceipt(ctx, receipt.OrderID); err != nil {
		if msg.Redelivered || errors.Is(err, errNothingToSend) {
			log.Error("receipt failed, dead-lettering", "error", err)
			w.metrics.Receipt("dead")
			_ = msg.Nack(false, false) // → DLQ
			return
		}
		log.Warn("receipt failed, requeueing", "error", err)
		w.metrics.Receipt("retried")
		_ = msg.Nack(false, true)
		return
	}

	if w.ledger != nil {
		if err := w.ledger.Set(ctx, key, "1", idempotencyTTL).Err(); err != nil {
			log.Error("set idempotency key", "error", err)
		}
	}

	w.metrics.Receipt("sent")
	_ = msg.Ack(false)
	log.Info("receipt sent")
}

func (w *ReceiptWorker) sendReceipt(ctx context.Context, orderID uuid.UUID) error {
	order, err := w.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("get order: %w", err)
	}
	if order == nil || !order.IsPaid {
		return fmt.Errorf("%w: %s", errNothingToSend, orderID)
	}
	return w.mailer.SendReceipt(ctx, order)
}
