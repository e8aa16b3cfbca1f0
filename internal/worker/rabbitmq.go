package worker

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/flicky/go-storefront/internal/model"
)

const (
	receiptQueueName = "receipts"
	dlxExchange      = "receipts.dlx"
	dlqQueueName     = "receipts.dlq"
)

// SetupRabbitMQ declares exchanges, queues, and bindings (DLX/DLQ).
func SetupRabbitMQ(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(dlxExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLX: %w", err)
	}
	if _, err := ch.QueueDeclare(dlqQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLQ: %w", err)
	}
	if err := ch.QueueBind(dlqQueueName, receiptQueueName, dlxExchange, false, nil); err != nil {
		return fmt.Errorf("bind DLQ: %w", err)
	}
	if _, err := ch.QueueDeclare(receiptQueueName, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    dlxExchange,
		"x-dead-letter-routing-key": receiptQueueName,
	}); err != nil {
		return fmt.Errorf("declare receipt queue: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set QoS: %w", err)
	}
	return nil
}

type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// ReceiptPublisher puts paid orders on the receipt queue.
type ReceiptPublisher struct {
	channel publishChannel
}

func NewReceiptPublisher(ch *amqp.Channel) *ReceiptPublisher {
	return &ReceiptPublisher{channel: ch}
}

func (p *ReceiptPublisher) PublishReceipt(ctx context.Context, msg model.ReceiptMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal receipt message: %w", err)
	}
	err = p.channel.PublishWithContext(ctx, "", receiptQueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.OrderID.String(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish receipt: %w", err)
	}
	return nil
}
