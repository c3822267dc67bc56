package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"jumjum/backend/internal/domain"
)

// KitchenPublisher forwards kitchen orders to kitchen displays.
type KitchenPublisher interface {
	PublishKitchenOrder(ctx context.Context, order domain.KitchenOrder) error
}

type NoopKitchenPublisher struct{}

func (NoopKitchenPublisher) PublishKitchenOrder(_ context.Context, _ domain.KitchenOrder) error {
	return nil
}

// AMQPPublisher publishes kitchen orders as persistent JSON messages to a
// fanout exchange.
type AMQPPublisher struct {
	mu       sync.Mutex
	url      string
	exchange string
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	logger   *slog.Logger
}

func NewAMQPPublisher(url string, exchange string, logger *slog.Logger) (*AMQPPublisher, error) {
	p := &AMQPPublisher{
		url:      url,
		exchange: exchange,
		logger:   logger,
	}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *AMQPPublisher) connect() error {
	conn, err := amqp091.Dial(p.url)
	if err != nil {
		return fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		p.exchange, // name
		"fanout",   // kind
		true,       // durable
		false,      // auto-deleted
		false,      // internal
		false,      // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to declare exchange %s: %w", p.exchange, err)
	}

	p.conn = conn
	p.channel = ch
	return nil
}

func (p *AMQPPublisher) PublishKitchenOrder(ctx context.Context, order domain.KitchenOrder) error {
	body, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to marshal kitchen order: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil || p.conn.IsClosed() || p.channel.IsClosed() {
		if p.conn != nil {
			_ = p.conn.Close()
		}
		if err := p.connect(); err != nil {
			return fmt.Errorf("failed to reconnect: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange, // exchange
		"",         // routing key
		false,      // mandatory
		false,      // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			MessageId:    order.BillID,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish kitchen order %s: %w", order.BillID, err)
	}

	p.logger.Debug("kitchen order published",
		slog.String("action", "kitchen_order_published"),
		slog.String("exchange", p.exchange),
		slog.String("bill_id", order.BillID),
		slog.Int("message_size", len(body)),
	)
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
