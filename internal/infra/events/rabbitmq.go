package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"app/internal/usecase"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	OrderExchange         = "order_exchange"
	OrderPlacedRoutingKey = "order.placed"
)

// RabbitMQPublisher は注文確定イベントをexchangeへ発行する。
type RabbitMQPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewRabbitMQPublisher(url string) (*RabbitMQPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		OrderExchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &RabbitMQPublisher{conn: conn, channel: ch}, nil
}

// 注文イベントのペイロード
type orderPlacedEvent struct {
	OrderID       string    `json:"order_id"`
	TotalAmount   int64     `json:"total_amount"`
	PaymentStatus string    `json:"payment_status"`
	PlacedAt      time.Time `json:"placed_at"`
}

func (p *RabbitMQPublisher) PublishOrderPlaced(ctx context.Context, order usecase.OrderOutput) error {
	body, err := json.Marshal(orderPlacedEvent{
		OrderID:       order.ID,
		TotalAmount:   order.TotalAmount,
		PaymentStatus: order.PaymentStatus,
		PlacedAt:      time.Now(),
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return p.channel.PublishWithContext(ctx,
		OrderExchange,
		OrderPlacedRoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
}

func (p *RabbitMQPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}

// NoopPublisher はRabbitMQ未設定のときに使う。
type NoopPublisher struct{}

func (NoopPublisher) PublishOrderPlaced(ctx context.Context, order usecase.OrderOutput) error {
	return nil
}
