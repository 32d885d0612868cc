// Package feed publishes order change events to realtime subscribers over
// a topic exchange. Every event carries the full order snapshot and may be
// delivered more than once; consumers merge idempotently.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/campuseats/canteen/internal/models"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	exchangeName   = "orders.events"
	publishTimeout = 5 * time.Second
)

// Feed is an AMQP-backed change feed for order events
type Feed struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *zap.Logger
}

// Connect dials the broker and declares the order events exchange
func Connect(url string, logger *zap.Logger) (*Feed, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchangeName, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	logger.Info("connected to change feed broker", zap.String("exchange", exchangeName))

	return &Feed{conn: conn, channel: channel, logger: logger}, nil
}

// Close shuts down the channel and connection
func (f *Feed) Close() {
	if f.channel != nil {
		f.channel.Close()
	}
	if f.conn != nil {
		f.conn.Close()
	}
}

// PublishOrderEvent publishes an insert/update event for the order carried
// by the event. The routing key encodes canteen and user ownership so
// server-side bindings scope delivery.
func (f *Feed) PublishOrderEvent(ctx context.Context, event models.OrderEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = f.channel.PublishWithContext(ctx,
		exchangeName,             // exchange
		eventRoutingKey(event),   // routing key
		false,                    // mandatory
		false,                    // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	f.logger.Debug("published order event",
		zap.String("type", event.Type),
		zap.String("order_id", event.Order.ID.String()))

	return nil
}

// eventRoutingKey is "order.<canteen_id>.<user_id>", with "none" standing
// in for anonymous orders
func eventRoutingKey(event models.OrderEvent) string {
	user := "none"
	if event.Order.UserID != nil {
		user = event.Order.UserID.String()
	}
	return fmt.Sprintf("order.%s.%s", event.Order.CanteenID, user)
}

// Scope restricts a subscription to one canteen's orders or one user's
// orders. The binding key is applied server-side, so a subscriber can
// never observe orders outside its scope.
type Scope struct {
	bindingKey string
}

// CanteenScope subscribes to every order owned by a canteen
func CanteenScope(canteenID uuid.UUID) Scope {
	return Scope{bindingKey: fmt.Sprintf("order.%s.*", canteenID)}
}

// UserScope subscribes to every order owned by a user
func UserScope(userID uuid.UUID) Scope {
	return Scope{bindingKey: fmt.Sprintf("order.*.%s", userID)}
}

// Subscribe binds an exclusive queue to the events exchange and streams
// decoded events until ctx is cancelled. Delivery is at-least-once.
func (f *Feed) Subscribe(ctx context.Context, scope Scope) (<-chan models.OrderEvent, error) {
	queue, err := f.channel.QueueDeclare(
		"",    // name, broker-generated
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	err = f.channel.QueueBind(
		queue.Name,       // queue name
		scope.bindingKey, // routing key
		exchangeName,     // exchange
		false,            // no-wait
		nil,              // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	deliveries, err := f.channel.Consume(
		queue.Name, // queue
		"",         // consumer
		false,      // auto-ack
		true,       // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		return nil, fmt.Errorf("consume queue: %w", err)
	}

	events := make(chan models.OrderEvent)

	go func() {
		defer close(events)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-deliveries:
				if !ok {
					return
				}

				var event models.OrderEvent
				if err := json.Unmarshal(msg.Body, &event); err != nil {
					f.logger.Error("dropping undecodable feed message", zap.Error(err))
					msg.Nack(false, false)
					continue
				}

				select {
				case events <- event:
					msg.Ack(false)
				case <-ctx.Done():
					msg.Nack(false, true)
					return
				}
			}
		}
	}()

	return events, nil
}
