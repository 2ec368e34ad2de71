package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Channel is the subset of *amqp.Channel used here.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

type ChannelOpener func() (Channel, error)

// ConnChannels opens channels on a live connection.
func ConnChannels(conn *amqp.Connection) ChannelOpener {
	return func() (Channel, error) {
		ch, err := conn.Channel()
		if err != nil {
			return nil, err
		}
		return ch, nil
	}
}

// AMQPPublisher publishes events as persistent JSON messages on a durable queue.
type AMQPPublisher struct {
	open  ChannelOpener
	queue string
}

func NewAMQPPublisher(open ChannelOpener, queue string) *AMQPPublisher {
	return &AMQPPublisher{open: open, queue: queue}
}

func (p *AMQPPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	ch, err := p.open()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", p.queue, err)
	}

	return ch.PublishWithContext(ctx,
		"",      // exchange
		p.queue, // routing key (queue name)
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Type:         event.Type,
			Timestamp:    event.OccurredAt,
			Body:         body,
		},
	)
}

type PaymentUpdate struct {
	OrderID       uint   `json:"order_id"`
	PaymentStatus string `json:"payment_status"`
}

type PaymentHandler func(ctx context.Context, update PaymentUpdate) error

// ErrRejected marks a payment update that can never be applied. Such updates
// are dropped; any other handler error puts the message back on the queue.
var ErrRejected = errors.New("payment update rejected")

// ConsumePayments declares the queue and handles payment updates until ctx is
// done or the delivery channel closes.
func ConsumePayments(ctx context.Context, open ChannelOpener, queue string, handle PaymentHandler) error {
	ch, err := open()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}

	msgs, err := ch.Consume(
		queue,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("consume %s: %w", queue, err)
	}

	log.Printf("✅ Listening for payment updates on %s", queue)
	HandleDeliveries(ctx, msgs, handle)
	return nil
}

// HandleDeliveries acks handled messages, drops malformed or rejected ones and
// requeues the rest.
func HandleDeliveries(ctx context.Context, msgs <-chan amqp.Delivery, handle PaymentHandler) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-msgs:
			if !ok {
				return
			}
			var update PaymentUpdate
			if err := json.Unmarshal(d.Body, &update); err != nil || update.OrderID == 0 {
				log.Printf("❌ Dropping malformed payment update: %s", d.Body)
				_ = d.Nack(false, false)
				continue
			}
			if err := handle(ctx, update); err != nil {
				requeue := !errors.Is(err, ErrRejected)
				log.Printf("❌ Payment update for order %d failed (requeue=%t): %v", update.OrderID, requeue, err)
				_ = d.Nack(false, requeue)
				continue
			}
			_ = d.Ack(false)
		}
	}
}
