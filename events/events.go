package events

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/NguyenNhuTu09/TIT-Shop/models"
	"github.com/shopspring/decimal"
)

const (
	TypeOrderCreated       = "order.created"
	TypeOrderStatusChanged = "order.status_changed"
	TypeOrderPaid          = "order.paid"
)

type Event struct {
	Type       string          `json:"type"`
	OrderID    uint            `json:"order_id"`
	UserID     uint            `json:"user_id"`
	Status     string          `json:"status"`
	Paid       bool            `json:"paid"`
	TotalPrice decimal.Decimal `json:"total_price"`
	OccurredAt time.Time       `json:"occurred_at"`
}

func NewOrderEvent(eventType string, order models.Order) Event {
	return Event{
		Type:       eventType,
		OrderID:    order.ID,
		UserID:     order.UserID,
		Status:     string(order.Status),
		Paid:       order.Paid,
		TotalPrice: order.TotalPrice,
		OccurredAt: time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Nop only logs the event.
type Nop struct{}

func (Nop) Publish(ctx context.Context, event Event) error {
	log.Printf("📦 %s order=%d status=%s", event.Type, event.OrderID, event.Status)
	return nil
}

type multi []Publisher

// Multi fans an event out to every publisher and joins their errors.
func Multi(publishers ...Publisher) Publisher {
	return multi(publishers)
}

func (m multi) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishAsync sends the event in the background; failures are logged.
func PublishAsync(p Publisher, event Event) {
	if p == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.Publish(ctx, event); err != nil {
			log.Printf("⚠️ Failed to publish %s for order %d: %v", event.Type, event.OrderID, err)
		}
	}()
}
