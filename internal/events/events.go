// Package events announces order changes to whoever listens: a RabbitMQ
// queue for other services and a websocket hub for open browsers.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	OrderCreated = "order.created"
	OrderUpdated = "order.updated"
)

type Event struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	OrderID int64     `json:"order_id"`
	ActorID int64     `json:"actor_id,omitempty"`
	At      time.Time `json:"at"`
}

func NewOrderEvent(typ string, orderID, actorID int64) Event {
	return Event{
		ID:      uuid.NewString(),
		Type:    typ,
		OrderID: orderID,
		ActorID: actorID,
		At:      time.Now().UTC(),
	}
}

type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// Fanout delivers to every notifier and joins their failures.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, e Event) error {
	var errs []error
	for _, n := range f {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }
