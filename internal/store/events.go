package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tomasvik/threadline-go/internal/domain"
	"github.com/tomasvik/threadline-go/pkg/contracts"
	"github.com/tomasvik/threadline-go/pkg/outbox"
)

// Events writes order lifecycle events into the transactional outbox. A
// relay publishes pending rows to Kafka, so downstream delivery can never
// block or fail the request that produced the event.
type Events struct {
	pool  *pgxpool.Pool
	topic string
}

func NewEvents(pool *pgxpool.Pool, topic string) *Events {
	if topic == "" {
		topic = contracts.DefaultTopic
	}
	return &Events{pool: pool, topic: topic}
}

func (e *Events) OrderCreated(ctx context.Context, order *domain.Order, user *domain.User) error {
	payload := map[string]any{
		"order":      order,
		"user_name":  user.Name,
		"user_email": user.Email,
	}
	evt := contracts.Event{
		EventID:   uuid.NewString(),
		OrderID:   order.ID,
		UserID:    order.UserID,
		CreatedAt: time.Now().UTC(),
		Type:      contracts.EventOrderCreated,
		Payload:   payload,
	}
	return outbox.Insert(ctx, e.pool, evt.EventID, e.topic, order.ID, evt)
}

func (e *Events) OrderStatusChanged(ctx context.Context, order *domain.Order) error {
	evt := contracts.Event{
		EventID:   uuid.NewString(),
		OrderID:   order.ID,
		UserID:    order.UserID,
		CreatedAt: time.Now().UTC(),
		Type:      contracts.EventOrderStatusChanged,
		Payload:   map[string]any{"status": order.Status},
	}
	return outbox.Insert(ctx, e.pool, evt.EventID, e.topic, order.ID, evt)
}
