package contracts

import "time"

// Event is the envelope carried on the order events topic.
type Event struct {
	EventID   string         `json:"event_id"`
	OrderID   string         `json:"order_id"`
	UserID    string         `json:"user_id"`
	CreatedAt time.Time      `json:"created_at"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload"`
}

const (
	EventOrderCreated        = "order.created"
	EventOrderStatusChanged  = "order.status_changed"
	EventNotificationEmitted = "notification.emitted"
)

// DefaultTopic is where the storefront publishes order lifecycle events.
const DefaultTopic = "threadline.orders"
