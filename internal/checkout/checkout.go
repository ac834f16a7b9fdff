package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomasvik/threadline-go/internal/domain"
	"github.com/tomasvik/threadline-go/pkg/logging"
)

type ProductStore interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	DecrementStock(ctx context.Context, id string, quantity int) error
}

type OrderStore interface {
	Create(ctx context.Context, order *domain.Order, idemKey string) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetIDByIdempotencyKey(ctx context.Context, key string) (string, error)
}

type CartClearer interface {
	ClearByUser(ctx context.Context, userID string) error
}

type UserStore interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// Notifier delivers the order confirmation best-effort. Its errors are
// absorbed: notification failure must never fail or roll back a checkout.
type Notifier interface {
	OrderCreated(ctx context.Context, order *domain.Order, user *domain.User) error
}

// Input is the checkout request: client-supplied line snapshots and total,
// not re-derived from the live cart.
type Input struct {
	UserID          string
	Lines           []domain.OrderLine
	TotalPrice      int64
	ShippingAddress domain.Address
	IdempotencyKey  string
}

// Orchestrator converts a line set into a persisted order, decrements stock
// per line and clears the cart. The sequence is deliberately non-atomic:
// there is no rollback once the order exists.
type Orchestrator struct {
	products ProductStore
	orders   OrderStore
	carts    CartClearer
	users    UserStore
	notify   Notifier
}

func New(products ProductStore, orders OrderStore, carts CartClearer, users UserStore, notify Notifier) *Orchestrator {
	return &Orchestrator{products: products, orders: orders, carts: carts, users: users, notify: notify}
}

func (o *Orchestrator) Checkout(ctx context.Context, in Input) (*domain.Order, error) {
	if len(in.Lines) == 0 {
		return nil, fmt.Errorf("no order items provided: %w", domain.ErrValidation)
	}
	if in.TotalPrice <= 0 {
		return nil, fmt.Errorf("total price is required: %w", domain.ErrValidation)
	}
	for _, line := range in.Lines {
		if line.ProductID == "" || line.Quantity < 1 {
			return nil, fmt.Errorf("each item needs a product and a quantity of at least 1: %w", domain.ErrValidation)
		}
	}

	// Replay: a key seen before returns the order it created.
	if in.IdempotencyKey != "" {
		if orderID, err := o.orders.GetIDByIdempotencyKey(ctx, in.IdempotencyKey); err == nil {
			return o.orders.GetByID(ctx, orderID)
		}
	}

	// Advisory stock pass. One read per line, no cross-line snapshot: stock
	// may still change before the decrement pass below.
	for _, line := range in.Lines {
		product, err := o.products.GetByID(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("product %s not found: %w", line.Name, domain.ErrNotFound)
			}
			return nil, err
		}
		if product.Stock < line.Quantity {
			return nil, fmt.Errorf("insufficient stock for %s, available: %d: %w",
				product.Name, product.Stock, domain.ErrInsufficientStock)
		}
	}

	order := &domain.Order{
		UserID:          in.UserID,
		Lines:           in.Lines,
		TotalPrice:      in.TotalPrice,
		ShippingAddress: in.ShippingAddress,
		Status:          domain.OrderStatusPending,
	}
	if err := o.orders.Create(ctx, order, in.IdempotencyKey); err != nil {
		if errors.Is(err, domain.ErrDuplicateKey) && in.IdempotencyKey != "" {
			if orderID, qerr := o.orders.GetIDByIdempotencyKey(ctx, in.IdempotencyKey); qerr == nil {
				return o.orders.GetByID(ctx, orderID)
			}
		}
		return nil, err
	}

	// Stock decrement happens after order creation. A failure mid-loop
	// leaves the order standing with stock partially decremented; the
	// conditional update in the store keeps every counter at zero or above.
	for _, line := range in.Lines {
		if err := o.products.DecrementStock(ctx, line.ProductID, line.Quantity); err != nil {
			logging.Log(logging.Fields{
				Service:   "storefront",
				UserID:    in.UserID,
				OrderID:   order.ID,
				ProductID: line.ProductID,
				Step:      "decrement_stock",
				Status:    "failed",
				Message:   err.Error(),
			})
		}
	}

	// The cart is cleared even when it diverged from the ordered items.
	if err := o.carts.ClearByUser(ctx, in.UserID); err != nil {
		logging.Log(logging.Fields{
			Service: "storefront", UserID: in.UserID, OrderID: order.ID,
			Step: "clear_cart", Status: "failed", Message: err.Error(),
		})
	}

	o.dispatchNotification(ctx, order)

	return order, nil
}

func (o *Orchestrator) dispatchNotification(ctx context.Context, order *domain.Order) {
	user, err := o.users.GetByID(ctx, order.UserID)
	if err != nil {
		logging.Log(logging.Fields{
			Service: "storefront", UserID: order.UserID, OrderID: order.ID,
			Step: "notify", Status: "user_lookup_failed", Message: err.Error(),
		})
		return
	}
	if err := o.notify.OrderCreated(ctx, order, user); err != nil {
		logging.Log(logging.Fields{
			Service: "storefront", UserID: order.UserID, OrderID: order.ID,
			Step: "notify", Status: "failed", Message: err.Error(),
		})
		return
	}
	logging.Log(logging.Fields{
		Service: "storefront", UserID: order.UserID, OrderID: order.ID,
		Step: "notify", Status: "queued",
	})
}
