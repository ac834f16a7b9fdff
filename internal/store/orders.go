package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tomasvik/threadline-go/internal/domain"
)

type Orders struct {
	pool *pgxpool.Pool
}

func NewOrders(pool *pgxpool.Pool) *Orders {
	return &Orders{pool: pool}
}

// Create persists the order snapshot, and, when an idempotency key is
// supplied, records the key in the same transaction. A UNIQUE conflict on
// the key means another request with the same key won the race; callers
// replay the stored order via GetIDByIdempotencyKey.
func (o *Orders) Create(ctx context.Context, order *domain.Order, idemKey string) error {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	raw, err := json.Marshal(order.Lines)
	if err != nil {
		return err
	}

	tx, err := o.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO orders(id, user_id, lines, total_price, ship_address, ship_city, ship_postal_code, ship_country, status, created_at)
		 VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		order.ID, order.UserID, raw, order.TotalPrice,
		order.ShippingAddress.Address, order.ShippingAddress.City,
		order.ShippingAddress.PostalCode, order.ShippingAddress.Country,
		string(order.Status), order.CreatedAt)
	if err != nil {
		return err
	}

	if idemKey != "" {
		_, err = tx.Exec(ctx,
			`INSERT INTO order_idempotency(idempotency_key, order_id) VALUES($1, $2)`,
			idemKey, order.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("key %s: %w", idemKey, domain.ErrDuplicateKey)
			}
			return err
		}
	}

	return tx.Commit(ctx)
}

func (o *Orders) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	row := o.pool.QueryRow(ctx,
		`SELECT id, user_id, lines, total_price, ship_address, ship_city, ship_postal_code, ship_country, status, created_at
		 FROM orders WHERE id=$1`, id)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return order, nil
}

func (o *Orders) GetIDByIdempotencyKey(ctx context.Context, key string) (string, error) {
	var orderID string
	err := o.pool.QueryRow(ctx,
		`SELECT order_id FROM order_idempotency WHERE idempotency_key=$1`, key).Scan(&orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("idempotency key: %w", domain.ErrNotFound)
		}
		return "", err
	}
	return orderID, nil
}

func (o *Orders) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return o.list(ctx,
		`SELECT id, user_id, lines, total_price, ship_address, ship_city, ship_postal_code, ship_country, status, created_at
		 FROM orders WHERE user_id=$1 ORDER BY created_at DESC`, userID)
}

func (o *Orders) ListAll(ctx context.Context) ([]domain.Order, error) {
	return o.list(ctx,
		`SELECT id, user_id, lines, total_price, ship_address, ship_city, ship_postal_code, ship_country, status, created_at
		 FROM orders ORDER BY created_at DESC`)
}

// SetStatus overwrites the status unconditionally; the status set is
// validated by the caller, transitions are not restricted here.
func (o *Orders) SetStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	tag, err := o.pool.Exec(ctx, `UPDATE orders SET status=$2 WHERE id=$1`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (o *Orders) list(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := o.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *order)
	}
	return out, rows.Err()
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var order domain.Order
	var raw []byte
	var status string
	if err := row.Scan(&order.ID, &order.UserID, &raw, &order.TotalPrice,
		&order.ShippingAddress.Address, &order.ShippingAddress.City,
		&order.ShippingAddress.PostalCode, &order.ShippingAddress.Country,
		&status, &order.CreatedAt); err != nil {
		return nil, err
	}
	order.Status = domain.OrderStatus(status)
	if err := json.Unmarshal(raw, &order.Lines); err != nil {
		return nil, fmt.Errorf("decode order lines: %w", err)
	}
	return &order, nil
}
