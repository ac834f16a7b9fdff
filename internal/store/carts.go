package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tomasvik/threadline-go/internal/domain"
)

type Carts struct {
	pool *pgxpool.Pool
}

func NewCarts(pool *pgxpool.Pool) *Carts {
	return &Carts{pool: pool}
}

// GetByUser returns the user's cart or ErrNotFound when none was created yet.
// Callers decide whether an absent cart reads as empty or as an error.
func (c *Carts) GetByUser(ctx context.Context, userID string) (*domain.Cart, error) {
	var cart domain.Cart
	var raw []byte
	err := c.pool.QueryRow(ctx,
		`SELECT id, user_id, lines, updated_at FROM carts WHERE user_id=$1`, userID).
		Scan(&cart.ID, &cart.UserID, &raw, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("cart for user %s: %w", userID, domain.ErrNotFound)
		}
		return nil, err
	}
	if err := json.Unmarshal(raw, &cart.Lines); err != nil {
		return nil, fmt.Errorf("decode cart lines: %w", err)
	}
	return &cart, nil
}

// SaveLines replaces the user's cart lines, creating the cart row lazily on
// first use.
func (c *Carts) SaveLines(ctx context.Context, userID string, lines []domain.CartLine) error {
	if lines == nil {
		lines = []domain.CartLine{}
	}
	raw, err := json.Marshal(lines)
	if err != nil {
		return err
	}
	_, err = c.pool.Exec(ctx,
		`INSERT INTO carts(id, user_id, lines) VALUES($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE SET lines=EXCLUDED.lines, updated_at=now()`,
		uuid.NewString(), userID, raw)
	return err
}

// ClearByUser empties the cart without deleting the row. A user without a
// cart is left as-is; clearing is always a success.
func (c *Carts) ClearByUser(ctx context.Context, userID string) error {
	_, err := c.pool.Exec(ctx,
		`UPDATE carts SET lines='[]', updated_at=now() WHERE user_id=$1`, userID)
	return err
}
