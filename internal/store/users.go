package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tomasvik/threadline-go/internal/domain"
)

type Users struct {
	pool *pgxpool.Pool
}

func NewUsers(pool *pgxpool.Pool) *Users {
	return &Users{pool: pool}
}

func (u *Users) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	err := u.pool.QueryRow(ctx,
		`SELECT id, name, email, is_admin FROM users WHERE id=$1`, id).
		Scan(&user.ID, &user.Name, &user.Email, &user.Admin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return &user, nil
}

func (u *Users) Create(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	_, err := u.pool.Exec(ctx,
		`INSERT INTO users(id, name, email, is_admin) VALUES($1, $2, $3, $4)
		 ON CONFLICT (email) DO NOTHING`,
		user.ID, user.Name, user.Email, user.Admin)
	return err
}
