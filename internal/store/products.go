package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tomasvik/threadline-go/internal/domain"
)

type Products struct {
	pool *pgxpool.Pool
}

func NewProducts(pool *pgxpool.Pool) *Products {
	return &Products{pool: pool}
}

// Filter mirrors the catalog query surface: free-text search over name and
// description, category equality, size membership, price range, featured
// flag, plus page/limit pagination.
type Filter struct {
	Search   string
	Category domain.Category
	Size     domain.Size
	MinPrice *int64
	MaxPrice *int64
	Featured bool
	Page     int
	Limit    int
}

const DefaultPageSize = 12

// buildWhere assembles the WHERE clause and its arguments. Kept as a pure
// function so the query construction is testable without a database.
func buildWhere(f Filter) (string, []any) {
	var conds []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Search != "" {
		p := arg("%" + f.Search + "%")
		conds = append(conds, fmt.Sprintf("(name ILIKE %s OR description ILIKE %s)", p, p))
	}
	if f.Category != "" && f.Category != "All" {
		conds = append(conds, "category = "+arg(string(f.Category)))
	}
	if f.Size != "" {
		conds = append(conds, arg(string(f.Size))+" = ANY(sizes)")
	}
	if f.MinPrice != nil {
		conds = append(conds, "price >= "+arg(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		conds = append(conds, "price <= "+arg(*f.MaxPrice))
	}
	if f.Featured {
		conds = append(conds, "featured = TRUE")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (f Filter) normalize() Filter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageSize
	}
	return f
}

// List returns one page of products plus the total match count.
func (p *Products) List(ctx context.Context, f Filter) ([]domain.Product, int, error) {
	f = f.normalize()
	where, args := buildWhere(f)

	var total int
	if err := p.pool.QueryRow(ctx, "SELECT COUNT(*) FROM products"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT id, name, description, price, image, category, sizes, stock, featured, created_at, updated_at FROM products" +
		where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, f.Limit, (f.Page-1)*f.Limit)

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		prod, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *prod)
	}
	return out, total, rows.Err()
}

func (p *Products) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT id, name, description, price, image, category, sizes, stock, featured, created_at, updated_at
		 FROM products WHERE id=$1`, id)
	prod, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return prod, nil
}

func (p *Products) Create(ctx context.Context, prod *domain.Product) error {
	if prod.ID == "" {
		prod.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	prod.CreatedAt = now
	prod.UpdatedAt = now
	_, err := p.pool.Exec(ctx,
		`INSERT INTO products(id, name, description, price, image, category, sizes, stock, featured, created_at, updated_at)
		 VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		prod.ID, prod.Name, prod.Description, prod.Price, prod.Image,
		string(prod.Category), sizesToStrings(prod.Sizes), prod.Stock, prod.Featured,
		prod.CreatedAt, prod.UpdatedAt)
	return err
}

// Patch carries optional field updates; nil means keep the stored value.
type Patch struct {
	Name        *string
	Description *string
	Price       *int64
	Image       *string
	Category    *domain.Category
	Sizes       []domain.Size
	Stock       *int
	Featured    *bool
}

func (p *Products) Update(ctx context.Context, id string, patch Patch) (*domain.Product, error) {
	prod, err := p.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		prod.Name = *patch.Name
	}
	if patch.Description != nil {
		prod.Description = *patch.Description
	}
	if patch.Price != nil {
		prod.Price = *patch.Price
	}
	if patch.Image != nil {
		prod.Image = *patch.Image
	}
	if patch.Category != nil {
		prod.Category = *patch.Category
	}
	if patch.Sizes != nil {
		prod.Sizes = patch.Sizes
	}
	if patch.Stock != nil {
		prod.Stock = *patch.Stock
	}
	if patch.Featured != nil {
		prod.Featured = *patch.Featured
	}
	prod.UpdatedAt = time.Now().UTC()

	_, err = p.pool.Exec(ctx,
		`UPDATE products SET name=$2, description=$3, price=$4, image=$5, category=$6, sizes=$7, stock=$8, featured=$9, updated_at=$10
		 WHERE id=$1`,
		prod.ID, prod.Name, prod.Description, prod.Price, prod.Image,
		string(prod.Category), sizesToStrings(prod.Sizes), prod.Stock, prod.Featured, prod.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return prod, nil
}

func (p *Products) Delete(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// DecrementStock applies the one genuinely atomic update in the system: a
// conditional decrement done server-side, so concurrent checkouts can never
// lose an update or drive stock below zero.
func (p *Products) DecrementStock(ctx context.Context, id string, quantity int) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE products SET stock = stock - $2, updated_at = now() WHERE id = $1 AND stock >= $2`,
		id, quantity)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := p.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	return fmt.Errorf("product %s: %w", id, domain.ErrInsufficientStock)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var prod domain.Product
	var category string
	var sizes []string
	if err := row.Scan(&prod.ID, &prod.Name, &prod.Description, &prod.Price, &prod.Image,
		&category, &sizes, &prod.Stock, &prod.Featured, &prod.CreatedAt, &prod.UpdatedAt); err != nil {
		return nil, err
	}
	prod.Category = domain.Category(category)
	prod.Sizes = make([]domain.Size, 0, len(sizes))
	for _, s := range sizes {
		prod.Sizes = append(prod.Sizes, domain.Size(s))
	}
	return &prod, nil
}

func sizesToStrings(sizes []domain.Size) []string {
	out := make([]string, 0, len(sizes))
	for _, s := range sizes {
		out = append(out, string(s))
	}
	return out
}
