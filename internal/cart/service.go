package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomasvik/threadline-go/internal/domain"
)

// ProductReader is the slice of the catalog the cart needs.
type ProductReader interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

// Repo is the persistence capability set shared by the remote-store-backed
// cart and the local-ephemeral one.
type Repo interface {
	GetByUser(ctx context.Context, userID string) (*domain.Cart, error)
	SaveLines(ctx context.Context, userID string, lines []domain.CartLine) error
}

// Service implements the cart aggregate operations. Stock checks at
// add/update time are advisory only: nothing is reserved, and the true
// decrement happens at checkout.
type Service struct {
	products ProductReader
	carts    Repo
}

func NewService(products ProductReader, carts Repo) *Service {
	return &Service{products: products, carts: carts}
}

// Get returns the user's cart; a cart that was never created reads as empty.
func (s *Service) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.carts.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &domain.Cart{UserID: userID, Lines: []domain.CartLine{}}, nil
		}
		return nil, err
	}
	return cart, nil
}

func (s *Service) Add(ctx context.Context, userID, productID string, size domain.Size, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("quantity must be at least 1: %w", domain.ErrValidation)
	}
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.HasSize(size) {
		return nil, fmt.Errorf("size %s not available for this product: %w", size, domain.ErrValidation)
	}
	if product.Stock < quantity {
		return nil, fmt.Errorf("product %s: %w", productID, domain.ErrInsufficientStock)
	}

	cart, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	cart.Lines = upsertLine(cart.Lines, domain.CartLine{ProductID: productID, Size: size, Quantity: quantity})
	if err := s.carts.SaveLines(ctx, userID, cart.Lines); err != nil {
		return nil, err
	}
	return cart, nil
}

// Update sets the exact quantity of an existing line. It never creates a
// line: a missing cart or line is NotFound.
func (s *Service) Update(ctx context.Context, userID, productID string, size domain.Size, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("quantity must be at least 1: %w", domain.ErrValidation)
	}
	cart, err := s.carts.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	i := findLine(cart.Lines, productID, size)
	if i < 0 {
		return nil, fmt.Errorf("item not in cart: %w", domain.ErrNotFound)
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.Stock < quantity {
		return nil, fmt.Errorf("product %s: %w", productID, domain.ErrInsufficientStock)
	}

	cart.Lines[i].Quantity = quantity
	if err := s.carts.SaveLines(ctx, userID, cart.Lines); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *Service) Remove(ctx context.Context, userID, productID string, size domain.Size) (*domain.Cart, error) {
	cart, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	cart.Lines = removeLine(cart.Lines, productID, size)
	if err := s.carts.SaveLines(ctx, userID, cart.Lines); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *Service) Clear(ctx context.Context, userID string) error {
	return s.carts.SaveLines(ctx, userID, nil)
}

// Merge folds a guest session's lines into the user's server-side cart.
// Deliberately skips stock and size validation (see MergeLines).
func (s *Service) Merge(ctx context.Context, userID string, incoming []domain.CartLine) (*domain.Cart, error) {
	cart, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	cart.Lines = MergeLines(cart.Lines, incoming)
	if err := s.carts.SaveLines(ctx, userID, cart.Lines); err != nil {
		return nil, err
	}
	return cart, nil
}
