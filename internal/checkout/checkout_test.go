package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomasvik/threadline-go/internal/domain"
)

type fakeProducts struct {
	mu       sync.Mutex
	products map[string]*domain.Product
}

func (f *fakeProducts) GetByID(_ context.Context, id string) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

// DecrementStock mimics the store's conditional update: it either applies the
// whole decrement or leaves the counter untouched.
func (f *fakeProducts) DecrementStock(_ context.Context, id string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	if p.Stock < quantity {
		return fmt.Errorf("product %s: %w", id, domain.ErrInsufficientStock)
	}
	p.Stock -= quantity
	return nil
}

func (f *fakeProducts) stock(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.products[id].Stock
}

type fakeOrders struct {
	mu      sync.Mutex
	orders  map[string]*domain.Order
	byKey   map[string]string
	created int
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{orders: map[string]*domain.Order{}, byKey: map[string]string{}}
}

func (f *fakeOrders) Create(_ context.Context, order *domain.Order, idemKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if idemKey != "" {
		if _, dup := f.byKey[idemKey]; dup {
			return fmt.Errorf("idempotency key %s: %w", idemKey, domain.ErrDuplicateKey)
		}
	}
	order.ID = uuid.NewString()
	cp := *order
	f.orders[order.ID] = &cp
	if idemKey != "" {
		f.byKey[idemKey] = order.ID
	}
	f.created++
	return nil
}

func (f *fakeOrders) GetByID(_ context.Context, id string) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrders) GetIDByIdempotencyKey(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byKey[key]
	if !ok {
		return "", fmt.Errorf("idempotency key %s: %w", key, domain.ErrNotFound)
	}
	return id, nil
}

type fakeCarts struct {
	mu      sync.Mutex
	cleared []string
	err     error
}

func (f *fakeCarts) ClearByUser(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.cleared = append(f.cleared, userID)
	return nil
}

type fakeUsers struct{}

func (fakeUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	return &domain.User{ID: id, Name: "Test User", Email: "test@example.com"}, nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeNotifier) OrderCreated(_ context.Context, _ *domain.Order, _ *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

type fixture struct {
	orch     *Orchestrator
	products *fakeProducts
	orders   *fakeOrders
	carts    *fakeCarts
	notifier *fakeNotifier
}

func newFixture() *fixture {
	products := &fakeProducts{products: map[string]*domain.Product{
		"tee":    {ID: "tee", Name: "Classic White T-Shirt", Price: 59900, Stock: 10, Sizes: []domain.Size{domain.SizeM}},
		"jacket": {ID: "jacket", Name: "Leather Jacket", Price: 499900, Stock: 3, Sizes: []domain.Size{domain.SizeL}},
	}}
	orders := newFakeOrders()
	carts := &fakeCarts{}
	notifier := &fakeNotifier{}
	return &fixture{
		orch:     New(products, orders, carts, fakeUsers{}, notifier),
		products: products,
		orders:   orders,
		carts:    carts,
		notifier: notifier,
	}
}

func validInput() Input {
	return Input{
		UserID: "u1",
		Lines: []domain.OrderLine{
			{ProductID: "tee", Name: "Classic White T-Shirt", Size: domain.SizeM, Quantity: 2, UnitPrice: 59900},
		},
		TotalPrice:      119800,
		ShippingAddress: domain.Address{Address: "1 Main St", City: "Springfield", PostalCode: "12345", Country: "US"},
	}
}

func TestCheckout_EmptyLines(t *testing.T) {
	fx := newFixture()
	in := validInput()
	in.Lines = nil

	_, err := fx.orch.Checkout(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, 0, fx.orders.created)
}

func TestCheckout_MissingTotal(t *testing.T) {
	fx := newFixture()
	in := validInput()
	in.TotalPrice = 0

	_, err := fx.orch.Checkout(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCheckout_BadLine(t *testing.T) {
	fx := newFixture()

	in := validInput()
	in.Lines[0].ProductID = ""
	_, err := fx.orch.Checkout(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrValidation)

	in = validInput()
	in.Lines[0].Quantity = 0
	_, err = fx.orch.Checkout(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCheckout_UnknownProduct(t *testing.T) {
	fx := newFixture()
	in := validInput()
	in.Lines[0].ProductID = "ghost"

	_, err := fx.orch.Checkout(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 0, fx.orders.created, "advisory check failure must precede order creation")
}

// Insufficient stock is caught before the order row exists, so nothing is
// persisted and nothing decremented.
func TestCheckout_InsufficientStockCreatesNoOrder(t *testing.T) {
	fx := newFixture()
	in := validInput()
	in.Lines = []domain.OrderLine{
		{ProductID: "jacket", Name: "Leather Jacket", Size: domain.SizeL, Quantity: 5, UnitPrice: 499900},
	}
	in.TotalPrice = 5 * 499900

	_, err := fx.orch.Checkout(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, 0, fx.orders.created)
	assert.Equal(t, 3, fx.products.stock("jacket"))
	assert.Empty(t, fx.carts.cleared)
}

func TestCheckout_Success(t *testing.T) {
	fx := newFixture()
	in := validInput()

	order, err := fx.orch.Checkout(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, order)

	assert.NotEmpty(t, order.ID)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, in.Lines, order.Lines, "order lines are the client snapshot, verbatim")
	assert.Equal(t, in.TotalPrice, order.TotalPrice)
	assert.Equal(t, in.ShippingAddress, order.ShippingAddress)

	assert.Equal(t, 8, fx.products.stock("tee"))
	assert.Equal(t, []string{"u1"}, fx.carts.cleared)
	assert.Equal(t, 1, fx.notifier.calls)
}

// A failing notifier must not surface: the order stands and the caller sees
// success.
func TestCheckout_NotifierFailureSwallowed(t *testing.T) {
	fx := newFixture()
	fx.notifier.err = errors.New("broker down")

	order, err := fx.orch.Checkout(context.Background(), validInput())
	require.NoError(t, err)
	assert.NotEmpty(t, order.ID)
	assert.Equal(t, 1, fx.orders.created)
}

// Cart clearing is best-effort too: its failure is logged, not returned.
func TestCheckout_CartClearFailureSwallowed(t *testing.T) {
	fx := newFixture()
	fx.carts.err = errors.New("cart store down")

	order, err := fx.orch.Checkout(context.Background(), validInput())
	require.NoError(t, err)
	assert.NotEmpty(t, order.ID)
	assert.Equal(t, 8, fx.products.stock("tee"), "stock decrement still happens")
}

func TestCheckout_IdempotentReplay(t *testing.T) {
	fx := newFixture()
	in := validInput()
	in.IdempotencyKey = "key-1"

	first, err := fx.orch.Checkout(context.Background(), in)
	require.NoError(t, err)

	second, err := fx.orch.Checkout(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, fx.orders.created, "replay must not create a second order")
	assert.Equal(t, 8, fx.products.stock("tee"), "replay must not decrement again")
}

// Concurrent checkouts against one product: the conditional decrement keeps
// stock exact and never negative, even though some requests fail the race.
func TestCheckout_ConcurrentDecrementNeverOversells(t *testing.T) {
	fx := newFixture()
	fx.products.products["tee"].Stock = 5

	const workers = 20
	var wg sync.WaitGroup
	var succeeded sync.Map

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := Input{
				UserID: fmt.Sprintf("u%d", i),
				Lines: []domain.OrderLine{
					{ProductID: "tee", Name: "Classic White T-Shirt", Size: domain.SizeM, Quantity: 1, UnitPrice: 59900},
				},
				TotalPrice:      59900,
				ShippingAddress: domain.Address{Address: "1 Main St", City: "Springfield", PostalCode: "12345", Country: "US"},
			}
			if order, err := fx.orch.Checkout(context.Background(), in); err == nil {
				succeeded.Store(order.ID, true)
			}
		}(i)
	}
	wg.Wait()

	assert.GreaterOrEqual(t, fx.products.stock("tee"), 0, "stock must never go negative")

	decremented := 0
	succeeded.Range(func(_, _ any) bool { decremented++; return true })
	// Orders that lose the decrement race still exist (the sequence has no
	// rollback), but the counter only moves for winners.
	assert.Equal(t, 5-fx.products.stock("tee"), minInt(decremented, 5))
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
