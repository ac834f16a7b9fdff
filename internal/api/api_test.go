package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomasvik/threadline-go/internal/checkout"
	"github.com/tomasvik/threadline-go/internal/domain"
	"github.com/tomasvik/threadline-go/internal/store"
)

type fakeCatalog struct {
	products map[string]*domain.Product
	lastList store.Filter
	total    int
}

func (f *fakeCatalog) List(_ context.Context, filter store.Filter) ([]domain.Product, int, error) {
	f.lastList = filter
	var out []domain.Product
	for _, p := range f.products {
		out = append(out, *p)
	}
	return out, f.total, nil
}

func (f *fakeCatalog) GetByID(_ context.Context, id string) (*domain.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (f *fakeCatalog) Create(_ context.Context, p *domain.Product) error {
	p.ID = "created-id"
	f.products[p.ID] = p
	return nil
}

func (f *fakeCatalog) Update(_ context.Context, id string, _ store.Patch) (*domain.Product, error) {
	return f.GetByID(context.Background(), id)
}

func (f *fakeCatalog) Delete(_ context.Context, id string) error {
	if _, ok := f.products[id]; !ok {
		return fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	delete(f.products, id)
	return nil
}

type fakeCartService struct {
	cart *domain.Cart
	err  error
}

func (f *fakeCartService) Get(context.Context, string) (*domain.Cart, error) {
	return f.cart, f.err
}

func (f *fakeCartService) Add(_ context.Context, _, productID string, size domain.Size, quantity int) (*domain.Cart, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.cart.Lines = append(f.cart.Lines, domain.CartLine{ProductID: productID, Size: size, Quantity: quantity})
	return f.cart, nil
}

func (f *fakeCartService) Update(context.Context, string, string, domain.Size, int) (*domain.Cart, error) {
	return f.cart, f.err
}

func (f *fakeCartService) Remove(context.Context, string, string, domain.Size) (*domain.Cart, error) {
	return f.cart, f.err
}

func (f *fakeCartService) Clear(context.Context, string) error { return f.err }

func (f *fakeCartService) Merge(context.Context, string, []domain.CartLine) (*domain.Cart, error) {
	return f.cart, f.err
}

type fakeCheckout struct {
	lastInput checkout.Input
	order     *domain.Order
	err       error
}

func (f *fakeCheckout) Checkout(_ context.Context, in checkout.Input) (*domain.Order, error) {
	f.lastInput = in
	return f.order, f.err
}

type fakeOrders struct {
	orders     map[string]*domain.Order
	lastStatus domain.OrderStatus
}

func (f *fakeOrders) GetByID(_ context.Context, id string) (*domain.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrders) ListByUser(_ context.Context, userID string) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOrders) ListAll(context.Context) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range f.orders {
		out = append(out, *o)
	}
	return out, nil
}

func (f *fakeOrders) SetStatus(_ context.Context, id string, status domain.OrderStatus) error {
	o, ok := f.orders[id]
	if !ok {
		return fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	o.Status = status
	f.lastStatus = status
	return nil
}

func newTestServer() (*Server, *fakeCatalog, *fakeCartService, *fakeCheckout, *fakeOrders) {
	catalog := &fakeCatalog{products: map[string]*domain.Product{
		"tee": {ID: "tee", Name: "Classic White T-Shirt", Price: 59900, Stock: 10,
			Category: domain.CategoryMen, Sizes: []domain.Size{domain.SizeM}},
	}, total: 1}
	carts := &fakeCartService{cart: &domain.Cart{UserID: "u1"}}
	co := &fakeCheckout{order: &domain.Order{ID: "o1", UserID: "u1", Status: domain.OrderStatusPending}}
	orders := &fakeOrders{orders: map[string]*domain.Order{
		"o1": {ID: "o1", UserID: "u1", Status: domain.OrderStatusPending},
	}}
	srv := &Server{Catalog: catalog, Carts: carts, Checkout: co, Orders: orders}
	return srv, catalog, carts, co, orders
}

func do(t *testing.T, srv *Server, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func asUser(extra ...string) map[string]string {
	h := map[string]string{"X-User-ID": "u1"}
	for i := 0; i+1 < len(extra); i += 2 {
		h[extra[i]] = extra[i+1]
	}
	return h
}

func asAdmin() map[string]string {
	return map[string]string{"X-User-ID": "admin1", "X-User-Admin": "true"}
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	msg, _ := body["message"].(string)
	return msg
}

func TestCartRequiresUser(t *testing.T) {
	srv, _, _, _, _ := newTestServer()
	rec := do(t, srv, http.MethodGet, "/api/cart", "", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, message(t, rec), "not authorized, no user")
}

func TestAdminEndpointRejectsPlainUser(t *testing.T) {
	srv, _, _, _, _ := newTestServer()
	rec := do(t, srv, http.MethodPost, "/api/products", `{}`, asUser())

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, message(t, rec), "not authorized as an admin")
}

func TestListProducts_ParsesQuery(t *testing.T) {
	srv, catalog, _, _, _ := newTestServer()
	catalog.total = 25

	rec := do(t, srv, http.MethodGet,
		"/api/products?search=shirt&category=Men&size=M&minPrice=100&maxPrice=90000&featured=true&page=2&limit=10",
		"", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	f := catalog.lastList
	assert.Equal(t, "shirt", f.Search)
	assert.Equal(t, domain.CategoryMen, f.Category)
	assert.Equal(t, domain.SizeM, f.Size)
	require.NotNil(t, f.MinPrice)
	assert.EqualValues(t, 100, *f.MinPrice)
	require.NotNil(t, f.MaxPrice)
	assert.EqualValues(t, 90000, *f.MaxPrice)
	assert.True(t, f.Featured)
	assert.Equal(t, 2, f.Page)
	assert.Equal(t, 10, f.Limit)

	var resp productListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Page)
	assert.Equal(t, 3, resp.Pages)
	assert.Equal(t, 25, resp.Total)
}

func TestListProducts_BadPrice(t *testing.T) {
	srv, _, _, _, _ := newTestServer()
	rec := do(t, srv, http.MethodGet, "/api/products?minPrice=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetProduct_NotFound(t *testing.T) {
	srv, _, _, _, _ := newTestServer()
	rec := do(t, srv, http.MethodGet, "/api/products/ghost", "", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, message(t, rec), "ghost")
}

func TestCreateProduct_Validation(t *testing.T) {
	srv, _, _, _, _ := newTestServer()

	rec := do(t, srv, http.MethodPost, "/api/products", `{"name":"x"}`, asAdmin())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, message(t, rec), "please provide all required fields")

	body := `{"name":"Cap","description":"d","price":4990,"image":"i","category":"Hats","sizes":["M"]}`
	rec = do(t, srv, http.MethodPost, "/api/products", body, asAdmin())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, message(t, rec), "invalid category")
}

func TestCreateProduct_Success(t *testing.T) {
	srv, _, _, _, _ := newTestServer()
	body := `{"name":"Cap","description":"d","price":4990,"image":"i","category":"Unisex","sizes":["M","L"],"stock":5}`
	rec := do(t, srv, http.MethodPost, "/api/products", body, asAdmin())

	assert.Equal(t, http.StatusCreated, rec.Code)
	var p domain.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "created-id", p.ID)
}

func TestGetCart_DropsVanishedProducts(t *testing.T) {
	srv, _, carts, _, _ := newTestServer()
	carts.cart.Lines = []domain.CartLine{
		{ProductID: "tee", Size: domain.SizeM, Quantity: 2},
		{ProductID: "gone", Size: domain.SizeS, Quantity: 1},
	}

	rec := do(t, srv, http.MethodGet, "/api/cart", "", asUser())
	require.Equal(t, http.StatusOK, rec.Code)

	var resp cartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "tee", resp.Items[0].Product.ID)
	assert.Equal(t, 2, resp.Items[0].Quantity)
}

func TestCheckout_PassesIdentityAndIdempotencyKey(t *testing.T) {
	srv, _, _, co, _ := newTestServer()
	body := `{"items":[{"product_id":"tee","name":"Classic White T-Shirt","size":"M","quantity":1,"unit_price":59900}],
		"total_price":59900,
		"shipping_address":{"address":"1 Main St","city":"Springfield","postal_code":"12345","country":"US"}}`

	rec := do(t, srv, http.MethodPost, "/api/orders", body, asUser("Idempotency-Key", "k-1"))
	assert.Equal(t, http.StatusCreated, rec.Code)

	assert.Equal(t, "u1", co.lastInput.UserID)
	assert.Equal(t, "k-1", co.lastInput.IdempotencyKey)
	assert.EqualValues(t, 59900, co.lastInput.TotalPrice)
	require.Len(t, co.lastInput.Lines, 1)
	assert.Equal(t, "tee", co.lastInput.Lines[0].ProductID)
}

func TestCheckout_ErrorMapping(t *testing.T) {
	srv, _, _, co, _ := newTestServer()
	co.order = nil
	co.err = fmt.Errorf("insufficient stock for Classic White T-Shirt, available: 3: %w", domain.ErrInsufficientStock)

	rec := do(t, srv, http.MethodPost, "/api/orders", `{"items":[],"total_price":1}`, asUser())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, message(t, rec), "insufficient stock")
}

func TestGetOrder_OwnerOnly(t *testing.T) {
	srv, _, _, _, _ := newTestServer()

	rec := do(t, srv, http.MethodGet, "/api/orders/o1", "", asUser())
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/orders/o1", "", map[string]string{"X-User-ID": "u2"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, message(t, rec), "not authorized to view this order")

	rec = do(t, srv, http.MethodGet, "/api/orders/o1", "", asAdmin())
	assert.Equal(t, http.StatusOK, rec.Code, "admins may view any order")
}

func TestSetOrderStatus(t *testing.T) {
	srv, _, _, _, orders := newTestServer()

	rec := do(t, srv, http.MethodPut, "/api/orders/o1/status", `{"status":""}`, asAdmin())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, message(t, rec), "status is required")

	rec = do(t, srv, http.MethodPut, "/api/orders/o1/status", `{"status":"teleported"}`, asAdmin())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, message(t, rec), "invalid status")

	rec = do(t, srv, http.MethodPut, "/api/orders/o1/status", `{"status":"shipped"}`, asAdmin())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.OrderStatusShipped, orders.lastStatus)

	var order domain.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
	assert.Equal(t, domain.OrderStatusShipped, order.Status)

	rec = do(t, srv, http.MethodPut, "/api/orders/ghost/status", `{"status":"shipped"}`, asAdmin())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInvalidJSONBody(t *testing.T) {
	srv, _, _, _, _ := newTestServer()
	rec := do(t, srv, http.MethodPost, "/api/cart/add", `{not json`, asUser())

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, message(t, rec), "invalid json")
}

func TestHealth(t *testing.T) {
	srv, _, _, _, _ := newTestServer()
	rec := do(t, srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
